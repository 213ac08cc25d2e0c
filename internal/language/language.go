// Package language provides request-language detection used to pick
// Chinese or English prompt templates and user-facing strings.
package language

// IsChinese reports whether text contains at least one CJK Unified
// Ideograph (U+4E00..U+9FFF). Mixed-language input counts as Chinese as
// soon as a single CJK rune is present, regardless of proportion.
func IsChinese(text string) bool {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
