package optimizer

import (
	"strings"
	"unicode"
)

// fillerPrefixes are the polite-request openers stripped by the local
// fallback. Matching is case-insensitive and prefix-only; the first match
// wins and the scan stops.
var fillerPrefixes = []string{
	"please help me",
	"can you help me",
	"i need help with",
	"i want to",
	"i would like to",
	"could you",
	"can you",
	"请帮我",
	"你能帮我",
	"我想要",
	"我需要",
	"能不能",
	"可以吗",
}

// cleanRequirement is the deterministic transform used when the remote call
// fails: trim, strip one filler prefix, capitalize the first letter.
func cleanRequirement(input string) string {
	cleaned := strings.TrimSpace(input)

	lower := strings.ToLower(cleaned)
	for _, prefix := range fillerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}

	if cleaned == "" {
		return cleaned
	}

	runes := []rune(cleaned)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
