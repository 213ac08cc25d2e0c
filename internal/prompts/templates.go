// Package prompts holds the fixed library of system-prompt templates sent
// with every chat-completion request. Selection is a pure lookup keyed by
// task mode and request language.
package prompts

import (
	"fmt"

	"github.com/oipromot/office-optimizer/internal/language"
)

// Mode identifies the optimization task being performed.
type Mode string

const (
	// ModeInitial turns a raw user request into a numbered requirement list.
	ModeInitial Mode = "initial"
	// ModeRefine folds user feedback into a previously produced requirement list.
	ModeRefine Mode = "refine"
)

// Language identifies which template variant to use.
type Language string

const (
	LangChinese Language = "zh"
	LangEnglish Language = "en"
)

// ErrUnknownMode is returned when a mode outside the recognized set is requested.
var ErrUnknownMode = fmt.Errorf("unknown prompt mode")

// Detect returns the template language for the given text.
func Detect(text string) Language {
	if language.IsChinese(text) {
		return LangChinese
	}
	return LangEnglish
}

const initialZH = `你是一个需求分析专家，同时也是Excel和Word专家。你的任务是将用户的原始输入转化为清晰、准确的需求描述。

要求：
1. 只描述用户想要什么，不要添加如何实现的建议
2. 使用简洁、专业的语言
3. 保持需求的核心意图
4. 去除冗余信息
5. 确保描述完整且明确
6. 如果涉及Excel或Word功能，准确理解相关术语和需求
7. 输出结果必须以列表形式展示，每个需求点用数字编号

请将以下用户输入转化为清晰的需求描述：`

const initialEN = `You are a requirement analysis expert and also an Excel and Word expert. Your task is to transform the user's raw input into a clear, accurate requirement description.

Requirements:
1. Only describe what the user wants, do not add suggestions on how to implement
2. Use concise, professional language
3. Maintain the core intent of the requirement
4. Remove redundant information
5. Ensure the description is complete and clear
6. If involving Excel or Word features, accurately understand related terms and requirements
7. Output result must be in list format, with each requirement point numbered

Please transform the following user input into a clear requirement description:`

const refineZH = `你是一个需求分析专家，同时也是Excel和Word专家。根据用户的反馈，调整和优化之前的需求描述。

要求：
1. 根据用户反馈调整需求描述
2. 保持专业和简洁
3. 确保调整后的描述更符合用户意图
4. 不要添加实现建议，只描述需求
5. 如果涉及Excel或Word功能，准确理解相关术语和需求
6. 输出结果必须以列表形式展示，每个需求点用数字编号

请提供调整后的需求描述：`

const refineEN = `You are a requirement analysis expert and also an Excel and Word expert. Based on user feedback, adjust and optimize the previous requirement description.

Requirements:
1. Adjust requirement description based on user feedback
2. Keep it professional and concise
3. Ensure the adjusted description better matches user intent
4. Do not add implementation suggestions, only describe requirements
5. If involving Excel or Word features, accurately understand related terms and requirements
6. Output result must be in list format, with each requirement point numbered

Please provide the adjusted requirement description:`

var templates = map[Mode]map[Language]string{
	ModeInitial: {
		LangChinese: initialZH,
		LangEnglish: initialEN,
	},
	ModeRefine: {
		LangChinese: refineZH,
		LangEnglish: refineEN,
	},
}

// SystemPrompt returns the instruction text for the given mode and language.
// The lookup is pure and stable across calls.
func SystemPrompt(mode Mode, lang Language) (string, error) {
	variants, ok := templates[mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	prompt, ok := variants[lang]
	if !ok {
		// Unrecognized language falls back to English rather than failing;
		// only the mode is a hard contract.
		prompt = variants[LangEnglish]
	}
	return prompt, nil
}
