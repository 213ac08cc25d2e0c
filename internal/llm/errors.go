package llm

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a failed chat-completion call.
type ErrorKind string

const (
	KindConnection     ErrorKind = "connection"
	KindAuthentication ErrorKind = "authentication"
	KindRateLimit      ErrorKind = "rate_limit"
	KindModelNotFound  ErrorKind = "model_not_found"
	KindServer         ErrorKind = "server"
	KindResponseFormat ErrorKind = "response_format"
	KindUnknown        ErrorKind = "unknown"
)

// CallError is the typed failure value returned for expected failure modes
// (network errors, non-200 responses, malformed payloads). It carries the
// elapsed wall-clock time of the attempt and a user-facing suggestion in the
// language of the request.
type CallError struct {
	Kind         ErrorKind
	Message      string
	Suggestion   string
	ResponseTime time.Duration
	cause        error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.cause
}

// classifiers is the ordered (predicate, kind) dispatch table. Evaluation is
// first match wins, so the order is part of the contract: connection errors
// shadow everything else, and the model check must see both "model" and a
// not-found marker.
var classifiers = []struct {
	kind  ErrorKind
	match func(s string) bool
}{
	{KindConnection, func(s string) bool {
		return containsAny(s, "connection", "timeout", "network")
	}},
	{KindAuthentication, func(s string) bool {
		return containsAny(s, "unauthorized", "401", "api key")
	}},
	{KindRateLimit, func(s string) bool {
		return containsAny(s, "rate limit", "429")
	}},
	{KindModelNotFound, func(s string) bool {
		return strings.Contains(s, "model") && containsAny(s, "not found", "404")
	}},
	{KindServer, func(s string) bool {
		return containsAny(s, "500", "502", "503")
	}},
	{KindResponseFormat, func(s string) bool {
		return containsAny(s, "json", "parse")
	}},
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Classify maps raw error text to an ErrorKind by lower-cased substring match.
func Classify(errText string) ErrorKind {
	s := strings.ToLower(errText)
	for _, c := range classifiers {
		if c.match(s) {
			return c.kind
		}
	}
	return KindUnknown
}

type errorText struct {
	messageZH, messageEN       string
	suggestionZH, suggestionEN string
}

var errorTexts = map[ErrorKind]errorText{
	KindConnection: {
		messageZH:    "无法连接到API服务器 (%s)",
		messageEN:    "cannot reach the API server (%s)",
		suggestionZH: "请检查网络连接和API服务器地址配置",
		suggestionEN: "Check the network connection and the API_BASE_URL setting",
	},
	KindAuthentication: {
		messageZH:    "API密钥验证失败",
		messageEN:    "API key authentication failed",
		suggestionZH: "请检查API_KEY配置是否正确",
		suggestionEN: "Check that API_KEY is set correctly",
	},
	KindRateLimit: {
		messageZH:    "API调用频率超出限制",
		messageEN:    "API rate limit exceeded",
		suggestionZH: "请稍等片刻后重试，或检查API配额",
		suggestionEN: "Wait a moment and retry, or check the API quota",
	},
	KindModelNotFound: {
		messageZH:    "模型 '%s' 不可用",
		messageEN:    "model '%s' is not available",
		suggestionZH: "请检查AI_MODEL配置，确保模型名称正确",
		suggestionEN: "Check the AI_MODEL setting and make sure the model name is correct",
	},
	KindServer: {
		messageZH:    "API服务器内部错误",
		messageEN:    "API server internal error",
		suggestionZH: "服务器暂时不可用，请稍后重试",
		suggestionEN: "The server is temporarily unavailable, retry later",
	},
	KindResponseFormat: {
		messageZH:    "API响应格式异常",
		messageEN:    "unexpected API response format",
		suggestionZH: "API服务可能不兼容，请检查API_BASE_URL配置",
		suggestionEN: "The API service may be incompatible; check API_BASE_URL",
	},
	KindUnknown: {
		suggestionZH: "请检查网络连接和API配置",
		suggestionEN: "Check the network connection and the API configuration",
	},
}

// newCallError classifies err and builds the localized failure value. The
// connection and model messages interpolate the endpoint and model name so the
// user sees which configuration to fix.
func (c *Client) newCallError(err error, chinese bool, elapsed time.Duration) *CallError {
	kind := Classify(err.Error())
	texts := errorTexts[kind]

	var message, suggestion string
	if chinese {
		message, suggestion = texts.messageZH, texts.suggestionZH
	} else {
		message, suggestion = texts.messageEN, texts.suggestionEN
	}

	switch kind {
	case KindConnection:
		message = fmt.Sprintf(message, c.cfg.BaseURL)
	case KindModelNotFound:
		message = fmt.Sprintf(message, c.cfg.Model)
	case KindUnknown:
		message = err.Error()
	}

	return &CallError{
		Kind:         kind,
		Message:      message,
		Suggestion:   suggestion,
		ResponseTime: elapsed,
		cause:        err,
	}
}
