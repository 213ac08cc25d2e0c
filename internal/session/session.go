// Package session tracks one conversation thread per end user: the original
// requirement, the latest feedback, and a small status machine driving the
// chat flow.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/oipromot/office-optimizer/internal/llm"
	"github.com/oipromot/office-optimizer/internal/optimizer"
)

// Status is the session state machine position.
type Status int

const (
	StatusIdle Status = iota
	StatusProcessing
	StatusWaitingFeedback
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusProcessing:
		return "PROCESSING"
	case StatusWaitingFeedback:
		return "WAITING_FEEDBACK"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Envelope types delivered to transports (CLI, WebSocket, form handlers).
const (
	TypeProcessing        = "processing"
	TypeAIResponse        = "ai_response"
	TypeAIResponseRefined = "ai_response_refined"
	TypeError             = "error"
	TypeNewConversation   = "new_conversation"
)

// Envelope is the typed message returned to the delivery adapter after each
// session operation. It marshals directly onto the WebSocket wire protocol.
type Envelope struct {
	Type            string  `json:"type"`
	Content         string  `json:"content"`
	ResponseTime    float64 `json:"response_time,omitempty"`
	Mode            string  `json:"mode,omitempty"`
	ErrorType       string  `json:"error_type,omitempty"`
	ErrorSuggestion string  `json:"error_suggestion,omitempty"`
}

// RequirementOptimizer is the session's view of the optimizer core.
// *optimizer.Optimizer satisfies it.
type RequirementOptimizer interface {
	Optimize(ctx context.Context, userInput string) *optimizer.Result
	Refine(ctx context.Context, priorResult, feedback string) (*optimizer.Result, *llm.CallError)
}

// Manager owns the state of a single conversation. A session processes one
// request at a time: the mutex is held across the status check and the model
// call, so transports that share a Manager between tasks (the form endpoints
// key sessions by header, and two posts can arrive together) serialize on it.
type Manager struct {
	optimizer RequirementOptimizer

	mu                  sync.Mutex
	originalRequirement string
	latestFeedback      string
	status              Status
}

// NewManager creates an idle session around a shared optimizer instance.
func NewManager(opt RequirementOptimizer) *Manager {
	return &Manager{
		optimizer: opt,
		status:    StatusIdle,
	}
}

// Status returns the current state machine position.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OriginalRequirement returns the stored requirement text.
func (m *Manager) OriginalRequirement() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.originalRequirement
}

// LatestFeedback returns the stored feedback text.
func (m *Manager) LatestFeedback() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestFeedback
}

// Submit routes free text by the current status: feedback when the session
// is waiting on the user, a fresh optimization otherwise. The status check
// and the resulting model call happen under one lock acquisition.
func (m *Manager) Submit(ctx context.Context, input string) Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusWaitingFeedback {
		return m.handleFeedback(ctx, input)
	}
	return m.start(ctx, input)
}

// Start begins a new optimization session with the given requirement. The
// initial path never produces an error envelope: a failed remote call is
// already downgraded to a fallback result by the optimizer.
func (m *Manager) Start(ctx context.Context, userInput string) Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start(ctx, userInput)
}

func (m *Manager) start(ctx context.Context, userInput string) Envelope {
	m.originalRequirement = userInput
	m.latestFeedback = ""
	m.status = StatusProcessing

	result := m.optimizer.Optimize(ctx, userInput)

	m.status = StatusWaitingFeedback
	return Envelope{
		Type:         TypeAIResponse,
		Content:      result.Text,
		ResponseTime: result.ResponseTime.Seconds(),
		Mode:         result.Mode,
	}
}

// isResetCommand reports whether feedback is the reset sentinel. The bare
// "n" is intercepted too, so the single-character feedback "n" cannot be
// given literally; this quirk is preserved for compatibility with the
// original command syntax.
func isResetCommand(feedback string) bool {
	return strings.EqualFold(feedback, "/n") || strings.EqualFold(feedback, "n")
}

// HandleFeedback refines the current requirement with the given feedback.
// The reset sentinel ("/n" or "n", case-insensitive) resets the session
// regardless of current status. A failed refine call leaves the session in
// ERROR; the user can retry with new feedback or reset.
func (m *Manager) HandleFeedback(ctx context.Context, feedback string) Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handleFeedback(ctx, feedback)
}

func (m *Manager) handleFeedback(ctx context.Context, feedback string) Envelope {
	if isResetCommand(feedback) {
		return m.reset()
	}

	m.latestFeedback = feedback
	m.status = StatusProcessing

	result, callErr := m.optimizer.Refine(ctx, m.originalRequirement, feedback)
	if callErr != nil {
		m.status = StatusError
		return Envelope{
			Type:            TypeError,
			Content:         callErr.Message,
			ResponseTime:    callErr.ResponseTime.Seconds(),
			ErrorType:       string(callErr.Kind),
			ErrorSuggestion: callErr.Suggestion,
		}
	}

	m.status = StatusWaitingFeedback
	return Envelope{
		Type:         TypeAIResponseRefined,
		Content:      result.Text,
		ResponseTime: result.ResponseTime.Seconds(),
		Mode:         result.Mode,
	}
}

// Reset clears the session back to idle.
func (m *Manager) Reset() Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset()
}

func (m *Manager) reset() Envelope {
	m.originalRequirement = ""
	m.latestFeedback = ""
	m.status = StatusIdle
	return Envelope{
		Type:    TypeNewConversation,
		Content: "开始新对话",
	}
}

// FinalPrompt regenerates the final optimized requirement for the session:
// the refined description when feedback exists, the original optimization
// otherwise. Falls back to the stored requirement text if the refine call
// fails.
func (m *Manager) FinalPrompt(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latestFeedback != "" {
		result, callErr := m.optimizer.Refine(ctx, m.originalRequirement, m.latestFeedback)
		if callErr != nil {
			return m.originalRequirement
		}
		return result.Text
	}
	result := m.optimizer.Optimize(ctx, m.originalRequirement)
	return result.Text
}

// ProcessingEnvelope is the transient "working on it" notification pushed
// before a remote call, localized to the input language.
func ProcessingEnvelope(chinese bool) Envelope {
	content := "Processing..."
	if chinese {
		content = "处理中..."
	}
	return Envelope{Type: TypeProcessing, Content: content}
}
