// Package optimizer contains the core request/response pipeline: detect the
// request language, select a system prompt, call the chat-completion
// endpoint, and degrade to a deterministic local transform when the call
// fails.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oipromot/office-optimizer/internal/llm"
	"github.com/oipromot/office-optimizer/internal/metrics"
	"github.com/oipromot/office-optimizer/internal/prompts"
)

// CompletionClient is the outbound dependency of the optimizer. *llm.Client
// satisfies it; tests substitute a stub.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (*llm.Completion, *llm.CallError)
}

// Result modes reported to the caller.
const (
	ModeStandard = "standard"
	ModeFallback = "fallback"
)

// Result is a successful optimization outcome.
type Result struct {
	Text         string
	ResponseTime time.Duration
	Mode         string
}

// Optimizer orchestrates language detection, template selection and the
// chat-completion call. It holds no per-user state and is safe to share
// across concurrent sessions.
type Optimizer struct {
	client  CompletionClient
	metrics *metrics.OptimizerMetrics
	tracer  trace.Tracer
}

// New creates an optimizer. metrics may be nil.
func New(client CompletionClient, m *metrics.OptimizerMetrics) *Optimizer {
	return &Optimizer{
		client:  client,
		metrics: m,
		tracer:  otel.Tracer("requirement-optimizer"),
	}
}

// Optimize turns a raw user request into a requirement description. It never
// fails: when the remote call errors out the input is passed through the
// local cleanup transform and returned with Mode set to "fallback".
func (o *Optimizer) Optimize(ctx context.Context, userInput string) *Result {
	ctx, span := o.tracer.Start(ctx, "optimizer.optimize")
	defer span.End()

	lang := prompts.Detect(userInput)
	span.SetAttributes(attribute.String("request.language", string(lang)))

	systemPrompt, err := prompts.SystemPrompt(prompts.ModeInitial, lang)
	if err != nil {
		// Unreachable with a fixed mode constant; degrade the same way as a
		// remote failure rather than propagate.
		return o.fallbackResult(ctx, span, userInput, llm.KindUnknown)
	}

	completion, callErr := o.client.Complete(ctx, systemPrompt, userInput)
	if callErr != nil {
		span.RecordError(callErr)
		o.metrics.RecordRequest(ctx, "initial", callErr.ResponseTime)
		return o.fallbackResult(ctx, span, userInput, callErr.Kind)
	}

	o.metrics.RecordRequest(ctx, "initial", completion.ResponseTime)
	span.SetAttributes(attribute.String("result.mode", ModeStandard))

	return &Result{
		Text:         completion.Text,
		ResponseTime: completion.ResponseTime,
		Mode:         ModeStandard,
	}
}

// Refine folds user feedback into a previously produced requirement
// description. Language is detected from the feedback, not the original
// requirement: the most recent text governs. Unlike Optimize, a failed call
// surfaces the CallError so the caller can present retry options.
func (o *Optimizer) Refine(ctx context.Context, priorResult, feedback string) (*Result, *llm.CallError) {
	ctx, span := o.tracer.Start(ctx, "optimizer.refine")
	defer span.End()

	lang := prompts.Detect(feedback)
	span.SetAttributes(attribute.String("request.language", string(lang)))

	systemPrompt, err := prompts.SystemPrompt(prompts.ModeRefine, lang)
	if err != nil {
		span.RecordError(err)
		return nil, &llm.CallError{Kind: llm.KindUnknown, Message: err.Error()}
	}

	var userMessage string
	if lang == prompts.LangChinese {
		userMessage = fmt.Sprintf("之前的需求描述：%s\n用户反馈：%s", priorResult, feedback)
	} else {
		userMessage = fmt.Sprintf("Previous requirement description: %s\nUser feedback: %s", priorResult, feedback)
	}

	completion, callErr := o.client.Complete(ctx, systemPrompt, userMessage)
	if callErr != nil {
		span.RecordError(callErr)
		o.metrics.RecordRequest(ctx, "refine", callErr.ResponseTime)
		o.metrics.RecordFailure(ctx, string(callErr.Kind))
		return nil, callErr
	}

	o.metrics.RecordRequest(ctx, "refine", completion.ResponseTime)
	span.SetAttributes(attribute.String("result.mode", ModeStandard))

	return &Result{
		Text:         completion.Text,
		ResponseTime: completion.ResponseTime,
		Mode:         ModeStandard,
	}, nil
}

func (o *Optimizer) fallbackResult(ctx context.Context, span trace.Span, userInput string, kind llm.ErrorKind) *Result {
	o.metrics.RecordFallback(ctx, string(kind))
	span.SetAttributes(attribute.String("result.mode", ModeFallback))

	return &Result{
		Text:         cleanRequirement(userInput),
		ResponseTime: 0,
		Mode:         ModeFallback,
	}
}
