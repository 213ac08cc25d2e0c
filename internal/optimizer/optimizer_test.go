package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oipromot/office-optimizer/internal/llm"
)

// stubClient implements CompletionClient with canned responses.
type stubClient struct {
	completion *llm.Completion
	callErr    *llm.CallError
	gotSystem  string
	gotUser    string
	callCount  int
}

func (s *stubClient) Complete(ctx context.Context, systemPrompt, userMessage string) (*llm.Completion, *llm.CallError) {
	s.callCount++
	s.gotSystem = systemPrompt
	s.gotUser = userMessage
	return s.completion, s.callErr
}

func TestOptimize_Success(t *testing.T) {
	client := &stubClient{
		completion: &llm.Completion{Text: "1. Create a quarterly report", ResponseTime: 120 * time.Millisecond},
	}
	o := New(client, nil)

	result := o.Optimize(context.Background(), "please help me make a report")

	require.NotNil(t, result)
	assert.Equal(t, ModeStandard, result.Mode)
	assert.Equal(t, "1. Create a quarterly report", result.Text)
	assert.Equal(t, 120*time.Millisecond, result.ResponseTime)
	assert.Contains(t, client.gotSystem, "requirement analysis expert")
	assert.Equal(t, "please help me make a report", client.gotUser)
}

func TestOptimize_ChineseInputSelectsChineseTemplate(t *testing.T) {
	client := &stubClient{
		completion: &llm.Completion{Text: "1. 生成季度报告"},
	}
	o := New(client, nil)

	o.Optimize(context.Background(), "帮我生成季度报告")

	assert.Contains(t, client.gotSystem, "需求分析专家")
}

func TestOptimize_NeverFails(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "filler_prefix_stripped", input: "please help me sort the sheet", expected: "Sort the sheet"},
		{name: "no_filler_just_capitalized", input: "test", expected: "Test"},
		{name: "chinese_filler_stripped", input: "请帮我合并单元格", expected: "合并单元格"},
		{name: "whitespace_trimmed", input: "  could you   fix the layout  ", expected: "Fix the layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{
				callErr: &llm.CallError{Kind: llm.KindConnection, Message: "cannot reach the API server"},
			}
			o := New(client, nil)

			result := o.Optimize(context.Background(), tt.input)

			require.NotNil(t, result, "optimize must never return nil")
			assert.Equal(t, ModeFallback, result.Mode)
			assert.Equal(t, tt.expected, result.Text)
			assert.Equal(t, time.Duration(0), result.ResponseTime)
		})
	}
}

func TestRefine_Success(t *testing.T) {
	client := &stubClient{
		completion: &llm.Completion{Text: "1. Create a shorter report", ResponseTime: 90 * time.Millisecond},
	}
	o := New(client, nil)

	result, callErr := o.Refine(context.Background(), "1. Create a report", "shorter please")

	require.Nil(t, callErr)
	require.NotNil(t, result)
	assert.Equal(t, ModeStandard, result.Mode)
	assert.Contains(t, client.gotSystem, "user feedback")
	assert.Equal(t, "Previous requirement description: 1. Create a report\nUser feedback: shorter please", client.gotUser)
}

func TestRefine_FeedbackLanguageGoverns(t *testing.T) {
	client := &stubClient{completion: &llm.Completion{Text: "1. 更短的报告"}}
	o := New(client, nil)

	// English prior result, Chinese feedback: the refine template and the
	// combined message must be in Chinese.
	_, callErr := o.Refine(context.Background(), "1. Create a report", "再短一点")

	require.Nil(t, callErr)
	assert.Contains(t, client.gotSystem, "需求分析专家")
	assert.Contains(t, client.gotUser, "之前的需求描述：1. Create a report")
	assert.Contains(t, client.gotUser, "用户反馈：再短一点")
}

func TestRefine_SurfacesCallError(t *testing.T) {
	client := &stubClient{
		callErr: &llm.CallError{
			Kind:         llm.KindServer,
			Message:      "API server internal error",
			Suggestion:   "retry later",
			ResponseTime: 50 * time.Millisecond,
		},
	}
	o := New(client, nil)

	result, callErr := o.Refine(context.Background(), "prior", "feedback")

	assert.Nil(t, result)
	require.NotNil(t, callErr)
	assert.Equal(t, llm.KindServer, callErr.Kind)
	assert.Equal(t, 50*time.Millisecond, callErr.ResponseTime)
}
