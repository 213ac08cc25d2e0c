package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	analyzer := NewAnalyzer()

	tests := []struct {
		name     string
		input    string
		expected Kind
	}{
		{name: "content_creation_is_ai", input: "draft a summary of the meeting", expected: KindAI},
		{name: "batch_processing_is_vba", input: "batch convert all files and export them", expected: KindVBA},
		{name: "no_keywords_is_hybrid", input: "do something with my spreadsheet", expected: KindHybrid},
		{name: "chinese_ai_task", input: "帮我写一份总结", expected: KindAI},
		{name: "chinese_vba_task", input: "批量导出所有文件", expected: KindVBA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := analyzer.Analyze(tt.input)
			assert.Equal(t, tt.expected, rec.Kind)
		})
	}
}

func TestAnalyze_ScoresPerCategoryNotPerKeyword(t *testing.T) {
	analyzer := NewAnalyzer()

	// "write" and "generate" are in the same category: one point, not two.
	rec := analyzer.Analyze("write and generate a report")
	assert.Equal(t, 1, rec.AIScore)
}

func TestAnalyze_TieIsHybrid(t *testing.T) {
	analyzer := NewAnalyzer()

	// One AI category (content_creation) against one VBA category (data_processing).
	rec := analyzer.Analyze("write a batch summary")
	assert.Equal(t, rec.AIScore, rec.VBAScore)
	assert.Equal(t, KindHybrid, rec.Kind)
	assert.Equal(t, "mixed_capabilities", rec.Reason)
}

func TestAnalyze_DetectsChinese(t *testing.T) {
	analyzer := NewAnalyzer()

	assert.True(t, analyzer.Analyze("翻译这份文档").Chinese)
	assert.False(t, analyzer.Analyze("translate this document").Chinese)
}
