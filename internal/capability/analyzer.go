// Package capability scores a task description against keyword tables to
// recommend an AI-driven or VBA/automation approach. It is a heuristic
// strategy module kept deliberately separate from the optimizer core.
package capability

import (
	"strings"

	"github.com/oipromot/office-optimizer/internal/language"
)

// Kind is the recommended execution approach.
type Kind string

const (
	KindAI     Kind = "AI"
	KindVBA    Kind = "VBA"
	KindHybrid Kind = "HYBRID"
)

// Recommendation is the outcome of analyzing one task description.
type Recommendation struct {
	Kind     Kind   `json:"recommendation"`
	Reason   string `json:"reason"`
	AIScore  int    `json:"ai_score"`
	VBAScore int    `json:"vba_score"`
	Chinese  bool   `json:"is_chinese"`
}

// Analyzer holds the keyword tables. Scoring is one point per matched
// category, not per keyword.
type Analyzer struct {
	aiStrengths  map[string][]string
	vbaStrengths map[string][]string
}

// NewAnalyzer creates an analyzer with the built-in keyword tables.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		aiStrengths: map[string][]string{
			"content_creation": {"write", "generate", "create content", "draft", "compose", "写", "生成", "创建", "起草"},
			"text_processing":  {"summarize", "translate", "rewrite", "analyze text", "extract", "总结", "翻译", "改写", "分析"},
			"creative_tasks":   {"brainstorm", "design", "creative", "ideas", "头脑风暴", "设计", "创意", "想法"},
			"analysis":         {"analyze", "review", "compare", "evaluate", "分析", "评估", "比较", "审查"},
		},
		vbaStrengths: map[string][]string{
			"data_processing":    {"batch", "bulk", "mass", "multiple files", "批量", "大量", "多个文件"},
			"precise_operations": {"format all", "apply styles", "exact formatting", "统一格式", "批量格式化"},
			"file_operations":    {"save as", "convert", "export", "import", "保存为", "转换", "导出", "导入"},
			"repetitive_tasks":   {"automate", "repeat", "loop", "每个", "重复", "自动化", "循环"},
		},
	}
}

// categories sorted for deterministic reason selection.
var aiCategoryOrder = []string{"content_creation", "text_processing", "creative_tasks", "analysis"}
var vbaCategoryOrder = []string{"data_processing", "precise_operations", "file_operations", "repetitive_tasks"}

// Analyze scores userInput against both tables and returns the
// recommendation. Ties (including no match at all) come back as HYBRID.
func (a *Analyzer) Analyze(userInput string) Recommendation {
	lower := strings.ToLower(userInput)
	chinese := language.IsChinese(userInput)

	aiScore, aiReasons := scoreCategories(lower, a.aiStrengths, aiCategoryOrder)
	vbaScore, vbaReasons := scoreCategories(lower, a.vbaStrengths, vbaCategoryOrder)

	var kind Kind
	var reason string
	switch {
	case aiScore > vbaScore:
		kind = KindAI
		reason = firstOr(aiReasons, "general")
	case vbaScore > aiScore:
		kind = KindVBA
		reason = firstOr(vbaReasons, "automation")
	default:
		kind = KindHybrid
		reason = "mixed_capabilities"
	}

	return Recommendation{
		Kind:     kind,
		Reason:   reason,
		AIScore:  aiScore,
		VBAScore: vbaScore,
		Chinese:  chinese,
	}
}

func scoreCategories(lower string, table map[string][]string, order []string) (int, []string) {
	score := 0
	var reasons []string
	for _, category := range order {
		for _, keyword := range table[category] {
			if strings.Contains(lower, keyword) {
				score++
				reasons = append(reasons, category)
				break
			}
		}
	}
	return score, reasons
}

func firstOr(reasons []string, fallback string) string {
	if len(reasons) > 0 {
		return reasons[0]
	}
	return fallback
}
