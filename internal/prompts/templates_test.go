package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt_VariantsDiffer(t *testing.T) {
	en, err := SystemPrompt(ModeInitial, LangEnglish)
	require.NoError(t, err)
	zh, err := SystemPrompt(ModeInitial, LangChinese)
	require.NoError(t, err)

	assert.NotEqual(t, en, zh)
	assert.Contains(t, en, "Excel and Word")
	assert.Contains(t, zh, "Excel")
}

func TestSystemPrompt_StableAcrossCalls(t *testing.T) {
	for _, mode := range []Mode{ModeInitial, ModeRefine} {
		for _, lang := range []Language{LangChinese, LangEnglish} {
			first, err := SystemPrompt(mode, lang)
			require.NoError(t, err)
			second, err := SystemPrompt(mode, lang)
			require.NoError(t, err)
			assert.Equal(t, first, second, "mode=%s lang=%s", mode, lang)
		}
	}
}

func TestSystemPrompt_RefineMentionsFeedback(t *testing.T) {
	en, err := SystemPrompt(ModeRefine, LangEnglish)
	require.NoError(t, err)
	assert.Contains(t, en, "user feedback")
}

func TestSystemPrompt_UnknownMode(t *testing.T) {
	_, err := SystemPrompt(Mode("summarize"), LangEnglish)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestSystemPrompt_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	got, err := SystemPrompt(ModeInitial, Language("fr"))
	require.NoError(t, err)
	en, err := SystemPrompt(ModeInitial, LangEnglish)
	require.NoError(t, err)
	assert.Equal(t, en, got)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, LangChinese, Detect("合并单元格"))
	assert.Equal(t, LangEnglish, Detect("merge the cells"))
}
