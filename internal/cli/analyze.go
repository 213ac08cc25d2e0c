package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oipromot/office-optimizer/internal/capability"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <task description>",
		Short: "Recommend AI, VBA or a hybrid approach for a task",
		Long: `Scores a task description against capability keyword tables and reports
whether an AI prompt, a VBA macro, or a mix of both fits best.`,
		Example: `  optimizer analyze "batch rename all files in the folder"
  optimizer analyze 帮我总结这份报告`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			rec := capability.NewAnalyzer().Analyze(task)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  %s: %s\n", dim("Recommendation"), recommendationLabel(rec.Kind))
			fmt.Fprintf(out, "  %s: %s\n", dim("Reason"), rec.Reason)
			fmt.Fprintf(out, "  %s: AI %d, VBA %d\n", dim("Scores"), rec.AIScore, rec.VBAScore)
			return nil
		},
	}
}

func recommendationLabel(kind capability.Kind) string {
	switch kind {
	case capability.KindAI:
		return success(string(kind))
	case capability.KindVBA:
		return info(string(kind))
	default:
		return warning(string(kind))
	}
}
