// Package cli implements the optimizer command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oipromot/office-optimizer/internal/llm"
	"github.com/oipromot/office-optimizer/internal/optimizer"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Output helpers.
	successIcon = color.New(color.FgGreen).Sprint("✓")
	errorIcon   = color.New(color.FgRed).Sprint("✗")

	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// Thinking-path request budgets. The fast path mirrors the server defaults;
// the thinking path leaves room for the model's reasoning preamble.
const (
	noThinkMaxTokens   = 1500
	noThinkTemperature = 0.1
	thinkMaxTokens     = 3000
	thinkTemperature   = 0.3
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var noThink bool

	rootCmd := &cobra.Command{
		Use:   "optimizer",
		Short: "Interactive Office prompt optimizer",
		Long: `Optimizer turns rough Word/Excel requests into precise requirement
descriptions via an OpenAI-compatible model endpoint.

Running without a subcommand starts the interactive conversation loop:
type a requirement, then refine it with feedback, or start over with '/n'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := replConfig(noThink)
			opt := optimizer.New(llm.NewClient(cfg), nil)
			r := newREPL(opt, cmd.InOrStdin(), cmd.OutOrStdout())
			return r.run()
		},
	}

	rootCmd.Flags().BoolVar(&noThink, "no-think", false, "Use the fast path: smaller token budget, lower temperature")

	// Add subcommands
	rootCmd.AddCommand(NewDoctorCmd())
	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// replConfig builds the model client config for the conversation loop,
// applying the thinking-path budgets on top of the environment.
func replConfig(noThink bool) llm.Config {
	cfg := llm.ConfigFromEnv()
	if noThink {
		cfg.MaxTokens = noThinkMaxTokens
		cfg.Temperature = noThinkTemperature
	} else {
		cfg.MaxTokens = thinkMaxTokens
		cfg.Temperature = thinkTemperature
	}
	return cfg
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("optimizer %s\n", Version)
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorIcon, err.Error())
		return err
	}
	return nil
}
