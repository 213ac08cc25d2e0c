package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oipromot/office-optimizer/internal/llm"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose endpoint configuration",
		Long: `Checks the model endpoint configuration: environment variables, server
reachability, model availability and a round-trip probe.`,
		Example: `  optimizer doctor
  optimizer doctor --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runDoctor(ctx, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Overall diagnostics timeout")

	return cmd
}

func runDoctor(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "🔍 Checking configuration...")
	fmt.Fprintln(out)

	cfg := llm.ConfigFromEnv()
	ok := true

	// Environment
	fmt.Fprintln(out, "Environment:")
	printCheck(out, os.Getenv("API_BASE_URL") != "", "API_BASE_URL", cfg.BaseURL, "not set, using default")
	printCheck(out, os.Getenv("AI_MODEL") != "" || os.Getenv("MODEL") != "", "AI_MODEL", cfg.Model, "not set, using default")
	if os.Getenv("API_KEY") == "" {
		fmt.Fprintf(out, "  %s API_KEY: %s\n", warning("⚠"), dim("not set (some servers require one)"))
	} else {
		fmt.Fprintf(out, "  %s API_KEY: %s\n", successIcon, dim("set"))
	}

	client := llm.NewClient(cfg)

	// Server reachability and model availability
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Endpoint:")
	models, err := client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(out, "  %s server unreachable: %v\n", errorIcon, err)
		fmt.Fprintf(out, "    %s\n", dim("check that the model service is running at "+cfg.BaseURL))
		ok = false
	} else {
		fmt.Fprintf(out, "  %s server reachable at %s\n", successIcon, cfg.BaseURL)

		found := false
		for _, m := range models {
			if m == cfg.Model {
				found = true
				break
			}
		}
		if found {
			fmt.Fprintf(out, "  %s model %s available\n", successIcon, info(cfg.Model))
		} else {
			fmt.Fprintf(out, "  %s model %s not in server list (%d models reported)\n", warning("⚠"), cfg.Model, len(models))
			ok = false
		}
	}

	// Round trip
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Probe:")
	elapsed, err := client.Probe(ctx)
	if err != nil {
		fmt.Fprintf(out, "  %s completion probe failed: %v\n", errorIcon, err)
		ok = false
	} else {
		fmt.Fprintf(out, "  %s completion round trip in %.2fs\n", successIcon, elapsed.Seconds())
	}

	fmt.Fprintln(out)
	if !ok {
		fmt.Fprintf(out, "%s configuration problems found\n", errorIcon)
		return fmt.Errorf("diagnostics failed")
	}

	fmt.Fprintf(out, "%s all checks passed\n", successIcon)
	return nil
}

func printCheck(out io.Writer, set bool, name, value, fallback string) {
	if set {
		fmt.Fprintf(out, "  %s %s: %s\n", successIcon, name, value)
	} else {
		fmt.Fprintf(out, "  %s %s: %s (%s)\n", warning("⚠"), name, value, dim(fallback))
	}
}
