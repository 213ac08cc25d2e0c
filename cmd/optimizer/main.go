// Optimizer - interactive Office prompt optimizer CLI
package main

import (
	"os"

	"github.com/oipromot/office-optimizer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
