// Package main implements rmmctl, the authoring-time helper for RMM
// components: deployment-strategy decisions, monitor output validation,
// local runs, and scaffolding new components from templates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "rmmctl",
	Short:         "Datto RMM component authoring helper",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
