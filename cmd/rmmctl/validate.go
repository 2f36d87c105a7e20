package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rmmdeploy/internal/monitor"
)

// Exit code for invalid monitor output, distinct from general errors.
const exitInvalidOutput = 2

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate monitor output markers and result line",
	Long: `Validate checks captured monitor output against the result
protocol the RMM console parses: one diagnostic bracket, one result
bracket, and exactly one output-variable line. Reads from a file or from
stdin with --input -.`,
	RunE: runValidate,
}

var (
	validateInput     string
	validateOutputVar string
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "file to validate, or '-' for stdin")
	validateCmd.Flags().StringVar(&validateOutputVar, "output-var", monitor.DefaultVar, "monitor output variable name")
	_ = validateCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	var (
		text   string
		source string
	)
	if validateInput == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text, source = string(data), "<stdin>"
	} else {
		data, err := os.ReadFile(validateInput)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		text, source = string(data), validateInput
	}

	problems := monitor.Validate(text, validateOutputVar)
	if problems == nil {
		fmt.Printf("OK: monitor output is valid (%s)\n", source)
		return nil
	}

	fmt.Fprintf(os.Stderr, "INVALID: monitor output failed validation (%s)\n", source)
	for _, p := range problems {
		fmt.Fprintf(os.Stderr, "- %s\n", p)
	}
	os.Exit(exitInvalidOutput)
	return nil
}
