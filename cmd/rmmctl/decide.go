package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rmmdeploy/internal/config"
	"rmmdeploy/internal/strategy"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide direct vs launcher-based deployment for a component",
	Long: `Decide reads a component descriptor and prints the deployment
strategy with its score and rationale. The descriptor comes from a YAML
file (--file, a single descriptor or a catalog with --name) or from
individual flags.`,
	RunE: runDecide,
}

var (
	decideFile        string
	decideName        string
	decideCategory    string
	decideFrequency   string
	decideBudgetMs    int
	decideReliability string
	decideComplexity  string
	decideCadence     string
)

func init() {
	decideCmd.Flags().StringVarP(&decideFile, "file", "f", "", "component descriptor YAML file")
	decideCmd.Flags().StringVar(&decideName, "name", "", "component name (selects from a catalog file)")
	decideCmd.Flags().StringVar(&decideCategory, "category", "", "monitor, application, or script")
	decideCmd.Flags().StringVar(&decideFrequency, "frequency", "standard", "execution frequency: high, standard, low")
	decideCmd.Flags().IntVar(&decideBudgetMs, "budget-ms", 1000, "performance budget in milliseconds")
	decideCmd.Flags().StringVar(&decideReliability, "reliability", "standard", "reliability tier: critical, standard, low")
	decideCmd.Flags().StringVar(&decideComplexity, "complexity", "standard", "complexity: simple, standard, complex")
	decideCmd.Flags().StringVar(&decideCadence, "cadence", "standard", "update cadence: frequent, standard, stable")

	rootCmd.AddCommand(decideCmd)
}

func runDecide(_ *cobra.Command, _ []string) error {
	desc, err := decideDescriptor()
	if err != nil {
		return err
	}

	d := strategy.Decide(desc)

	name := desc.Name
	if name == "" {
		name = "(unnamed component)"
	}
	fmt.Printf("Component:  %s\n", name)
	fmt.Printf("Category:   %s\n", desc.Category)
	fmt.Printf("Strategy:   %s\n", d.Strategy)
	fmt.Printf("Confidence: %s\n", d.Confidence)
	if desc.Category != strategy.Monitor {
		fmt.Printf("Score:      %d\n", d.Score)
	}
	fmt.Printf("Rationale:  %s\n", d.Rationale)
	return nil
}

func decideDescriptor() (strategy.Descriptor, error) {
	if decideFile == "" {
		category, err := strategy.ParseCategory(decideCategory)
		if err != nil {
			return strategy.Descriptor{}, fmt.Errorf("category is required: %w", err)
		}
		desc := strategy.Descriptor{
			Name:        decideName,
			Category:    category,
			Frequency:   strategy.Frequency(decideFrequency),
			BudgetMs:    decideBudgetMs,
			Reliability: strategy.Reliability(decideReliability),
			Complexity:  strategy.Complexity(decideComplexity),
			Cadence:     strategy.Cadence(decideCadence),
		}
		if err := config.Validate(desc); err != nil {
			return strategy.Descriptor{}, err
		}
		return desc, nil
	}

	descriptors, err := config.Load(decideFile)
	if err != nil {
		return strategy.Descriptor{}, err
	}
	if decideName != "" {
		return config.Find(descriptors, decideName)
	}
	if len(descriptors) > 1 {
		names := make([]string, 0, len(descriptors))
		for _, d := range descriptors {
			names = append(names, d.Name)
		}
		return strategy.Descriptor{}, fmt.Errorf("catalog holds %d components, pick one with --name: %v", len(descriptors), names)
	}
	return descriptors[0], nil
}
