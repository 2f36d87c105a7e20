// Package config loads component descriptor files. A file holds either a
// single descriptor or a catalog of them under a "components" key.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rmmdeploy/internal/strategy"
)

// ErrNotFound is returned by Find when no descriptor matches.
var ErrNotFound = errors.New("component not found")

const defaultBudgetMs = 1000

type catalog struct {
	Components []strategy.Descriptor `yaml:"components"`
}

// Load reads a descriptor file and returns its descriptors, defaulted and
// validated. Unknown YAML keys are rejected so typos in attribute names
// surface instead of silently scoring as neutral.
func Load(path string) ([]strategy.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}

	descriptors, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for i := range descriptors {
		applyDefaults(&descriptors[i])
		category, err := strategy.ParseCategory(string(descriptors[i].Category))
		if err != nil {
			return nil, fmt.Errorf("%s: component %q: %w", path, descriptors[i].Name, err)
		}
		descriptors[i].Category = category
		if err := Validate(descriptors[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return descriptors, nil
}

// Find returns the descriptor with the given name, case-insensitively.
func Find(descriptors []strategy.Descriptor, name string) (strategy.Descriptor, error) {
	for _, d := range descriptors {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return strategy.Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func parse(data []byte) ([]strategy.Descriptor, error) {
	// A catalog file has a top-level "components" list; anything else is
	// treated as a single descriptor document.
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if _, ok := probe["components"]; ok {
		var c catalog
		if err := strictDecode(data, &c); err != nil {
			return nil, err
		}
		if len(c.Components) == 0 {
			return nil, errors.New("catalog has no components")
		}
		return c.Components, nil
	}

	var d strategy.Descriptor
	if err := strictDecode(data, &d); err != nil {
		return nil, err
	}
	return []strategy.Descriptor{d}, nil
}

func strictDecode(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func applyDefaults(d *strategy.Descriptor) {
	if d.Frequency == "" {
		d.Frequency = strategy.FreqStandard
	}
	if d.BudgetMs == 0 {
		d.BudgetMs = defaultBudgetMs
	}
	if d.Reliability == "" {
		d.Reliability = strategy.ReliabilityStandard
	}
	if d.Complexity == "" {
		d.Complexity = strategy.ComplexityStandard
	}
	if d.Cadence == "" {
		d.Cadence = strategy.CadenceStandard
	}
}

// Validate checks that every enum attribute holds a known value. The
// scoring function treats unknown values as neutral, so a typo like
// "criticall" would otherwise pass silently with the wrong score.
func Validate(d strategy.Descriptor) error {
	if _, err := strategy.ParseCategory(string(d.Category)); err != nil {
		return fmt.Errorf("component %q: %w", d.Name, err)
	}

	if err := oneOf("executionFrequency", string(d.Frequency),
		string(strategy.FreqHigh), string(strategy.FreqStandard), string(strategy.FreqLow)); err != nil {
		return fmt.Errorf("component %q: %w", d.Name, err)
	}
	if err := oneOf("reliabilityTier", string(d.Reliability),
		string(strategy.ReliabilityCritical), string(strategy.ReliabilityStandard), string(strategy.ReliabilityLow)); err != nil {
		return fmt.Errorf("component %q: %w", d.Name, err)
	}
	if err := oneOf("complexity", string(d.Complexity),
		string(strategy.ComplexitySimple), string(strategy.ComplexityStandard), string(strategy.ComplexityComplex)); err != nil {
		return fmt.Errorf("component %q: %w", d.Name, err)
	}
	if err := oneOf("updateCadence", string(d.Cadence),
		string(strategy.CadenceFrequent), string(strategy.CadenceStandard), string(strategy.CadenceStable)); err != nil {
		return fmt.Errorf("component %q: %w", d.Name, err)
	}
	if d.BudgetMs < 0 {
		return fmt.Errorf("component %q: performanceBudgetMs must not be negative", d.Name)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown value %q (allowed: %s)", field, value, strings.Join(allowed, ", "))
}
