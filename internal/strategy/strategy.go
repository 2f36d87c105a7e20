// Package strategy decides whether an RMM component should be deployed
// self-contained ("direct") or as a thin launcher that fetches its real
// logic at run time. The decision is a pure function over a component
// descriptor so it can be recomputed at any time and tested exhaustively.
package strategy

import (
	"fmt"
	"strings"
)

// Category is the component category as created in the RMM console.
// A Monitor's category is immutable once created, which is why the
// Monitor rule below dominates everything else.
type Category string

const (
	Monitor     Category = "monitor"
	Application Category = "application"
	Script      Category = "script"
)

// ParseCategory accepts singular or plural, any case.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "monitor", "monitors":
		return Monitor, nil
	case "application", "applications":
		return Application, nil
	case "script", "scripts":
		return Script, nil
	default:
		return "", fmt.Errorf("unknown category: %q", raw)
	}
}

// Dir returns the category folder used in remote resource paths
// (<base>/components/<dir>/<name>).
func (c Category) Dir() string {
	switch c {
	case Monitor:
		return "Monitors"
	case Application:
		return "Applications"
	case Script:
		return "Scripts"
	default:
		return ""
	}
}

// Frequency is how often the RMM agent invokes the component.
type Frequency string

const (
	FreqHigh     Frequency = "high"
	FreqStandard Frequency = "standard"
	FreqLow      Frequency = "low"
)

// Reliability is the component's reliability tier.
type Reliability string

const (
	ReliabilityCritical Reliability = "critical"
	ReliabilityStandard Reliability = "standard"
	ReliabilityLow      Reliability = "low"
)

// Complexity describes how much logic the component carries.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
)

// Cadence is how often the component's logic is expected to change.
type Cadence string

const (
	CadenceFrequent Cadence = "frequent"
	CadenceStandard Cadence = "standard"
	CadenceStable   Cadence = "stable"
)

// Descriptor captures the operational attributes of a component that feed
// the deployment decision.
type Descriptor struct {
	Name        string      `yaml:"name"`
	Category    Category    `yaml:"category"`
	Frequency   Frequency   `yaml:"executionFrequency"`
	BudgetMs    int         `yaml:"performanceBudgetMs"`
	Reliability Reliability `yaml:"reliabilityTier"`
	Complexity  Complexity  `yaml:"complexity"`
	Cadence     Cadence     `yaml:"updateCadence"`
}

// DeployStrategy is the decided deployment shape.
type DeployStrategy string

const (
	Direct        DeployStrategy = "direct"
	LauncherBased DeployStrategy = "launcher-based"
)

// Confidence qualifies how clear-cut the decision is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Decision is the outcome of Decide. Rationale is for audit logs only and
// never drives control flow.
type Decision struct {
	Strategy   DeployStrategy
	Confidence Confidence
	Score      int
	Rationale  string
}

// Decision bands for the non-monitor score.
const (
	directHighThreshold   = 5
	directMediumThreshold = 3
)

// Decide computes the deployment strategy for a component descriptor.
// Monitors are always direct: the console creates them with an immutable
// category and a strict latency budget, and a runtime fetch can never meet
// it. Everything else is scored.
func Decide(d Descriptor) Decision {
	if d.Category == Monitor {
		return Decision{
			Strategy:   Direct,
			Confidence: ConfidenceHigh,
			Rationale:  "monitor components are always deployed direct",
		}
	}

	score := 0
	var reasons []string

	switch {
	case d.BudgetMs < 200:
		score += 4
		reasons = append(reasons, fmt.Sprintf("performance budget %dms is under 200ms (+4)", d.BudgetMs))
	case d.BudgetMs < 500:
		score += 2
		reasons = append(reasons, fmt.Sprintf("performance budget %dms is under 500ms (+2)", d.BudgetMs))
	}

	if d.Frequency == FreqHigh {
		score += 3
		reasons = append(reasons, "high execution frequency (+3)")
	}

	if d.Reliability == ReliabilityCritical {
		score += 3
		reasons = append(reasons, "critical reliability tier (+3)")
	}

	switch d.Complexity {
	case ComplexitySimple:
		score += 2
		reasons = append(reasons, "simple logic fits inline (+2)")
	case ComplexityComplex:
		score -= 2
		reasons = append(reasons, "complex logic favors a fetched body (-2)")
	}

	switch d.Cadence {
	case CadenceStable:
		score++
		reasons = append(reasons, "stable update cadence (+1)")
	case CadenceFrequent:
		score -= 3
		reasons = append(reasons, "frequent updates favor runtime fetch (-3)")
	}

	decision := Decision{
		Score:     score,
		Rationale: strings.Join(reasons, "; "),
	}
	switch {
	case score >= directHighThreshold:
		decision.Strategy = Direct
		decision.Confidence = ConfidenceHigh
	case score >= directMediumThreshold:
		decision.Strategy = Direct
		decision.Confidence = ConfidenceMedium
	default:
		decision.Strategy = LauncherBased
		decision.Confidence = ConfidenceHigh
	}
	return decision
}
