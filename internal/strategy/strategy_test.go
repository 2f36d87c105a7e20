package strategy_test

import (
	"strings"
	"testing"

	"rmmdeploy/internal/strategy"
)

func TestMonitorAlwaysDirect(t *testing.T) {
	// Monitors must come out direct regardless of the other attributes,
	// so sweep the entire enumerated domain.
	freqs := []strategy.Frequency{strategy.FreqHigh, strategy.FreqStandard, strategy.FreqLow}
	tiers := []strategy.Reliability{strategy.ReliabilityCritical, strategy.ReliabilityStandard, strategy.ReliabilityLow}
	complexities := []strategy.Complexity{strategy.ComplexitySimple, strategy.ComplexityStandard, strategy.ComplexityComplex}
	cadences := []strategy.Cadence{strategy.CadenceFrequent, strategy.CadenceStandard, strategy.CadenceStable}
	budgets := []int{100, 400, 2000}

	for _, f := range freqs {
		for _, r := range tiers {
			for _, c := range complexities {
				for _, u := range cadences {
					for _, b := range budgets {
						d := strategy.Decide(strategy.Descriptor{
							Category:    strategy.Monitor,
							Frequency:   f,
							BudgetMs:    b,
							Reliability: r,
							Complexity:  c,
							Cadence:     u,
						})
						if d.Strategy != strategy.Direct || d.Confidence != strategy.ConfidenceHigh {
							t.Fatalf("monitor descriptor {%s %s %s %s %d} decided %s/%s, want direct/high",
								f, r, c, u, b, d.Strategy, d.Confidence)
						}
					}
				}
			}
		}
	}
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name       string
		desc       strategy.Descriptor
		strategy   strategy.DeployStrategy
		confidence strategy.Confidence
		score      int
	}{
		{
			name: "monitor dominates hostile attributes",
			desc: strategy.Descriptor{
				Category:    strategy.Monitor,
				Frequency:   strategy.FreqLow,
				BudgetMs:    2000,
				Reliability: strategy.ReliabilityStandard,
				Complexity:  strategy.ComplexityComplex,
				Cadence:     strategy.CadenceFrequent,
			},
			strategy:   strategy.Direct,
			confidence: strategy.ConfidenceHigh,
		},
		{
			name: "hot simple stable application",
			desc: strategy.Descriptor{
				Category:    strategy.Application,
				Frequency:   strategy.FreqHigh,
				BudgetMs:    150,
				Reliability: strategy.ReliabilityStandard,
				Complexity:  strategy.ComplexitySimple,
				Cadence:     strategy.CadenceStable,
			},
			strategy:   strategy.Direct,
			confidence: strategy.ConfidenceHigh,
			score:      10,
		},
		{
			name: "complex churning script",
			desc: strategy.Descriptor{
				Category:    strategy.Script,
				Frequency:   strategy.FreqStandard,
				BudgetMs:    1000,
				Reliability: strategy.ReliabilityStandard,
				Complexity:  strategy.ComplexityComplex,
				Cadence:     strategy.CadenceFrequent,
			},
			strategy:   strategy.LauncherBased,
			confidence: strategy.ConfidenceHigh,
			score:      -5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := strategy.Decide(tt.desc)
			if d.Strategy != tt.strategy || d.Confidence != tt.confidence {
				t.Errorf("got %s/%s, want %s/%s", d.Strategy, d.Confidence, tt.strategy, tt.confidence)
			}
			if tt.desc.Category != strategy.Monitor && d.Score != tt.score {
				t.Errorf("score: got %d, want %d", d.Score, tt.score)
			}
		})
	}
}

func TestScoreBands(t *testing.T) {
	// Pin descriptors to exact scores around the band edges and make sure
	// the three bands map to the three documented outcomes with no gaps.
	tests := []struct {
		score      int
		desc       strategy.Descriptor
		strategy   strategy.DeployStrategy
		confidence strategy.Confidence
	}{
		// stable cadence only: score 1
		{1, strategy.Descriptor{Category: strategy.Script, BudgetMs: 1000, Cadence: strategy.CadenceStable},
			strategy.LauncherBased, strategy.ConfidenceHigh},
		// budget <500: score 2, still launcher-based
		{2, strategy.Descriptor{Category: strategy.Script, BudgetMs: 400},
			strategy.LauncherBased, strategy.ConfidenceHigh},
		// budget <500 + stable: score 3, lowest direct/medium
		{3, strategy.Descriptor{Category: strategy.Script, BudgetMs: 400, Cadence: strategy.CadenceStable},
			strategy.Direct, strategy.ConfidenceMedium},
		// budget <200: score 4, direct/medium
		{4, strategy.Descriptor{Category: strategy.Application, BudgetMs: 150},
			strategy.Direct, strategy.ConfidenceMedium},
		// budget <200 + stable: score 5, lowest direct/high
		{5, strategy.Descriptor{Category: strategy.Application, BudgetMs: 150, Cadence: strategy.CadenceStable},
			strategy.Direct, strategy.ConfidenceHigh},
	}

	for _, tt := range tests {
		d := strategy.Decide(tt.desc)
		if d.Score != tt.score {
			t.Errorf("descriptor %+v: score %d, want %d", tt.desc, d.Score, tt.score)
		}
		if d.Strategy != tt.strategy || d.Confidence != tt.confidence {
			t.Errorf("score %d: got %s/%s, want %s/%s", tt.score, d.Strategy, d.Confidence, tt.strategy, tt.confidence)
		}
	}
}

func TestFactorMonotonicity(t *testing.T) {
	base := strategy.Descriptor{
		Category:    strategy.Script,
		Frequency:   strategy.FreqStandard,
		BudgetMs:    1000,
		Reliability: strategy.ReliabilityStandard,
		Complexity:  strategy.ComplexityStandard,
		Cadence:     strategy.CadenceStandard,
	}
	baseScore := strategy.Decide(base).Score
	if baseScore != 0 {
		t.Fatalf("neutral descriptor should score 0, got %d", baseScore)
	}

	mutate := func(fn func(*strategy.Descriptor)) int {
		d := base
		fn(&d)
		return strategy.Decide(d).Score
	}

	tests := []struct {
		name  string
		delta int
		fn    func(*strategy.Descriptor)
	}{
		{"tight budget", 4, func(d *strategy.Descriptor) { d.BudgetMs = 199 }},
		{"moderate budget", 2, func(d *strategy.Descriptor) { d.BudgetMs = 499 }},
		{"high frequency", 3, func(d *strategy.Descriptor) { d.Frequency = strategy.FreqHigh }},
		{"critical reliability", 3, func(d *strategy.Descriptor) { d.Reliability = strategy.ReliabilityCritical }},
		{"simple complexity", 2, func(d *strategy.Descriptor) { d.Complexity = strategy.ComplexitySimple }},
		{"complex complexity", -2, func(d *strategy.Descriptor) { d.Complexity = strategy.ComplexityComplex }},
		{"stable cadence", 1, func(d *strategy.Descriptor) { d.Cadence = strategy.CadenceStable }},
		{"frequent cadence", -3, func(d *strategy.Descriptor) { d.Cadence = strategy.CadenceFrequent }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mutate(tt.fn); got != baseScore+tt.delta {
				t.Errorf("got score %d, want %d", got, baseScore+tt.delta)
			}
		})
	}
}

func TestRationaleOrder(t *testing.T) {
	d := strategy.Decide(strategy.Descriptor{
		Category:    strategy.Application,
		Frequency:   strategy.FreqHigh,
		BudgetMs:    150,
		Reliability: strategy.ReliabilityCritical,
		Complexity:  strategy.ComplexitySimple,
		Cadence:     strategy.CadenceStable,
	})

	order := []string{"performance budget", "frequency", "reliability", "simple logic", "stable update"}
	last := -1
	for _, fragment := range order {
		idx := strings.Index(d.Rationale, fragment)
		if idx < 0 {
			t.Fatalf("rationale missing %q: %s", fragment, d.Rationale)
		}
		if idx < last {
			t.Fatalf("rationale factor %q out of order: %s", fragment, d.Rationale)
		}
		last = idx
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw     string
		want    strategy.Category
		wantErr bool
	}{
		{"monitor", strategy.Monitor, false},
		{"Monitors", strategy.Monitor, false},
		{"APPLICATION", strategy.Application, false},
		{"applications", strategy.Application, false},
		{"scripts", strategy.Script, false},
		{" script ", strategy.Script, false},
		{"component", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := strategy.ParseCategory(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCategory(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseCategory(%q) = %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}

func TestCategoryDir(t *testing.T) {
	if strategy.Monitor.Dir() != "Monitors" ||
		strategy.Application.Dir() != "Applications" ||
		strategy.Script.Dir() != "Scripts" {
		t.Error("category directory mapping broken")
	}
}
