package monitor

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate checks captured monitor output against the marker protocol and
// returns a list of problems, or nil when the output is well-formed.
// outputVar is the variable name the component declares to the console;
// the X= alert form is always accepted as the failure shape.
func Validate(text, outputVar string) []string {
	if outputVar == "" {
		outputVar = DefaultVar
	}

	lines := strings.Split(text, "\n")
	findAll := func(marker string) []int {
		var idx []int
		for i, line := range lines {
			if strings.TrimSpace(line) == marker {
				idx = append(idx, i)
			}
		}
		return idx
	}

	diagStart := findAll(StartDiagnostic)
	diagEnd := findAll(EndDiagnostic)
	resStart := findAll(StartResult)
	resEnd := findAll(EndResult)

	var problems []string
	for _, m := range []struct {
		marker string
		found  []int
	}{
		{StartDiagnostic, diagStart},
		{EndDiagnostic, diagEnd},
		{StartResult, resStart},
		{EndResult, resEnd},
	} {
		if len(m.found) != 1 {
			problems = append(problems, fmt.Sprintf("expected exactly one %q line, found %d", m.marker, len(m.found)))
		}
	}
	if problems != nil {
		return problems
	}

	ds, de, rs, re := diagStart[0], diagEnd[0], resStart[0], resEnd[0]
	if !(ds < de && de < rs && rs < re) {
		return []string{"marker order must be: Start Diagnostic, End Diagnostic, Start Result, End Result"}
	}

	var resultLines []string
	for _, line := range lines[rs+1 : re] {
		if strings.TrimSpace(line) != "" {
			resultLines = append(resultLines, strings.TrimRight(line, "\r"))
		}
	}
	if len(resultLines) == 0 {
		return []string{"result block is empty; expected one output variable line"}
	}
	if len(resultLines) > 1 {
		return []string{fmt.Sprintf("result block must contain exactly one non-empty line, found %d", len(resultLines))}
	}

	line := resultLines[0]
	value, ok := resultValue(line, outputVar)
	if !ok {
		return []string{fmt.Sprintf("result line must be %q or %q followed by a value (example: %s=OK: all checks passed), got %q",
			outputVar+"=", AlertVar+"=", outputVar, line)}
	}
	if value == "" {
		return []string{"result value is empty"}
	}
	if unicode.IsSpace(rune(value[0])) {
		return []string{fmt.Sprintf("no space allowed after '=' (use %q, not %q)", outputVar+"=OK: ...", outputVar+"= OK: ...")}
	}

	return nil
}

// HasResult reports whether the output contains a parseable result block.
// This is the lenient check the orchestrator applies to decide malformed
// versus well-formed monitor output; authoring-time validation uses
// Validate for the strict rules.
func HasResult(text string) bool {
	start := strings.Index(text, StartResult)
	if start < 0 {
		return false
	}
	end := strings.Index(text[start:], EndResult)
	if end < 0 {
		return false
	}
	inner := text[start+len(StartResult) : start+end]
	return strings.TrimSpace(inner) != ""
}

func resultValue(line, outputVar string) (string, bool) {
	for _, prefix := range []string{outputVar + "=", AlertVar + "="} {
		if strings.HasPrefix(line, prefix) {
			return line[len(prefix):], true
		}
	}
	return "", false
}
