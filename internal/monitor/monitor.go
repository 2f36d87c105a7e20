// Package monitor implements the result protocol that monitor components
// speak to the RMM console: a diagnostic bracket of free-form progress lines
// followed by a result bracket containing exactly one status line. The
// console parses these markers verbatim, so their shape is a contract.
package monitor

import (
	"fmt"
	"io"
	"os"
)

// Marker lines consumed by the RMM console. The console matches these
// trimmed and exact, so they must never be reformatted.
const (
	StartDiagnostic = "<-Start Diagnostic->"
	EndDiagnostic   = "<-End Diagnostic->"
	StartResult     = "<-Start Result->"
	EndResult       = "<-End Result->"
)

// DefaultVar is the output variable name the console expects unless the
// component declares another one.
const DefaultVar = "Status"

// AlertVar is the variable name used for the failure form of the result
// line (X=<message>).
const AlertVar = "X"

// Emitter buffers diagnostic lines and terminates the process with the
// marker protocol. Alert and Success are terminal: they write the full
// block and exit. Calling neither is itself a defect the orchestrator
// detects as a malformed result.
type Emitter struct {
	Out  io.Writer
	Exit func(int)
	Var  string

	diag []string
}

// New returns an Emitter wired to stdout and os.Exit with the default
// output variable.
func New() *Emitter {
	return &Emitter{Out: os.Stdout, Exit: os.Exit, Var: DefaultVar}
}

// Progress records a diagnostic line. Lines are held until Alert or
// Success writes the whole block.
func (e *Emitter) Progress(format string, args ...any) {
	e.diag = append(e.diag, fmt.Sprintf(format, args...))
}

// Success writes the full marker block with an OK result line and exits 0.
func (e *Emitter) Success(message string) {
	e.emit(fmt.Sprintf("%s=OK: %s", e.varName(), message))
	e.Exit(0)
}

// Alert writes the full marker block with the failure result line and
// exits 1.
func (e *Emitter) Alert(message string) {
	e.emit(fmt.Sprintf("%s=%s", AlertVar, message))
	e.Exit(1)
}

func (e *Emitter) varName() string {
	if e.Var == "" {
		return DefaultVar
	}
	return e.Var
}

func (e *Emitter) emit(resultLine string) {
	fmt.Fprintln(e.Out, StartDiagnostic)
	for _, line := range e.diag {
		fmt.Fprintln(e.Out, line)
	}
	fmt.Fprintln(e.Out, EndDiagnostic)
	fmt.Fprintln(e.Out, StartResult)
	fmt.Fprintln(e.Out, resultLine)
	fmt.Fprintln(e.Out, EndResult)
}
