// Package launcher is the top-level control flow of a launcher-based
// component: validate inputs, fetch the script body, execute it under a
// deadline, and translate the child's exit code into the launcher's own.
// The RMM agent observes nothing but the final exit code and the captured
// output, so this package is the single place error kinds become codes.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"rmmdeploy/internal/envvar"
	"rmmdeploy/internal/execute"
	"rmmdeploy/internal/fetch"
	"rmmdeploy/internal/monitor"
	"rmmdeploy/internal/strategy"
)

// Exit codes of the launcher process, part of the RMM agent contract.
// Timeout and resource-unavailable alias to the same code on purpose; the
// agent's decision tree does not distinguish them, but the internal error
// kinds stay distinct so the aliasing can be split later without touching
// callers of this package.
const (
	ExitSuccess             = 0
	ExitFailure             = 1
	ExitResourceUnavailable = 11
	ExitMissingInput        = 12
)

// Reboot-required exit codes that must pass through verbatim; the console
// schedules a reboot when it sees exactly these values.
const (
	ExitRebootRequired  = 3010
	ExitRebootInitiated = 1641
)

// Required environment inputs.
const (
	varScriptName = "ScriptName"
	varCategory   = "ScriptCategory"
)

// Logical folder for the shared-function bundle.
const functionsFolder = "Functions"

// Category default timeout budgets. Monitors have a strict latency budget;
// applications and scripts may legitimately run installers for a long time.
const (
	monitorTimeout = 3 * time.Second
	scriptTimeout  = 30 * time.Minute
)

// State names the orchestrator's phases; used only for logging, a failure
// in any phase short-circuits straight to done with its exit code.
type State string

const (
	StateValidating   State = "validating"
	StateFetching     State = "fetching"
	StateExecuting    State = "executing"
	StateInterpreting State = "interpreting"
	StateDone         State = "done"
)

// Orchestrator ties the resolver, fetcher and executor together for one
// launcher invocation. Exec is the execution seam; tests substitute it to
// simulate child exit codes the shell cannot produce.
type Orchestrator struct {
	Settings Settings
	Fetcher  *fetch.Fetcher
	Exec     func(context.Context, execute.Job) (execute.Result, error)
	Stdout   io.Writer
	Stderr   io.Writer
}

// New builds an Orchestrator from settings with the default fetcher and
// executor.
func New(s Settings) *Orchestrator {
	f := fetch.New(s.RepoBaseURL, s.CacheDir)
	f.Expiry = s.CacheExpiry()
	f.ForceRefresh = s.ForceRefresh
	f.Offline = s.OfflineMode

	return &Orchestrator{
		Settings: s,
		Fetcher:  f,
		Exec:     execute.Run,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Run drives the state machine and returns the launcher's final exit
// code. No error crosses the launcher/agent boundary; every failure is
// folded into the returned code here.
func (o *Orchestrator) Run(ctx context.Context) int {
	o.logState(StateValidating)
	scriptName, category, err := o.validate()
	if err != nil {
		log.Printf("[ERROR] %v", err)
		return exitCodeFor(err)
	}

	o.logState(StateFetching)
	scriptPath, err := o.fetchResources(ctx, category, scriptName)
	if err != nil {
		log.Printf("[ERROR] %v", err)
		return exitCodeFor(err)
	}

	o.logState(StateExecuting)
	result, runErr := o.executeScript(ctx, category, scriptPath)

	o.logState(StateInterpreting)
	code := o.interpret(category, result, runErr)

	o.writeManifest(scriptName, category, scriptPath, result, code)

	o.logState(StateDone)
	log.Printf("[INFO] Launcher finished: %s/%s exit %d (elapsed %v, timed out %v)",
		category.Dir(), scriptName, code, result.Elapsed.Round(time.Millisecond), result.TimedOut)
	return code
}

// validate confirms the two mandatory inputs are present and well-formed.
// The script name becomes both a cache path segment and a URL segment, so
// anything that could traverse out of the cache directory is rejected.
func (*Orchestrator) validate() (string, strategy.Category, error) {
	scriptName, err := envvar.Required(varScriptName)
	if err != nil {
		return "", "", err
	}
	if strings.ContainsAny(scriptName, `/\`) || strings.Contains(scriptName, "..") {
		return "", "", fmt.Errorf("%w: %s: must be a bare file name, got %q", envvar.ErrMissing, varScriptName, scriptName)
	}
	rawCategory, err := envvar.Required(varCategory)
	if err != nil {
		return "", "", err
	}
	category, err := strategy.ParseCategory(rawCategory)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", envvar.ErrMissing, varCategory, err)
	}
	return scriptName, category, nil
}

// fetchResources pulls the optional shared-function bundle (best-effort)
// and the target script (mandatory).
func (o *Orchestrator) fetchResources(ctx context.Context, category strategy.Category, scriptName string) (string, error) {
	if bundle := o.Settings.FunctionsBundle; bundle != "" {
		if _, err := o.Fetcher.Fetch(ctx, functionsFolder, bundle); err != nil {
			log.Printf("[WARN] Shared function bundle %s unavailable: %v", bundle, err)
		}
	}

	return o.Fetcher.Fetch(ctx, category.Dir(), scriptName)
}

// executeScript runs the fetched body as a child process with the entire
// parent environment forwarded unchanged. Every variable the RMM agent
// set for this launcher must be visible, unmodified, to the child.
func (o *Orchestrator) executeScript(ctx context.Context, category strategy.Category, scriptPath string) (execute.Result, error) {
	argv, err := execute.CommandForScript(scriptPath)
	if err != nil {
		return execute.Result{ExitCode: -1}, err
	}

	result, err := o.Exec(ctx, execute.Job{
		Command: argv,
		Env:     os.Environ(),
		Timeout: o.timeout(category),
		Label:   scriptPath,
	})

	// Forward captured output so the console sees what the script said.
	if result.Stdout != "" {
		_, _ = io.WriteString(o.Stdout, result.Stdout)
	}
	if result.Stderr != "" {
		_, _ = io.WriteString(o.Stderr, result.Stderr)
	}

	return result, err
}

func (o *Orchestrator) timeout(category strategy.Category) time.Duration {
	if secs := envvar.Int("TimeoutSeconds", o.Settings.TimeoutSeconds); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if category == strategy.Monitor {
		return monitorTimeout
	}
	return scriptTimeout
}

// interpret maps the child's raw result to the launcher's exit code using
// category-specific semantics.
func (o *Orchestrator) interpret(category strategy.Category, result execute.Result, runErr error) int {
	if runErr != nil {
		if errors.Is(runErr, execute.ErrTimeout) {
			log.Printf("[ERROR] %v", runErr)
			return ExitResourceUnavailable
		}
		log.Printf("[ERROR] Child execution failed: %v", runErr)
		return ExitFailure
	}

	if category == strategy.Monitor {
		// A monitor that never emitted the result markers is a defect
		// even when its exit code is 0: the console cannot render a
		// status without them.
		if result.ExitCode == 0 && !monitor.HasResult(result.Stdout) {
			log.Print("[ERROR] Monitor exited 0 without emitting result markers")
			return ExitFailure
		}
		// Markers are present; the strict check is advisory here because
		// the console tolerates shapes this launcher should not reject.
		if result.ExitCode == 0 {
			for _, problem := range monitor.Validate(result.Stdout, o.Settings.OutputVar) {
				log.Printf("[WARN] Monitor output: %s", problem)
			}
		}
		return result.ExitCode
	}

	switch result.ExitCode {
	case ExitSuccess:
		return ExitSuccess
	case ExitRebootRequired, ExitRebootInitiated:
		log.Printf("[INFO] Child requested reboot (exit %d), preserving verbatim", result.ExitCode)
		return result.ExitCode
	default:
		log.Printf("[WARN] Child failed with exit %d, preserving verbatim", result.ExitCode)
		return result.ExitCode
	}
}

func (o *Orchestrator) logState(s State) {
	if o.Settings.Debug {
		log.Printf("[DEBUG] State: %s", s)
	}
}

// exitCodeFor is the single conversion point from internal error kinds to
// launcher exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, envvar.ErrMissing):
		return ExitMissingInput
	case errors.Is(err, execute.ErrTimeout),
		errors.Is(err, fetch.ErrUnavailable),
		errors.Is(err, fetch.ErrOfflineUnavailable):
		return ExitResourceUnavailable
	case err == nil:
		return ExitSuccess
	default:
		return ExitFailure
	}
}
