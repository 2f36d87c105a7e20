// Package execute runs a unit of work as a child process under a
// wall-clock deadline. The supervisor blocks until the earlier of child
// completion or the deadline; on timeout the child is killed outright,
// never asked to stop, because RMM script bodies cannot be assumed to
// handle a cancellation signal.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Maximum captured output size to prevent memory exhaustion.
	maxOutputSize = 64 * 1024
	// Tail kept when truncating. Monitor result markers sit at the end
	// of the output and must survive truncation.
	tailKeepSize = 4 * 1024
)

// ErrTimeout is returned when the deadline fires before the child
// completes. The caller must be able to tell a timeout apart from a
// normal non-zero exit, because the two map to different exit codes.
var ErrTimeout = errors.New("execution deadline exceeded")

// Job describes one unit of work.
type Job struct {
	Command []string      // argv; Command[0] is the executable
	Dir     string        // working directory, empty for inherited
	Env     []string      // child environment; nil inherits the parent's verbatim
	Timeout time.Duration // wall-clock deadline, required
	Label   string        // identifier for logs
}

// Result is the outcome of a completed or killed job. It lives for one
// invocation only; nothing here is persisted.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	TimedOut bool
}

// Run starts the job and waits for completion or the deadline. On
// completion it returns the child's exit code and captured output. On
// timeout the child is killed, captured output is discarded, and the
// returned error wraps ErrTimeout.
func Run(ctx context.Context, job Job) (Result, error) {
	if len(job.Command) == 0 {
		return Result{ExitCode: -1}, errors.New("empty command")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, job.Command[0], job.Command[1:]...)
	cmd.Dir = job.Dir
	cmd.Env = job.Env

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		log.Printf("[WARN] %s timed out after %v (budget %v), child killed", job.Label, elapsed, job.Timeout)
		return Result{
			ExitCode: -1,
			Stderr:   "execution timed out after " + elapsed.Round(time.Millisecond).String(),
			Elapsed:  elapsed,
			TimedOut: true,
		}, fmt.Errorf("%s: %w", job.Label, ErrTimeout)
	}

	result := Result{
		Stdout:  limitOutput(stdoutBuf.Bytes(), maxOutputSize),
		Stderr:  limitOutput(stderrBuf.Bytes(), maxOutputSize),
		Elapsed: elapsed,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Start failure: executable missing, permission denied.
			result.ExitCode = -1
			return result, fmt.Errorf("%s: start child: %w", job.Label, err)
		}
	}

	log.Printf("[INFO] %s completed in %v (exit %d, stdout %d bytes, stderr %d bytes)",
		job.Label, elapsed.Round(time.Millisecond), result.ExitCode, len(result.Stdout), len(result.Stderr))

	return result, nil
}

// CommandForScript builds the interpreter argv for a fetched script body
// based on its extension.
func CommandForScript(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ps1":
		return []string{"pwsh", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-File", path}, nil
	case ".sh":
		return []string{"bash", path}, nil
	default:
		return nil, fmt.Errorf("unsupported script extension: %s", filepath.Ext(path))
	}
}

// limitOutput truncates output if it exceeds maxSize, keeping the head
// and the final tailKeepSize bytes with an elision note between them.
func limitOutput(data []byte, maxSize int) string {
	if len(data) <= maxSize {
		return string(data)
	}
	head := data[:maxSize-tailKeepSize]
	tail := data[len(data)-tailKeepSize:]
	return string(head) + "\n[output truncated]...\n" + string(tail)
}
