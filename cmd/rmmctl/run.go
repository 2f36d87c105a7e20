package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rmmdeploy/internal/execute"
	"rmmdeploy/internal/launcher"
	"rmmdeploy/internal/monitor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a component script locally and capture its output",
	Long: `Run executes a component script the way the RMM agent would:
variables from a KEY=VALUE file injected into the environment, stdout and
stderr captured to files in a work directory, and monitor output validated
when the script lives under a Monitors folder.`,
	RunE: runRun,
}

var (
	runScript          string
	runVars            string
	runWorkdir         string
	runAttachments     string
	runValidateMonitor bool
	runOutputVar       string
	runTimeoutSecs     int
)

func init() {
	runCmd.Flags().StringVar(&runScript, "script", "", "path to the .ps1 or .sh component script")
	runCmd.Flags().StringVar(&runVars, "vars", "", "KEY=VALUE file injected into the environment")
	runCmd.Flags().StringVar(&runWorkdir, "workdir", "", "working directory (default: a fresh temp dir)")
	runCmd.Flags().StringVar(&runAttachments, "attachments", "", "directory of files copied into the workdir")
	runCmd.Flags().BoolVar(&runValidateMonitor, "validate-monitor", false, "validate monitor markers and result line")
	runCmd.Flags().StringVar(&runOutputVar, "output-var", monitor.DefaultVar, "monitor output variable name")
	runCmd.Flags().IntVar(&runTimeoutSecs, "timeout", 600, "execution timeout in seconds")
	_ = runCmd.MarkFlagRequired("script")

	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, _ []string) error {
	scriptPath, err := filepath.Abs(runScript)
	if err != nil {
		return err
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Errorf("script not found: %s", scriptPath)
	}

	argv, err := execute.CommandForScript(scriptPath)
	if err != nil {
		return err
	}

	workdir := runWorkdir
	if workdir == "" {
		workdir, err = os.MkdirTemp("", "rmm-run-")
		if err != nil {
			return fmt.Errorf("create workdir: %w", err)
		}
	} else if err := os.MkdirAll(workdir, 0o750); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}

	env := os.Environ()
	if runVars != "" {
		extra, err := parseEnvFile(runVars)
		if err != nil {
			return err
		}
		for k, v := range extra {
			env = append(env, k+"="+v)
		}
	}

	if runAttachments != "" {
		if err := copyAttachments(runAttachments, workdir); err != nil {
			return err
		}
	}

	fmt.Printf("Workdir: %s\n", workdir)
	fmt.Printf("Script:  %s\n", scriptPath)

	result, runErr := execute.Run(context.Background(), execute.Job{
		Command: argv,
		Dir:     workdir,
		Env:     env,
		Timeout: time.Duration(runTimeoutSecs) * time.Second,
		Label:   filepath.Base(scriptPath),
	})
	if runErr != nil && !result.TimedOut {
		return runErr
	}

	stdoutPath := filepath.Join(workdir, "stdout.txt")
	stderrPath := filepath.Join(workdir, "stderr.txt")
	if err := os.WriteFile(stdoutPath, []byte(result.Stdout), 0o600); err != nil {
		return fmt.Errorf("write stdout capture: %w", err)
	}
	if err := os.WriteFile(stderrPath, []byte(result.Stderr), 0o600); err != nil {
		return fmt.Errorf("write stderr capture: %w", err)
	}

	fmt.Printf("Exit code: %d\n", result.ExitCode)
	fmt.Printf("Elapsed:   %v\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("Stdout:    %s\n", stdoutPath)
	fmt.Printf("Stderr:    %s\n", stderrPath)
	if result.TimedOut {
		fmt.Println("Timed out: yes")
		os.Exit(launcher.ExitResourceUnavailable)
	}

	shouldValidate := runValidateMonitor || underMonitorsDir(scriptPath)
	if shouldValidate {
		problems := monitor.Validate(result.Stdout, runOutputVar)
		if problems == nil {
			fmt.Printf("Monitor output: OK (%s=...)\n", runOutputVar)
		} else {
			fmt.Fprintf(os.Stderr, "Monitor output: INVALID (expected '%s=...')\n", runOutputVar)
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "- %s\n", p)
			}
			// A script that already failed keeps its own exit code;
			// otherwise surface the validation failure.
			if result.ExitCode == 0 {
				os.Exit(exitInvalidOutput)
			}
		}
	}

	os.Exit(result.ExitCode)
	return nil
}

func underMonitorsDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "Monitors" {
			return true
		}
	}
	return false
}

// parseEnvFile reads a .env-style file: KEY=VALUE lines, # comments,
// optional "export " prefixes, and simple single or double quoting.
func parseEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vars file: %w", err)
	}

	env := make(map[string]string)
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("invalid env line (expected KEY=VALUE): %q", raw)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid env line (empty key): %q", raw)
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '\'' && value[len(value)-1] == '\'') ||
				(value[0] == '"' && value[len(value)-1] == '"') {
				value = value[1 : len(value)-1]
			}
		}
		env[key] = value
	}
	return env, nil
}

// copyAttachments copies the regular files of dir into workdir, the way
// the RMM agent stages component attachments next to the script.
func copyAttachments(dir, workdir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("attachments must be a directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read attachment %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(workdir, entry.Name()), data, 0o600); err != nil {
			return fmt.Errorf("copy attachment %s: %w", entry.Name(), err)
		}
	}
	return nil
}
