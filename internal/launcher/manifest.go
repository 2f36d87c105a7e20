package launcher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"rmmdeploy/internal/execute"
	"rmmdeploy/internal/strategy"
)

const (
	manifestDirPerm  = 0o750
	manifestFilePerm = 0o600
)

// RunManifest is the audit record of one launcher invocation. Writing it
// is best-effort; the run's exit code never depends on it.
type RunManifest struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	Script      string    `json:"script"`
	Category    string    `json:"category"`
	CachePath   string    `json:"cache_path,omitempty"`
	ScriptSHA   string    `json:"script_sha256,omitempty"`
	RawExitCode int       `json:"raw_exit_code"`
	FinalExit   int       `json:"final_exit_code"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	TimedOut    bool      `json:"timed_out"`
}

func (o *Orchestrator) writeManifest(scriptName string, category strategy.Category, scriptPath string, result execute.Result, finalCode int) {
	dir := o.Settings.ManifestDir
	if dir == "" {
		return
	}

	m := RunManifest{
		RunID:       uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Script:      scriptName,
		Category:    category.Dir(),
		CachePath:   scriptPath,
		ScriptSHA:   hashFile(scriptPath),
		RawExitCode: result.ExitCode,
		FinalExit:   finalCode,
		ElapsedMs:   result.Elapsed.Milliseconds(),
		TimedOut:    result.TimedOut,
	}

	if err := saveManifest(m, dir); err != nil {
		log.Printf("[WARN] Failed to write run manifest: %v", err)
	}
}

func saveManifest(m RunManifest, dir string) error {
	if err := os.MkdirAll(dir, manifestDirPerm); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", m.Timestamp.Format("20060102_150405"), m.RunID)
	if err := os.WriteFile(filepath.Join(dir, name), data, manifestFilePerm); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
