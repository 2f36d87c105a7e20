package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"rmmdeploy/internal/envvar"
)

// Settings are the optional knobs of a launcher run, all sourced from the
// environment because environment variables are the only integration
// surface the RMM agent offers. The two required inputs (ScriptName,
// ScriptCategory) are resolved separately so their absence maps to the
// missing-input exit code.
type Settings struct {
	RepoBaseURL     string `env:"RepoBaseURL" envDefault:"https://raw.githubusercontent.com/rmmdeploy/components/main"`
	CacheDir        string `env:"CacheDir"`
	FunctionsBundle string `env:"FunctionsBundle" envDefault:"shared-functions.sh"`
	ManifestDir     string `env:"ManifestDir"`
	OutputVar       string `env:"OutputVar" envDefault:"Status"`

	// Numeric and boolean knobs are resolved leniently below, never by
	// env.Parse: these are optional, so a malformed value degrades to the
	// default instead of aborting the run.
	CacheExpiryMinutes int
	ForceRefresh       bool
	OfflineMode        bool
	TimeoutSeconds     int // 0 = category default
	Debug              bool
}

const defaultCacheExpiryMinutes = 60

// LoadSettings parses Settings from the process environment and fills in
// the platform cache directory default.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse launcher settings: %w", err)
	}

	s.CacheExpiryMinutes = envvar.Int("CacheExpiryMinutes", defaultCacheExpiryMinutes)
	s.ForceRefresh = envvar.Bool("ForceRefresh", false)
	s.OfflineMode = envvar.Bool("OfflineMode", false)
	s.TimeoutSeconds = envvar.Int("TimeoutSeconds", 0)
	s.Debug = envvar.Bool("Debug", false)

	if s.CacheDir == "" {
		s.CacheDir = filepath.Join(os.TempDir(), "rmmdeploy-cache")
	}
	return s, nil
}

// CacheExpiry returns the cache freshness window as a duration.
func (s Settings) CacheExpiry() time.Duration {
	if s.CacheExpiryMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.CacheExpiryMinutes) * time.Minute
}
