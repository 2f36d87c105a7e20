// Package fetch downloads component script bodies from the remote
// component repository into a local cache. Fetches degrade gracefully: a
// network failure with any cached copy on disk, even an expired one,
// serves the stale copy rather than failing the run.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	// HTTP client timeout.
	httpTimeout = 30 * time.Second
	// Maximum script size; anything larger is not a component body.
	maxScriptSize = 1 << 20
	// Cache freshness window before a re-fetch is attempted.
	defaultExpiry = time.Hour
	// Retry configuration for downloads.
	defaultAttempts = 3
	defaultBackoff  = 1 * time.Second
	maxBackoff      = 30 * time.Second
	// Cache directory and file permissions.
	cacheDirPerm  = 0o750
	cacheFilePerm = 0o600
)

var (
	// ErrUnavailable means the download failed and no cached copy exists.
	ErrUnavailable = errors.New("resource unavailable")
	// ErrOfflineUnavailable means offline mode was requested and the
	// resource has never been cached.
	ErrOfflineUnavailable = errors.New("resource not cached for offline use")
)

// Fetcher downloads component resources addressed as
// <base>/components/<CategoryDir>/<name> into CacheDir, mirroring the
// category folder layout. The cache is shared between concurrent launcher
// invocations on the same host; last-writer-wins overwrites are fine
// because the same key always maps to the same expected bytes.
type Fetcher struct {
	BaseURL      string
	CacheDir     string
	Expiry       time.Duration
	ForceRefresh bool
	Offline      bool
	Client       *http.Client

	Attempts uint
	Backoff  time.Duration
}

// New returns a Fetcher with a TLS 1.2+ transport and the default cache
// policy. Hosts may negotiate weak defaults; the floor is pinned here.
func New(baseURL, cacheDir string) *Fetcher {
	return &Fetcher{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		CacheDir: cacheDir,
		Expiry:   defaultExpiry,
		Client: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		Attempts: defaultAttempts,
		Backoff:  defaultBackoff,
	}
}

// Fetch resolves the resource named by its logical folder (a category
// directory such as "Monitors", or "Functions" for shared bundles) and
// file name to a local path, downloading it when the cached copy is
// missing or expired. Calling Fetch twice within the freshness window
// performs at most one network round-trip.
func (f *Fetcher) Fetch(ctx context.Context, folder, name string) (string, error) {
	localPath := filepath.Join(f.CacheDir, folder, name)

	if f.Offline {
		if _, err := os.Stat(localPath); err != nil {
			return "", fmt.Errorf("%w: %s/%s", ErrOfflineUnavailable, folder, name)
		}
		log.Printf("[INFO] Offline mode: using cached %s", localPath)
		return localPath, nil
	}

	if !f.ForceRefresh {
		if info, err := os.Stat(localPath); err == nil && time.Since(info.ModTime()) < f.expiry() {
			log.Printf("[INFO] Cache hit: %s (age %v)", localPath, time.Since(info.ModTime()).Round(time.Second))
			return localPath, nil
		}
	}

	if err := f.download(ctx, folder, name, localPath); err != nil {
		if _, statErr := os.Stat(localPath); statErr == nil {
			log.Printf("[WARN] Download of %s/%s failed (%v), serving stale cached copy", folder, name, err)
			return localPath, nil
		}
		return "", fmt.Errorf("%w: %s/%s: %v", ErrUnavailable, folder, name, err)
	}

	return localPath, nil
}

func (f *Fetcher) download(ctx context.Context, folder, name, localPath string) error {
	resourceURL := fmt.Sprintf("%s/components/%s/%s", f.BaseURL, folder, url.PathEscape(name))

	if err := os.MkdirAll(filepath.Dir(localPath), cacheDirPerm); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	body, err := retry.DoWithData(func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return f.get(ctx, resourceURL)
	}, retry.Attempts(f.attempts()), retry.Delay(f.backoff()), retry.MaxDelay(maxBackoff))
	if err != nil {
		return err
	}

	checkScriptShape(name, body)

	// Write-then-rename so concurrent launchers never observe a partial
	// file; the final rename is the benign last-writer-wins race.
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), cacheFilePerm); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}

	log.Printf("[INFO] Downloaded %s (%d bytes) -> %s", resourceURL, len(body), localPath)
	return nil
}

func (f *Fetcher) get(ctx context.Context, resourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resourceURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("[WARN] Error closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: server returned status %d", resourceURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxScriptSize {
		return nil, fmt.Errorf("fetch %s: resource exceeds %d bytes", resourceURL, maxScriptSize)
	}
	return body, nil
}

func (f *Fetcher) expiry() time.Duration {
	if f.Expiry <= 0 {
		return defaultExpiry
	}
	return f.Expiry
}

func (f *Fetcher) attempts() uint {
	if f.Attempts == 0 {
		return defaultAttempts
	}
	return f.Attempts
}

func (f *Fetcher) backoff() time.Duration {
	if f.Backoff <= 0 {
		return defaultBackoff
	}
	return f.Backoff
}

// checkScriptShape applies the best-effort sanity check to a downloaded
// body: non-empty, and a comment marker on the first line the way every
// component header starts. A miss is diagnostic noise, never a failure;
// legitimately different file shapes trip it.
func checkScriptShape(name string, body []byte) {
	if len(body) == 0 {
		log.Printf("[WARN] Downloaded %s is empty", name)
		return
	}

	firstLine := string(body)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	firstLine = strings.TrimSpace(strings.ToLower(firstLine))

	for _, marker := range []string{"#", "<#", "//", "rem", "::"} {
		if strings.HasPrefix(firstLine, marker) {
			return
		}
	}
	log.Printf("[WARN] Downloaded %s does not start with a comment header; possibly not a script", name)
}
