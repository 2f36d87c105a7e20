// Package envvar resolves typed configuration values from the process
// environment. Environment variables are the only integration surface the
// RMM agent offers a component, so every threshold, flag and path a script
// needs arrives here.
package envvar

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMissing is returned by Required when a mandatory variable is absent
// or blank. The orchestrator translates it into exit code 12.
var ErrMissing = errors.New("required environment variable not set")

// truthy values accepted by Bool. Everything else, including "false", "0"
// and the empty string, coerces to false.
var truthy = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"on":   true,
}

// String returns the value of name, or def when the variable is absent
// or blank.
func String(name, def string) string {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	return raw
}

// Int parses name as a base-10 integer. An absent variable or a value that
// does not parse returns def; a bad value is never an error.
func Int(name string, def int) int {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// Bool returns true iff name is set to one of the accepted truthy strings
// (case-insensitive). Absent variables return def.
func Bool(name string, def bool) bool {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	return truthy[strings.ToLower(strings.TrimSpace(raw))]
}

// Required returns the value of name, or ErrMissing when it is absent or
// blank. Missing required input is a hard failure, never defaulted.
func Required(name string) (string, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissing, name)
	}
	return raw, nil
}
