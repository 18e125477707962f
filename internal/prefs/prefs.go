// Package prefs persists terminal client preferences in
// ~/.config/clariox/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Prefs struct {
	APIURL string `toml:"api_url"`
	Email  string `toml:"email"`
	Token  string `toml:"token"`
}

const (
	defaultPrefsPath = "~/.config/clariox/prefs.toml"
	defaultAPIURL    = "http://localhost:8080"
)

func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, falling back to defaults when the file
// is missing or unreadable.
func Load(path string) (Prefs, error) {
	prefs := Prefs{APIURL: defaultAPIURL}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(raw, &prefs); err != nil {
		return Prefs{APIURL: defaultAPIURL}, nil // Graceful degradation
	}
	if strings.TrimSpace(prefs.APIURL) == "" {
		prefs.APIURL = defaultAPIURL
	}
	return prefs, nil
}

// Save writes preferences, creating directories as needed. The file holds
// a bearer token, so it is readable by the owner only.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	raw, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, raw, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
