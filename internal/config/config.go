// Package config loads and persists the protection settings surface.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const settingsFilename = "settings.json"

// Sensitivity values accepted in settings. Anything else falls back to
// medium rather than failing.
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// Settings is the user-facing configuration. Read-only during analysis.
type Settings struct {
	EnableProtection    bool     `json:"enableProtection"`
	EnableNotifications bool     `json:"enableNotifications"`
	EnableBreachCheck   bool     `json:"enableBreachCheck"`
	Sensitivity         string   `json:"sensitivity"`
	TrustedDomains      []string `json:"trustedDomains,omitempty"`
}

// Default returns the documented defaults: everything on, medium
// sensitivity.
func Default() Settings {
	return Settings{
		EnableProtection:    true,
		EnableNotifications: true,
		EnableBreachCheck:   true,
		Sensitivity:         SensitivityMedium,
	}
}

// Normalized replaces unrecognized values with their defaults. Invalid
// configuration degrades, it never crashes analysis.
func (s Settings) Normalized() Settings {
	switch s.Sensitivity {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		s.Sensitivity = SensitivityMedium
	}
	return s
}

// Paths locates configuration artifacts on disk.
type Paths struct {
	Dir string
}

// SettingsPath resolves the settings JSON path.
func (p Paths) SettingsPath() string {
	return filepath.Join(p.Dir, settingsFilename)
}

func (p Paths) ensureDir() error {
	if p.Dir == "" {
		return errors.New("config directory not specified")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return nil
}

// Load reads settings.json. A missing file yields the defaults; a
// corrupt one is an error so the caller can decide whether to reset it.
func Load(p Paths) (Settings, error) {
	data, err := os.ReadFile(p.SettingsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s.Normalized(), nil
}

// Save persists settings.json atomically with restrictive permissions.
func Save(p Paths, s Settings) error {
	if err := p.ensureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.Normalized(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(p.Dir, "settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp settings: %w", err)
	}

	if err := os.Rename(tmpPath, p.SettingsPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
