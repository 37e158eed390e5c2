package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Settings are the per-user values the UI edits and the daemon persists
// between runs. The password is deliberately absent: it is accepted per
// login request and never written to disk.
type Settings struct {
	Username           string `json:"username"`
	ContentBuilderPath string `json:"content_builder_path"`
	BuildOutputPath    string `json:"build_output_path"`
	MonitorConsole     bool   `json:"monitor_console"`
}

// LoadSettings reads settings from path. A missing file returns zero
// settings with console monitoring enabled, not an error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{MonitorConsole: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	s := &Settings{MonitorConsole: true}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes settings to path, creating the file if needed.
func SaveSettings(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
