package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9090
  host: "0.0.0.0"
monitor:
  poll_interval: 250ms
  login_timeout: 90s
steam:
  settings_path: "/tmp/settings.json"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Monitor.PollInterval != 250*time.Millisecond {
		t.Errorf("Monitor.PollInterval = %v, want 250ms", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.LoginTimeout != 90*time.Second {
		t.Errorf("Monitor.LoginTimeout = %v, want 90s", cfg.Monitor.LoginTimeout)
	}
	if cfg.Steam.SettingsPath != "/tmp/settings.json" {
		t.Errorf("Steam.SettingsPath = %q", cfg.Steam.SettingsPath)
	}

	// Defaults still apply for unspecified fields.
	if cfg.Monitor.WindowPollInterval != time.Second {
		t.Errorf("Monitor.WindowPollInterval = %v, want default 1s", cfg.Monitor.WindowPollInterval)
	}
	if cfg.Monitor.TransferTimeout != 2*time.Hour {
		t.Errorf("Monitor.TransferTimeout = %v, want default 2h", cfg.Monitor.TransferTimeout)
	}
	if cfg.Monitor.ConsoleGraceTicks != 10 {
		t.Errorf("Monitor.ConsoleGraceTicks = %d, want default 10", cfg.Monitor.ConsoleGraceTicks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("default Server.Port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Monitor.PollInterval != 500*time.Millisecond {
		t.Errorf("default Monitor.PollInterval = %v, want 500ms", cfg.Monitor.PollInterval)
	}
}

func TestLoadOrDefaultBadYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(cfgPath); err == nil {
		t.Fatal("LoadOrDefault() should fail on malformed YAML")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() on missing file: %v", err)
	}
	if !s.MonitorConsole {
		t.Error("fresh settings should enable console monitoring")
	}

	s.Username = "dev"
	s.ContentBuilderPath = "/opt/sdk/tools/ContentBuilder"
	if err := SaveSettings(path, s); err != nil {
		t.Fatalf("SaveSettings(): %v", err)
	}

	back, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() after save: %v", err)
	}
	if back.Username != "dev" || back.ContentBuilderPath != s.ContentBuilderPath {
		t.Errorf("reloaded settings = %+v", back)
	}
}

func TestUploadConfigsCRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploads.json")

	uc, err := LoadUploadConfigs(path)
	if err != nil {
		t.Fatalf("LoadUploadConfigs() on missing file: %v", err)
	}

	cfg := UploadConfig{AppID: 480, DepotID: 481, Branch: "beta", ContentPath: "./build"}
	if err := uc.Put("demo", cfg); err != nil {
		t.Fatalf("Put(): %v", err)
	}

	reloaded, err := LoadUploadConfigs(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.Get("demo")
	if !ok {
		t.Fatal("config did not survive reload")
	}
	if got.AppID != 480 || got.Branch != "beta" {
		t.Errorf("reloaded config = %+v", got)
	}

	if err := reloaded.Delete("demo"); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if err := reloaded.Delete("demo"); err == nil {
		t.Error("deleting an absent config should fail")
	}
}

func TestUploadConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  UploadConfig
		ok   bool
	}{
		{"valid", UploadConfig{AppID: 1, DepotID: 2, ContentPath: "x"}, true},
		{"no_app", UploadConfig{DepotID: 2, ContentPath: "x"}, false},
		{"no_depot", UploadConfig{AppID: 1, ContentPath: "x"}, false},
		{"no_content", UploadConfig{AppID: 1, DepotID: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestUploadConfigNamesSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploads.json")
	uc, _ := LoadUploadConfigs(path)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := uc.Put(name, UploadConfig{AppID: 1, DepotID: 2, ContentPath: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	names := uc.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}
