// Package config loads the daemon configuration (YAML, read once at
// startup) and the mutable user settings and upload definitions (JSON,
// persisted across runs).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Monitor MonitorConfig `yaml:"monitor"`
	Steam   SteamConfig   `yaml:"steam"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// MonitorConfig carries every poll cadence and budget the monitors use.
type MonitorConfig struct {
	// PollInterval drives monitors that read log files.
	PollInterval time.Duration `yaml:"poll_interval"`

	// WindowPollInterval drives monitors whose only signal is an OS
	// scripting call per tick.
	WindowPollInterval time.Duration `yaml:"window_poll_interval"`

	LoginTimeout    time.Duration `yaml:"login_timeout"`
	TransferTimeout time.Duration `yaml:"transfer_timeout"`

	// ConsoleGraceTicks is how many consecutive definite-absent
	// observations the console monitor tolerates right after launch,
	// while the window is still being created.
	ConsoleGraceTicks int `yaml:"console_grace_ticks"`

	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	InjectTimeout time.Duration `yaml:"inject_timeout"`
}

// SteamConfig names the on-disk files this tool owns.
type SteamConfig struct {
	SettingsPath      string `yaml:"settings_path"`
	UploadConfigsPath string `yaml:"upload_configs_path"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
		Monitor: MonitorConfig{
			PollInterval:       500 * time.Millisecond,
			WindowPollInterval: time.Second,
			LoginTimeout:       3 * time.Minute,
			TransferTimeout:    2 * time.Hour,
			ConsoleGraceTicks:  10,
			ProbeTimeout:       5 * time.Second,
			InjectTimeout:      12 * time.Second,
		},
		Steam: SteamConfig{
			SettingsPath:      "steam_upload_settings.json",
			UploadConfigsPath: "steam_upload_configs.json",
		},
	}
}

// Load reads the YAML config at path. Fields absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults
// instead of an error. Any other read or parse failure still fails.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return cfg, err
}
