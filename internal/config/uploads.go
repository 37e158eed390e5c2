package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// UploadConfig describes one named build target: which app and depot to
// upload to, from where, onto which branch.
type UploadConfig struct {
	AppID       int    `json:"app_id"`
	DepotID     int    `json:"depot_id"`
	Branch      string `json:"branch,omitempty"`
	Description string `json:"description,omitempty"`
	ContentPath string `json:"content_path"`
}

func (u *UploadConfig) Validate() error {
	if u.AppID <= 0 {
		return fmt.Errorf("app_id must be positive, got %d", u.AppID)
	}
	if u.DepotID <= 0 {
		return fmt.Errorf("depot_id must be positive, got %d", u.DepotID)
	}
	if u.ContentPath == "" {
		return fmt.Errorf("content_path is required")
	}
	return nil
}

// UploadConfigs is the named collection persisted as one JSON file.
type UploadConfigs struct {
	path    string
	configs map[string]UploadConfig
}

// LoadUploadConfigs reads the collection at path. A missing file yields
// an empty collection bound to that path.
func LoadUploadConfigs(path string) (*UploadConfigs, error) {
	uc := &UploadConfigs{
		path:    path,
		configs: make(map[string]UploadConfig),
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return uc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload configs: %w", err)
	}
	if err := json.Unmarshal(data, &uc.configs); err != nil {
		return nil, fmt.Errorf("parse upload configs: %w", err)
	}
	return uc, nil
}

func (uc *UploadConfigs) Get(name string) (UploadConfig, bool) {
	c, ok := uc.configs[name]
	return c, ok
}

// Names returns the config names in sorted order.
func (uc *UploadConfigs) Names() []string {
	names := make([]string, 0, len(uc.configs))
	for name := range uc.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (uc *UploadConfigs) All() map[string]UploadConfig {
	out := make(map[string]UploadConfig, len(uc.configs))
	for name, c := range uc.configs {
		out[name] = c
	}
	return out
}

// Put validates and stores cfg under name, then persists the collection.
func (uc *UploadConfigs) Put(name string, cfg UploadConfig) error {
	if name == "" {
		return fmt.Errorf("config name is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %q: %w", name, err)
	}
	uc.configs[name] = cfg
	return uc.save()
}

// Delete removes name and persists. Deleting an absent name is an error
// so the UI can report a stale selection.
func (uc *UploadConfigs) Delete(name string) error {
	if _, ok := uc.configs[name]; !ok {
		return fmt.Errorf("no upload config named %q", name)
	}
	delete(uc.configs, name)
	return uc.save()
}

func (uc *UploadConfigs) save() error {
	data, err := json.MarshalIndent(uc.configs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode upload configs: %w", err)
	}
	if err := os.WriteFile(uc.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write upload configs: %w", err)
	}
	return nil
}
