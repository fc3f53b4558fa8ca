// internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadGlobal loads the global configuration from a YAML file
func LoadGlobal(path string) (*Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Global
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyGlobalDefaults(&cfg)
	return &cfg, nil
}

// LoadTrigger loads a trigger definition from a YAML file
func LoadTrigger(path string) (*Trigger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trigger file: %w", err)
	}

	var trig Trigger
	if err := yaml.Unmarshal(data, &trig); err != nil {
		return nil, fmt.Errorf("parsing trigger file: %w", err)
	}

	return &trig, nil
}

// LoadTriggersDir loads all trigger definitions from a directory
func LoadTriggersDir(dir string) ([]*Trigger, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading triggers directory: %w", err)
	}

	var triggers []*Trigger
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		trig, err := LoadTrigger(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading trigger %s: %w", entry.Name(), err)
		}
		triggers = append(triggers, trig)
	}

	return triggers, nil
}

func applyGlobalDefaults(cfg *Global) {
	if cfg.Daemon.LogLevel == "" {
		cfg.Daemon.LogLevel = "info"
	}
	if cfg.Daemon.ListenAddress == "" {
		cfg.Daemon.ListenAddress = "127.0.0.1"
	}
	if cfg.Daemon.ListenPort == 0 {
		cfg.Daemon.ListenPort = 9876
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Engine.Interval <= 0 {
		cfg.Engine.Interval = Duration(time.Minute)
	}
	if cfg.Engine.EvaluatorTimeout <= 0 {
		cfg.Engine.EvaluatorTimeout = Duration(2 * time.Second)
	}
	if cfg.Engine.DefaultUser == "" {
		cfg.Engine.DefaultUser = "default"
	}
	if cfg.Engine.RetentionDays <= 0 {
		cfg.Engine.RetentionDays = 90
	}
	if cfg.Store.Path == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			cfg.Store.Path = filepath.Join(homeDir, ".interruptd", "triggers.db")
		}
	}
}
