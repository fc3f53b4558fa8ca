// internal/config/types.go
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "45m" or "2h30m", or from a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value at line %d", value.Line)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Global configuration loaded from config.yaml
type Global struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Store   StoreConfig   `yaml:"store"`
	Slack   SlackConfig   `yaml:"slack"`
}

type DaemonConfig struct {
	LogLevel      string `yaml:"log_level"`
	ListenAddress string `yaml:"listen_address"`
	ListenPort    int    `yaml:"listen_port"`
}

type LoggingConfig struct {
	Format string `yaml:"format"`
	Debug  bool   `yaml:"debug"`
}

type EngineConfig struct {
	// Interval between monitoring loop ticks.
	Interval Duration `yaml:"interval"`
	// Per-evaluator deadline; a timed-out evaluator yields no signal.
	EvaluatorTimeout Duration `yaml:"evaluator_timeout"`
	// If > 0, a dispatched decision with no explicit feedback after this
	// window is recorded as ignored.
	FeedbackTimeout Duration `yaml:"feedback_timeout"`
	// DefaultUser is the user id the monitoring loop evaluates for.
	DefaultUser string `yaml:"default_user"`
	// RetentionDays bounds how long history rows are kept.
	RetentionDays int `yaml:"retention_days"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type SlackConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Trigger is a trigger definition loaded from an individual YAML file.
// Parameters is a schema-free bag of numeric/string knobs interpreted by
// the evaluator for the trigger's kind.
type Trigger struct {
	ID          string         `yaml:"trigger_id"`
	Kind        string         `yaml:"kind"`
	Priority    int            `yaml:"priority"`
	Cooldown    Duration       `yaml:"cooldown"`
	Enabled     *bool          `yaml:"enabled"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// IsEnabled treats a missing enabled field as true.
func (t Trigger) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}
