package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the workspace root.
const FileName = "vontta.yml"

// Config models vontta.yml.
type Config struct {
	Team struct {
		Name     string `yaml:"name" toml:"name" json:"name"`
		Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`
	} `yaml:"team" toml:"team" json:"team"`
	Workload struct {
		CapacityHours int `yaml:"capacity_hours" toml:"capacity_hours" json:"capacity_hours"`
		ElevatedHours int `yaml:"elevated_hours" toml:"elevated_hours" json:"elevated_hours"`
	} `yaml:"workload" toml:"workload" json:"workload"`
	Week struct {
		// CloseSchedule is a six-field cron spec (seconds first). Empty disables
		// automatic closing.
		CloseSchedule string `yaml:"close_schedule" toml:"close_schedule" json:"close_schedule"`
		// PeriodStart is "closure" or "monday".
		PeriodStart string `yaml:"period_start" toml:"period_start" json:"period_start"`
	} `yaml:"week" toml:"week" json:"week"`
	Chat struct {
		Model             string `yaml:"model" toml:"model" json:"model"`
		HistoryLimit      int    `yaml:"history_limit" toml:"history_limit" json:"history_limit"`
		SystemInstruction string `yaml:"system_instruction" toml:"system_instruction" json:"system_instruction"`
		TimeoutSeconds    int    `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
		MaxAttempts       int    `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
	} `yaml:"chat" toml:"chat" json:"chat"`
	Webhooks []WebhookConfig `yaml:"webhooks" toml:"webhooks" json:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" toml:"url" json:"url"`
	Actions        []string `yaml:"actions" toml:"actions" json:"actions,omitempty"`
	Secret         string   `yaml:"secret" toml:"secret" json:"-"`
	Enabled        *bool    `yaml:"enabled" toml:"enabled" json:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds,omitempty"`
}

const (
	PeriodStartClosure = "closure"
	PeriodStartMonday  = "monday"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with vt init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOrDefault returns the workspace config, or Default() when the file does
// not exist.
func LoadOrDefault(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Team.Name) == "" {
		return fmt.Errorf("config.team.name is required")
	}
	if _, err := time.LoadLocation(c.Team.Timezone); err != nil || c.Team.Timezone == "" {
		return fmt.Errorf("config.team.timezone %q is not a known time zone", c.Team.Timezone)
	}
	if c.Workload.CapacityHours <= 0 {
		return fmt.Errorf("config.workload.capacity_hours must be positive")
	}
	if c.Workload.ElevatedHours <= 0 || c.Workload.ElevatedHours > c.Workload.CapacityHours {
		return fmt.Errorf("config.workload.elevated_hours must be between 1 and capacity_hours")
	}
	if c.Week.CloseSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Week.CloseSchedule); err != nil {
			return fmt.Errorf("config.week.close_schedule: %w", err)
		}
	}
	switch c.Week.PeriodStart {
	case "", PeriodStartClosure, PeriodStartMonday:
	default:
		return fmt.Errorf("config.week.period_start must be %q or %q", PeriodStartClosure, PeriodStartMonday)
	}
	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("config.chat.history_limit must not be negative")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		for _, a := range hook.Actions {
			switch a {
			case "CREATE", "UPDATE", "DELETE":
			default:
				return fmt.Errorf("config.webhooks[%d].actions has unknown action %q", i, a)
			}
		}
	}
	return nil
}

// Location returns the team time zone, UTC when unset.
func (c *Config) Location() *time.Location {
	if c == nil || c.Team.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Team.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CapacityMinutes() int { return c.Workload.CapacityHours * 60 }
func (c *Config) ElevatedMinutes() int { return c.Workload.ElevatedHours * 60 }

// ChatTimeout is the per-reply deadline for the assistant.
func (c *Config) ChatTimeout() time.Duration {
	if c.Chat.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Chat.TimeoutSeconds) * time.Second
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Webhooks = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// TOML renders the config as TOML.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}

const defaultTemplate = `team:
  name: Vontta
  timezone: America/Sao_Paulo

workload:
  capacity_hours: 44
  elevated_hours: 40

week:
  # six fields, seconds first; e.g. "0 0 18 * * FRI" closes every Friday 18:00
  close_schedule: ""
  period_start: closure

chat:
  model: gemini-2.5-flash
  history_limit: 15
  timeout_seconds: 60
  max_attempts: 2
  system_instruction: >-
    Você é o assistente da equipe Vontta. Responda em português, de forma
    objetiva, ajudando com planejamento de atividades e prioridades.

webhooks: []
`
