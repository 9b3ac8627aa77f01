// Package config builds the single configuration value handed to every component.
// Values come from built-in defaults, an optional YAML file, an optional .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "overseer.yaml"

// Config holds all configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Reminders RemindersConfig `yaml:"reminders"`
	Study     StudyConfig     `yaml:"study"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig selects the SQL driver. Driver is one of sqlite3, sqlite or postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LLMConfig configures the text generator used by the study assistant.
// An empty Provider disables generation. An empty Model selects the provider's
// entry in DefaultModels.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // gemini, openai
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[string]string{
	"gemini": "gemini-2.5-flash",
	"openai": "gpt-4o-mini",
}

// ModelName returns Model, or the provider default when Model is empty.
func (l LLMConfig) ModelName() string {
	if l.Model != "" {
		return l.Model
	}
	return DefaultModels[l.Provider]
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

// RemindersConfig bounds the hours at which reminders are sent.
type RemindersConfig struct {
	StartHour int    `yaml:"start_hour"`
	EndHour   int    `yaml:"end_hour"`
	Interval  string `yaml:"interval"`
}

// StudyConfig holds plan generation defaults.
type StudyConfig struct {
	SessionMinutes int `yaml:"session_minutes"`
	SessionsPerDay int `yaml:"sessions_per_day"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/overseer.db"},
		LLM: LLMConfig{
			BaseURL:   "https://api.openai.com/v1",
			Timeout:   "15s",
			MaxTokens: 400,
		},
		Reminders: RemindersConfig{StartHour: 8, EndHour: 22, Interval: "1h"},
		Study:     StudyConfig{SessionMinutes: 30, SessionsPerDay: 2},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (DefaultPath when empty) and the .env file in
// the working directory, applies environment overrides and validates the result.
// Missing files are not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.LLM.Model = cfg.LLM.ModelName()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("OVERSEER_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("OVERSEER_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("ADMIN_USER_IDS"); v != "" {
		c.Telegram.AdminIDs = parseIDs(v)
	}

	// OpenAI wins when both keys are present.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		c.LLM.Provider = "gemini"
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		c.LLM.Provider = "openai"
	}
	if v := os.Getenv("OVERSEER_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("OVERSEER_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}

	if v := os.Getenv("OVERSEER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	// Range is left to Validate.
	if err := envHour("NOTIFICATION_START_HOUR", &c.Reminders.StartHour); err != nil {
		return err
	}
	return envHour("NOTIFICATION_END_HOUR", &c.Reminders.EndHour)
}

// Validate checks the configuration for values no component can work with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database dsn is empty")
	}
	switch c.LLM.Provider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("config: llm timeout: %w", err)
	}
	r := c.Reminders
	if r.StartHour < 0 || r.StartHour > 23 || r.EndHour < 0 || r.EndHour > 23 {
		return fmt.Errorf("config: reminder hours must be within 0..23")
	}
	if r.StartHour > r.EndHour {
		return fmt.Errorf("config: reminder start hour %d is after end hour %d", r.StartHour, r.EndHour)
	}
	if _, err := time.ParseDuration(r.Interval); err != nil {
		return fmt.Errorf("config: reminder interval: %w", err)
	}
	if c.Study.SessionMinutes <= 0 || c.Study.SessionsPerDay <= 0 {
		return fmt.Errorf("config: study defaults must be positive")
	}
	return nil
}

// LLMTimeout returns the parsed generator timeout.
func (c Config) LLMTimeout() time.Duration {
	d, _ := time.ParseDuration(c.LLM.Timeout)
	return d
}

// ReminderInterval returns the parsed reminder job interval.
func (c Config) ReminderInterval() time.Duration {
	d, _ := time.ParseDuration(c.Reminders.Interval)
	return d
}

func envHour(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	h, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %q is not an hour", key, v)
	}
	*dst = h
	return nil
}

func parseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
