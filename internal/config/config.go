package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Locales LocalesConfig `mapstructure:"locales" yaml:"locales"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
}

// LocalesConfig describes the language universe for a run: the default
// (active) language, the global fallback chain ordering, and where the
// static message and locator tables live on disk.
type LocalesConfig struct {
	Default     string   `mapstructure:"default" yaml:"default"`
	Chain       []string `mapstructure:"chain" yaml:"chain"`
	MessagesDir string   `mapstructure:"messages_dir" yaml:"messages_dir"`
	LocatorsDir string   `mapstructure:"locators_dir" yaml:"locators_dir"`
}

// EngineConfig bounds the interaction engine's retry behavior.
type EngineConfig struct {
	MaxRounds        int           `mapstructure:"max_rounds" yaml:"max_rounds"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	ActionsPerSecond float64       `mapstructure:"actions_per_second" yaml:"actions_per_second"`
	FailFast         bool          `mapstructure:"fail_fast" yaml:"fail_fast"`
}

// BrowserConfig controls the chromedp-backed driver.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// SetDefaults registers the default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "crosslocale")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)

	v.SetDefault("locales.default", "en")
	v.SetDefault("locales.chain", []string{"en"})
	v.SetDefault("locales.messages_dir", "locales")
	v.SetDefault("locales.locators_dir", "locators")

	v.SetDefault("engine.max_rounds", 3)
	v.SetDefault("engine.retry_backoff", 500*time.Millisecond)
	v.SetDefault("engine.actions_per_second", 0) // 0 disables pacing
	v.SetDefault("engine.fail_fast", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.action_timeout", 10*time.Second)
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Locales.Default == "" {
		return fmt.Errorf("locales.default must not be empty")
	}
	if len(c.Locales.Chain) == 0 {
		return fmt.Errorf("locales.chain must list at least one language")
	}
	seen := make(map[string]bool, len(c.Locales.Chain))
	for _, code := range c.Locales.Chain {
		if seen[code] {
			return fmt.Errorf("locales.chain lists %q twice", code)
		}
		seen[code] = true
	}
	if c.Engine.MaxRounds < 1 {
		return fmt.Errorf("engine.max_rounds must be at least 1, got %d", c.Engine.MaxRounds)
	}
	if c.Engine.RetryBackoff < 0 {
		return fmt.Errorf("engine.retry_backoff must not be negative")
	}
	if c.Engine.ActionsPerSecond < 0 {
		return fmt.Errorf("engine.actions_per_second must not be negative")
	}
	return nil
}
