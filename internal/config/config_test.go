package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "crosslocale", cfg.Logger.ServiceName)

	assert.Equal(t, "en", cfg.Locales.Default)
	assert.Equal(t, []string{"en"}, cfg.Locales.Chain)
	assert.Equal(t, "locales", cfg.Locales.MessagesDir)
	assert.Equal(t, "locators", cfg.Locales.LocatorsDir)

	assert.Equal(t, 3, cfg.Engine.MaxRounds)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.RetryBackoff)
	assert.Zero(t, cfg.Engine.ActionsPerSecond)
	assert.True(t, cfg.Engine.FailFast)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.ActionTimeout)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("locales.default", "vi")
	v.Set("locales.chain", []string{"vi", "en"})
	v.Set("engine.max_rounds", 5)
	v.Set("engine.retry_backoff", "250ms")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "vi", cfg.Locales.Default)
	assert.Equal(t, []string{"vi", "en"}, cfg.Locales.Chain)
	assert.Equal(t, 5, cfg.Engine.MaxRounds)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.RetryBackoff)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(viper.New())
		require.NoError(t, err)
		return cfg
	}

	t.Run("empty default language", func(t *testing.T) {
		cfg := valid()
		cfg.Locales.Default = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty chain", func(t *testing.T) {
		cfg := valid()
		cfg.Locales.Chain = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate chain entries", func(t *testing.T) {
		cfg := valid()
		cfg.Locales.Chain = []string{"en", "vi", "en"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "twice")
	})

	t.Run("non-positive retry rounds", func(t *testing.T) {
		cfg := valid()
		cfg.Engine.MaxRounds = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative pacing", func(t *testing.T) {
		cfg := valid()
		cfg.Engine.ActionsPerSecond = -1
		assert.Error(t, cfg.Validate())
	})
}
