package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/countdown"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Duration)
	assert.Equal(t, 150, cfg.Voice.Rate)
	assert.Equal(t, 1.0, cfg.Voice.Volume)
	assert.Equal(t, time.Second, cfg.Countdown.Tick)
}

func TestDefaultCountdownMatchesController(t *testing.T) {
	want := countdown.DefaultConfig()
	got := Default().Countdown
	assert.Equal(t, want.Tick, got.Tick)
	assert.Equal(t, want.AnnounceLast, got.AnnounceLast)
	assert.Equal(t, want.FinalMessage, got.FinalMessage)
}

func TestDefaultCacheDir(t *testing.T) {
	base, err := os.UserCacheDir()
	if err != nil {
		assert.Equal(t, ".countdown-cache", defaultCacheDir())
		return
	}
	assert.Equal(t, filepath.Join(base, "countdown"), defaultCacheDir())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countdown.yaml")
	data := `
duration: 30
engine: google
voice:
  rate: 180
  volume: 0.5
countdown:
  tick: 500ms
  announce_last: 5
  checkpoints: [20, 10]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Duration)
	assert.Equal(t, "google", cfg.Engine)
	assert.Equal(t, 180, cfg.Voice.Rate)
	assert.Equal(t, 0.5, cfg.Voice.Volume)
	assert.Equal(t, DefaultLanguage, cfg.Voice.Language)
	assert.Equal(t, 500*time.Millisecond, cfg.Countdown.Tick)
	assert.Equal(t, 5, cfg.Countdown.AnnounceLast)
	assert.Equal(t, []int{20, 10}, cfg.Countdown.Checkpoints)
	assert.Equal(t, "Countdown complete!", cfg.Countdown.FinalMessage)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ELEVENLABS_APIKEY", "secret")
	t.Setenv("COUNTDOWN_ENGINE", "elevenlabs")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.ElevenLabs.APIKey)
	assert.Equal(t, "elevenlabs", cfg.Engine)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"rate":          func(c *Config) { c.Voice.Rate = 0 },
		"volume high":   func(c *Config) { c.Voice.Volume = 1.5 },
		"volume low":    func(c *Config) { c.Voice.Volume = -0.1 },
		"volume NaN":    func(c *Config) { c.Voice.Volume = math.NaN() },
		"tick":          func(c *Config) { c.Countdown.Tick = 0 },
		"announce last": func(c *Config) { c.Countdown.AnnounceLast = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
