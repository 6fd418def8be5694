package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"countdown/countdown"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

const (
	DefaultDuration = 10
	DefaultRate     = 150
	DefaultVolume   = 1.0
	DefaultEngine   = "system"
	DefaultLanguage = "en"
)

// VoiceConfig is handed to the speech engine and never changed afterwards.
type VoiceConfig struct {
	Rate     int     `yaml:"rate"`     // words per minute
	Volume   float64 `yaml:"volume"`   // 0.0 - 1.0
	Voice    string  `yaml:"voice"`    // engine specific, empty = engine default
	Language string  `yaml:"language"` // used by the google engine
	Player   string  `yaml:"player"`   // mp3 player for downloaded speech: native or mplayer
}

type CountdownConfig struct {
	Tick         time.Duration `yaml:"tick"`
	AnnounceLast int           `yaml:"announce_last"`
	Checkpoints  []int         `yaml:"checkpoints"`
	FinalMessage string        `yaml:"final_message"`
}

type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
	Model   string `yaml:"model"`
}

type Config struct {
	Duration int    `yaml:"duration"`
	Engine   string `yaml:"engine"`
	Strict   bool   `yaml:"strict"`
	Quiet    bool   `yaml:"quiet"`
	LogLevel string `yaml:"log_level"`
	CacheDir string `yaml:"cache_dir"`

	Voice      VoiceConfig      `yaml:"voice"`
	Countdown  CountdownConfig  `yaml:"countdown"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

func Default() *Config {
	return &Config{
		Duration: DefaultDuration,
		Engine:   DefaultEngine,
		LogLevel: "warn",
		CacheDir: defaultCacheDir(),
		Voice: VoiceConfig{
			Rate:     DefaultRate,
			Volume:   DefaultVolume,
			Language: DefaultLanguage,
			Player:   "native",
		},
		Countdown: CountdownConfig{
			Tick:         countdown.DefaultTick,
			AnnounceLast: countdown.DefaultAnnounceLast,
			FinalMessage: countdown.DefaultFinalMessage,
		},
		ElevenLabs: ElevenLabsConfig{
			VoiceID: "BreKkXSwy4hr1vgm7ZqX",
			Model:   "eleven_monolingual_v1",
		},
	}
}

// Load layers the optional YAML file at path and the environment (including
// a .env file in the working directory) over Default.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file; %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s; %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warnln("failed to load .env")
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("ELEVENLABS_APIKEY"); ok {
		c.ElevenLabs.APIKey = v
	}
	if v, ok := os.LookupEnv("ELEVENLABS_VOICE"); ok && v != "" {
		c.ElevenLabs.VoiceID = v
	}
	if v, ok := os.LookupEnv("COUNTDOWN_ENGINE"); ok && v != "" {
		c.Engine = v
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Voice.Rate <= 0:
		return fmt.Errorf("%w; voice rate must be positive, got %d", ErrInvalidConfig, c.Voice.Rate)
	case math.IsNaN(c.Voice.Volume) || c.Voice.Volume < 0 || c.Voice.Volume > 1:
		return fmt.Errorf("%w; voice volume must be within [0, 1], got %.2f", ErrInvalidConfig, c.Voice.Volume)
	case c.Countdown.Tick <= 0:
		return fmt.Errorf("%w; tick must be positive, got %s", ErrInvalidConfig, c.Countdown.Tick)
	case c.Countdown.AnnounceLast < 0:
		return fmt.Errorf("%w; announce_last must not be negative", ErrInvalidConfig)
	}
	return nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".countdown-cache"
	}
	return filepath.Join(dir, "countdown")
}
