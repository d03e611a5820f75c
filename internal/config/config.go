// Package config holds storycast settings loaded from the config file,
// environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/gemini"
	"github.com/mitchellh/go-homedir"
)

// Config contains all storycast options.
type Config struct {
	LogLevel string `yaml:"log_level" env:"STORYCAST_LOG_LEVEL" envDefault:"info"`
	LogFile  string `yaml:"log_file" env:"STORYCAST_LOG_FILE"`

	Gemini   GeminiConfig   `yaml:"gemini"`
	Playback PlaybackConfig `yaml:"playback"`
	Export   ExportConfig   `yaml:"export"`
}

// GeminiConfig contains segmentation and synthesis service settings.
type GeminiConfig struct {
	BaseURL           string        `yaml:"base_url" env:"STORYCAST_GEMINI_BASE_URL"`
	TextModel         string        `yaml:"text_model" env:"STORYCAST_GEMINI_TEXT_MODEL"`
	SpeechModel       string        `yaml:"speech_model" env:"STORYCAST_GEMINI_SPEECH_MODEL"`
	Timeout           time.Duration `yaml:"timeout" env:"STORYCAST_GEMINI_TIMEOUT" envDefault:"90s"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"STORYCAST_GEMINI_REQUESTS_PER_MINUTE" envDefault:"60"`
}

// PlaybackConfig contains output and sequencing settings.
type PlaybackConfig struct {
	Speed      float64       `yaml:"speed" env:"STORYCAST_PLAYBACK_SPEED" envDefault:"1.0"`
	Prefetch   bool          `yaml:"prefetch" env:"STORYCAST_PLAYBACK_PREFETCH" envDefault:"true"`
	BufferSize time.Duration `yaml:"buffer_size" env:"STORYCAST_PLAYBACK_BUFFER_SIZE" envDefault:"100ms"`
}

// ExportConfig contains export settings.
type ExportConfig struct {
	Dir string `yaml:"dir" env:"STORYCAST_EXPORT_DIR" envDefault:"."`
}

// Credentials holds secrets that are only read from the environment.
type Credentials struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	APIKey       string `env:"API_KEY"`
}

// ErrNoAPIKey is returned when no API key is set.
var ErrNoAPIKey = errors.New("no API key: set GEMINI_API_KEY")

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Gemini: GeminiConfig{
			BaseURL:           gemini.DefaultBaseURL,
			TextModel:         gemini.DefaultTextModel,
			SpeechModel:       gemini.DefaultSpeechModel,
			Timeout:           90 * time.Second,
			RequestsPerMinute: 60,
		},
		Playback: PlaybackConfig{
			Speed:      1.0,
			Prefetch:   true,
			BufferSize: 100 * time.Millisecond,
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}

// Validate checks ranges and normalizes values.
func (c *Config) Validate() error {
	lvl, err := log.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	c.LogLevel = lvl.String()

	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini timeout must be positive, got %s", c.Gemini.Timeout)
	}
	if c.Gemini.RequestsPerMinute < 1 || c.Gemini.RequestsPerMinute > 1000 {
		return fmt.Errorf("requests per minute must be between 1 and 1000, got %d", c.Gemini.RequestsPerMinute)
	}
	if strings.TrimSpace(c.Gemini.TextModel) == "" || strings.TrimSpace(c.Gemini.SpeechModel) == "" {
		return errors.New("gemini models must not be empty")
	}

	if c.Playback.Speed < 0.5 || c.Playback.Speed > 2.0 {
		return fmt.Errorf("speed must be between 0.5 and 2.0, got %g", c.Playback.Speed)
	}
	if c.Playback.BufferSize < 10*time.Millisecond || c.Playback.BufferSize > 2*time.Second {
		return fmt.Errorf("buffer size must be between 10ms and 2s, got %s", c.Playback.BufferSize)
	}

	dir, err := homedir.Expand(c.Export.Dir)
	if err != nil {
		return fmt.Errorf("invalid export dir %q: %w", c.Export.Dir, err)
	}
	if dir == "" {
		dir = "."
	}
	c.Export.Dir = dir

	if c.LogFile != "" {
		if c.LogFile, err = homedir.Expand(c.LogFile); err != nil {
			return fmt.Errorf("invalid log file %q: %w", c.LogFile, err)
		}
	}
	return nil
}

// GeminiClientConfig returns the client settings for key.
func (c *Config) GeminiClientConfig(key string) gemini.Config {
	return gemini.Config{
		APIKey:            key,
		BaseURL:           c.Gemini.BaseURL,
		TextModel:         c.Gemini.TextModel,
		SpeechModel:       c.Gemini.SpeechModel,
		Timeout:           c.Gemini.Timeout,
		RequestsPerMinute: c.Gemini.RequestsPerMinute,
	}
}

// LoadCredentials reads credentials from the environment.
func LoadCredentials() (Credentials, error) {
	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return Credentials{}, fmt.Errorf("parse environment: %w", err)
	}
	return creds, nil
}

// Key returns the Gemini API key, preferring GEMINI_API_KEY.
func (c Credentials) Key() (string, error) {
	if k := strings.TrimSpace(c.GeminiAPIKey); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(c.APIKey); k != "" {
		return k, nil
	}
	return "", ErrNoAPIKey
}
