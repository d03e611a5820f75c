package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"speed too low", func(c *Config) { c.Playback.Speed = 0.25 }, "speed"},
		{"speed too high", func(c *Config) { c.Playback.Speed = 3 }, "speed"},
		{"zero timeout", func(c *Config) { c.Gemini.Timeout = 0 }, "timeout"},
		{"rpm zero", func(c *Config) { c.Gemini.RequestsPerMinute = 0 }, "requests per minute"},
		{"empty model", func(c *Config) { c.Gemini.SpeechModel = " " }, "models"},
		{"tiny buffer", func(c *Config) { c.Playback.BufferSize = time.Millisecond }, "buffer size"},
		{"upper case level ok", func(c *Config) { c.LogLevel = "DEBUG" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "WARN"
	cfg.Export.Dir = ""
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Export.Dir != "." {
		t.Errorf("export dir = %q", cfg.Export.Dir)
	}
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	v.Set(KeyPlaybackSpeed, 1.5)
	v.Set(KeyPlaybackPrefetch, false)
	v.Set(KeyGeminiTimeout, "30s")
	v.Set(KeyExportDir, "exports")
	v.Set(KeyLogLevel, "debug")

	cfg, err := LoadFromViper(v)
	if err != nil {
		t.Fatalf("LoadFromViper() error = %v", err)
	}
	if cfg.Playback.Speed != 1.5 || cfg.Playback.Prefetch {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Gemini.Timeout != 30*time.Second {
		t.Errorf("timeout = %s", cfg.Gemini.Timeout)
	}
	if cfg.Export.Dir != "exports" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Gemini.TextModel != DefaultConfig().Gemini.TextModel {
		t.Errorf("unset key lost its default: %q", cfg.Gemini.TextModel)
	}
}

func TestLoadFromViperInvalid(t *testing.T) {
	v := viper.New()
	v.Set(KeyPlaybackSpeed, 9.0)
	if _, err := LoadFromViper(v); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCredentials(t *testing.T) {
	tests := []struct {
		name    string
		gemini  string
		api     string
		want    string
		wantErr bool
	}{
		{"gemini key", "g-key", "", "g-key", false},
		{"fallback key", "", "a-key", "a-key", false},
		{"prefers gemini", "g-key", "a-key", "g-key", false},
		{"none", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("API_KEY", tt.api)

			creds, err := LoadCredentials()
			if err != nil {
				t.Fatalf("LoadCredentials() error = %v", err)
			}
			key, err := creds.Key()
			if tt.wantErr {
				if !errors.Is(err, ErrNoAPIKey) {
					t.Errorf("Key() error = %v", err)
				}
				return
			}
			if err != nil || key != tt.want {
				t.Errorf("Key() = %q, %v; want %q", key, err, tt.want)
			}
		})
	}
}

func TestGeminiClientConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gemini.RequestsPerMinute = 10
	gc := cfg.GeminiClientConfig("k")
	if gc.APIKey != "k" || gc.RequestsPerMinute != 10 || gc.TextModel != cfg.Gemini.TextModel {
		t.Errorf("client config = %+v", gc)
	}
}
