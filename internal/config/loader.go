package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Viper keys.
const (
	KeyLogLevel          = "log_level"
	KeyLogFile           = "log_file"
	KeyGeminiBaseURL     = "gemini.base_url"
	KeyGeminiTextModel   = "gemini.text_model"
	KeyGeminiSpeechModel = "gemini.speech_model"
	KeyGeminiTimeout     = "gemini.timeout"
	KeyGeminiRPM         = "gemini.requests_per_minute"
	KeyPlaybackSpeed     = "playback.speed"
	KeyPlaybackPrefetch  = "playback.prefetch"
	KeyPlaybackBuffer    = "playback.buffer_size"
	KeyExportDir         = "export.dir"
)

// LoadFromViper builds a Config from v on top of the defaults.
func LoadFromViper(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet(KeyLogLevel) {
		cfg.LogLevel = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFile) {
		cfg.LogFile = v.GetString(KeyLogFile)
	}

	if v.IsSet(KeyGeminiBaseURL) {
		cfg.Gemini.BaseURL = v.GetString(KeyGeminiBaseURL)
	}
	if v.IsSet(KeyGeminiTextModel) {
		cfg.Gemini.TextModel = v.GetString(KeyGeminiTextModel)
	}
	if v.IsSet(KeyGeminiSpeechModel) {
		cfg.Gemini.SpeechModel = v.GetString(KeyGeminiSpeechModel)
	}
	if v.IsSet(KeyGeminiTimeout) {
		cfg.Gemini.Timeout = v.GetDuration(KeyGeminiTimeout)
	}
	if v.IsSet(KeyGeminiRPM) {
		cfg.Gemini.RequestsPerMinute = v.GetInt(KeyGeminiRPM)
	}

	if v.IsSet(KeyPlaybackSpeed) {
		cfg.Playback.Speed = v.GetFloat64(KeyPlaybackSpeed)
	}
	if v.IsSet(KeyPlaybackPrefetch) {
		cfg.Playback.Prefetch = v.GetBool(KeyPlaybackPrefetch)
	}
	if v.IsSet(KeyPlaybackBuffer) {
		cfg.Playback.BufferSize = v.GetDuration(KeyPlaybackBuffer)
	}

	if v.IsSet(KeyExportDir) {
		cfg.Export.Dir = v.GetString(KeyExportDir)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
