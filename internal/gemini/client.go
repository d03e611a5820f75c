package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// Defaults for the hosted API.
const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel   = "gemini-3-flash-preview"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
)

// maxTextSize bounds a single request's text.
const maxTextSize = 100_000

// Config holds client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	SpeechModel string

	// Timeout applies per request when the caller's context has no deadline.
	Timeout time.Duration

	// RequestsPerMinute limits calls to avoid quota errors. Zero means 60.
	RequestsPerMinute int

	HTTPClient *http.Client
}

// Client implements story.Analyzer and story.Synthesizer.
type Client struct {
	apiKey      string
	baseURL     string
	textModel   string
	speechModel string
	timeout     time.Duration

	httpClient  *http.Client
	rateLimiter *rate.Limiter
	log         *log.Logger
}

var (
	_ story.Analyzer    = (*Client)(nil)
	_ story.Synthesizer = (*Client)(nil)
)

// NewClient creates a client. An API key is required.
func NewClient(config Config) (*Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.TextModel == "" {
		config.TextModel = DefaultTextModel
	}
	if config.SpeechModel == "" {
		config.SpeechModel = DefaultSpeechModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	return &Client{
		apiKey:      config.APIKey,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		textModel:   config.TextModel,
		speechModel: config.SpeechModel,
		timeout:     config.Timeout,
		httpClient:  config.HTTPClient,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		log:         log.Default().WithPrefix("gemini"),
	}, nil
}

// Analyze splits text into speaker-tagged lines with a voice per speaker.
func (c *Client) Analyze(ctx context.Context, text string) ([]story.Line, error) {
	if strings.TrimSpace(text) == "" {
		return nil, story.NewError(story.CodeInvalidInput, "story text is empty", nil)
	}
	if len(text) > maxTextSize {
		return nil, story.NewError(story.CodeInvalidInput,
			fmt.Sprintf("story too long: %d characters (max %d)", len(text), maxTextSize), nil)
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: analysisPrompt() + "\n\nStory: " + text}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   segmentSchema(),
		},
	}

	start := time.Now()
	resp, err := c.generate(ctx, c.textModel, req)
	if err != nil {
		return nil, story.NewError(story.CodeAnalysisFailure, "segmentation request failed", err)
	}

	lines, err := parseLines(resp.text())
	if err != nil {
		return nil, story.NewError(story.CodeAnalysisFailure, "malformed segmentation response", err)
	}

	c.log.Info("Story analyzed", "segments", len(lines), "duration", time.Since(start).Round(time.Millisecond))
	return lines, nil
}

// Synthesize speaks text with voice and returns base64 encoded PCM16.
func (c *Client) Synthesize(ctx context.Context, text string, voice story.Voice) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", story.NewError(story.CodeSynthesisFailure, "segment text is empty", nil)
	}
	if !voice.Valid() {
		return "", story.NewError(story.CodeSynthesisFailure, fmt.Sprintf("unknown voice %q", voice), nil)
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice.String()}},
			},
		},
	}

	start := time.Now()
	resp, err := c.generate(ctx, c.speechModel, req)
	if err != nil {
		return "", story.NewError(story.CodeSynthesisFailure, "speech request failed", err).
			WithContext("voice", voice)
	}

	data := resp.inlineData()
	if data == "" {
		return "", story.NewError(story.CodeSynthesisFailure, "failed to generate audio data", nil).
			WithContext("voice", voice)
	}

	c.log.Debug("Speech synthesized",
		"voice", voice,
		"textLength", len(text),
		"payload", humanize.Bytes(uint64(len(data))),
		"duration", time.Since(start).Round(time.Millisecond))
	return data, nil
}

// generate posts req to model and decodes the response.
func (c *Client) generate(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini error %d (%s): %s", httpResp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini error %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
