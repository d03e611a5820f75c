package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/storycast/internal/story"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIKey:            "test-key",
		BaseURL:           srv.URL,
		RequestsPerMinute: 6000,
		HTTPClient:        srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func writeText(w http.ResponseWriter, text string) {
	resp := generateResponse{Candidates: []candidate{{Content: content{Parts: []part{{Text: text}}}}}}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestAnalyze(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		writeText(w, `[
			{"speaker":"Narrator","text":"Once upon a time.","voiceName":"Zephyr"},
			{"speaker":"Alice","text":"Hello!","voiceName":"Kore"}
		]`)
	})

	lines, err := c.Analyze(context.Background(), "Once upon a time. Alice said hello.")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotPath != "/models/"+DefaultTextModel+":generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("missing json generation config: %+v", gotReq.GenerationConfig)
	}
	if enum := gotReq.GenerationConfig.ResponseSchema.Items.Properties["voiceName"].Enum; len(enum) != len(story.Voices) {
		t.Errorf("voice enum = %v", enum)
	}
	if !strings.Contains(gotReq.Contents[0].Parts[0].Text, "Alice said hello.") {
		t.Error("prompt does not contain the story")
	}

	want := []story.Line{
		{Speaker: "Narrator", Text: "Once upon a time.", Voice: story.VoiceZephyr},
		{Speaker: "Alice", Text: "Hello!", Voice: story.VoiceKore},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		input   string
		wantErr error
	}{
		{
			name:    "empty input",
			handler: func(w http.ResponseWriter, r *http.Request) { t.Error("unexpected request") },
			input:   "   ",
			wantErr: story.ErrInvalidInput,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeText(w, "sorry, I can't do that")
			},
			input:   "story",
			wantErr: story.ErrAnalysis,
		},
		{
			name: "empty array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeText(w, "[]")
			},
			input:   "story",
			wantErr: story.ErrAnalysis,
		},
		{
			name: "unknown voice",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeText(w, `[{"speaker":"A","text":"hi","voiceName":"Bogus"}]`)
			},
			input:   "story",
			wantErr: story.ErrAnalysis,
		},
		{
			name: "api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
			},
			input:   "story",
			wantErr: story.ErrAnalysis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Analyze(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Analyze() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	var gotReq generateRequest
	var gotPath string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		resp := generateResponse{Candidates: []candidate{{Content: content{Parts: []part{
			{InlineData: &inlineData{MimeType: "audio/L16;rate=24000", Data: "AAD/fw=="}},
		}}}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	data, err := c.Synthesize(context.Background(), "Hello!", story.VoicePuck)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if data != "AAD/fw==" {
		t.Errorf("data = %q", data)
	}
	if gotPath != "/models/"+DefaultSpeechModel+":generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	cfg := gotReq.GenerationConfig
	if cfg == nil || len(cfg.ResponseModalities) != 1 || cfg.ResponseModalities[0] != "AUDIO" {
		t.Fatalf("missing audio modality: %+v", cfg)
	}
	if cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Puck" {
		t.Errorf("voice = %q", cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		voice   story.Voice
	}{
		{
			name: "no audio",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeText(w, "no audio here")
			},
			voice: story.VoiceKore,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			voice: story.VoiceKore,
		},
		{
			name:    "invalid voice",
			handler: func(w http.ResponseWriter, r *http.Request) { t.Error("unexpected request") },
			voice:   story.Voice("Nobody"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Synthesize(context.Background(), "Hello", tt.voice)
			if !errors.Is(err, story.ErrSynthesis) {
				t.Errorf("Synthesize() error = %v, want synthesis failure", err)
			}
		})
	}
}

func TestSynthesizeCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Synthesize(ctx, "Hello", story.VoiceKore); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
