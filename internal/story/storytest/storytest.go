// Package storytest provides fake collaborators for tests.
package storytest

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/dgnsrekt/storycast/internal/story"
)

// Synthesizer is a fake story.Synthesizer. Each call returns a short PCM16
// clip whose first sample encodes the call order, so tests can tell clips
// apart.
type Synthesizer struct {
	mu    sync.Mutex
	calls []Call

	// Frames is the clip length in frames. Zero means 4.
	Frames int

	// Fail maps segment text to the error returned for it.
	Fail map[string]error

	// Payload overrides the base64 payload for a segment text.
	Payload map[string]string

	// Gate, if set, is received from before each call returns.
	Gate chan struct{}
}

// Call records one Synthesize invocation.
type Call struct {
	Text  string
	Voice story.Voice
}

// ErrSynthesis is a generic failure for Fail maps.
var ErrSynthesis = errors.New("fake synthesis failure")

// NewSynthesizer creates a fake synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		Fail:    make(map[string]error),
		Payload: make(map[string]string),
	}
}

// Synthesize implements story.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice story.Voice) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Text: text, Voice: voice})
	n := len(s.calls)
	failErr := s.Fail[text]
	payload, hasPayload := s.Payload[text]
	frames := s.Frames
	gate := s.Gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if failErr != nil {
		return "", failErr
	}
	if hasPayload {
		return payload, nil
	}

	if frames <= 0 {
		frames = 4
	}
	data := make([]byte, frames*2)
	binary.LittleEndian.PutUint16(data, uint16(int16(n*100)))
	return base64.StdEncoding.EncodeToString(data), nil
}

// Calls returns every call made so far.
func (s *Synthesizer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of calls made so far.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// CallsFor returns the number of calls made for text.
func (s *Synthesizer) CallsFor(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Text == text {
			n++
		}
	}
	return n
}

// Analyzer is a fake story.Analyzer returning fixed lines.
type Analyzer struct {
	mu    sync.Mutex
	Lines []story.Line
	Err   error
	calls int
}

// Analyze implements story.Analyzer.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]story.Line, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.Err != nil {
		return nil, a.Err
	}
	out := make([]story.Line, len(a.Lines))
	copy(out, a.Lines)
	return out, nil
}

// CallCount returns the number of Analyze calls.
func (a *Analyzer) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// AliceAndBob is a two-speaker, three-line story.
func AliceAndBob() []story.Line {
	return []story.Line{
		{Speaker: "Alice", Text: "Hi Bob.", Voice: story.VoiceKore},
		{Speaker: "Bob", Text: "Hello Alice.", Voice: story.VoiceCharon},
		{Speaker: "Alice", Text: "Nice day.", Voice: story.VoiceKore},
	}
}
