// Package session owns one story reading: its script, audio cache, playback
// and export.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/cache"
	"github.com/dgnsrekt/storycast/internal/export"
	"github.com/dgnsrekt/storycast/internal/playback"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/google/uuid"
)

// Options configures a Session.
type Options struct {
	Prefetch bool
}

// Session is the state of one reader: the analyzed script, the audio
// cached for it, and the playback of it.
type Session struct {
	id       string
	analyzer story.Analyzer
	script   *story.Script
	cache    *cache.AudioCache
	fetcher  *playback.Fetcher
	seq      *playback.Sequencer
	exporter *export.Exporter

	// mu serializes operations that replace or rewrite the script.
	mu  sync.Mutex
	log *log.Logger
}

// New creates an empty session.
func New(analyzer story.Analyzer, synth story.Synthesizer, device audio.Device, opts Options) *Session {
	id := uuid.NewString()
	script := story.NewScript(nil)
	c := cache.NewAudioCache()
	fetcher := playback.NewFetcher(script, synth, c)

	return &Session{
		id:       id,
		analyzer: analyzer,
		script:   script,
		cache:    c,
		fetcher:  fetcher,
		seq:      playback.NewSequencer(script, fetcher, device, playback.Options{Prefetch: opts.Prefetch}),
		exporter: export.NewExporter(script, fetcher),
		log:      log.Default().WithPrefix("session").With("session", id[:8]),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Analyze replaces the script with the segmentation of text. Playback is
// stopped, the speed reset and the cache cleared before the analyzer runs.
// On failure the script stays empty.
func (s *Session) Analyze(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return story.NewError(story.CodeInvalidInput, "story text is empty", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.Reset()
	s.cache.Clear()
	s.script.Reset()

	start := time.Now()
	lines, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		s.log.Error("Analysis failed", "error", err)
		if errors.Is(err, story.ErrAnalysis) || errors.Is(err, story.ErrInvalidInput) {
			return err
		}
		return story.NewError(story.CodeAnalysisFailure, "failed to analyze story", err)
	}
	if len(lines) == 0 {
		return story.NewError(story.CodeAnalysisFailure, "analysis returned no segments", nil)
	}

	s.script.Load(lines)
	s.log.Info("Story ready",
		"segments", len(lines),
		"speakers", len(s.script.Cast()),
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

// SetVoice assigns voice to every segment of speaker and drops their cached
// audio. It returns the ids of the affected segments.
func (s *Session) SetVoice(speaker string, voice story.Voice) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.script.SetVoice(speaker, voice)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, story.NewError(story.CodeInvalidInput, fmt.Sprintf("unknown speaker %q", speaker), nil)
	}

	dropped := 0
	for _, id := range ids {
		if s.cache.Invalidate(id) {
			dropped++
		}
	}
	s.log.Info("Voice changed", "speaker", speaker, "voice", voice, "segments", len(ids), "invalidated", dropped)
	return ids, nil
}

// Reset stops playback and forgets the story.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.Reset()
	s.cache.Clear()
	s.script.Reset()
	s.log.Debug("Session reset")
}

// Close stops playback and releases the output device.
func (s *Session) Close() error {
	return s.seq.Close()
}

// Play plays the story from segment index from.
func (s *Session) Play(ctx context.Context, from int) error {
	return s.seq.Play(ctx, from)
}

// PlaySegment plays the story from the segment with the given id.
func (s *Session) PlaySegment(ctx context.Context, id string) error {
	return s.seq.JumpTo(ctx, id)
}

// Toggle pauses or resumes playback.
func (s *Session) Toggle(ctx context.Context) error {
	return s.seq.Toggle(ctx)
}

// Stop stops playback.
func (s *Session) Stop() {
	s.seq.Stop()
}

// SetSpeed changes the playback rate.
func (s *Session) SetSpeed(speed float64) error {
	return s.seq.SetSpeed(speed)
}

// State returns the playback state.
func (s *Session) State() playback.State {
	return s.seq.State()
}

// OnChange registers the playback state hook.
func (s *Session) OnChange(fn func(playback.State)) {
	s.seq.OnChange(fn)
}

// OnError registers the per-segment error hook.
func (s *Session) OnError(fn func(segmentID string, err error)) {
	s.seq.OnError(fn)
}

// ExportSegment encodes one segment as a WAVE file.
func (s *Session) ExportSegment(ctx context.Context, id string) (export.File, error) {
	return s.exporter.ExportSegment(ctx, id)
}

// ExportAll encodes the whole story as one WAVE file.
func (s *Session) ExportAll(ctx context.Context) (export.File, error) {
	return s.exporter.ExportAll(ctx)
}

// Segments returns the script in reading order.
func (s *Session) Segments() []story.Segment {
	return s.script.Segments()
}

// Cast returns the speakers and their voices.
func (s *Session) Cast() []story.CastMember {
	return s.script.Cast()
}

// CacheStats returns the audio cache counters.
func (s *Session) CacheStats() cache.Stats {
	return s.cache.Stats()
}
