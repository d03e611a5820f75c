package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/cache"
	"github.com/dgnsrekt/storycast/internal/pcm"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"
)

// SegmentLookup resolves segment ids against the current script.
type SegmentLookup interface {
	Lookup(id string) (story.Segment, bool)
}

// AudioSource returns decoded audio for a segment id.
type AudioSource interface {
	Fetch(ctx context.Context, id string) (*pcm.Buffer, error)
}

// Fetcher obtains decoded audio for segments, synthesizing on a cache miss.
// Concurrent fetches of the same segment and voice share one synthesis call.
type Fetcher struct {
	segments SegmentLookup
	synth    story.Synthesizer
	cache    *cache.AudioCache

	group singleflight.Group
	log   *log.Logger
}

var _ AudioSource = (*Fetcher)(nil)

// NewFetcher creates a fetcher.
func NewFetcher(segments SegmentLookup, synth story.Synthesizer, c *cache.AudioCache) *Fetcher {
	return &Fetcher{
		segments: segments,
		synth:    synth,
		cache:    c,
		log:      log.Default().WithPrefix("fetch"),
	}
}

// Fetch returns the audio for id from the cache, or synthesizes, decodes and
// caches it. Audio is cached only if the segment's voice did not change while
// it was being synthesized.
func (f *Fetcher) Fetch(ctx context.Context, id string) (*pcm.Buffer, error) {
	seg, ok := f.segments.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", story.ErrUnknownSegment, id)
	}

	if buf, ok := f.cache.Get(id); ok {
		return buf, nil
	}

	key := id + "/" + seg.Voice.String()
	v, err, shared := f.group.Do(key, func() (interface{}, error) {
		return f.synthesize(ctx, seg)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.log.Debug("Shared in-flight synthesis", "segment", id)
	}
	return v.(*pcm.Buffer), nil
}

func (f *Fetcher) synthesize(ctx context.Context, seg story.Segment) (*pcm.Buffer, error) {
	start := time.Now()

	encoded, err := f.synth.Synthesize(ctx, seg.Text, seg.Voice)
	if err != nil {
		var se *story.Error
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, story.NewError(story.CodeSynthesisFailure, "synthesis failed", err).
			WithContext("segment", seg.ID)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, story.NewError(story.CodeDecodeError, "invalid base64 audio payload", err).
			WithContext("segment", seg.ID)
	}

	buf, err := pcm.DecodePCM16(raw, pcm.SampleRate, pcm.Channels)
	if err != nil {
		return nil, story.NewError(story.CodeDecodeError, "invalid PCM payload", err).
			WithContext("segment", seg.ID)
	}

	if cur, ok := f.segments.Lookup(seg.ID); ok && cur.Voice == seg.Voice {
		f.cache.Put(seg.ID, buf)
	} else {
		f.log.Debug("Voice changed during synthesis, not caching", "segment", seg.ID)
	}

	f.log.Debug("Segment synthesized",
		"segment", seg.ID,
		"voice", seg.Voice,
		"audio", buf.Duration().Round(time.Millisecond),
		"size", humanize.Bytes(uint64(len(raw))),
		"took", time.Since(start).Round(time.Millisecond))
	return buf, nil
}
