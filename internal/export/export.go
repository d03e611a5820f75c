package export

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/pcm"
	"github.com/dgnsrekt/storycast/internal/playback"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FullStoryName is the file name of a whole-story export.
const FullStoryName = "full_story_reading.wav"

// MimeType is the media type of exported files.
const MimeType = "audio/wav"

// Segments is the part of the script an exporter reads.
type Segments interface {
	Lookup(id string) (story.Segment, bool)
	Segments() []story.Segment
}

// File is an encoded WAVE file ready to be saved.
type File struct {
	Name     string
	Data     []byte
	Duration time.Duration
}

// Exporter encodes segment audio, fetching it through the playback source so
// exports share the cache with playback.
type Exporter struct {
	segments Segments
	source   playback.AudioSource
	log      *log.Logger
}

// NewExporter creates an exporter.
func NewExporter(segments Segments, source playback.AudioSource) *Exporter {
	return &Exporter{
		segments: segments,
		source:   source,
		log:      log.Default().WithPrefix("export"),
	}
}

// ExportSegment encodes the audio of one segment.
func (e *Exporter) ExportSegment(ctx context.Context, id string) (File, error) {
	seg, ok := e.segments.Lookup(id)
	if !ok {
		return File{}, fmt.Errorf("%w: %s", story.ErrUnknownSegment, id)
	}

	buf, err := e.source.Fetch(ctx, id)
	if err != nil {
		return File{}, fmt.Errorf("export %s: %w", id, err)
	}

	f := File{
		Name:     SegmentFileName(seg.Speaker),
		Data:     pcm.EncodeWAV(buf),
		Duration: buf.Duration(),
	}
	e.log.Info("Exported segment", "segment", id, "file", f.Name, "size", humanize.Bytes(uint64(len(f.Data))))
	return f, nil
}

// ExportAll fetches every segment in order and encodes them as one file.
// Any segment failure aborts the export.
func (e *Exporter) ExportAll(ctx context.Context) (File, error) {
	segs := e.segments.Segments()
	if len(segs) == 0 {
		return File{}, story.NewError(story.CodeInvalidInput, "nothing to export", nil)
	}

	bufs := make([]*pcm.Buffer, 0, len(segs))
	for i, seg := range segs {
		buf, err := e.source.Fetch(ctx, seg.ID)
		if err != nil {
			e.log.Error("Export aborted", "segment", seg.ID, "error", err)
			return File{}, story.NewError(story.CodeSynthesisFailure, "failed to generate audio for all segments", err).
				WithContext("segment", seg.ID)
		}
		bufs = append(bufs, buf)
		e.log.Debug("Collected segment", "segment", seg.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(segs)))
	}

	full, err := pcm.Concatenate(bufs...)
	if err != nil {
		return File{}, story.NewError(story.CodeDecodeError, "failed to join segments", err)
	}

	f := File{
		Name:     FullStoryName,
		Data:     pcm.EncodeWAV(full),
		Duration: full.Duration(),
	}
	e.log.Info("Exported story",
		"segments", len(segs),
		"duration", f.Duration.Round(time.Millisecond),
		"size", humanize.Bytes(uint64(len(f.Data))))
	return f, nil
}

// SegmentFileName returns the download name for a speaker's segment.
// The speaker is lower-cased and every whitespace character becomes '_'.
func SegmentFileName(speaker string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, cases.Lower(language.Und).String(speaker))
	return "story_segment_" + name + ".wav"
}
