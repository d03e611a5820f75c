package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgnsrekt/storycast/internal/session"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"
)

// voiceOverride assigns a voice to a speaker.
type voiceOverride struct {
	Speaker string
	Voice   story.Voice
}

// parseVoiceOverrides parses "Speaker=Voice" pairs.
func parseVoiceOverrides(pairs []string) ([]voiceOverride, error) {
	out := make([]voiceOverride, 0, len(pairs))
	for _, p := range pairs {
		speaker, name, ok := strings.Cut(p, "=")
		speaker = strings.TrimSpace(speaker)
		if !ok || speaker == "" {
			return nil, fmt.Errorf("invalid voice assignment %q: want Speaker=Voice", p)
		}
		v, err := story.ParseVoice(name)
		if err != nil {
			return nil, err
		}
		out = append(out, voiceOverride{Speaker: speaker, Voice: v})
	}
	return out, nil
}

// applyVoiceOverrides assigns voices, matching speaker names case-insensitively.
func applyVoiceOverrides(sess *session.Session, overrides []voiceOverride) error {
	for _, o := range overrides {
		speaker := o.Speaker
		for _, c := range sess.Cast() {
			if strings.EqualFold(c.Speaker, o.Speaker) {
				speaker = c.Speaker
				break
			}
		}
		if _, err := sess.SetVoice(speaker, o.Voice); err != nil {
			return err
		}
	}
	return nil
}

// segmentSource adapts segments for fuzzy matching.
type segmentSource []story.Segment

func (s segmentSource) String(i int) string { return s[i].Speaker + ": " + s[i].Text }
func (s segmentSource) Len() int            { return len(s) }

// pickSegment resolves query to a segment index. It accepts a segment id, a
// zero-based index, or text fuzzy matched against "speaker: text".
func pickSegment(segs []story.Segment, query string) (int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil
	}
	for i, s := range segs {
		if s.ID == query {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(query); err == nil {
		if n < 0 || n >= len(segs) {
			return 0, fmt.Errorf("segment %d out of range (0-%d)", n, len(segs)-1)
		}
		return n, nil
	}

	matches := fuzzy.FindFrom(query, segmentSource(segs))
	if len(matches) == 0 {
		return 0, fmt.Errorf("no segment matches %q", query)
	}
	return matches[0].Index, nil
}

// printCast writes the speakers and their voices.
func printCast(w io.Writer, cast []story.CastMember) {
	fmt.Fprintln(w, keyword("Cast"))
	for _, c := range cast {
		fmt.Fprintf(w, "  %s %s\n",
			speakerStyle(c.Voice).Render(c.Speaker),
			faint(fmt.Sprintf("%s (%s)", c.Voice, c.Voice.Description())))
	}
	fmt.Fprintln(w)
}

// printSegment writes one segment, wrapped to width.
func printSegment(w io.Writer, seg story.Segment, width int) {
	label := speakerStyle(seg.Voice).Render(seg.Speaker)
	fmt.Fprintf(w, "%s %s\n", faint(seg.ID), label)
	body := wordwrap.String(seg.Text, max(width-4, 20))
	fmt.Fprintln(w, indent.String(body, 4))
}

// printScript writes the cast followed by every segment.
func printScript(w io.Writer, sess *session.Session, width int) {
	printCast(w, sess.Cast())
	for _, seg := range sess.Segments() {
		printSegment(w, seg, width)
	}
}

// isSegmentError reports whether err concerns a single segment rather than
// the output device.
func isSegmentError(err error) bool {
	return !story.IsFatal(err)
}
