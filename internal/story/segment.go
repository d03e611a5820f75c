package story

import (
	"fmt"
	"sync"
)

// Line is one entry of a segmentation response, before it gets an id.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Voice   Voice  `json:"voiceName"`
}

// Segment is one speaker-attributed span of story text.
type Segment struct {
	ID      string
	Speaker string
	Text    string
	Voice   Voice
}

// SegmentID returns the id of the segment at position index.
func SegmentID(index int) string {
	return fmt.Sprintf("seg-%d", index)
}

// CastMember is a speaker and the voice currently assigned to them.
type CastMember struct {
	Speaker string
	Voice   Voice
}

// Script is the ordered list of segments of one analysis run.
// It is safe for concurrent use.
type Script struct {
	mu       sync.RWMutex
	segments []Segment
	index    map[string]int
}

// NewScript assigns sequential ids to lines in reading order.
func NewScript(lines []Line) *Script {
	s := &Script{}
	s.Load(lines)
	return s
}

// Load replaces the script contents with lines.
func (s *Script) Load(lines []Line) {
	segments := make([]Segment, len(lines))
	index := make(map[string]int, len(lines))
	for i, l := range lines {
		id := SegmentID(i)
		segments[i] = Segment{ID: id, Speaker: l.Speaker, Text: l.Text, Voice: l.Voice}
		index[id] = i
	}

	s.mu.Lock()
	s.segments = segments
	s.index = index
	s.mu.Unlock()
}

// Reset empties the script.
func (s *Script) Reset() {
	s.Load(nil)
}

// Len returns the number of segments.
func (s *Script) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// At returns the segment at index.
func (s *Script) At(index int) (Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.segments) {
		return Segment{}, false
	}
	return s.segments[index], true
}

// Lookup returns the segment with the given id.
func (s *Script) Lookup(id string) (Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Segment{}, false
	}
	return s.segments[i], true
}

// IndexOf returns the position of id, or -1.
func (s *Script) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Segments returns a copy of all segments in reading order.
func (s *Script) Segments() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Cast returns each speaker once, in order of first appearance, with the
// voice of their first segment.
func (s *Script) Cast() []CastMember {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var cast []CastMember
	for _, seg := range s.segments {
		if seen[seg.Speaker] {
			continue
		}
		seen[seg.Speaker] = true
		cast = append(cast, CastMember{Speaker: seg.Speaker, Voice: seg.Voice})
	}
	return cast
}

// SetVoice assigns voice to every segment spoken by speaker and returns the
// ids of those segments. Their synthesized audio is stale afterwards.
func (s *Script) SetVoice(speaker string, voice Voice) ([]string, error) {
	if !voice.Valid() {
		return nil, NewError(CodeInvalidInput, fmt.Sprintf("unknown voice %q", voice), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for i := range s.segments {
		if s.segments[i].Speaker == speaker {
			s.segments[i].Voice = voice
			ids = append(ids, s.segments[i].ID)
		}
	}
	return ids, nil
}
