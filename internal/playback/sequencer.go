package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/story"
)

// Playlist is the ordered view of the script the sequencer walks.
type Playlist interface {
	Len() int
	At(index int) (story.Segment, bool)
	IndexOf(id string) int
}

// Options configures a Sequencer.
type Options struct {
	// Prefetch fetches segment i+1 while segment i plays.
	Prefetch bool

	// OnChange is called after every state transition.
	OnChange func(State)

	// OnError is called for every segment that could not be played.
	OnError func(segmentID string, err error)
}

// Sequencer plays a playlist through a device one segment at a time, chaining
// to the next segment when a unit finishes.
//
// Every Play, Stop and unit start bumps a generation counter. Completion
// callbacks and in-flight fetches carry the generation they were issued
// under and do nothing once it is no longer current, so a superseded unit can
// never advance playback.
type Sequencer struct {
	playlist Playlist
	source   AudioSource
	device   audio.Device
	prefetch bool

	mu        sync.Mutex
	gen       uint64
	status    Status
	index     int
	currentID string
	speed     float64
	unit      audio.Unit
	onChange  func(State)
	onError   func(string, error)

	log *log.Logger
}

// NewSequencer creates an idle sequencer at the default speed.
func NewSequencer(playlist Playlist, source AudioSource, device audio.Device, opts Options) *Sequencer {
	return &Sequencer{
		playlist: playlist,
		source:   source,
		device:   device,
		prefetch: opts.Prefetch,
		status:   StatusIdle,
		index:    -1,
		speed:    DefaultSpeed,
		onChange: opts.OnChange,
		onError:  opts.OnError,
		log:      log.Default().WithPrefix("playback"),
	}
}

// OnChange replaces the state change hook.
func (s *Sequencer) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// OnError replaces the segment error hook.
func (s *Sequencer) OnError(fn func(segmentID string, err error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Play stops whatever is playing and starts the chain at index from. It
// returns once the first playable segment has started or the chain has
// ended. Segments that fail to fetch are reported and skipped. An output
// device failure stops the chain and is returned.
func (s *Sequencer) Play(ctx context.Context, from int) error {
	if from < 0 {
		return story.NewError(story.CodeInvalidInput, fmt.Sprintf("invalid segment index %d", from), nil)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.stopUnitLocked()
	s.mu.Unlock()

	return s.playFrom(ctx, from, gen)
}

// Stop halts the active unit and clears the current segment.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.gen++
	s.stopUnitLocked()
	s.status = StatusStopped
	s.index = -1
	s.currentID = ""
	st, notify := s.snapshotLocked()
	s.mu.Unlock()

	notify(st)
}

// Toggle pauses when a segment is loading or playing, keeping it current.
// Otherwise it resumes from the current segment, or from the start.
func (s *Sequencer) Toggle(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusLoading || s.status == StatusPlaying {
		s.gen++
		s.stopUnitLocked()
		s.status = StatusStopped
		s.index = -1
		st, notify := s.snapshotLocked()
		s.mu.Unlock()

		s.log.Debug("Paused", "segment", st.CurrentSegmentID)
		notify(st)
		return nil
	}
	id := s.currentID
	s.mu.Unlock()

	from := 0
	if id != "" {
		if i := s.playlist.IndexOf(id); i >= 0 {
			from = i
		}
	}
	return s.Play(ctx, from)
}

// JumpTo stops playback and plays from the segment with the given id.
func (s *Sequencer) JumpTo(ctx context.Context, id string) error {
	i := s.playlist.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", story.ErrUnknownSegment, id)
	}
	s.Stop()
	return s.Play(ctx, i)
}

// SetSpeed sets the playback rate for the active unit, without restarting
// it, and for every unit started later.
func (s *Sequencer) SetSpeed(speed float64) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}

	s.mu.Lock()
	s.speed = speed
	if s.unit != nil {
		s.unit.SetSpeed(speed)
	}
	st, notify := s.snapshotLocked()
	s.mu.Unlock()

	notify(st)
	return nil
}

// Reset stops playback and returns to idle at the default speed.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	s.gen++
	s.stopUnitLocked()
	s.status = StatusIdle
	s.index = -1
	s.currentID = ""
	s.speed = DefaultSpeed
	st, notify := s.snapshotLocked()
	s.mu.Unlock()

	notify(st)
}

// State returns a snapshot of the sequencer.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.snapshotLocked()
	return st
}

// Close stops playback and releases the device.
func (s *Sequencer) Close() error {
	s.Stop()
	return s.device.Close()
}

// playFrom walks the playlist from index i under generation gen until a
// segment starts, the playlist ends, or gen is superseded.
func (s *Sequencer) playFrom(ctx context.Context, i int, gen uint64) error {
	for {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return nil
		}

		seg, ok := s.playlist.At(i)
		if !ok {
			s.status = StatusStopped
			s.index = -1
			s.currentID = ""
			s.unit = nil
			st, notify := s.snapshotLocked()
			s.mu.Unlock()

			s.log.Debug("Reached end of story")
			notify(st)
			return nil
		}

		s.status = StatusLoading
		s.index = i
		s.currentID = seg.ID
		st, notify := s.snapshotLocked()
		s.mu.Unlock()
		notify(st)

		buf, err := s.source.Fetch(ctx, seg.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.abandon(gen)
				return fmt.Errorf("playback cancelled: %w", ctxErr)
			}
			if s.current(gen) {
				s.log.Warn("Skipping segment", "segment", seg.ID, "speaker", seg.Speaker, "error", err)
				s.reportError(seg.ID, err)
			}
			i++
			continue
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return nil
		}
		s.gen++
		unitGen := s.gen
		index := i
		unit, err := s.device.Start(buf, s.speed, func() {
			s.finished(ctx, unitGen, index)
		})
		if err != nil {
			s.gen++
			s.unit = nil
			s.status = StatusStopped
			s.index = -1
			s.currentID = ""
			st, notify := s.snapshotLocked()
			s.mu.Unlock()

			s.log.Error("Output device failed", "segment", seg.ID, "error", err)
			s.reportError(seg.ID, err)
			notify(st)
			if !errors.Is(err, story.ErrDevice) {
				err = story.NewError(story.CodeDeviceError, "failed to start playback", err)
			}
			return err
		}

		s.unit = unit
		s.status = StatusPlaying
		st, notify = s.snapshotLocked()
		s.mu.Unlock()

		s.log.Debug("Playing segment", "segment", seg.ID, "speaker", seg.Speaker, "duration", buf.Duration())
		notify(st)

		if s.prefetch {
			s.prefetchNext(ctx, i+1)
		}
		return nil
	}
}

// finished is the completion callback of the unit started under gen.
func (s *Sequencer) finished(ctx context.Context, gen uint64, index int) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Debug("Ignoring stale completion", "index", index)
		return
	}
	s.gen++
	next := s.gen
	s.unit = nil
	s.mu.Unlock()

	if err := s.playFrom(ctx, index+1, next); err != nil {
		s.log.Error("Playback chain ended", "error", err)
	}
}

func (s *Sequencer) prefetchNext(ctx context.Context, i int) {
	seg, ok := s.playlist.At(i)
	if !ok {
		return
	}
	go func() {
		if _, err := s.source.Fetch(ctx, seg.ID); err != nil {
			s.log.Debug("Prefetch failed", "segment", seg.ID, "error", err)
		}
	}()
}

// abandon stops the chain after its context was cancelled.
func (s *Sequencer) abandon(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.stopUnitLocked()
	s.status = StatusStopped
	s.index = -1
	s.currentID = ""
	st, notify := s.snapshotLocked()
	s.mu.Unlock()

	notify(st)
}

func (s *Sequencer) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Sequencer) reportError(id string, err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(id, err)
	}
}

func (s *Sequencer) stopUnitLocked() {
	if s.unit != nil {
		s.unit.Stop()
		s.unit = nil
	}
}

// snapshotLocked returns the current state and a function that delivers it
// to the change hook. The function must be called without holding mu.
func (s *Sequencer) snapshotLocked() (State, func(State)) {
	st := State{
		Status: s.status,
		Index:  s.index,
		PlaybackState: PlaybackState{
			IsPlaying:        s.status == StatusLoading || s.status == StatusPlaying,
			CurrentSegmentID: s.currentID,
			Speed:            s.speed,
		},
	}
	fn := s.onChange
	return st, func(st State) {
		if fn != nil {
			fn(st)
		}
	}
}
