package playback

// Status is the sequencer's position in its state machine.
type Status int

const (
	// StatusIdle means nothing has been played since the last reset.
	StatusIdle Status = iota
	// StatusLoading means a segment's audio is being fetched.
	StatusLoading
	// StatusPlaying means a segment is producing sound.
	StatusPlaying
	// StatusStopped means playback ended, was stopped, or was paused.
	StatusStopped
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PlaybackState is what a listener sees of the session's playback.
type PlaybackState struct {
	IsPlaying        bool
	CurrentSegmentID string // empty when nothing is current
	Speed            float64
}

// State is a snapshot of the sequencer.
type State struct {
	Status Status
	Index  int // segment index for Loading and Playing, -1 otherwise
	PlaybackState
}

// Active reports whether the sequencer is loading or playing a segment.
func (s State) Active() bool {
	return s.Status == StatusLoading || s.Status == StatusPlaying
}
