package audio

import (
	"errors"

	"github.com/dgnsrekt/storycast/internal/pcm"
)

// Playback rate bounds.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// ErrDeviceClosed is returned by Start after Close.
var ErrDeviceClosed = errors.New("audio device is closed")

// Device produces sound from decoded buffers.
type Device interface {
	// Start stops the previously started unit, if any, and begins playing
	// buf at speed. onFinish runs once when buf has been played to the end.
	// It never runs for a unit that was stopped.
	Start(buf *pcm.Buffer, speed float64, onFinish func()) (Unit, error)

	// Close stops the active unit and releases the device.
	Close() error
}

// Unit is one live sound-producing playback of a buffer.
type Unit interface {
	// Stop halts sound immediately and disarms the completion callback.
	Stop()

	// SetSpeed changes the playback rate without interrupting playback.
	SetSpeed(speed float64)

	// Speed returns the current playback rate.
	Speed() float64
}

// ClampSpeed limits speed to the supported range.
func ClampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
