package audio

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/storycast/internal/pcm"
	"github.com/dgnsrekt/storycast/internal/story"
)

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnStart func(u *MockUnit)
	OnStop  func(u *MockUnit)
}

// MockDevice implements Device without producing sound. Units finish only
// when the test calls Finish on them.
type MockDevice struct {
	callbacks MockCallbacks

	mu     sync.Mutex
	units  []*MockUnit
	active *MockUnit
	closed bool

	// FailStart makes the next Start calls fail with a device error.
	FailStart bool

	startCount atomic.Int64
	stopCount  atomic.Int64
}

// NewMockDevice creates a mock device with optional callbacks.
func NewMockDevice(callbacks MockCallbacks) *MockDevice {
	return &MockDevice{callbacks: callbacks}
}

// Start implements Device.
func (d *MockDevice) Start(buf *pcm.Buffer, speed float64, onFinish func()) (Unit, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, story.NewError(story.CodeDeviceError, "start", ErrDeviceClosed)
	}
	if d.FailStart {
		d.mu.Unlock()
		return nil, story.NewError(story.CodeDeviceError, "simulated device failure", errors.New("no output"))
	}

	prev := d.active
	u := &MockUnit{
		device:   d,
		Buffer:   buf,
		onFinish: onFinish,
	}
	u.speed.Store(math.Float64bits(ClampSpeed(speed)))
	d.units = append(d.units, u)
	d.active = u
	d.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	d.startCount.Add(1)
	if d.callbacks.OnStart != nil {
		d.callbacks.OnStart(u)
	}
	return u, nil
}

// Close implements Device.
func (d *MockDevice) Close() error {
	d.mu.Lock()
	active := d.active
	d.active = nil
	d.closed = true
	d.mu.Unlock()

	if active != nil {
		active.Stop()
	}
	return nil
}

// Units returns every unit started so far, oldest first.
func (d *MockDevice) Units() []*MockUnit {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockUnit, len(d.units))
	copy(out, d.units)
	return out
}

// Last returns the most recently started unit, or nil.
func (d *MockDevice) Last() *MockUnit {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.units) == 0 {
		return nil
	}
	return d.units[len(d.units)-1]
}

// Sounding returns the units that are currently producing sound.
func (d *MockDevice) Sounding() []*MockUnit {
	var out []*MockUnit
	for _, u := range d.Units() {
		if u.Playing() {
			out = append(out, u)
		}
	}
	return out
}

// StartCount returns the number of successful Start calls.
func (d *MockDevice) StartCount() int64 {
	return d.startCount.Load()
}

// StopCount returns the number of units stopped before finishing.
func (d *MockDevice) StopCount() int64 {
	return d.stopCount.Load()
}

// MockUnit is a unit of the mock device.
type MockUnit struct {
	device   *MockDevice
	Buffer   *pcm.Buffer
	onFinish func()

	speed    atomic.Uint64
	stopped  atomic.Bool
	finished atomic.Bool
}

// Stop implements Unit.
func (u *MockUnit) Stop() {
	if u.finished.Load() || !u.stopped.CompareAndSwap(false, true) {
		return
	}
	u.device.stopCount.Add(1)
	if u.device.callbacks.OnStop != nil {
		u.device.callbacks.OnStop(u)
	}
}

// SetSpeed implements Unit.
func (u *MockUnit) SetSpeed(speed float64) {
	u.speed.Store(math.Float64bits(ClampSpeed(speed)))
}

// Speed implements Unit.
func (u *MockUnit) Speed() float64 {
	return math.Float64frombits(u.speed.Load())
}

// Playing reports whether the unit is still producing sound.
func (u *MockUnit) Playing() bool {
	return !u.stopped.Load() && !u.finished.Load()
}

// Stopped reports whether the unit was stopped before finishing.
func (u *MockUnit) Stopped() bool {
	return u.stopped.Load()
}

// Finish simulates the buffer playing to its end. The completion callback
// runs on the caller's goroutine unless the unit was stopped.
func (u *MockUnit) Finish() {
	if u.stopped.Load() || !u.finished.CompareAndSwap(false, true) {
		return
	}
	if u.onFinish != nil {
		u.onFinish()
	}
}

// FireStale invokes the completion callback even if the unit was stopped,
// the way a late "ended" event from a superseded unit would arrive.
func (u *MockUnit) FireStale() {
	if u.onFinish != nil {
		u.onFinish()
	}
}
