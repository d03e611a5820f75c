package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/pcm"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoOpts oto.NewContextOptions
)

// DeviceConfig describes the output stream.
type DeviceConfig struct {
	SampleRate   int
	Channels     int
	BufferSize   time.Duration // Device-side buffering
	PollInterval time.Duration // How often completion is checked
}

// DefaultDeviceConfig matches the speech model output.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRate:   pcm.SampleRate,
		Channels:     pcm.Channels,
		BufferSize:   100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
}

func validateConfig(config DeviceConfig) error {
	if config.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", config.PollInterval)
	}
	return nil
}

// OtoDevice plays audio through the system output using oto. The oto
// context is created on the first Start.
type OtoDevice struct {
	config DeviceConfig
	log    *log.Logger

	mu     sync.Mutex
	active *otoUnit
	closed bool
}

// NewOtoDevice validates config and returns a device. No audio resources
// are acquired until the first Start.
func NewOtoDevice(config DeviceConfig) (*OtoDevice, error) {
	if err := validateConfig(config); err != nil {
		return nil, story.NewError(story.CodeDeviceError, "invalid device config", err)
	}
	return &OtoDevice{
		config: config,
		log:    log.Default().WithPrefix("audio"),
	}, nil
}

func (d *OtoDevice) context() (*oto.Context, error) {
	otoOnce.Do(func() {
		otoOpts = oto.NewContextOptions{
			SampleRate:   d.config.SampleRate,
			ChannelCount: d.config.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   d.config.BufferSize,
		}
		ctx, ready, err := oto.NewContext(&otoOpts)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		d.log.Debug("Output device ready", "sampleRate", d.config.SampleRate, "channels", d.config.Channels)
	})
	if otoErr != nil {
		return nil, story.NewError(story.CodeDeviceError, "failed to create oto context", otoErr)
	}
	if otoOpts.SampleRate != d.config.SampleRate || otoOpts.ChannelCount != d.config.Channels {
		return nil, story.NewError(story.CodeDeviceError,
			fmt.Sprintf("output already opened at %d Hz/%d ch", otoOpts.SampleRate, otoOpts.ChannelCount), nil)
	}
	return otoCtx, nil
}

// Start implements Device.
func (d *OtoDevice) Start(buf *pcm.Buffer, speed float64, onFinish func()) (Unit, error) {
	if buf == nil {
		return nil, story.NewError(story.CodeInvalidInput, "nil buffer", nil)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, story.NewError(story.CodeDeviceError, "start", ErrDeviceClosed)
	}
	if buf.SampleRate != d.config.SampleRate || buf.Channels != d.config.Channels {
		return nil, story.NewError(story.CodeDeviceError,
			fmt.Sprintf("buffer is %d Hz/%d ch, device is %d Hz/%d ch",
				buf.SampleRate, buf.Channels, d.config.SampleRate, d.config.Channels), nil)
	}

	if d.active != nil {
		d.active.Stop()
		d.active = nil
	}

	ctx, err := d.context()
	if err != nil {
		return nil, err
	}

	reader := newRateReader(buf, speed)
	u := &otoUnit{
		player:   ctx.NewPlayer(reader),
		reader:   reader,
		onFinish: onFinish,
		stopCh:   make(chan struct{}),
	}
	u.player.Play()
	d.active = u

	go u.watch(d.config.PollInterval)
	return u, nil
}

// Close implements Device. The oto context itself lives until the process
// exits because oto cannot release it.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != nil {
		d.active.Stop()
		d.active = nil
	}
	d.closed = true
	return nil
}

// otoUnit is one playback on the oto context.
type otoUnit struct {
	player   *oto.Player
	reader   *rateReader
	onFinish func()

	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// watch fires onFinish once the reader is drained and the device has played
// the buffered tail.
func (u *otoUnit) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-u.stopCh:
			return
		case <-ticker.C:
			if !u.reader.done() || u.player.IsPlaying() {
				continue
			}
			if !u.stopped.CompareAndSwap(false, true) {
				return
			}
			u.release()
			if u.onFinish != nil {
				u.onFinish()
			}
			return
		}
	}
}

// Stop implements Unit.
func (u *otoUnit) Stop() {
	if !u.stopped.CompareAndSwap(false, true) {
		return
	}
	u.player.Pause()
	u.release()
}

func (u *otoUnit) release() {
	u.stopOnce.Do(func() {
		close(u.stopCh)
		_ = u.player.Close()
	})
}

// SetSpeed implements Unit.
func (u *otoUnit) SetSpeed(speed float64) {
	u.reader.setSpeed(speed)
}

// Speed implements Unit.
func (u *otoUnit) Speed() float64 {
	return u.reader.getSpeed()
}
