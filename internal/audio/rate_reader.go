package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/storycast/internal/pcm"
)

// rateReader streams a buffer as float32 little-endian frames, stepping
// through it at a variable rate with linear interpolation. The rate can be
// changed while oto is reading.
type rateReader struct {
	samples  []float32
	channels int
	frames   int

	mu  sync.Mutex
	pos float64 // frame position

	speed     atomic.Uint64 // float64 bits
	exhausted atomic.Bool
}

func newRateReader(buf *pcm.Buffer, speed float64) *rateReader {
	r := &rateReader{
		samples:  buf.Samples,
		channels: buf.Channels,
		frames:   buf.Frames(),
	}
	r.setSpeed(speed)
	return r
}

func (r *rateReader) setSpeed(speed float64) {
	r.speed.Store(math.Float64bits(ClampSpeed(speed)))
}

func (r *rateReader) getSpeed() float64 {
	return math.Float64frombits(r.speed.Load())
}

// Read implements io.Reader.
func (r *rateReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frameBytes := 4 * r.channels
	step := r.getSpeed()
	end := float64(r.frames)

	n := 0
	for n+frameBytes <= len(p) && r.pos < end {
		i := int(r.pos)
		frac := float32(r.pos - float64(i))
		for ch := 0; ch < r.channels; ch++ {
			a := r.samples[i*r.channels+ch]
			b := a
			if i+1 < r.frames {
				b = r.samples[(i+1)*r.channels+ch]
			}
			binary.LittleEndian.PutUint32(p[n:], math.Float32bits(a+(b-a)*frac))
			n += 4
		}
		r.pos += step
	}

	if n == 0 && r.pos >= end {
		r.exhausted.Store(true)
		return 0, io.EOF
	}
	return n, nil
}

func (r *rateReader) done() bool {
	return r.exhausted.Load()
}
