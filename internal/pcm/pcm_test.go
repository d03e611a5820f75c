package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-audio/wav"
)

// packPCM16 packs samples as little-endian int16.
func packPCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

func TestDecodePCM16(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		channels int
		want     []float32
	}{
		{"silence", []int16{0, 0}, 1, []float32{0, 0}},
		{"extremes", []int16{-32768, 32767}, 1, []float32{-1, 32767.0 / 32768.0}},
		{"half", []int16{16384, -16384}, 1, []float32{0.5, -0.5}},
		{"stereo interleaved", []int16{1, 2, 3, 4}, 2, []float32{1.0 / 32768, 2.0 / 32768, 3.0 / 32768, 4.0 / 32768}},
		{"partial frame dropped", []int16{100, 200, 300}, 2, []float32{100.0 / 32768, 200.0 / 32768}},
		{"empty", nil, 1, []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := DecodePCM16(packPCM16(tt.samples), SampleRate, tt.channels)
			if err != nil {
				t.Fatalf("DecodePCM16() error = %v", err)
			}
			if buf.SampleRate != SampleRate || buf.Channels != tt.channels {
				t.Errorf("format = %d/%d, want %d/%d", buf.SampleRate, buf.Channels, SampleRate, tt.channels)
			}
			if len(buf.Samples) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(buf.Samples), len(tt.want))
			}
			for i := range tt.want {
				if buf.Samples[i] != tt.want[i] {
					t.Errorf("sample %d = %v, want %v", i, buf.Samples[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodePCM16Errors(t *testing.T) {
	if _, err := DecodePCM16([]byte{1, 2, 3}, SampleRate, 1); !errors.Is(err, ErrOddLength) {
		t.Errorf("odd length: got %v, want ErrOddLength", err)
	}
	if _, err := DecodePCM16([]byte{1, 2}, 0, 1); err == nil {
		t.Error("zero sample rate: expected error")
	}
	if _, err := DecodePCM16([]byte{1, 2}, SampleRate, 0); err == nil {
		t.Error("zero channels: expected error")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	buf := &Buffer{Samples: make([]float32, 10), SampleRate: 24000, Channels: 2}
	data := EncodeWAV(buf)

	if len(data) != HeaderSize+20 {
		t.Fatalf("len = %d, want %d", len(data), HeaderSize+20)
	}

	checks := []struct {
		name   string
		offset int
		want   []byte
	}{
		{"riff", 0, []byte("RIFF")},
		{"riff size", 4, []byte{56, 0, 0, 0}},
		{"wave", 8, []byte("WAVE")},
		{"fmt", 12, []byte("fmt ")},
		{"fmt size", 16, []byte{16, 0, 0, 0}},
		{"pcm tag", 20, []byte{1, 0}},
		{"channels", 22, []byte{2, 0}},
		{"sample rate", 24, []byte{0xC0, 0x5D, 0, 0}},
		{"byte rate", 28, []byte{0x00, 0x77, 0x01, 0x00}},
		{"block align", 32, []byte{4, 0}},
		{"bits", 34, []byte{16, 0}},
		{"data", 36, []byte("data")},
		{"data size", 40, []byte{20, 0, 0, 0}},
	}
	for _, c := range checks {
		got := data[c.offset : c.offset+len(c.want)]
		if !bytes.Equal(got, c.want) {
			t.Errorf("%s at %d = %v, want %v", c.name, c.offset, got, c.want)
		}
	}

	h, err := ParseWAVHeader(data)
	if err != nil {
		t.Fatalf("ParseWAVHeader() error = %v", err)
	}
	if h.ByteRate != 24000*2*2 || h.BlockAlign != 4 || h.DataSize != 20 {
		t.Errorf("unexpected header %+v", h)
	}
}

func TestQuantizeSample(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2, 32767},
		{-3, -32768},
		{0.5, 16383},
		{-0.5, -16384},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := QuantizeSample(tt.in); got != tt.want {
			t.Errorf("QuantizeSample(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]int16, 4801)
	for i := range samples {
		samples[i] = int16(rng.Intn(65536) - 32768)
	}
	samples[0], samples[1], samples[2] = -32768, 32767, 0

	buf, err := DecodePCM16(packPCM16(samples), SampleRate, Channels)
	if err != nil {
		t.Fatalf("DecodePCM16() error = %v", err)
	}
	data := EncodeWAV(buf)

	h, err := ParseWAVHeader(data)
	if err != nil {
		t.Fatalf("ParseWAVHeader() error = %v", err)
	}
	if want := uint32(buf.Frames() * buf.Channels * 2); h.DataSize != want {
		t.Errorf("data size = %d, want %d", h.DataSize, want)
	}

	if !wav.NewDecoder(bytes.NewReader(data)).IsValidFile() {
		t.Fatal("encoded file rejected by wav decoder")
	}
	parsed, err := wav.NewDecoder(bytes.NewReader(data)).FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer() error = %v", err)
	}
	if parsed.Format.SampleRate != SampleRate || parsed.Format.NumChannels != Channels {
		t.Errorf("parsed format = %+v", parsed.Format)
	}
	if len(parsed.Data) != len(samples) {
		t.Fatalf("parsed %d samples, want %d", len(parsed.Data), len(samples))
	}
	for i, s := range samples {
		diff := parsed.Data[i] - int(s)
		if diff < -1 || diff > 1 {
			t.Fatalf("sample %d: got %d, want %d (+/-1)", i, parsed.Data[i], s)
		}
	}
}

func TestConcatenate(t *testing.T) {
	a := &Buffer{Samples: []float32{0.1, 0.2, 0.3}, SampleRate: SampleRate, Channels: 1}
	b := &Buffer{Samples: []float32{-0.4, -0.5}, SampleRate: SampleRate, Channels: 1}

	out, err := Concatenate(a, b)
	if err != nil {
		t.Fatalf("Concatenate() error = %v", err)
	}
	if out.Frames() != a.Frames()+b.Frames() {
		t.Fatalf("frames = %d, want %d", out.Frames(), a.Frames()+b.Frames())
	}
	for i, s := range a.Samples {
		if out.Samples[i] != s {
			t.Errorf("sample %d = %v, want %v", i, out.Samples[i], s)
		}
	}
	for i, s := range b.Samples {
		if out.Samples[len(a.Samples)+i] != s {
			t.Errorf("sample %d = %v, want %v", len(a.Samples)+i, out.Samples[len(a.Samples)+i], s)
		}
	}

	// inputs are untouched
	if len(a.Samples) != 3 || a.Samples[2] != 0.3 {
		t.Error("input buffer modified")
	}
}

func TestConcatenateErrors(t *testing.T) {
	if _, err := Concatenate(); !errors.Is(err, ErrNoBuffers) {
		t.Errorf("empty: got %v, want ErrNoBuffers", err)
	}

	a := &Buffer{Samples: []float32{0}, SampleRate: 24000, Channels: 1}
	b := &Buffer{Samples: []float32{0}, SampleRate: 44100, Channels: 1}
	if _, err := Concatenate(a, b); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("mismatch: got %v, want ErrFormatMismatch", err)
	}
}

func TestBufferDuration(t *testing.T) {
	buf, err := NewBuffer(SampleRate/2, SampleRate, 1)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	if got := buf.Duration().Milliseconds(); got != 500 {
		t.Errorf("Duration() = %dms, want 500ms", got)
	}
	if buf.SizeBytes() != int64(SampleRate/2*4) {
		t.Errorf("SizeBytes() = %d", buf.SizeBytes())
	}
}
