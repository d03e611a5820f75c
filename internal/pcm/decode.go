package pcm

import (
	"encoding/binary"
	"fmt"
)

// DecodePCM16 interprets data as signed 16-bit little-endian samples,
// interleaved per frame, and normalizes each one by 1/32768.
//
// A trailing partial frame is dropped rather than rejected; only an odd byte
// count is an error.
func DecodePCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if err := validateFormat(sampleRate, channels); err != nil {
		return nil, err
	}
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrOddLength, len(data))
	}

	frames := len(data) / BytesPerSample / channels
	samples := make([]float32, frames*channels)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
		samples[i] = float32(float64(s) / 32768.0)
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
