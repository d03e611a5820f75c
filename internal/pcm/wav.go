package pcm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// WAV format constants.
const (
	// HeaderSize is the size of the canonical WAV header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format tag for uncompressed PCM.
	FormatPCM = 1
)

// Header mirrors the fields of a canonical 44-byte WAV header.
type Header struct {
	RIFFSize      uint32
	FormatSize    uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// EncodeWAV serializes buf as a 16-bit PCM WAV file.
func EncodeWAV(buf *Buffer) []byte {
	var out bytes.Buffer
	out.Grow(HeaderSize + len(buf.Samples)*BytesPerSample)
	// bytes.Buffer writes never fail.
	_ = WriteWAV(&out, buf)
	return out.Bytes()
}

// WriteWAV streams buf to w as a 16-bit PCM WAV file.
func WriteWAV(w io.Writer, buf *Buffer) error {
	if buf == nil {
		return errors.New("nil buffer")
	}
	if err := validateFormat(buf.SampleRate, buf.Channels); err != nil {
		return err
	}

	dataSize := buf.Frames() * buf.Channels * BytesPerSample
	header := make([]byte, HeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(HeaderSize-8+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(buf.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(buf.SampleRate*buf.Channels*BytesPerSample))
	binary.LittleEndian.PutUint16(header[32:34], uint16(buf.Channels*BytesPerSample))
	binary.LittleEndian.PutUint16(header[34:36], BitDepth)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	var sample [BytesPerSample]byte
	for _, s := range buf.Samples[:buf.Frames()*buf.Channels] {
		binary.LittleEndian.PutUint16(sample[:], uint16(QuantizeSample(s)))
		if _, err := bw.Write(sample[:]); err != nil {
			return fmt.Errorf("write wav data: %w", err)
		}
	}
	return bw.Flush()
}

// QuantizeSample converts a float sample to int16. Negative values scale by
// 32768 and non-negative values by 32767, truncating toward zero.
func QuantizeSample(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}

// ParseWAVHeader decodes the canonical header at the start of data.
func ParseWAVHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return h, errors.New("not a RIFF/WAVE file")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return h, errors.New("unexpected chunk layout")
	}

	h.RIFFSize = binary.LittleEndian.Uint32(data[4:8])
	h.FormatSize = binary.LittleEndian.Uint32(data[16:20])
	h.AudioFormat = binary.LittleEndian.Uint16(data[20:22])
	h.Channels = binary.LittleEndian.Uint16(data[22:24])
	h.SampleRate = binary.LittleEndian.Uint32(data[24:28])
	h.ByteRate = binary.LittleEndian.Uint32(data[28:32])
	h.BlockAlign = binary.LittleEndian.Uint16(data[32:34])
	h.BitsPerSample = binary.LittleEndian.Uint16(data[34:36])
	h.DataSize = binary.LittleEndian.Uint32(data[40:44])
	return h, nil
}
