package story

import "context"

// Analyzer splits story text into speaker-tagged lines in reading order.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Line, error)
}

// Synthesizer speaks text with a voice. It returns the audio as a base64
// string of 16-bit little-endian mono PCM at 24 kHz.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) (string, error)
}
