package story

import (
	"fmt"
	"strings"
)

// Voice is a prebuilt speech model voice profile.
type Voice string

const (
	VoiceKore   Voice = "Kore"
	VoicePuck   Voice = "Puck"
	VoiceCharon Voice = "Charon"
	VoiceFenrir Voice = "Fenrir"
	VoiceZephyr Voice = "Zephyr"
)

// Voices lists every supported voice in picker order.
var Voices = []Voice{VoiceKore, VoicePuck, VoiceCharon, VoiceFenrir, VoiceZephyr}

// String returns the voice name as the speech model expects it.
func (v Voice) String() string {
	return string(v)
}

// Valid reports whether v is one of the supported voices.
func (v Voice) Valid() bool {
	for _, known := range Voices {
		if v == known {
			return true
		}
	}
	return false
}

// Description returns the short character sketch shown next to the voice.
func (v Voice) Description() string {
	switch v {
	case VoiceKore:
		return "Energetic & Clear"
	case VoicePuck:
		return "Playful & Youthful"
	case VoiceCharon:
		return "Serious & Deep"
	case VoiceFenrir:
		return "Gruff & Intense"
	case VoiceZephyr:
		return "Gentle & Ethereal"
	default:
		return "Unknown"
	}
}

// Guidance describes when the segmentation model should pick the voice.
func (v Voice) Guidance() string {
	switch v {
	case VoiceKore:
		return "Energetic, clear, versatile. Good for protagonists or narration."
	case VoicePuck:
		return "Playful, youthful, high-pitched. Good for children or mischievous characters."
	case VoiceCharon:
		return "Serious, calm, deep. Good for elders or authoritative figures."
	case VoiceFenrir:
		return "Gruff, powerful, intense. Good for antagonists or strong characters."
	case VoiceZephyr:
		return "Gentle, ethereal, smooth. Good for narration or mystical characters."
	default:
		return ""
	}
}

// ParseVoice resolves a voice name case-insensitively.
func ParseVoice(name string) (Voice, error) {
	name = strings.TrimSpace(name)
	for _, v := range Voices {
		if strings.EqualFold(name, string(v)) {
			return v, nil
		}
	}
	return "", NewError(CodeInvalidInput, fmt.Sprintf("unknown voice %q", name), nil)
}
