package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgnsrekt/storycast/internal/story"
)

func analysisPrompt() string {
	var b strings.Builder
	b.WriteString("Analyze the following story and break it down into logical segments of speech.\n")
	b.WriteString("Identify the speakers (characters or narrator) and assign them one of the following voice profiles:\n")
	for _, v := range story.Voices {
		fmt.Fprintf(&b, "- %s: %s\n", v, v.Guidance())
	}
	b.WriteString("\nProvide the output as a JSON array of objects.")
	return b.String()
}

func segmentSchema() *schema {
	voices := make([]string, len(story.Voices))
	for i, v := range story.Voices {
		voices[i] = v.String()
	}
	return &schema{
		Type: "ARRAY",
		Items: &schema{
			Type: "OBJECT",
			Properties: map[string]schema{
				"speaker":   {Type: "STRING"},
				"text":      {Type: "STRING"},
				"voiceName": {Type: "STRING", Enum: voices},
			},
			Required: []string{"speaker", "text", "voiceName"},
		},
	}
}

// parseLines decodes and validates the JSON array the model returns.
func parseLines(text string) ([]story.Line, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty response")
	}

	var lines []story.Line
	if err := json.Unmarshal([]byte(text), &lines); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	if len(lines) == 0 {
		return nil, errors.New("no segments returned")
	}

	for i := range lines {
		l := &lines[i]
		l.Speaker = strings.TrimSpace(l.Speaker)
		if l.Speaker == "" || strings.TrimSpace(l.Text) == "" {
			return nil, fmt.Errorf("segment %d is missing speaker or text", i)
		}
		v, err := story.ParseVoice(string(l.Voice))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		l.Voice = v
	}
	return lines, nil
}
