package gemini

// Wire types of the generateContent endpoint. Only the fields the pipeline
// uses are modelled.

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type       string            `json:"type"`
	Items      *schema           `json:"items,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
	Enum       []string          `json:"enum,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type generationConfig struct {
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema       `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// text joins the text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// inlineData returns the first inline data payload of the first candidate.
func (r *generateResponse) inlineData() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data
		}
	}
	return ""
}
