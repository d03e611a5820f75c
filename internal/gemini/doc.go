// Package gemini talks to the Gemini generateContent REST endpoint. It
// segments a story into speaker-tagged lines and synthesizes speech for a
// line with a prebuilt voice.
package gemini
