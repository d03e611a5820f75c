package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/storycast/internal/story"
)

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render
	faint     = lipgloss.NewStyle().Faint(true).Render
	warning   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Render
)

var voiceColors = map[story.Voice]lipgloss.Color{
	story.VoiceKore:   lipgloss.Color("#F25D94"),
	story.VoicePuck:   lipgloss.Color("#FFB454"),
	story.VoiceCharon: lipgloss.Color("#6C91BF"),
	story.VoiceFenrir: lipgloss.Color("#E8453C"),
	story.VoiceZephyr: lipgloss.Color("#7FD4C1"),
}

// speakerStyle returns the label style for a speaker with voice.
func speakerStyle(voice story.Voice) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	if c, ok := voiceColors[voice]; ok {
		s = s.Foreground(c)
	}
	return s
}
