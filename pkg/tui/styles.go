package tui

import "github.com/charmbracelet/lipgloss"

// Styles for the question prompt

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6")).
			MarginBottom(1)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	AnswerStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			PaddingLeft(2)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Italic(true)

	HintStyle = lipgloss.NewStyle().
			Faint(true)
)
