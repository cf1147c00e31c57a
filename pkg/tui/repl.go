// Package tui implements the interactive question prompt.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mimir-aip/finqa/pkg/models"
)

// AskFunc answers one question
type AskFunc func(question string) *models.Answer

// maxExchanges bounds the scrollback kept on screen
const maxExchanges = 20

type exchange struct {
	question string
	answer   *models.Answer
}

type answerMsg struct {
	question string
	answer   *models.Answer
}

// ReplModel is a bubbletea model that reads questions and shows answers
type ReplModel struct {
	title   string
	ask     AskFunc
	input   []rune
	history []exchange
	pending bool
	Done    bool
}

// NewReplModel creates a prompt titled title that answers with ask
func NewReplModel(title string, ask AskFunc) *ReplModel {
	return &ReplModel{title: title, ask: ask}
}

func (m *ReplModel) Init() tea.Cmd {
	return nil
}

func (m *ReplModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case answerMsg:
		m.pending = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer})
		if len(m.history) > maxExchanges {
			m.history = m.history[len(m.history)-maxExchanges:]
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Done = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeySpace:
			m.input = append(m.input, ' ')
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
		}
	}
	return m, nil
}

func (m *ReplModel) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(string(m.input))
	m.input = m.input[:0]
	if question == "" || m.pending {
		return m, nil
	}
	switch strings.ToLower(question) {
	case "exit", "quit":
		m.Done = true
		return m, tea.Quit
	}

	m.pending = true
	ask := m.ask
	return m, func() tea.Msg {
		return answerMsg{question: question, answer: ask(question)}
	}
}

func (m *ReplModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	for _, ex := range m.history {
		b.WriteString(PromptStyle.Render("> ") + ex.question + "\n")
		if ex.answer.Failed() {
			b.WriteString(ErrorStyle.Render(ex.answer.Text))
		} else {
			b.WriteString(AnswerStyle.Render(ex.answer.Text))
		}
		b.WriteString("\n\n")
	}

	if m.pending {
		b.WriteString(LoadingStyle.Render("Thinking...") + "\n")
	} else {
		b.WriteString(PromptStyle.Render("> ") + string(m.input) + "█\n")
	}
	b.WriteString(HintStyle.Render("Enter to ask, type exit or press Esc to quit."))
	return b.String()
}
