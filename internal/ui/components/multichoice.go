package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/ui/theme"
)

// MultiChoice is a multiple-choice selector. The correct option is unknown
// until Reveal is called with the graded answer.
type MultiChoice struct {
	Question string
	Options  []string
	Selected int
	Locked   bool

	revealed bool
	correct  string
	chosen   int
}

// NewMultiChoice creates a new multiple-choice component.
func NewMultiChoice(question string, options []string) MultiChoice {
	return MultiChoice{
		Question: question,
		Options:  options,
		chosen:   -1,
	}
}

// Init returns nil.
func (m MultiChoice) Init() tea.Cmd {
	return nil
}

// Update handles arrow navigation and number shortcuts. Enter is left to
// the owning screen, which reads Choice.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Locked || m.revealed {
		return m, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(m.Options) {
				m.Selected = i
			}
		}
	}

	return m, nil
}

// Choice returns the highlighted option, or "" when there are none.
func (m MultiChoice) Choice() string {
	if m.Selected < 0 || m.Selected >= len(m.Options) {
		return ""
	}
	return m.Options[m.Selected]
}

// Reveal freezes the selector and marks the correct option.
func (m *MultiChoice) Reveal(correct string) {
	m.revealed = true
	m.correct = correct
	m.chosen = m.Selected
}

// View renders the multiple-choice component.
func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(m.Question))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected && !m.revealed {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%c)  %s", prefix, 'A'+rune(i), opt)

		var style lipgloss.Style
		switch {
		case m.revealed && strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(m.correct)):
			style = theme.Correct
		case m.revealed && i == m.chosen:
			style = theme.Incorrect
		case m.revealed, m.Locked:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == m.Selected:
			style = theme.Selected
		default:
			style = theme.Unselected
		}
		b.WriteString(style.Render(line) + "\n")
	}

	return b.String()
}
