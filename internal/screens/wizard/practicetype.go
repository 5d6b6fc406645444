package wizard

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/layout"
	"github.com/abhisek/examquest/internal/ui/theme"
	"github.com/abhisek/examquest/internal/unlock"
)

// TypeScreen is the practice type step. Locked types stay visible with the
// progress toward their thresholds.
type TypeScreen struct {
	app      *appstate.Container
	types    []practice.Type
	selected int
	errMsg   string
}

var _ screen.Screen = (*TypeScreen)(nil)
var _ screen.KeyHintProvider = (*TypeScreen)(nil)

// NewType creates the practice type step.
func NewType(app *appstate.Container) *TypeScreen {
	s := &TypeScreen{app: app, types: practice.AllTypes()}
	if p := app.Progress(); p.Type != nil {
		for i, t := range s.types {
			if t == *p.Type {
				s.selected = i
			}
		}
	}
	return s
}

func (s *TypeScreen) Init() tea.Cmd {
	return nil
}

func (s *TypeScreen) Title() string {
	return "Choose a practice type"
}

func (s *TypeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *TypeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.RefreshMsg:
		s.app.SetStep(practice.StepType)
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			s.errMsg = ""
		case "down", "j":
			if s.selected < len(s.types)-1 {
				s.selected++
			}
			s.errMsg = ""
		case "enter":
			return s, s.choose(s.types[s.selected])
		}
	}
	return s, nil
}

func (s *TypeScreen) choose(t practice.Type) tea.Cmd {
	if err := s.app.SelectType(t); err != nil {
		s.errMsg = session.Message(err)
		return nil
	}
	s.errMsg = ""
	s.app.SetStep(practice.StepGoal)
	return func() tea.Msg { return router.PushScreenMsg{Screen: NewGoal(s.app)} }
}

func (s *TypeScreen) View(width, height int) string {
	avail := s.app.Availability()
	stats := s.app.Stats()
	cw := components.ContentWidth(width)

	var cards []string
	for i, t := range s.types {
		cards = append(cards, s.renderCard(t, i == s.selected, avail.Allows(t), stats, cw))
	}

	return renderSteps(s.app.Progress(), "How do you want to practice?", width) +
		centerBlock(strings.Join(cards, "\n"), width) +
		renderError(s.errMsg, width)
}

func (s *TypeScreen) renderCard(t practice.Type, selected, open bool, stats unlock.Stats, cw int) string {
	name := t.DisplayName()
	nameStyle := theme.Unselected
	border := theme.Border
	switch {
	case !open:
		name = "🔒 " + name
		nameStyle = theme.Locked
	case selected:
		name = "▸ " + name
		nameStyle = theme.Selected
	}
	if selected {
		border = theme.ArcadeYellow
	}

	lines := []string{
		nameStyle.Render(name),
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(t.Description()),
	}
	if !open {
		for _, r := range unlock.Requirements(t, stats) {
			bar := components.ProgressBar{
				Label:   fmt.Sprintf("%-8s", r.Counter.DisplayName()),
				Percent: float64(r.Have) / float64(r.Need),
				Width:   cw - 6,
				Suffix:  fmt.Sprintf("%d/%d", min(r.Have, r.Need), r.Need),
			}
			lines = append(lines, bar.View())
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(cw).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
