// Package unlocks shows each practice type's lock state and the progress
// toward its thresholds.
package unlocks

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/layout"
	"github.com/abhisek/examquest/internal/ui/theme"
	"github.com/abhisek/examquest/internal/unlock"
)

type refreshedMsg struct {
	Err error
}

// UnlocksScreen lists practice types with their requirements.
type UnlocksScreen struct {
	app        *appstate.Container
	refreshing bool
	errMsg     string
}

var _ screen.Screen = (*UnlocksScreen)(nil)
var _ screen.KeyHintProvider = (*UnlocksScreen)(nil)

// New creates a new UnlocksScreen.
func New(app *appstate.Container) *UnlocksScreen {
	return &UnlocksScreen{app: app}
}

func (s *UnlocksScreen) Init() tea.Cmd {
	return s.refresh()
}

func (s *UnlocksScreen) refresh() tea.Cmd {
	s.refreshing = true
	app := s.app
	return func() tea.Msg {
		return refreshedMsg{Err: app.RefreshStats(context.Background())}
	}
}

func (s *UnlocksScreen) Title() string {
	return "Unlocks"
}

func (s *UnlocksScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "r", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *UnlocksScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshedMsg:
		s.refreshing = false
		s.errMsg = ""
		if msg.Err != nil {
			s.errMsg = session.Message(msg.Err)
		}
	case tea.KeyMsg:
		if msg.String() == "r" && !s.refreshing {
			return s, s.refresh()
		}
	}
	return s, nil
}

func (s *UnlocksScreen) View(width, height int) string {
	stats := s.app.Stats()
	avail := s.app.Availability()
	unlocked := make(map[practice.Type]unlock.Unlock)
	for _, u := range s.app.Unlocks() {
		unlocked[u.PracticeType] = u
	}

	cw := components.ContentWidth(width)
	var cards []string
	for _, t := range practice.AllTypes() {
		cards = append(cards, renderType(t, avail.Allows(t), unlocked[t], stats, cw))
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(cards, "\n")))
	b.WriteString("\n")
	switch {
	case s.refreshing:
		b.WriteString(center.Foreground(theme.TextDim).Render("Syncing with the server..."))
	case s.errMsg != "":
		b.WriteString(center.Foreground(theme.Error).Render(s.errMsg))
	}
	return b.String()
}

func renderType(t practice.Type, open bool, rec unlock.Unlock, stats unlock.Stats, cw int) string {
	status := theme.Correct.Render("UNLOCKED")
	if !open {
		status = theme.Locked.Render("🔒 LOCKED")
	}
	head := fmt.Sprintf("%s  %s  %s",
		theme.Selected.Render(t.DisplayName()),
		status,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("%d attempts", stats.Attempts(t))))

	lines := []string{head, lipgloss.NewStyle().Foreground(theme.TextDim).Render(t.Description())}
	if !rec.UnlockedAt.IsZero() {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Success).
			Render("Unlocked on "+rec.UnlockedAt.Local().Format("Jan 02, 2006")))
	}
	for _, r := range unlock.Requirements(t, stats) {
		bar := components.ProgressBar{
			Label:   fmt.Sprintf("%-8s", r.Counter.DisplayName()),
			Percent: float64(r.Have) / float64(r.Need),
			Width:   cw - 6,
			Suffix:  fmt.Sprintf("%d/%d", min(r.Have, r.Need), r.Need),
		}
		if r.Met() {
			bar.Fill = theme.Success
		}
		lines = append(lines, bar.View())
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Width(cw).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
