// Package summary shows the results of a finished practice session.
package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/layout"
	"github.com/abhisek/examquest/internal/ui/theme"
)

// SummaryScreen displays the session summary.
type SummaryScreen struct {
	summary *session.Summary
	buttons components.ButtonRow
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)
var _ screen.BackHandler = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(summary *session.Summary) *SummaryScreen {
	return &SummaryScreen{
		summary: summary,
		buttons: components.NewButtonRow(
			components.NewButton("Home", true, home),
			components.NewButton("Practice again", false, practiceAgain),
		),
	}
}

func home() tea.Cmd {
	return func() tea.Msg { return router.PopToRootMsg{Then: screen.RefreshMsg{}} }
}

func practiceAgain() tea.Cmd {
	return func() tea.Msg { return router.PopToRootMsg{Then: screen.StartPracticeMsg{}} }
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "←→", Description: "Choose"},
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Home"},
	}
}

// Back returns to the home screen rather than the session underneath.
func (s *SummaryScreen) Back() tea.Cmd {
	return home()
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	s.buttons, cmd = s.buttons.Update(msg)
	return s, cmd
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	if sum == nil {
		return ""
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	var b strings.Builder

	title := "Session complete!"
	if sum.GoalReached {
		title = "🎯 Goal reached!"
	}
	b.WriteString(center.Foreground(theme.Primary).Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(center.Foreground(theme.TextDim).Render(fmt.Sprintf("%s · %s",
		practice.SubjectName(sum.Subject), sum.PracticeType.DisplayName())))
	b.WriteString("\n\n")

	bar := components.ProgressBar{
		Label:   "XP",
		Percent: xpFraction(sum),
		Width:   min(width-8, 50),
		Fill:    theme.ArcadeYellow,
		Suffix:  fmt.Sprintf("%d / %d", sum.XPEarned, sum.XPGoal),
	}
	b.WriteString(center.Render(bar.View()))
	b.WriteString("\n\n")

	mins := int(sum.Duration.Minutes())
	secs := int(sum.Duration.Seconds()) % 60
	stats := fmt.Sprintf("Questions: %d    Correct: %d    Accuracy: %.0f%%",
		sum.TotalQuestions, sum.TotalCorrect, sum.Accuracy*100)
	b.WriteString(center.Foreground(theme.Text).Render(stats))
	b.WriteString("\n")
	b.WriteString(center.Foreground(theme.TextDim).Render(fmt.Sprintf(
		"Best streak: %d    Time: %d:%02d", sum.BestStreak, mins, secs)))
	b.WriteString("\n\n")

	if sum.GoalReached {
		b.WriteString(center.Foreground(theme.Cool).Render("Your pet cooled off thanks to your hard work."))
		b.WriteString("\n\n")
	}

	b.WriteString(center.Render(s.buttons.View()))
	return b.String()
}

func xpFraction(sum *session.Summary) float64 {
	if sum.XPGoal <= 0 {
		return 0
	}
	return float64(sum.XPEarned) / float64(sum.XPGoal)
}
