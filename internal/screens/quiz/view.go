package quiz

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/theme"
)

func (s *QuizScreen) View(width, height int) string {
	st := s.app.SessionState()

	var b strings.Builder
	b.WriteString(s.renderInfoLine(st.Session, st.Streak, width))
	b.WriteString("\n")
	b.WriteString(s.renderXPBar(st.Session, width))
	b.WriteString("\n")
	if st.BonusActive {
		b.WriteString(theme.Banner.
			Width(width).
			Align(lipgloss.Center).
			Render("⚡ BONUS ROUND: double XP ⚡"))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	switch s.phase {
	case phaseLoading:
		b.WriteString(dimCentered(width, "Fetching your next question..."))
	case phaseEnding:
		b.WriteString(dimCentered(width, "Wrapping up your session..."))
	default:
		b.WriteString(s.renderQuestion(st, width))
	}

	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render(s.errMsg))
		if s.retry != retryNone {
			b.WriteString("\n")
			b.WriteString(dimCentered(width, "press r to try again"))
		}
	}

	return b.String()
}

func (s *QuizScreen) renderInfoLine(sess practice.Session, streak, width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  %s · %s", practice.SubjectName(sess.Subject), sess.PracticeType.DisplayName()))

	mins := int(s.elapsed.Minutes())
	secs := int(s.elapsed.Seconds()) % 60
	right := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("Q %d  %s %d  %s %d  %d:%02d",
			sess.QuestionsAnswered+1,
			lipgloss.NewStyle().Foreground(theme.Success).Render("✓"),
			sess.CorrectAnswers,
			lipgloss.NewStyle().Foreground(theme.Accent).Render("🔥"),
			streak,
			mins, secs,
		))

	line := left
	if pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 4; pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}
	return line
}

func (s *QuizScreen) renderXPBar(sess practice.Session, width int) string {
	var pct float64
	if sess.XPGoal > 0 {
		pct = float64(sess.CurrentXP) / float64(sess.XPGoal)
	}
	bar := components.ProgressBar{
		Label:   "XP",
		Percent: pct,
		Width:   min(width-4, 60),
		Fill:    theme.ArcadeYellow,
		Suffix:  fmt.Sprintf("%d / %d", sess.CurrentXP, sess.XPGoal),
	}
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(bar.View())
}

func (s *QuizScreen) renderQuestion(st session.State, width int) string {
	var b strings.Builder

	cw := min(width-4, 70)
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(lipgloss.NewStyle().Width(cw).Render(s.choice.View())))

	if s.showHint && st.Delivery != nil && st.Delivery.Question.Hint != "" {
		b.WriteString("\n")
		b.WriteString(theme.Hint.
			Width(width).
			Align(lipgloss.Center).
			Render("Hint: " + st.Delivery.Question.Hint))
	}

	if s.phase == phaseSubmitting {
		b.WriteString("\n")
		b.WriteString(dimCentered(width, "Checking..."))
	}

	if s.phase == phaseFeedback && s.result != nil {
		b.WriteString("\n")
		b.WriteString(s.renderFeedback(width))
	}
	return b.String()
}

func (s *QuizScreen) renderFeedback(width int) string {
	r := s.result
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var lines []string
	if r.IsCorrect {
		lines = append(lines, theme.Correct.Render(fmt.Sprintf("Correct! +%d XP", r.XPAwarded)))
		if r.Streak >= 3 {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("🔥 %d in a row", r.Streak)))
		}
	} else {
		lines = append(lines, theme.Incorrect.Render("Not quite."))
		if r.CorrectAnswer != "" {
			lines = append(lines, theme.Body.Render("Answer: "+r.CorrectAnswer))
		}
	}
	if r.Explanation != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Width(min(width-8, 70)).
			Render(r.Explanation))
	}
	if r.GoalReached {
		lines = append(lines, "", theme.Banner.Render("🎯 Goal reached! Press Enter for your summary."))
	}
	return center.Render(strings.Join(lines, "\n"))
}

func dimCentered(width int, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(text)
}
