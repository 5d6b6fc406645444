// Package wizard walks the learner through subject, practice type and XP
// goal before a session starts.
package wizard

import (
	"fmt"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/theme"
)

// renderSteps renders the "Step n of N" header with a progress bar.
func renderSteps(p practice.Progress, title string, width int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	total := max(p.TotalSteps, 1)

	bar := components.ProgressBar{
		Percent: float64(p.CurrentStep-1) / float64(total),
		Width:   min(width-8, 40),
		Suffix:  fmt.Sprintf("Step %d of %d", p.CurrentStep, total),
	}
	return center.Render(bar.View()) + "\n\n" +
		center.Foreground(theme.Primary).Bold(true).Render(title) + "\n\n"
}

// renderError renders a validation or backend message under the step.
func renderError(msg string, width int) string {
	if msg == "" {
		return ""
	}
	return "\n" + lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(msg)
}

func centerBlock(block string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block)
}
