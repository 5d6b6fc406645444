package home

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/pet"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/theme"
	"github.com/abhisek/examquest/internal/unlock"
)

const arcadeTitleFull = `╔═╗═╗ ╦╔═╗╔╦╗  ╔═╗ ╦ ╦╔═╗╔═╗╔╦╗
║╣ ╔╩╦╝╠═╣║║║  ║═╬╗║ ║║╣ ╚═╗ ║
╚═╝╩ ╚═╩ ╩╩ ╩  ╚═╝╚╚═╝╚═╝╚═╝ ╩`

const arcadeTitleCompact = "E X A M · Q U E S T"

// renderTitle returns the styled title block or compact fallback.
func renderTitle(cw int, compact bool) string {
	title := arcadeTitleFull
	if compact {
		title = arcadeTitleCompact
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(theme.Banner.Render(title))
}

// renderPetCard renders the pet with its food and temperature gauges.
func renderPetCard(s pet.State, cw int, compact bool) string {
	food := components.ProgressBar{
		Label:   "Food",
		Percent: float64(s.FoodLevel-pet.MinFood) / float64(pet.MaxFood-pet.MinFood),
		Width:   cw - 8,
		Fill:    theme.Food,
		Suffix:  fmt.Sprintf("%3d", s.FoodLevel),
	}
	heat := theme.Cool
	if s.Temperature >= 70 {
		heat = theme.Heat
	}
	temp := components.ProgressBar{
		Label:   "Temp",
		Percent: float64(s.Temperature-pet.MinTemp) / float64(pet.MaxTemp-pet.MinTemp),
		Width:   cw - 8,
		Fill:    heat,
		Suffix:  fmt.Sprintf("%3d°", s.Temperature),
	}

	lines := []string{}
	if !compact {
		lines = append(lines, renderPet(s.Mood), "")
	}
	lines = append(lines,
		fmt.Sprintf("%s  %s", s.Mood.Emoji(), lipgloss.NewStyle().Foreground(theme.Text).Render(moodLine(s))),
		"",
		food.View(),
		temp.View(),
	)
	return components.ArcadeCard(strings.Join(lines, "\n"), cw)
}

// renderStatsBar renders attempt counters and unlock state in a bordered box.
func renderStatsBar(stats unlock.Stats, avail unlock.Availability, cw int, compact bool) string {
	var parts []string
	for _, t := range practice.AllTypes() {
		style := lipgloss.NewStyle().Foreground(theme.ArcadeCyan).Bold(true)
		label := strings.ToUpper(t.DisplayName())
		if compact {
			label = label[:1]
		}
		if !avail.Allows(t) {
			style = theme.Locked
			label = "🔒" + label
		}
		parts = append(parts, style.Render(fmt.Sprintf("%s %d", label, stats.Attempts(t))))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.ArcadeCyan).
		Width(cw - 2).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(strings.Join(parts, "  "))
}

// renderCelebration announces newly unlocked practice types.
func renderCelebration(types []practice.Type, cw int) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.DisplayName())
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(theme.Banner.Render("🎉 " + strings.Join(names, " and ") + " unlocked! 🎉"))
}

// renderNotice renders a one-line dim notice, such as a refresh failure.
func renderNotice(text string, cw int) string {
	return lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Width(cw).
		Align(lipgloss.Center).
		Render(text)
}
