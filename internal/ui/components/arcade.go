package components

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/ui/theme"
)

// ContentWidth returns the uniform inner width used for all arcade sections.
// All boxes are rendered at this width so they visually align.
func ContentWidth(frameWidth int) int {
	// Leave room for cabinet border (2) + inner padding (4)
	w := frameWidth - 6
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}

// CabinetFrame wraps content in a double-border cabinet frame,
// centering vertically and horizontally within the given dimensions.
func CabinetFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Primary).
		Width(width - 2).
		Height(height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

// ArcadeCard wraps content in a rounded-border card at the given content width.
func ArcadeCard(content string, cw int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Width(cw - 2).
		Align(lipgloss.Center).
		Padding(1, 2).
		Render(content)
}

// buttonWidth is the fixed width for arcade buttons.
const buttonWidth = 22

// ArcadeButton renders a styled button matching the home menu style.
func ArcadeButton(label string, selected, disabled bool) string {
	base := lipgloss.NewStyle().
		Width(buttonWidth).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	switch {
	case disabled:
		return base.Foreground(theme.TextDim).BorderForeground(theme.Border).Render(label)
	case selected:
		return base.
			Bold(true).
			Foreground(theme.BgDark).
			Background(theme.ArcadeYellow).
			BorderForeground(theme.ArcadeYellow).
			Render("▸ " + label)
	default:
		return base.Foreground(theme.Text).BorderForeground(theme.Border).Render(label)
	}
}

// ArcadeMenu renders each menu item as a fixed-width button. Compact mode
// drops the borders for small terminals.
func ArcadeMenu(m Menu, cw int, compact bool) string {
	lines := make([]string, 0, len(m.Items))
	for i, item := range m.Items {
		selected := i == m.Selected && !item.Disabled
		if !compact {
			lines = append(lines, ArcadeButton(item.Label, selected, item.Disabled))
			continue
		}
		switch {
		case item.Disabled:
			lines = append(lines, theme.Locked.Render("   "+item.Label))
		case selected:
			lines = append(lines, lipgloss.NewStyle().
				Foreground(theme.BgDark).
				Background(theme.ArcadeYellow).
				Bold(true).
				Render(" ▸ "+item.Label+" "))
		default:
			lines = append(lines, theme.Unselected.Render("   "+item.Label))
		}
	}

	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(lines, "\n"))
}
