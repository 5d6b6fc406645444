package home

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/pet"
	"github.com/abhisek/examquest/internal/ui/theme"
)

const petHappy = ` /\_/\
( ^.^ )
 > ♥ <`

const petNeutral = ` /\_/\
( o.o )
 > ^ <`

const petSad = ` /\_/\
( ;.; )
 > ~ <`

// renderPet returns the pet art for its mood.
func renderPet(mood pet.Mood) string {
	var art string
	var fg color.Color

	switch mood {
	case pet.MoodHappy:
		art = petHappy
		fg = theme.ArcadeYellow
	case pet.MoodSad:
		art = petSad
		fg = theme.Accent
	default:
		art = petNeutral
		fg = theme.Primary
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Render(art)
}

// moodLine is the caption under the pet.
func moodLine(s pet.State) string {
	switch s.Mood {
	case pet.MoodHappy:
		return "Your pet is thriving!"
	case pet.MoodSad:
		if s.FoodLevel < 30 {
			return "Your pet is hungry. Feed it!"
		}
		return "Your pet is overheating. Practice to cool it down!"
	}
	return "Your pet is doing okay."
}
