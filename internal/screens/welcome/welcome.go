// Package welcome is the splash shown while durable state is hydrated.
package welcome

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	phase1End    = 500 * time.Millisecond
	phase2End    = 1500 * time.Millisecond
	totalDur     = 4500 * time.Millisecond
)

const petArt = `   /\_/\
  ( o.o )
   > ^ <
  /  📚 \`

// sparkle frames cycle around the pet
var sparkleFrames = []string{"★", "✦"}

type tickMsg time.Time

type hydratedMsg struct {
	Err error
}

// Hydrator loads durable state before the first real screen is shown.
type Hydrator interface {
	Ready() bool
	Hydrate(ctx context.Context) error
}

// WelcomeScreen shows a splash animation while state is hydrated, then
// transitions to the screen produced by homeFactory on a key press.
type WelcomeScreen struct {
	state        Hydrator
	homeFactory  func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	hydrated     bool
	hydrateErr   error
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen.
func New(state Hydrator, homeFactory func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{
		state:       state,
		homeFactory: homeFactory,
	}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	tick := tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
	if w.state.Ready() {
		w.hydrated = true
		return tick
	}
	state := w.state
	return tea.Batch(tick, func() tea.Msg {
		return hydratedMsg{Err: state.Hydrate(context.Background())}
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if w.elapsed < totalDur {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tea.Tick(tickInterval, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})

	case hydratedMsg:
		// The container falls back to defaults when a read fails.
		w.hydrated = true
		w.hydrateErr = msg.Err
		return w, nil

	case tea.KeyPressMsg:
		if w.hydrated {
			return w, w.transition()
		}
		return w, nil
	}

	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	homeScreen := w.homeFactory()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: homeScreen}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	rendered := lipgloss.NewStyle().Foreground(theme.Primary).Render(petArt)

	// Phase 2+: sparkles around the pet
	if w.elapsed >= phase1End {
		sparkle := sparkleFrames[w.tickCount%len(sparkleFrames)]
		s1 := lipgloss.NewStyle().Foreground(theme.Accent).Render(sparkle)
		s2 := lipgloss.NewStyle().Foreground(theme.Secondary).Render(sparkle)

		lines := strings.Split(rendered, "\n")
		if len(lines) > 0 {
			lines[0] = s1 + "  " + lines[0] + "  " + s2
		}
		if len(lines) > 2 {
			lines[2] = s2 + "  " + lines[2] + "  " + s1
		}
		rendered = strings.Join(lines, "\n")
	}
	sections = append(sections, rendered)

	// Phase 3+: banner + tagline
	if w.elapsed >= phase2End {
		sections = append(sections, "", RenderBanner(width), "",
			lipgloss.NewStyle().
				Foreground(theme.Text).
				Bold(true).
				Render("Practice daily. Keep your pet happy."))
	}

	sections = append(sections, "")
	hint := lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
	switch {
	case !w.hydrated:
		sections = append(sections, hint.Render("loading your progress..."))
	case w.hydrateErr != nil:
		sections = append(sections,
			lipgloss.NewStyle().Foreground(theme.Accent).Render("Some saved progress could not be read."),
			hint.Render("press any key to continue"))
	default:
		sections = append(sections, hint.Render("press any key to continue"))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
