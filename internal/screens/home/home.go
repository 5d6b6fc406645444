// Package home is the landing screen: the pet, attempt counters and the
// main menu.
package home

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/screens/history"
	"github.com/abhisek/examquest/internal/screens/quiz"
	"github.com/abhisek/examquest/internal/screens/unlocks"
	"github.com/abhisek/examquest/internal/screens/wizard"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/layout"
)

// PetTickInterval is how often the pet's temperature drift is applied
// while the home screen is open.
const PetTickInterval = time.Minute

type petTickMsg time.Time

type statsRefreshedMsg struct {
	Err error
}

type abandonedMsg struct {
	Err error
}

type signedOutMsg struct {
	Err error
}

// HomeScreen is the main home screen of the application.
type HomeScreen struct {
	app    *appstate.Container
	menu   components.Menu
	party  []practice.Type
	notice string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(app *appstate.Container) *HomeScreen {
	h := &HomeScreen{app: app}
	h.buildMenu()
	return h
}

func (h *HomeScreen) buildMenu() {
	items := []components.MenuItem{{Label: "START PRACTICE", Action: h.startPractice}}
	if s, ok := h.app.ActiveSession(); ok {
		items = []components.MenuItem{
			{Label: "RESUME PRACTICE", Detail: practice.SubjectName(s.Subject), Action: h.resumePractice},
			{Label: "END SESSION", Action: h.abandon},
		}
	}

	selected := h.menu.Selected
	h.menu = components.NewMenu(append(items, []components.MenuItem{
		{Label: "FEED PET", Action: h.feed},
		{Label: "PLAY WITH PET", Action: h.play},
		{Label: "UNLOCKS", Action: push(func() screen.Screen { return unlocks.New(h.app) })},
		{Label: "HISTORY", Action: push(func() screen.Screen { return history.New(h.app) })},
		{Label: "SIGN OUT", Action: h.signOut},
		{Label: "EXIT", Action: func() tea.Cmd { return tea.Quit }},
	}...))
	if selected < len(h.menu.Items) {
		h.menu.Selected = selected
	}
}

func push(factory func() screen.Screen) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return router.PushScreenMsg{Screen: factory()} }
	}
}

func (h *HomeScreen) startPractice() tea.Cmd {
	return push(func() screen.Screen { return wizard.NewSubject(h.app) })()
}

func (h *HomeScreen) resumePractice() tea.Cmd {
	return push(func() screen.Screen { return quiz.New(h.app) })()
}

func (h *HomeScreen) abandon() tea.Cmd {
	app := h.app
	return func() tea.Msg {
		return abandonedMsg{Err: app.AbandonSession(context.Background())}
	}
}

func (h *HomeScreen) feed() tea.Cmd {
	h.app.Feed()
	h.notice = "Yum! Food is up."
	return nil
}

func (h *HomeScreen) play() tea.Cmd {
	h.app.Play()
	h.notice = "Your pet cooled off a little."
	return nil
}

func (h *HomeScreen) signOut() tea.Cmd {
	app := h.app
	return func() tea.Msg {
		return signedOutMsg{Err: app.SignOut(context.Background())}
	}
}

func (h *HomeScreen) refreshStats() tea.Cmd {
	app := h.app
	return func() tea.Msg {
		return statsRefreshedMsg{Err: app.RefreshStats(context.Background())}
	}
}

func petTick() tea.Cmd {
	return tea.Tick(PetTickInterval, func(t time.Time) tea.Msg {
		return petTickMsg(t)
	})
}

func (h *HomeScreen) Init() tea.Cmd {
	return tea.Batch(h.refreshStats(), petTick())
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case petTickMsg:
		h.app.TickPet()
		return h, petTick()

	case statsRefreshedMsg:
		if msg.Err != nil {
			h.notice = session.Message(msg.Err)
		}
		h.party = append(h.party, h.app.PendingCelebrations()...)
		return h, nil

	case abandonedMsg:
		if msg.Err != nil {
			h.notice = session.Message(msg.Err)
			return h, nil
		}
		h.buildMenu()
		h.notice = "Session ended."
		return h, nil

	case signedOutMsg:
		// The store is cleared even when part of the delete failed.
		return h, func() tea.Msg { return screen.SignedOutMsg{} }

	case screen.RefreshMsg:
		h.notice = ""
		h.buildMenu()
		h.party = append(h.party, h.app.PendingCelebrations()...)
		return h, h.refreshStats()

	case screen.StartPracticeMsg:
		h.buildMenu()
		return h, h.startPractice()

	case tea.KeyMsg:
		h.party = nil
		h.notice = ""
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	// height is the content area; estimate full terminal height
	// by adding back header (3) + footer (3) + frame gaps
	termHeight := height + 8
	compact := layout.IsCompactHeight(termHeight) || layout.IsCompactWidth(width)

	cw := components.ContentWidth(width)

	sections := []string{renderTitle(cw, compact)}
	if len(h.party) > 0 {
		sections = append(sections, renderCelebration(h.party, cw))
	}
	sections = append(sections,
		renderPetCard(h.app.Pet(), cw, compact),
		renderStatsBar(h.app.Stats(), h.app.Availability(), cw, compact),
		components.ArcadeMenu(h.menu, cw, compact),
	)
	if h.notice != "" {
		sections = append(sections, renderNotice(h.notice, cw))
	}

	sep := "\n\n"
	if compact {
		sep = "\n"
	}
	return components.CabinetFrame(strings.Join(sections, sep), width, height)
}
