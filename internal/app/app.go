// Package app is the root Bubble Tea model.
package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/screens/home"
	"github.com/abhisek/examquest/internal/screens/welcome"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/layout"
)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	state  *appstate.Container
	router *router.Router
	width  int
	height int
}

// newAppModel creates an AppModel starting at the welcome screen.
func newAppModel(state *appstate.Container) AppModel {
	return AppModel{
		state:  state,
		router: router.New(newWelcome(state)),
	}
}

func newWelcome(state *appstate.Container) screen.Screen {
	return welcome.New(state, func() screen.Screen { return home.New(state) })
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screen.SignedOutMsg:
		m.router = router.New(newWelcome(m.state))
		return m, m.router.Active().Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if back, ok := m.router.Active().(screen.BackHandler); ok {
				return m, back.Back()
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// status builds the header summary from the container.
func (m AppModel) status() layout.Status {
	if !m.state.Ready() {
		return layout.Status{}
	}
	st := layout.Status{Pet: m.state.Pet().Mood.Emoji()}
	ss := m.state.SessionState()
	if ss.Phase == session.PhaseActive || ss.Phase == session.PhaseEnding {
		st.XP = ss.Session.CurrentXP
		st.Goal = ss.Session.XPGoal
	}
	stats := m.state.Stats()
	st.Attempts = stats.RecallAttempts + stats.RefineAttempts + stats.ConquerAttempts
	return st
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.status(), m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program over an un-hydrated container.
func Run(state *appstate.Container) error {
	p := tea.NewProgram(newAppModel(state))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
