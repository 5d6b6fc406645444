package wizard

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/screens/quiz"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/layout"
)

// sessionStartedMsg is sent when practice-start returns.
type sessionStartedMsg struct {
	Err error
}

// GoalScreen is the last wizard step. It offers the preset goals plus a
// custom value, then starts the session.
type GoalScreen struct {
	app      *appstate.Container
	menu     components.Menu
	custom   components.TextInput
	typing   bool
	starting bool
	errMsg   string
}

var _ screen.Screen = (*GoalScreen)(nil)
var _ screen.KeyHintProvider = (*GoalScreen)(nil)

// NewGoal creates the goal step.
func NewGoal(app *appstate.Container) *GoalScreen {
	s := &GoalScreen{
		app:    app,
		custom: components.NewTextInput("XP goal", true, 4),
	}

	items := make([]components.MenuItem, 0, len(practice.GoalPresets)+1)
	for _, g := range practice.GoalPresets {
		items = append(items, components.MenuItem{
			Label:  fmt.Sprintf("%d XP", g),
			Detail: goalDetail(g),
			Action: s.choose(g),
		})
	}
	items = append(items, components.MenuItem{
		Label: "Custom...",
		Action: func() tea.Cmd {
			s.typing = true
			return s.custom.Init()
		},
	})
	s.menu = components.NewMenu(items)

	goal := practice.DefaultGoal
	if p := app.Progress(); p.Goal != nil {
		goal = *p.Goal
	}
	for i, g := range practice.GoalPresets {
		if g == goal {
			s.menu.Selected = i
		}
	}
	return s
}

func goalDetail(goal int) string {
	switch {
	case goal <= 50:
		return "quick warm-up"
	case goal <= 100:
		return "standard"
	case goal <= 150:
		return "focused"
	}
	return "marathon"
}

func (s *GoalScreen) choose(goal int) func() tea.Cmd {
	return func() tea.Cmd {
		if err := s.app.SelectGoal(goal); err != nil {
			s.errMsg = session.Message(err)
			return nil
		}
		s.errMsg = ""
		s.starting = true
		app := s.app
		return func() tea.Msg {
			_, err := app.StartSession(context.Background())
			return sessionStartedMsg{Err: err}
		}
	}
}

func (s *GoalScreen) Init() tea.Cmd {
	return nil
}

func (s *GoalScreen) Title() string {
	return "Set your XP goal"
}

func (s *GoalScreen) KeyHints() []layout.KeyHint {
	if s.typing {
		return []layout.KeyHint{
			{Key: "0-9", Description: "Type"},
			{Key: "Enter", Description: "Start"},
			{Key: "Tab", Description: "Presets"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *GoalScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.RefreshMsg:
		s.app.SetStep(practice.StepGoal)
		return s, nil

	case sessionStartedMsg:
		s.starting = false
		if msg.Err != nil {
			s.errMsg = session.Message(msg.Err)
			return s, nil
		}
		return s, func() tea.Msg { return router.PushScreenMsg{Screen: quiz.New(s.app)} }

	case tea.KeyMsg:
		if s.starting {
			return s, nil
		}
		if s.typing {
			return s.updateCustom(msg)
		}
	}

	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *GoalScreen) updateCustom(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "tab":
		s.typing = false
		return s, nil
	case "enter":
		goal, err := s.custom.NumericValue()
		if err != nil || goal <= 0 {
			s.custom.SetError("Enter a goal above zero")
			return s, nil
		}
		return s, s.choose(goal)()
	}
	var cmd tea.Cmd
	s.custom, cmd = s.custom.Update(msg)
	return s, cmd
}

func (s *GoalScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(renderSteps(s.app.Progress(), "How much XP will you earn?", width))
	b.WriteString(centerBlock(s.menu.View(), width))
	if s.typing {
		b.WriteString("\n")
		b.WriteString(centerBlock(s.custom.View(), width))
	}
	if s.starting {
		b.WriteString("\n")
		b.WriteString(centerBlock("Starting your session...", width))
	}
	b.WriteString(renderError(s.errMsg, width))
	return b.String()
}
