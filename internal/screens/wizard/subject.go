package wizard

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
)

// SubjectScreen is the first wizard step.
type SubjectScreen struct {
	app    *appstate.Container
	menu   components.Menu
	errMsg string
}

var _ screen.Screen = (*SubjectScreen)(nil)

// NewSubject creates the subject step, preselecting a previous choice.
func NewSubject(app *appstate.Container) *SubjectScreen {
	s := &SubjectScreen{app: app}

	items := make([]components.MenuItem, 0, len(practice.Subjects))
	for _, subj := range practice.Subjects {
		items = append(items, components.MenuItem{
			Label:  subj.Name,
			Action: s.choose(subj.ID),
		})
	}
	s.menu = components.NewMenu(items)

	if p := app.Progress(); p.Subject != nil {
		for i, subj := range practice.Subjects {
			if subj.ID == *p.Subject {
				s.menu.Selected = i
			}
		}
	}
	return s
}

func (s *SubjectScreen) choose(id string) func() tea.Cmd {
	return func() tea.Cmd {
		if err := s.app.SelectSubject(id); err != nil {
			s.errMsg = session.Message(err)
			return nil
		}
		s.errMsg = ""
		s.app.SetStep(practice.StepType)
		return func() tea.Msg { return router.PushScreenMsg{Screen: NewType(s.app)} }
	}
}

func (s *SubjectScreen) Init() tea.Cmd {
	s.app.SetStep(practice.StepSubject)
	return nil
}

func (s *SubjectScreen) Title() string {
	return "Choose a subject"
}

func (s *SubjectScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(screen.RefreshMsg); ok {
		s.app.SetStep(practice.StepSubject)
		return s, nil
	}
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *SubjectScreen) View(width, height int) string {
	return renderSteps(s.app.Progress(), "What are we studying today?", width) +
		centerBlock(s.menu.View(), width) +
		renderError(s.errMsg, width)
}
