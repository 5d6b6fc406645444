package wizard

import (
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/appstate/appstatetest"
	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/screens/quiz"
	"github.com/abhisek/examquest/internal/unlock"
)

func key(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func pushed(t *testing.T, cmd tea.Cmd) screen.Screen {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	return msg.Screen
}

func TestWizard_FullFlow(t *testing.T) {
	env := appstatetest.New(t, nil)
	app := env.Container

	subj := NewSubject(app)
	subj.Init()
	subj.Update(key(tea.KeyDown))
	_, cmd := subj.Update(key(tea.KeyEnter))
	typ, ok := pushed(t, cmd).(*TypeScreen)
	if !ok {
		t.Fatal("expected type step")
	}

	p := app.Progress()
	if p.Subject == nil || *p.Subject != practice.Subjects[1].ID {
		t.Fatalf("subject = %v, want %s", p.Subject, practice.Subjects[1].ID)
	}
	if p.CurrentStep != practice.StepType {
		t.Errorf("step = %d, want %d", p.CurrentStep, practice.StepType)
	}

	_, cmd = typ.Update(key(tea.KeyEnter))
	goal, ok := pushed(t, cmd).(*GoalScreen)
	if !ok {
		t.Fatal("expected goal step")
	}

	_, cmd = goal.Update(key(tea.KeyEnter))
	if !goal.starting {
		t.Error("expected starting indicator")
	}
	_, cmd = goal.Update(cmd())
	if _, ok := pushed(t, cmd).(*quiz.QuizScreen); !ok {
		t.Fatal("expected quiz screen")
	}

	s, active := app.ActiveSession()
	if !active {
		t.Fatal("expected an active session")
	}
	if s.XPGoal != practice.DefaultGoal || s.PracticeType != practice.TypeRecall {
		t.Errorf("session = %+v", s)
	}
}

func TestTypeScreen_LockedTypeRefused(t *testing.T) {
	env := appstatetest.New(t, nil)
	app := env.Container
	if err := app.SelectSubject("physics"); err != nil {
		t.Fatal(err)
	}

	typ := NewType(app)
	typ.Update(key(tea.KeyDown))
	_, cmd := typ.Update(key(tea.KeyEnter))
	if cmd != nil {
		t.Fatal("expected locked type to stay on the step")
	}
	if !strings.Contains(typ.errMsg, "locked") {
		t.Errorf("errMsg = %q", typ.errMsg)
	}

	view := typ.View(100, 30)
	if !strings.Contains(view, "🔒") || !strings.Contains(view, fmt.Sprint(unlock.RefineRecallThreshold)) {
		t.Error("expected lock and threshold progress in view")
	}
}

func TestGoalScreen_CustomGoal(t *testing.T) {
	env := appstatetest.New(t, nil)
	app := env.Container
	if err := app.SelectSubject("chemistry"); err != nil {
		t.Fatal(err)
	}
	if err := app.SelectType(practice.TypeRecall); err != nil {
		t.Fatal(err)
	}

	goal := NewGoal(app)
	for range practice.GoalPresets {
		goal.Update(key(tea.KeyDown))
	}
	goal.Update(key(tea.KeyEnter))
	if !goal.typing {
		t.Fatal("expected custom input")
	}

	goal.Update(key(tea.KeyEnter))
	if goal.custom.Err() == "" {
		t.Error("expected an error for an empty goal")
	}

	goal.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	if goal.custom.Value() != "" {
		t.Error("expected letters to be ignored")
	}
	for _, r := range "75" {
		goal.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	_, cmd := goal.Update(key(tea.KeyEnter))
	_, cmd = goal.Update(cmd())
	pushed(t, cmd)

	s, _ := app.ActiveSession()
	if s.XPGoal != 75 {
		t.Errorf("XPGoal = %d, want 75", s.XPGoal)
	}
}

func TestGoalScreen_StartFailureShowsMessage(t *testing.T) {
	env := appstatetest.New(t, nil)
	app := env.Container
	if err := app.SelectSubject("physics"); err != nil {
		t.Fatal(err)
	}
	if err := app.SelectType(practice.TypeRecall); err != nil {
		t.Fatal(err)
	}
	env.Fake.FailNext(backend.EndpointStart, &backend.BackendError{Endpoint: backend.EndpointStart, Status: 503, Message: "Practice is paused for maintenance"})

	goal := NewGoal(app)
	_, cmd := goal.Update(key(tea.KeyEnter))
	_, cmd = goal.Update(cmd())
	if cmd != nil {
		t.Fatal("expected to stay on the goal step")
	}
	if goal.errMsg != "Practice is paused for maintenance" {
		t.Errorf("errMsg = %q", goal.errMsg)
	}
}
