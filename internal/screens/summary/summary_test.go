package summary

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/session"
)

func testSummary() *session.Summary {
	return &session.Summary{
		SessionID:      "s-1",
		Subject:        "physics",
		PracticeType:   practice.TypeRecall,
		XPGoal:         100,
		XPEarned:       100,
		TotalQuestions: 12,
		TotalCorrect:   10,
		Accuracy:       float64(10) / float64(12),
		BestStreak:     6,
		Duration:       7*time.Minute + 5*time.Second,
		GoalReached:    true,
	}
}

func popTarget(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(router.PopToRootMsg)
	if !ok {
		t.Fatalf("expected PopToRootMsg, got %T", cmd())
	}
	return msg.Then
}

func TestSummaryScreen_Title(t *testing.T) {
	s := New(testSummary())
	if s.Title() != "Session Summary" {
		t.Errorf("Title = %q, want %q", s.Title(), "Session Summary")
	}
}

func TestSummaryScreen_Display(t *testing.T) {
	s := New(testSummary())
	view := s.View(100, 30)
	for _, want := range []string{"Goal reached", "Physics", "Recall", "100 / 100", "Accuracy: 83%", "Best streak: 6", "7:05"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSummaryScreen_NilSummary(t *testing.T) {
	s := New(nil)
	if s.View(80, 24) != "" {
		t.Error("expected empty view for nil summary")
	}
}

func TestSummaryScreen_EnterGoesHome(t *testing.T) {
	s := New(testSummary())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if _, ok := popTarget(t, cmd).(screen.RefreshMsg); !ok {
		t.Error("expected home refresh")
	}
}

func TestSummaryScreen_PracticeAgain(t *testing.T) {
	s := New(testSummary())
	s.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if _, ok := popTarget(t, cmd).(screen.StartPracticeMsg); !ok {
		t.Error("expected practice restart")
	}
}

func TestSummaryScreen_BackGoesHome(t *testing.T) {
	s := New(testSummary())
	if _, ok := popTarget(t, s.Back()).(screen.RefreshMsg); !ok {
		t.Error("expected home refresh")
	}
}

func TestSummaryScreen_KeyHints(t *testing.T) {
	s := New(testSummary())
	if len(s.KeyHints()) != 3 {
		t.Errorf("KeyHints length = %d, want 3", len(s.KeyHints()))
	}
}
