// Package history lists past practice sessions from the local session log.
package history

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/store"
	"github.com/abhisek/examquest/internal/ui/layout"
	"github.com/abhisek/examquest/internal/ui/theme"
)

// historyLimit bounds how many log events are read.
const historyLimit = 500

type historyLoadedMsg struct {
	Events []store.SessionEvent
	Err    error
}

// sessionRow is one session folded from its log events.
type sessionRow struct {
	SessionID string
	Started   time.Time
	Subject   string
	Type      practice.Type
	Goal      int
	XP        int
	Answered  int
	Correct   int
	// Outcome is "end", "abandon" or "" while still open.
	Outcome string
	Answers []store.SessionEvent
}

// HistoryScreen displays past sessions.
type HistoryScreen struct {
	app      *appstate.Container
	sessions []sessionRow
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(app *appstate.Container) *HistoryScreen {
	return &HistoryScreen{
		app:      app,
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	app := s.app
	return func() tea.Msg {
		events, err := app.History(context.Background(), historyLimit)
		return historyLoadedMsg{Events: events, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.sessions = groupSessions(msg.Events)
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.sessions)-1 {
				s.selected++
			}
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
		}
	}
	return s, nil
}

// groupSessions folds newest-first events into sessions, newest first.
func groupSessions(events []store.SessionEvent) []sessionRow {
	byID := make(map[string]*sessionRow)
	var order []string

	// Replay oldest first so answers keep their order.
	for _, ev := range slices.Backward(events) {
		row, ok := byID[ev.SessionID]
		if !ok {
			row = &sessionRow{SessionID: ev.SessionID, Started: ev.Timestamp}
			byID[ev.SessionID] = row
			order = append(order, ev.SessionID)
		}
		switch ev.Action {
		case "start":
			row.Started = ev.Timestamp
			row.Subject = str(ev.Detail["subject"])
			row.Type = practice.Type(str(ev.Detail["type"]))
			row.Goal = num(ev.Detail["goal"])
		case "answer":
			row.Answered++
			if b, _ := ev.Detail["correct"].(bool); b {
				row.Correct++
			}
			row.XP = max(row.XP, num(ev.Detail["total"]))
			row.Answers = append(row.Answers, ev)
		case "end", "abandon":
			row.Outcome = ev.Action
		}
	}

	rows := make([]sessionRow, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		rows = append(rows, *byID[order[i]])
	}
	return rows
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// num reads a JSON number, which decodes as float64.
func num(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func (s *HistoryScreen) View(width, height int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	if s.errMsg != "" {
		return center.Foreground(theme.Error).Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return center.Foreground(theme.TextDim).Render("\n\n  Loading history...")
	}
	if len(s.sessions) == 0 {
		return center.Foreground(theme.TextDim).Italic(true).Render("\n\n  No sessions yet. Start practicing!")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, row := range s.sessions {
		prefix := "  "
		if i == s.selected {
			prefix = "▸ "
		}

		var accuracy float64
		if row.Answered > 0 {
			accuracy = float64(row.Correct) / float64(row.Answered) * 100
		}

		line := fmt.Sprintf("%s%s  %-11s %-8s %3d/%-3d XP  %2d questions  %3.0f%%  %s",
			prefix,
			row.Started.Local().Format("Jan 02 15:04"),
			practice.SubjectName(row.Subject),
			row.Type.DisplayName(),
			row.XP, row.Goal,
			row.Answered,
			accuracy,
			outcomeLabel(row))

		style := theme.Unselected
		if i == s.selected {
			style = theme.Selected
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(renderAnswers(row, width))
		}
	}

	return b.String()
}

func outcomeLabel(row sessionRow) string {
	switch {
	case row.Outcome == "abandon":
		return "left early"
	case row.Outcome == "end" && row.Goal > 0 && row.XP >= row.Goal:
		return "🎯 goal"
	case row.Outcome == "end":
		return "ended"
	}
	return "in progress"
}

func renderAnswers(row sessionRow, width int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
	if len(row.Answers) == 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, dim.Render("    No answers this session")) + "\n"
	}

	var b strings.Builder
	for i, ev := range row.Answers {
		mark, style := "✗", theme.Incorrect
		if c, _ := ev.Detail["correct"].(bool); c {
			mark, style = "✓", theme.Correct
		}
		line := fmt.Sprintf("    %2d. %s  +%d XP  (%d total)", i+1, mark, num(ev.Detail["xp"]), num(ev.Detail["total"]))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}
