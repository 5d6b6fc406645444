// Package quiz is the question loop of a practice session.
package quiz

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/router"
	"github.com/abhisek/examquest/internal/screen"
	"github.com/abhisek/examquest/internal/screens/summary"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/ui/components"
	"github.com/abhisek/examquest/internal/ui/layout"
)

type phase int

const (
	phaseLoading phase = iota
	phaseQuestion
	phaseSubmitting
	phaseFeedback
	phaseEnding
)

// retry selects what "r" re-runs after an error.
type retry int

const (
	retryNone retry = iota
	retryNext
	retryEnd
)

// QuizScreen serves questions until the XP goal is reached or the learner
// ends the session.
type QuizScreen struct {
	app *appstate.Container
	now func() time.Time

	phase    phase
	choice   components.MultiChoice
	result   *session.AnswerResult
	shownAt  time.Time
	elapsed  time.Duration
	showHint bool

	errMsg string
	retry  retry
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)
var _ screen.BackHandler = (*QuizScreen)(nil)

// New creates a QuizScreen for the container's active session.
func New(app *appstate.Container) *QuizScreen {
	return &QuizScreen{app: app, now: time.Now}
}

func (s *QuizScreen) Init() tea.Cmd {
	st := s.app.SessionState()
	switch {
	case st.Phase == session.PhaseEnding:
		s.phase = phaseEnding
		return s.endSession()
	case st.Delivery != nil:
		// Resumed with a question still on screen.
		s.showQuestion(st)
		return tickCmd()
	default:
		return tea.Batch(s.fetchNext(), tickCmd())
	}
}

// Back pauses the session and returns home. The session stays resumable.
func (s *QuizScreen) Back() tea.Cmd {
	return func() tea.Msg { return router.PopToRootMsg{Then: screen.RefreshMsg{}} }
}

func (s *QuizScreen) Title() string {
	return "Practice"
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "" && s.retry != retryNone:
		return []layout.KeyHint{
			{Key: "r", Description: "Retry"},
			{Key: "Esc", Description: "Pause"},
		}
	case s.phase == phaseFeedback:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Continue"},
			{Key: "x", Description: "End session"},
		}
	case s.phase == phaseQuestion:
		return []layout.KeyHint{
			{Key: "↑↓/1-4", Description: "Choose"},
			{Key: "Enter", Description: "Submit"},
			{Key: "h", Description: "Hint"},
			{Key: "x", Description: "End session"},
			{Key: "Esc", Description: "Pause"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Pause"}}
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		if s.phase == phaseQuestion {
			s.elapsed = s.now().Sub(s.shownAt)
		}
		return s, tickCmd()

	case questionReadyMsg:
		return s.handleQuestionReady(msg)

	case answerGradedMsg:
		return s.handleAnswerGraded(msg)

	case sessionEndedMsg:
		if msg.Err != nil {
			s.fail(msg.Err, retryEnd)
			return s, nil
		}
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: summary.New(msg.Summary)}
		}

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *QuizScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		if key == "r" && s.retry != retryNone {
			return s, s.runRetry()
		}
		if s.phase != phaseQuestion {
			return s, nil
		}
		// The question is still open; the next key dismisses the error.
		s.errMsg = ""
	}

	switch s.phase {
	case phaseQuestion:
		switch key {
		case "enter":
			return s, s.submit()
		case "h":
			s.showHint = !s.showHint
			return s, nil
		case "x":
			s.phase = phaseEnding
			return s, s.endSession()
		}
		var cmd tea.Cmd
		s.choice, cmd = s.choice.Update(msg)
		return s, cmd

	case phaseFeedback:
		switch key {
		case "enter", " ":
			if s.result != nil && s.result.GoalReached {
				s.phase = phaseEnding
				return s, s.endSession()
			}
			s.phase = phaseLoading
			return s, s.fetchNext()
		case "x":
			s.phase = phaseEnding
			return s, s.endSession()
		}
	}
	return s, nil
}

func (s *QuizScreen) handleQuestionReady(msg questionReadyMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		if session.Classify(msg.Err) == session.KindRejected && s.app.SessionState().Phase == session.PhaseEnding {
			s.phase = phaseEnding
			return s, s.endSession()
		}
		s.fail(msg.Err, retryNext)
		return s, nil
	}
	s.showQuestion(s.app.SessionState())
	return s, nil
}

func (s *QuizScreen) handleAnswerGraded(msg answerGradedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, session.ErrNoAnswer), errors.Is(msg.Err, session.ErrBusy):
			// Rejected before sending; the question is still answerable.
			s.phase = phaseQuestion
			s.choice.Locked = false
			s.fail(msg.Err, retryNone)
		case errors.Is(msg.Err, session.ErrSessionEnding):
			s.phase = phaseEnding
			return s, s.endSession()
		default:
			// The delivery was used up; recovery fetches a new question.
			s.phase = phaseLoading
			s.fail(msg.Err, retryNext)
		}
		return s, nil
	}
	s.result = msg.Result
	s.choice.Reveal(msg.Result.CorrectAnswer)
	s.phase = phaseFeedback
	return s, nil
}

func (s *QuizScreen) showQuestion(st session.State) {
	if st.Delivery == nil {
		s.phase = phaseLoading
		return
	}
	q := st.Delivery.Question
	s.choice = components.NewMultiChoice(q.Text, q.Options)
	s.result = nil
	s.showHint = false
	s.shownAt = s.now()
	s.elapsed = 0
	s.phase = phaseQuestion
}

func (s *QuizScreen) fail(err error, r retry) {
	s.errMsg = session.Message(err)
	s.retry = retryNone
	if k := session.Classify(err); k.Recoverable() && k != session.KindSessionMissing {
		s.retry = r
	}
}

func (s *QuizScreen) runRetry() tea.Cmd {
	r := s.retry
	s.errMsg = ""
	s.retry = retryNone
	switch r {
	case retryNext:
		s.phase = phaseLoading
		return s.fetchNext()
	case retryEnd:
		return s.endSession()
	}
	return nil
}

func (s *QuizScreen) fetchNext() tea.Cmd {
	app := s.app
	return func() tea.Msg {
		res, err := app.NextQuestion(context.Background())
		return questionReadyMsg{Result: res, Err: err}
	}
}

func (s *QuizScreen) submit() tea.Cmd {
	st := s.app.SessionState()
	if st.Delivery == nil {
		return nil
	}
	app := s.app
	delivery := st.Delivery.DeliveryUUID
	answer := s.choice.Choice()
	taken := s.now().Sub(s.shownAt)
	s.phase = phaseSubmitting
	s.choice.Locked = true
	return func() tea.Msg {
		res, err := app.SubmitAnswer(context.Background(), delivery, answer, taken)
		return answerGradedMsg{Result: res, Err: err}
	}
}

func (s *QuizScreen) endSession() tea.Cmd {
	app := s.app
	return func() tea.Msg {
		sum, err := app.EndSession(context.Background())
		return sessionEndedMsg{Summary: sum, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}
