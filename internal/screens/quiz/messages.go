package quiz

import (
	"time"

	"github.com/abhisek/examquest/internal/session"
)

// questionReadyMsg is sent when practice-next returns.
type questionReadyMsg struct {
	Result *session.NextResult
	Err    error
}

// answerGradedMsg is sent when practice-answer returns.
type answerGradedMsg struct {
	Result *session.AnswerResult
	Err    error
}

// sessionEndedMsg is sent once the session is closed locally.
type sessionEndedMsg struct {
	Summary *session.Summary
	Err     error
}

// timerTickMsg is sent every second to update the elapsed clock.
type timerTickMsg time.Time
