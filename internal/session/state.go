package session

import (
	"time"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/practice"
)

// Phase represents the current phase of the session lifecycle.
type Phase int

const (
	PhaseIdle     Phase = iota // No session
	PhaseStarting              // practice-start in flight
	PhaseActive                // Serving questions
	PhaseEnding                // Goal reached, waiting for End
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseEnding:
		return "ending"
	}
	return "unknown"
}

// State is a point-in-time copy of a Client.
type State struct {
	Phase     Phase
	SessionID string
	Session   practice.Session

	// Delivery is the question on screen, nil between questions.
	Delivery    *backend.NextResponse
	BonusActive bool

	// Streak counts consecutive correct answers in this session.
	Streak     int
	BestStreak int

	Busy bool
}

// StartResult is returned by Client.Start.
type StartResult struct {
	SessionID string
	Session   practice.Session
}

// NextResult is returned by Client.Next.
type NextResult struct {
	Delivery backend.NextResponse
	Session  practice.Session
}

// AnswerResult is returned by Client.Submit.
type AnswerResult struct {
	IsCorrect bool
	XPAwarded int

	// CorrectAnswer and Explanation come from the answered question.
	CorrectAnswer string
	Explanation   string

	Session     practice.Session
	Streak      int
	GoalReached bool
}

// Summary holds the data displayed when a session ends.
type Summary struct {
	SessionID      string
	Subject        string
	PracticeType   practice.Type
	XPGoal         int
	XPEarned       int
	TotalQuestions int
	TotalCorrect   int
	Accuracy       float64
	BestStreak     int
	Duration       time.Duration
	GoalReached    bool
}

func buildSummary(sessionID string, s practice.Session, bestStreak int) *Summary {
	return &Summary{
		SessionID:      sessionID,
		Subject:        s.Subject,
		PracticeType:   s.PracticeType,
		XPGoal:         s.XPGoal,
		XPEarned:       s.CurrentXP,
		TotalQuestions: s.QuestionsAnswered,
		TotalCorrect:   s.CorrectAnswers,
		Accuracy:       s.Accuracy(),
		BestStreak:     bestStreak,
		Duration:       time.Duration(s.TimeSpent) * time.Second,
		GoalReached:    s.GoalReached(),
	}
}
