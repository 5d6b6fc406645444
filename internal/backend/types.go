package backend

import (
	"context"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/unlock"
)

// Backend is the remote practice service. Every call is a single
// request/response; implementations never retry on their own.
type Backend interface {
	Start(ctx context.Context, req StartRequest) (*StartResponse, error)
	Next(ctx context.Context, req NextRequest) (*NextResponse, error)
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error)
	End(ctx context.Context, req EndRequest) error

	// IncrementAttempt is the only write path for attempt counters.
	IncrementAttempt(ctx context.Context, req AttemptRequest) (*AttemptResponse, error)

	// Stats and Unlocks read back the durable per-user records.
	Stats(ctx context.Context, userID string) (*unlock.Stats, error)
	Unlocks(ctx context.Context, userID string) ([]unlock.Unlock, error)
}

// StartRequest is the practice-start payload.
type StartRequest struct {
	UserID    string        `json:"user_id"`
	ExamID    string        `json:"exam_id"`
	SubjectID string        `json:"subject_id"`
	Mode      practice.Type `json:"mode"`
	XPGoal    int           `json:"xp_goal"`
}

// StartResponse is the practice-start result.
type StartResponse struct {
	SessionID string `json:"session_id"`
}

// NextRequest is the practice-next payload.
type NextRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Question is one practice question as delivered by the backend.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Hint          string   `json:"hint"`
	Difficulty    string   `json:"difficulty"`
}

// NextResponse is the practice-next result. DeliveryUUID is single-use.
type NextResponse struct {
	DeliveryUUID string   `json:"delivery_uuid"`
	Question     Question `json:"question"`
	XPSoFar      int      `json:"xp_so_far"`
	XPGoal       int      `json:"xp_goal"`
	BonusActive  bool     `json:"bonus_active"`
}

// AnswerRequest is the practice-answer payload.
type AnswerRequest struct {
	UserID           string `json:"user_id"`
	SessionID        string `json:"session_id"`
	DeliveryUUID     string `json:"delivery_uuid"`
	Answer           string `json:"answer"`
	TimeTakenSeconds int    `json:"time_taken_seconds"`
}

// AnswerResponse is the practice-answer result.
type AnswerResponse struct {
	Success   bool `json:"success"`
	IsCorrect bool `json:"is_correct"`
	XPAwarded int  `json:"xp_awarded"`
}

// EndRequest is the practice-end payload.
type EndRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// AttemptRequest is the increment_practice_attempt payload.
type AttemptRequest struct {
	UserID       string        `json:"user_id"`
	PracticeType practice.Type `json:"practice_type"`
	Increment    int           `json:"increment"`
}

// AttemptResponse carries the updated counters and any types unlocked by
// this increment.
type AttemptResponse struct {
	RecallAttempts  int             `json:"recall_attempts"`
	RefineAttempts  int             `json:"refine_attempts"`
	ConquerAttempts int             `json:"conquer_attempts"`
	NewlyUnlocked   []practice.Type `json:"newly_unlocked"`
}

// Stats returns the counters as unlock.Stats.
func (r AttemptResponse) Stats() unlock.Stats {
	return unlock.Stats{
		RecallAttempts:  r.RecallAttempts,
		RefineAttempts:  r.RefineAttempts,
		ConquerAttempts: r.ConquerAttempts,
	}
}
