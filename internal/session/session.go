// Package session drives one practice session against the backend:
// start, then a loop of next question and answer, then end.
package session

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/practice"
)

// Defaults for the background practice-end call.
const (
	DefaultEndAttempts = 2
	DefaultEndBackoff  = 500 * time.Millisecond
	endCallTimeout     = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	Backend  backend.Backend
	Identity identity.Provider
	ExamID   string

	// EndAttempts is how many times practice-end is tried. Default: 2.
	EndAttempts int
	// EndBackoff is the initial wait between practice-end attempts.
	EndBackoff time.Duration

	Logger *zap.Logger
}

// Client owns the authoritative XP and goal counters for the active session.
// It is safe for concurrent use; at most one start, next or answer call is in
// flight at a time.
type Client struct {
	backend     backend.Backend
	ident       identity.Provider
	examID      string
	endAttempts int
	endBackoff  time.Duration
	log         *zap.Logger

	mu          sync.Mutex
	phase       Phase
	userID      string
	sessionID   string
	session     practice.Session
	delivery    *backend.NextResponse
	bonusActive bool
	streak      int
	bestStreak  int
	inflight    uint64 // non-zero while a call is outstanding
	seq         uint64

	ending sync.WaitGroup
}

// NewClient returns an idle Client.
func NewClient(opts Options) *Client {
	c := &Client{
		backend:     opts.Backend,
		ident:       opts.Identity,
		examID:      opts.ExamID,
		endAttempts: opts.EndAttempts,
		endBackoff:  opts.EndBackoff,
		log:         opts.Logger,
	}
	if c.endAttempts <= 0 {
		c.endAttempts = DefaultEndAttempts
	}
	if c.endBackoff <= 0 {
		c.endBackoff = DefaultEndBackoff
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("session")
	return c
}

// State returns a copy of the client state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Phase:       c.phase,
		SessionID:   c.sessionID,
		Session:     c.session,
		BonusActive: c.bonusActive,
		Streak:      c.streak,
		BestStreak:  c.bestStreak,
		Busy:        c.inflight != 0,
	}
	if c.delivery != nil {
		d := *c.delivery
		d.Question.Options = append([]string(nil), d.Question.Options...)
		st.Delivery = &d
	}
	return st
}

// Resume restores a session persisted before a restart. The streak starts
// over and no question is on screen until Next is called.
func (c *Client) Resume(userID, sessionID string, s practice.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID == "" {
		return
	}

	c.userID = userID
	c.sessionID = sessionID
	c.session = s.Normalize()
	c.delivery = nil
	c.bonusActive = false
	c.streak, c.bestStreak = 0, 0
	c.inflight = 0
	c.phase = PhaseActive
	if c.session.GoalReached() {
		c.phase = PhaseEnding
	}
}

// begin marks a call in flight. Caller holds c.mu.
func (c *Client) begin() uint64 {
	c.seq++
	c.inflight = c.seq
	return c.seq
}

// finish clears the in-flight marker if it still belongs to token.
// Caller holds c.mu.
func (c *Client) finish(token uint64) {
	if c.inflight == token {
		c.inflight = 0
	}
}

// Start opens a new session with practice-start.
func (c *Client) Start(ctx context.Context, subject string, practiceType practice.Type, goal int) (*StartResult, error) {
	userID, err := c.ident.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(subject) == "" {
		return nil, &ValidationError{Field: "subject", Message: "Choose a subject to continue."}
	}
	if !practiceType.Valid() {
		return nil, &ValidationError{Field: "practice type", Message: "Choose a practice type to continue."}
	}
	if goal <= 0 {
		return nil, &ValidationError{Field: "goal", Message: "Choose an XP goal to continue."}
	}

	c.mu.Lock()
	if c.inflight != 0 {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	c.phase = PhaseStarting
	token := c.begin()
	c.mu.Unlock()

	resp, err := c.backend.Start(ctx, backend.StartRequest{
		UserID:    userID,
		ExamID:    c.examID,
		SubjectID: subject,
		Mode:      practiceType,
		XPGoal:    goal,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != token {
		return nil, ErrStaleResult
	}
	c.finish(token)

	if err != nil {
		c.phase = PhaseIdle
		c.log.Warn("practice-start failed", zap.Error(err))
		return nil, err
	}

	c.phase = PhaseActive
	c.userID = userID
	c.sessionID = resp.SessionID
	c.session = practice.Session{
		Subject:      subject,
		PracticeType: practiceType,
		XPGoal:       goal,
	}
	c.delivery = nil
	c.bonusActive = false
	c.streak, c.bestStreak = 0, 0

	c.log.Info("session started",
		zap.String("session_id", c.sessionID),
		zap.String("subject", subject),
		zap.String("type", string(practiceType)),
		zap.Int("goal", goal))

	return &StartResult{SessionID: c.sessionID, Session: c.session}, nil
}

// Next fetches the next question. The new delivery replaces, and so
// invalidates, any previous one.
func (c *Client) Next(ctx context.Context) (*NextResult, error) {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return nil, &SessionMissingError{Op: "next question"}
	}
	if c.inflight != 0 {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.phase == PhaseEnding {
		c.mu.Unlock()
		return nil, ErrSessionEnding
	}
	sessionID, userID := c.sessionID, c.userID
	token := c.begin()
	c.mu.Unlock()

	if userID == "" {
		id, err := c.ident.UserID(ctx)
		if err != nil {
			c.mu.Lock()
			c.finish(token)
			c.mu.Unlock()
			return nil, err
		}
		userID = id
	}

	resp, err := c.backend.Next(ctx, backend.NextRequest{UserID: userID, SessionID: sessionID})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish(token)
	if c.sessionID != sessionID {
		return nil, ErrStaleResult
	}
	if err != nil {
		c.log.Warn("practice-next failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	c.userID = userID
	if resp.XPGoal > 0 {
		c.session.XPGoal = resp.XPGoal
	}
	c.session.CurrentXP = min(max(c.session.CurrentXP, resp.XPSoFar), c.session.XPGoal)
	c.bonusActive = resp.BonusActive
	if c.session.GoalReached() {
		// No further answers count once the goal is met.
		c.phase = PhaseEnding
		return nil, ErrSessionEnding
	}
	d := *resp
	c.delivery = &d

	return &NextResult{Delivery: d, Session: c.session}, nil
}

// Submit sends the answer for the question on screen. Empty answers,
// duplicate submissions, answers while ending and deliveries other than the
// current one are rejected without a network call. A failed answer needs a
// fresh question from Next.
func (c *Client) Submit(ctx context.Context, deliveryUUID, answer string, timeTaken time.Duration) (*AnswerResult, error) {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return nil, &SessionMissingError{Op: "submit answer"}
	}
	if strings.TrimSpace(answer) == "" {
		c.mu.Unlock()
		return nil, ErrNoAnswer
	}
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return nil, ErrSessionEnding
	}
	if c.inflight != 0 {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.delivery == nil || c.delivery.DeliveryUUID != deliveryUUID {
		c.mu.Unlock()
		return nil, ErrStaleDelivery
	}
	sessionID, userID := c.sessionID, c.userID
	question := c.delivery.Question
	// A delivery is sent at most once, whatever the outcome.
	c.delivery = nil
	token := c.begin()
	c.mu.Unlock()

	seconds := max(int(math.Round(timeTaken.Seconds())), 0)
	resp, err := c.backend.Answer(ctx, backend.AnswerRequest{
		UserID:           userID,
		SessionID:        sessionID,
		DeliveryUUID:     deliveryUUID,
		Answer:           answer,
		TimeTakenSeconds: seconds,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finish(token)
	if c.sessionID != sessionID {
		return nil, ErrStaleResult
	}
	if err != nil {
		c.log.Warn("practice-answer failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	c.session.QuestionsAnswered++
	c.session.TimeSpent += seconds
	if resp.IsCorrect {
		c.session.CorrectAnswers++
		c.streak++
		c.bestStreak = max(c.bestStreak, c.streak)
	} else {
		c.streak = 0
	}
	c.session.AddXP(resp.XPAwarded)

	goalReached := c.session.GoalReached()
	if goalReached {
		c.phase = PhaseEnding
	}

	return &AnswerResult{
		IsCorrect:     resp.IsCorrect,
		XPAwarded:     resp.XPAwarded,
		CorrectAnswer: question.CorrectAnswer,
		Explanation:   question.Explanation,
		Session:       c.session,
		Streak:        c.streak,
		GoalReached:   goalReached,
	}, nil
}

// End finishes the session. The local session is cleared before End
// returns; practice-end runs in the background and its failures are only
// logged.
func (c *Client) End(ctx context.Context) (*Summary, error) {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return nil, &SessionMissingError{Op: "end session"}
	}
	summary := buildSummary(c.sessionID, c.session, c.bestStreak)
	sessionID, userID := c.sessionID, c.userID
	c.reset()
	c.mu.Unlock()

	c.log.Info("session ended",
		zap.String("session_id", sessionID),
		zap.Int("xp", summary.XPEarned),
		zap.Int("questions", summary.TotalQuestions),
		zap.Bool("goal_reached", summary.GoalReached))

	c.ending.Add(1)
	go func() {
		defer c.ending.Done()
		c.endRemote(context.WithoutCancel(ctx), userID, sessionID)
	}()

	return summary, nil
}

// Reset drops local session state without contacting the backend.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// reset clears local state. Caller holds c.mu.
func (c *Client) reset() {
	c.phase = PhaseIdle
	c.sessionID = ""
	c.session = practice.Session{}
	c.delivery = nil
	c.bonusActive = false
	c.streak, c.bestStreak = 0, 0
	c.inflight = 0
}

// Wait blocks until background practice-end calls finish or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.ending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) endRemote(ctx context.Context, userID, sessionID string) {
	if userID == "" {
		id, err := c.ident.UserID(ctx)
		if err != nil {
			c.log.Warn("practice-end skipped", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
		userID = id
	}

	req := backend.EndRequest{UserID: userID, SessionID: sessionID}
	for attempt := range c.endAttempts {
		callCtx, cancel := context.WithTimeout(ctx, endCallTimeout)
		err := c.backend.End(callCtx, req)
		cancel()
		if err == nil {
			return
		}

		c.log.Warn("practice-end failed",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt == c.endAttempts-1 || Classify(err) != KindNetwork {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff(attempt)):
		}
	}
}

// backoff returns the wait before retry attempt+1 with ±20% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	wait := float64(c.endBackoff) * math.Pow(2, float64(attempt))
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(max(wait, 0))
}
