package backend

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/unlock"
)

// DefaultXP is the XP a correct answer earns per practice type.
var DefaultXP = map[practice.Type]int{
	practice.TypeRecall:  10,
	practice.TypeRefine:  20,
	practice.TypeConquer: 30,
}

// DefaultBonusStreak is the number of consecutive correct answers after
// which the fake doubles awarded XP.
const DefaultBonusStreak = 3

// FakeOptions configures a Fake. Zero values select the defaults.
type FakeOptions struct {
	Bank        map[string][]Question
	XP          map[practice.Type]int
	BonusStreak int
	Now         func() time.Time
}

// Fake is an in-process Backend. It is safe for concurrent use and backs
// offline mode, the development server and tests.
type Fake struct {
	mu          sync.Mutex
	bank        map[string][]Question
	xp          map[practice.Type]int
	bonusStreak int
	now         func() time.Time

	sessions map[string]*fakeSession
	stats    map[string]unlock.Stats
	unlocks  map[string][]unlock.Unlock
	failures map[string][]error
	calls    map[string]int
}

type fakeSession struct {
	userID   string
	subject  string
	mode     practice.Type
	goal     int
	xp       int
	streak   int
	served   int
	delivery string
	current  Question
	ended    bool
}

var _ Backend = (*Fake)(nil)

// NewFake returns an empty Fake.
func NewFake(opts FakeOptions) *Fake {
	f := &Fake{
		bank:        opts.Bank,
		xp:          opts.XP,
		bonusStreak: opts.BonusStreak,
		now:         opts.Now,
		sessions:    make(map[string]*fakeSession),
		stats:       make(map[string]unlock.Stats),
		unlocks:     make(map[string][]unlock.Unlock),
		failures:    make(map[string][]error),
		calls:       make(map[string]int),
	}
	if f.bank == nil {
		f.bank = DefaultBank
	}
	if f.xp == nil {
		f.xp = DefaultXP
	}
	if f.bonusStreak <= 0 {
		f.bonusStreak = DefaultBonusStreak
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// FailNext queues err as the result of the next call to endpoint.
func (f *Fake) FailNext(endpoint string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[endpoint] = append(f.failures[endpoint], err)
}

// Calls returns how many times endpoint has been called.
func (f *Fake) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// SetStats overwrites a user's attempt counters.
func (f *Fake) SetStats(userID string, s unlock.Stats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[userID] = s
}

// SetUnlocks overwrites a user's unlock records.
func (f *Fake) SetUnlocks(userID string, u []unlock.Unlock) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks[userID] = append([]unlock.Unlock(nil), u...)
}

// enter records a call and pops a queued failure. Caller holds f.mu.
func (f *Fake) enter(endpoint string) error {
	f.calls[endpoint]++
	queue := f.failures[endpoint]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	f.failures[endpoint] = queue[1:]
	return err
}

func badRequest(endpoint, format string, args ...any) error {
	return &BackendError{Endpoint: endpoint, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func (f *Fake) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointStart); err != nil {
		return nil, err
	}

	if req.UserID == "" {
		return nil, badRequest(EndpointStart, "user_id is required")
	}
	if len(f.bank[req.SubjectID]) == 0 {
		return nil, badRequest(EndpointStart, "unknown subject %q", req.SubjectID)
	}
	if !req.Mode.Valid() {
		return nil, badRequest(EndpointStart, "unknown mode %q", req.Mode)
	}
	if req.XPGoal <= 0 {
		return nil, badRequest(EndpointStart, "xp_goal must be positive")
	}
	avail := unlock.Evaluate(f.stats[req.UserID], f.unlocks[req.UserID])
	if !avail.Allows(req.Mode) {
		return nil, badRequest(EndpointStart, "%s practice is locked", req.Mode.DisplayName())
	}

	id := uuid.NewString()
	f.sessions[id] = &fakeSession{
		userID:  req.UserID,
		subject: req.SubjectID,
		mode:    req.Mode,
		goal:    req.XPGoal,
	}
	return &StartResponse{SessionID: id}, nil
}

// session looks up an open session owned by userID. Caller holds f.mu.
func (f *Fake) session(endpoint, userID, sessionID string) (*fakeSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.userID != userID {
		return nil, badRequest(endpoint, "session not found")
	}
	if s.ended {
		return nil, badRequest(endpoint, "session has ended")
	}
	return s, nil
}

func (f *Fake) Next(ctx context.Context, req NextRequest) (*NextResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointNext); err != nil {
		return nil, err
	}

	s, err := f.session(EndpointNext, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	questions := f.bank[s.subject]
	s.current = questions[s.served%len(questions)]
	s.served++
	s.delivery = uuid.NewString()

	return &NextResponse{
		DeliveryUUID: s.delivery,
		Question:     s.current,
		XPSoFar:      s.xp,
		XPGoal:       s.goal,
		BonusActive:  s.streak >= f.bonusStreak,
	}, nil
}

func (f *Fake) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointAnswer); err != nil {
		return nil, err
	}

	s, err := f.session(EndpointAnswer, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if s.delivery == "" || s.delivery != req.DeliveryUUID {
		return nil, badRequest(EndpointAnswer, "delivery is unknown or already answered")
	}
	s.delivery = ""

	resp := &AnswerResponse{Success: true}
	if req.Answer == s.current.CorrectAnswer {
		award := f.xp[s.mode]
		if s.streak >= f.bonusStreak {
			award *= 2
		}
		s.streak++
		s.xp = min(s.xp+award, s.goal)
		resp.IsCorrect = true
		resp.XPAwarded = award
	} else {
		s.streak = 0
	}
	return resp, nil
}

func (f *Fake) End(ctx context.Context, req EndRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointEnd); err != nil {
		return err
	}

	s, ok := f.sessions[req.SessionID]
	if !ok || s.userID != req.UserID {
		return badRequest(EndpointEnd, "session not found")
	}
	s.ended = true
	s.delivery = ""
	return nil
}

func (f *Fake) IncrementAttempt(ctx context.Context, req AttemptRequest) (*AttemptResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointAttempt); err != nil {
		return nil, err
	}

	if req.UserID == "" {
		return nil, badRequest(EndpointAttempt, "user_id is required")
	}
	if !req.PracticeType.Valid() {
		return nil, badRequest(EndpointAttempt, "unknown practice type %q", req.PracticeType)
	}
	inc := req.Increment
	if inc <= 0 {
		inc = 1
	}

	prevStats := f.stats[req.UserID]
	records := f.unlocks[req.UserID]
	prev := unlock.Evaluate(prevStats, records)

	next := prevStats
	switch req.PracticeType {
	case practice.TypeRecall:
		next.RecallAttempts += inc
	case practice.TypeRefine:
		next.RefineAttempts += inc
	case practice.TypeConquer:
		next.ConquerAttempts += inc
	}
	f.stats[req.UserID] = next

	newly := unlock.Newly(prev, unlock.Evaluate(next, records))
	now := f.now()
	for _, t := range newly {
		records = unlock.AppendUnlock(records, t, now)
	}
	f.unlocks[req.UserID] = records

	return &AttemptResponse{
		RecallAttempts:  next.RecallAttempts,
		RefineAttempts:  next.RefineAttempts,
		ConquerAttempts: next.ConquerAttempts,
		NewlyUnlocked:   newly,
	}, nil
}

func (f *Fake) Stats(ctx context.Context, userID string) (*unlock.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointStats); err != nil {
		return nil, err
	}
	s := f.stats[userID]
	return &s, nil
}

func (f *Fake) Unlocks(ctx context.Context, userID string) ([]unlock.Unlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(EndpointUnlocks); err != nil {
		return nil, err
	}
	return append([]unlock.Unlock(nil), f.unlocks[userID]...), nil
}
