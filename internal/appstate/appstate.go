// Package appstate is the composition root shared by every screen. It
// hydrates durable state from the store, exposes actions that mutate it,
// and schedules a write-back at the end of each action.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/pet"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/store"
	"github.com/abhisek/examquest/internal/unlock"
)

// Options holds the container's collaborators.
type Options struct {
	KV         store.KV
	Writer     *store.Writer
	SessionLog store.SessionLog
	Session    *session.Client
	Backend    backend.Backend
	Identity   identity.Provider
	Logger     *zap.Logger
	Now        func() time.Time
}

// Container holds every durable entity plus the session client.
type Container struct {
	kv      store.KV
	writer  *store.Writer
	events  store.SessionLog
	sess    *session.Client
	backend backend.Backend
	ident   identity.Provider
	log     *zap.Logger
	now     func() time.Time

	mu         sync.Mutex
	ready      bool
	userID     string
	progress   practice.Progress
	active     *practice.Session
	stats      unlock.Stats
	unlocks    []unlock.Unlock
	pet        pet.State
	celebrated []practice.Type
	pending    []practice.Type

	// epoch advances on sign-out; network results from an older epoch are dropped.
	epoch uint64
}

// New returns a container holding defaults. Call Hydrate before use.
func New(opts Options) *Container {
	c := &Container{
		kv:      opts.KV,
		writer:  opts.Writer,
		events:  opts.SessionLog,
		sess:    opts.Session,
		backend: opts.Backend,
		ident:   opts.Identity,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("appstate")
	if c.now == nil {
		c.now = time.Now
	}
	c.resetLocked()
	return c
}

// resetLocked restores every entity to its default. Caller holds c.mu.
func (c *Container) resetLocked() {
	c.userID = ""
	c.progress = practice.NewProgress()
	c.active = nil
	c.stats = unlock.Stats{}
	c.unlocks = nil
	c.pet = pet.Default(c.now())
	c.celebrated = nil
	c.pending = nil
}

// Hydrate loads every durable key. Missing and legacy values fall back to
// defaults; the container is Ready afterwards even when a read failed.
func (c *Container) Hydrate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	var errs []error
	load := func(key string, v any) bool {
		ok, err := store.GetJSON(ctx, c.kv, key, v)
		switch {
		case errors.Is(err, store.ErrLegacyValue):
			c.log.Warn("ignoring legacy value", zap.String("key", key), zap.Error(err))
			return false
		case err != nil:
			errs = append(errs, err)
			return false
		}
		return ok
	}

	var progress practice.Progress
	if load(store.KeyProgress, &progress) {
		c.progress = progress.Normalize()
	}

	var sess practice.Session
	if load(store.KeySession, &sess) && c.progress.SessionID != nil {
		s := sess.Normalize()
		c.active = &s
	}

	var stats unlock.Stats
	if load(store.KeyStats, &stats) {
		c.stats = stats
	}

	var unlocks []unlock.Unlock
	if load(store.KeyUnlocks, &unlocks) {
		c.unlocks = unlocks
	}

	now := c.now()
	var p pet.State
	if load(store.KeyPet, &p) {
		c.pet = pet.Normalize(p, now)
	}
	c.pet = pet.Tick(c.pet, now)

	var celebrated []practice.Type
	if load(store.KeyCelebrated, &celebrated) {
		c.celebrated = celebrated
	}

	var userID string
	if load(store.KeyAuthUser, &userID) {
		c.userID = userID
	}

	if c.active != nil {
		c.sess.Resume(c.userID, *c.progress.SessionID, *c.active)
	} else if c.progress.SessionID != nil {
		// A session id without its session record cannot be resumed.
		c.progress.SessionID = nil
		c.persistLocked(store.KeyProgress, c.progress)
	}

	c.ready = true
	c.log.Info("hydrated",
		zap.Int("step", c.progress.CurrentStep),
		zap.Bool("session", c.active != nil))
	return errors.Join(errs...)
}

// Ready reports whether hydration has completed.
func (c *Container) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// persistLocked schedules a write-back of v. Caller holds c.mu.
func (c *Container) persistLocked(key string, v any) {
	if err := c.writer.ScheduleJSON(key, v); err != nil {
		c.log.Warn("schedule write failed", zap.String("key", key), zap.Error(err))
	}
}

// recordLocked appends to the local session log. Failures are logged only.
// Caller holds c.mu so an append cannot race a sign-out clearing the log.
func (c *Container) recordLocked(ctx context.Context, sessionID, action string, detail map[string]any) {
	if c.events == nil {
		return
	}
	ev := store.SessionEvent{SessionID: sessionID, Action: action, Detail: detail, Timestamp: c.now()}
	if err := c.events.Append(context.WithoutCancel(ctx), ev); err != nil {
		c.log.Warn("session log append failed", zap.String("action", action), zap.Error(err))
	}
}

// Progress returns a copy of the wizard progress.
func (c *Container) Progress() practice.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.Clone()
}

// ActiveSession returns the persisted session, if any.
func (c *Container) ActiveSession() (practice.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return practice.Session{}, false
	}
	return *c.active, true
}

// SessionState returns the session client's state.
func (c *Container) SessionState() session.State {
	return c.sess.State()
}

// Stats returns the cached attempt counters.
func (c *Container) Stats() unlock.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Unlocks returns a copy of the cached unlock records.
func (c *Container) Unlocks() []unlock.Unlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.unlocks)
}

// Availability evaluates which practice types can be selected.
func (c *Container) Availability() unlock.Availability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return unlock.Evaluate(c.stats, c.unlocks)
}

// Pet returns the pet state.
func (c *Container) Pet() pet.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pet
}

// UserID returns the last known signed-in user id.
func (c *Container) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// PendingCelebrations returns unlocks not yet announced and clears the
// queue. Each type is returned at most once.
func (c *Container) PendingCelebrations() []practice.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// History returns up to limit local session log events, newest first.
func (c *Container) History(ctx context.Context, limit int) ([]store.SessionEvent, error) {
	if c.events == nil {
		return nil, nil
	}
	return c.events.Recent(ctx, limit)
}

// celebrateLocked queues types not celebrated before. Caller holds c.mu.
func (c *Container) celebrateLocked(types []practice.Type) {
	changed := false
	for _, t := range types {
		if t == practice.TypeRecall || slices.Contains(c.celebrated, t) {
			continue
		}
		c.celebrated = append(c.celebrated, t)
		c.pending = append(c.pending, t)
		changed = true
	}
	if changed {
		c.persistLocked(store.KeyCelebrated, c.celebrated)
	}
}

// SelectSubject records the subject and advances to the type step.
func (c *Container) SelectSubject(id string) error {
	if _, ok := practice.LookupSubject(id); !ok {
		return &session.ValidationError{Field: "subject", Message: "Choose a subject to continue."}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.UpdateStepInfo(practice.StepInfo{Subject: practice.Ptr(id)})
	c.progress.SetStep(practice.StepType)
	c.persistLocked(store.KeyProgress, c.progress)
	return nil
}

// SelectType records the practice type and advances to the goal step.
// Locked types are rejected.
func (c *Container) SelectType(t practice.Type) error {
	if !t.Valid() {
		return &session.ValidationError{Field: "practice type", Message: "Choose a practice type to continue."}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !unlock.Evaluate(c.stats, c.unlocks).Allows(t) {
		return &session.ValidationError{
			Field:   "practice type",
			Message: fmt.Sprintf("%s is locked. Keep practicing to unlock it.", t.DisplayName()),
		}
	}
	c.progress.UpdateStepInfo(practice.StepInfo{Type: practice.Ptr(t)})
	c.progress.SetStep(practice.StepGoal)
	c.persistLocked(store.KeyProgress, c.progress)
	return nil
}

// SelectGoal records the XP goal and advances to the question step.
func (c *Container) SelectGoal(goal int) error {
	if goal <= 0 {
		return &session.ValidationError{Field: "goal", Message: "Choose an XP goal to continue."}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.UpdateStepInfo(practice.StepInfo{Goal: practice.Ptr(goal)})
	c.progress.SetStep(practice.StepQuestions)
	c.persistLocked(store.KeyProgress, c.progress)
	return nil
}

// SetStep moves the wizard cursor.
func (c *Container) SetStep(step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress.SetStep(step)
	c.persistLocked(store.KeyProgress, c.progress)
}

// StartSession starts a session from the wizard selections.
func (c *Container) StartSession(ctx context.Context) (*session.StartResult, error) {
	c.mu.Lock()
	p := c.progress.Clone()
	epoch := c.epoch
	c.mu.Unlock()

	var subject string
	var typ practice.Type
	var goal int
	if p.Subject != nil {
		subject = *p.Subject
	}
	if p.Type != nil {
		typ = *p.Type
	}
	if p.Goal != nil {
		goal = *p.Goal
	}

	res, err := c.sess.Start(ctx, subject, typ, goal)
	if err != nil {
		return nil, err
	}
	var userID string
	if id, err := c.ident.UserID(ctx); err == nil {
		userID = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, session.ErrStaleResult
	}
	s := res.Session
	c.active = &s
	c.progress.UpdateStepInfo(practice.StepInfo{SessionID: practice.Ptr(res.SessionID)})
	c.progress.SetStep(practice.StepQuestions)
	c.persistLocked(store.KeySession, c.active)
	c.persistLocked(store.KeyProgress, c.progress)
	if userID != "" && userID != c.userID {
		c.userID = userID
		c.persistLocked(store.KeyAuthUser, c.userID)
	}

	c.recordLocked(ctx, res.SessionID, "start", map[string]any{
		"subject": subject,
		"type":    string(typ),
		"goal":    goal,
	})
	return res, nil
}

// NextQuestion fetches the next question.
func (c *Container) NextQuestion(ctx context.Context) (*session.NextResult, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	res, err := c.sess.Next(ctx)
	if err != nil {
		if errors.Is(err, session.ErrSessionEnding) {
			// The server reported the goal as met; keep its XP.
			c.saveSessionState(epoch)
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, session.ErrStaleResult
	}
	s := res.Session
	c.active = &s
	c.persistLocked(store.KeySession, c.active)
	return res, nil
}

// saveSessionState persists the session client's current record.
func (c *Container) saveSessionState(epoch uint64) {
	st := c.sess.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || st.SessionID == "" || c.active == nil {
		return
	}
	s := st.Session
	c.active = &s
	c.persistLocked(store.KeySession, c.active)
}

// SubmitAnswer submits an answer, records the attempt with the backend and,
// when the goal is reached, rewards the pet.
func (c *Container) SubmitAnswer(ctx context.Context, deliveryUUID, answer string, timeTaken time.Duration) (*session.AnswerResult, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	res, err := c.sess.Submit(ctx, deliveryUUID, answer, timeTaken)
	if err != nil {
		return nil, err
	}
	sessionID := c.sess.State().SessionID

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil, session.ErrStaleResult
	}
	s := res.Session
	c.active = &s
	c.persistLocked(store.KeySession, c.active)
	if res.GoalReached {
		c.pet = pet.Reward(pet.Tick(c.pet, c.now()))
		c.persistLocked(store.KeyPet, c.pet)
	}
	c.recordLocked(ctx, sessionID, "answer", map[string]any{
		"correct": res.IsCorrect,
		"xp":      res.XPAwarded,
		"total":   res.Session.CurrentXP,
	})
	c.mu.Unlock()

	if err := c.recordAttempt(ctx, res.Session.PracticeType, epoch); err != nil {
		c.log.Warn("attempt not recorded", zap.Error(err))
	}
	return res, nil
}

// EndSession ends the active session and resets the wizard.
func (c *Container) EndSession(ctx context.Context) (*session.Summary, error) {
	summary, err := c.sess.End(ctx)
	if err != nil {
		return nil, err
	}
	c.clearSession()

	c.mu.Lock()
	c.recordLocked(ctx, summary.SessionID, "end", map[string]any{
		"xp":           summary.XPEarned,
		"questions":    summary.TotalQuestions,
		"correct":      summary.TotalCorrect,
		"goal_reached": summary.GoalReached,
	})
	c.mu.Unlock()
	return summary, nil
}

// AbandonSession leaves the wizard. An active session is ended first.
func (c *Container) AbandonSession(ctx context.Context) error {
	summary, err := c.sess.End(ctx)
	var missing *session.SessionMissingError
	if err != nil && !errors.As(err, &missing) {
		return err
	}
	c.clearSession()

	if summary != nil {
		c.mu.Lock()
		c.recordLocked(ctx, summary.SessionID, "abandon", map[string]any{
			"xp":        summary.XPEarned,
			"questions": summary.TotalQuestions,
		})
		c.mu.Unlock()
	}
	return nil
}

func (c *Container) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
	c.progress.Reset()
	c.persistLocked(store.KeySession, nil)
	c.persistLocked(store.KeyProgress, c.progress)
}

// RefreshStats reads the attempt counters and unlock records back from the
// backend. Counters never move backwards and records are never dropped.
func (c *Container) RefreshStats(ctx context.Context) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	userID, err := c.ident.UserID(ctx)
	if err != nil {
		return err
	}
	stats, err := c.backend.Stats(ctx, userID)
	if err != nil {
		return err
	}
	records, err := c.backend.Unlocks(ctx, userID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return session.ErrStaleResult
	}
	prev := unlock.Evaluate(c.stats, c.unlocks)
	c.stats = c.stats.Merge(*stats)
	for _, r := range records {
		c.unlocks = unlock.AppendUnlock(c.unlocks, r.PracticeType, r.UnlockedAt)
	}
	c.celebrateLocked(unlock.Newly(prev, unlock.Evaluate(c.stats, c.unlocks)))
	c.persistLocked(store.KeyStats, c.stats)
	c.persistLocked(store.KeyUnlocks, c.unlocks)
	return nil
}

// RecordAttempt increments the attempt counter for t.
func (c *Container) RecordAttempt(ctx context.Context, t practice.Type) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	return c.recordAttempt(ctx, t, epoch)
}

func (c *Container) recordAttempt(ctx context.Context, t practice.Type, epoch uint64) error {
	userID, err := c.ident.UserID(ctx)
	if err != nil {
		return err
	}
	resp, err := c.backend.IncrementAttempt(ctx, backend.AttemptRequest{UserID: userID, PracticeType: t, Increment: 1})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return session.ErrStaleResult
	}
	now := c.now()
	prev := unlock.Evaluate(c.stats, c.unlocks)
	c.stats = c.stats.Merge(resp.Stats())
	for _, u := range resp.NewlyUnlocked {
		c.unlocks = unlock.AppendUnlock(c.unlocks, u, now)
	}

	newly := slices.Clone(resp.NewlyUnlocked)
	for _, u := range unlock.Newly(prev, unlock.Evaluate(c.stats, c.unlocks)) {
		if !slices.Contains(newly, u) {
			newly = append(newly, u)
		}
	}
	c.celebrateLocked(newly)
	c.persistLocked(store.KeyStats, c.stats)
	c.persistLocked(store.KeyUnlocks, c.unlocks)
	return nil
}

// Feed feeds the pet.
func (c *Container) Feed() pet.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pet = pet.Feed(pet.Tick(c.pet, c.now()))
	c.persistLocked(store.KeyPet, c.pet)
	return c.pet
}

// Play plays with the pet.
func (c *Container) Play() pet.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pet = pet.Play(c.pet, c.now())
	c.persistLocked(store.KeyPet, c.pet)
	return c.pet
}

// TickPet applies temperature drift for elapsed whole minutes. The state is
// only written when it changed.
func (c *Container) TickPet() pet.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := pet.Tick(c.pet, c.now())
	if next != c.pet {
		c.pet = next
		c.persistLocked(store.KeyPet, c.pet)
	}
	return c.pet
}

// SignOut clears every durable key and resets all state. Pending writes are
// discarded first so none can land after the delete, and results of calls
// still in flight are dropped when they return.
func (c *Container) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.writer.Discard()
	c.sess.Reset()

	var errs []error
	if err := c.kv.DeleteAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear store: %w", err))
	}
	if c.events != nil {
		if err := c.events.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear session log: %w", err))
		}
	}

	c.resetLocked()
	c.ready = false
	c.log.Info("signed out")
	return errors.Join(errs...)
}
