package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/practice"
)

// gatedBackend blocks Next and Answer until release is closed.
type gatedBackend struct {
	*backend.Fake
	entered chan struct{}
	release chan struct{}
}

func newGated(f *backend.Fake) *gatedBackend {
	return &gatedBackend{Fake: f, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedBackend) Next(ctx context.Context, req backend.NextRequest) (*backend.NextResponse, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Fake.Next(ctx, req)
}

func (g *gatedBackend) Answer(ctx context.Context, req backend.AnswerRequest) (*backend.AnswerResponse, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Fake.Answer(ctx, req)
}

func testIdentity(t *testing.T) identity.Provider {
	t.Helper()
	p, err := identity.Local("secret", "user-1")
	require.NoError(t, err)
	return p
}

func newTestClient(t *testing.T, b backend.Backend) *Client {
	t.Helper()
	return NewClient(Options{
		Backend:    b,
		Identity:   testIdentity(t),
		ExamID:     "general",
		EndBackoff: time.Millisecond,
	})
}

func fortyXP() *backend.Fake {
	return backend.NewFake(backend.FakeOptions{
		XP:          map[practice.Type]int{practice.TypeRecall: 40},
		BonusStreak: 1000,
	})
}

func TestEndToEnd_GoalClampsAndEnds(t *testing.T) {
	ctx := context.Background()
	fake := fortyXP()
	c := newTestClient(t, fake)

	start, err := c.Start(ctx, "physics", practice.TypeRecall, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, start.SessionID)
	assert.Equal(t, 0, start.Session.CurrentXP)
	assert.Equal(t, PhaseActive, c.State().Phase)

	var last *AnswerResult
	var lastDelivery string
	for i := range 3 {
		next, err := c.Next(ctx)
		require.NoError(t, err)
		lastDelivery = next.Delivery.DeliveryUUID

		last, err = c.Submit(ctx, lastDelivery, next.Delivery.Question.CorrectAnswer, 5*time.Second)
		require.NoError(t, err)
		assert.True(t, last.IsCorrect)
		assert.Equal(t, 40, last.XPAwarded)
		assert.Equal(t, i == 2, last.GoalReached)
	}

	assert.Equal(t, 100, last.Session.CurrentXP)
	assert.Equal(t, 3, last.Streak)
	st := c.State()
	assert.Equal(t, PhaseEnding, st.Phase)
	assert.Equal(t, 3, st.Session.QuestionsAnswered)
	assert.Equal(t, 15, st.Session.TimeSpent)

	// A fourth answer is blocked locally.
	_, err = c.Submit(ctx, lastDelivery, "Newton", time.Second)
	assert.ErrorIs(t, err, ErrSessionEnding)
	_, err = c.Next(ctx)
	assert.ErrorIs(t, err, ErrSessionEnding)
	assert.Equal(t, 3, fake.Calls(backend.EndpointAnswer))

	summary, err := c.End(ctx)
	require.NoError(t, err)
	assert.True(t, summary.GoalReached)
	assert.Equal(t, 100, summary.XPEarned)
	assert.Equal(t, 3, summary.BestStreak)
	assert.Equal(t, 1.0, summary.Accuracy)
	assert.Equal(t, 15*time.Second, summary.Duration)

	require.NoError(t, c.Wait(ctx))
	assert.Equal(t, 1, fake.Calls(backend.EndpointEnd))
	assert.Equal(t, PhaseIdle, c.State().Phase)
	assert.Empty(t, c.State().SessionID)
}

func TestStart_Validation(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	c := newTestClient(t, fake)

	tests := []struct {
		name    string
		subject string
		typ     practice.Type
		goal    int
		field   string
	}{
		{"missing subject", "", practice.TypeRecall, 100, "subject"},
		{"missing type", "physics", "", 100, "practice type"},
		{"zero goal", "physics", practice.TypeRecall, 0, "goal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Start(ctx, tt.subject, tt.typ, tt.goal)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, KindValidation, Classify(err))
		})
	}
	assert.Zero(t, fake.Calls(backend.EndpointStart))
}

func TestStart_SignedOut(t *testing.T) {
	fake := backend.NewFake(backend.FakeOptions{})
	c := NewClient(Options{Backend: fake, Identity: identity.FromTokenSource(nil)})

	_, err := c.Start(context.Background(), "physics", practice.TypeRecall, 100)
	assert.Equal(t, KindAuth, Classify(err))
	assert.Zero(t, fake.Calls(backend.EndpointStart))
}

func TestStart_FailureReturnsToIdle(t *testing.T) {
	fake := backend.NewFake(backend.FakeOptions{})
	fake.FailNext(backend.EndpointStart, &backend.NetworkError{Endpoint: backend.EndpointStart, Err: errors.New("down")})
	c := newTestClient(t, fake)

	_, err := c.Start(context.Background(), "physics", practice.TypeRecall, 100)
	assert.Equal(t, KindNetwork, Classify(err))
	assert.Equal(t, PhaseIdle, c.State().Phase)

	_, err = c.Start(context.Background(), "physics", practice.TypeRecall, 100)
	assert.NoError(t, err)
}

func TestStart_WhileActive(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, backend.NewFake(backend.FakeOptions{}))
	_, err := c.Start(ctx, "physics", practice.TypeRecall, 100)
	require.NoError(t, err)

	_, err = c.Start(ctx, "physics", practice.TypeRecall, 100)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestNext_WithoutSession(t *testing.T) {
	c := newTestClient(t, backend.NewFake(backend.FakeOptions{}))
	_, err := c.Next(context.Background())
	var me *SessionMissingError
	assert.True(t, errors.As(err, &me))
	assert.Equal(t, KindSessionMissing, Classify(err))

	_, err = c.End(context.Background())
	assert.True(t, errors.As(err, &me))
}

func TestSubmit_LocalRejections(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	c := newTestClient(t, fake)
	_, err := c.Start(ctx, "physics", practice.TypeRecall, 100)
	require.NoError(t, err)

	first, err := c.Next(ctx)
	require.NoError(t, err)
	second, err := c.Next(ctx)
	require.NoError(t, err)

	_, err = c.Submit(ctx, second.Delivery.DeliveryUUID, "  ", time.Second)
	assert.ErrorIs(t, err, ErrNoAnswer)

	_, err = c.Submit(ctx, first.Delivery.DeliveryUUID, "Newton", time.Second)
	assert.ErrorIs(t, err, ErrStaleDelivery)

	_, err = c.Submit(ctx, "made-up", "Newton", time.Second)
	assert.ErrorIs(t, err, ErrStaleDelivery)

	assert.Zero(t, fake.Calls(backend.EndpointAnswer))
}

func TestSubmit_WhileInFlight(t *testing.T) {
	ctx := context.Background()
	gated := newGated(backend.NewFake(backend.FakeOptions{}))
	c := newTestClient(t, gated)
	_, err := c.Start(ctx, "physics", practice.TypeRecall, 100)
	require.NoError(t, err)

	go func() {
		<-gated.entered
		close(gated.release)
	}()
	next, err := c.Next(ctx)
	require.NoError(t, err)

	gated.release = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, next.Delivery.DeliveryUUID, next.Delivery.Question.CorrectAnswer, time.Second)
		done <- err
	}()
	<-gated.entered

	_, err = c.Submit(ctx, next.Delivery.DeliveryUUID, next.Delivery.Question.CorrectAnswer, time.Second)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Next(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, c.State().Busy)

	close(gated.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gated.Calls(backend.EndpointAnswer))
	assert.False(t, c.State().Busy)
}

func TestNext_StaleResultDropped(t *testing.T) {
	ctx := context.Background()
	gated := newGated(backend.NewFake(backend.FakeOptions{}))
	c := newTestClient(t, gated)
	_, err := c.Start(ctx, "physics", practice.TypeRecall, 100)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Next(ctx)
		done <- err
	}()
	<-gated.entered

	_, err = c.End(ctx)
	require.NoError(t, err)
	close(gated.release)

	assert.ErrorIs(t, <-done, ErrStaleResult)
	assert.Nil(t, c.State().Delivery)
	assert.Equal(t, PhaseIdle, c.State().Phase)
}

func TestSubmit_FailedAnswerConsumesDelivery(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"network", &backend.NetworkError{Endpoint: backend.EndpointAnswer, Err: errors.New("timeout")}},
		{"backend", &backend.BackendError{Endpoint: backend.EndpointAnswer, Status: 500, Message: "internal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fake := backend.NewFake(backend.FakeOptions{})
			c := newTestClient(t, fake)
			_, err := c.Start(ctx, "physics", practice.TypeRecall, 100)
			require.NoError(t, err)
			next, err := c.Next(ctx)
			require.NoError(t, err)

			fake.FailNext(backend.EndpointAnswer, tt.err)
			_, err = c.Submit(ctx, next.Delivery.DeliveryUUID, "Joule", time.Second)
			require.Error(t, err)
			assert.Nil(t, c.State().Delivery)
			assert.Equal(t, 0, c.State().Session.QuestionsAnswered)

			_, err = c.Submit(ctx, next.Delivery.DeliveryUUID, "Joule", time.Second)
			assert.ErrorIs(t, err, ErrStaleDelivery)
			assert.Equal(t, 1, fake.Calls(backend.EndpointAnswer))

			// Recovery goes through a fresh question.
			again, err := c.Next(ctx)
			require.NoError(t, err)
			assert.NotEqual(t, next.Delivery.DeliveryUUID, again.Delivery.DeliveryUUID)
			_, err = c.Submit(ctx, again.Delivery.DeliveryUUID, again.Delivery.Question.CorrectAnswer, time.Second)
			require.NoError(t, err)
			assert.Equal(t, 2, fake.Calls(backend.EndpointAnswer))
		})
	}
}

// goalMetBackend reports the goal as already reached on every Next.
type goalMetBackend struct {
	*backend.Fake
}

func (g goalMetBackend) Next(ctx context.Context, req backend.NextRequest) (*backend.NextResponse, error) {
	resp, err := g.Fake.Next(ctx, req)
	if err != nil {
		return nil, err
	}
	resp.XPSoFar = resp.XPGoal
	return resp, nil
}

func TestNext_GoalAlreadyReached(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	c := newTestClient(t, goalMetBackend{Fake: fake})
	_, err := c.Start(ctx, "physics", practice.TypeRecall, 50)
	require.NoError(t, err)

	res, err := c.Next(ctx)
	assert.ErrorIs(t, err, ErrSessionEnding)
	assert.Nil(t, res)

	st := c.State()
	assert.Equal(t, PhaseEnding, st.Phase)
	assert.Nil(t, st.Delivery)
	assert.Equal(t, 50, st.Session.CurrentXP)

	_, err = c.Submit(ctx, "any", "Newton", time.Second)
	assert.ErrorIs(t, err, ErrSessionEnding)
	assert.Zero(t, fake.Calls(backend.EndpointAnswer))

	summary, err := c.End(ctx)
	require.NoError(t, err)
	assert.True(t, summary.GoalReached)
	require.NoError(t, c.Wait(ctx))
}

func TestXP_MonotonicAndBounded(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{BonusStreak: 2})
	c := newTestClient(t, fake)
	_, err := c.Start(ctx, "chemistry", practice.TypeRecall, 50)
	require.NoError(t, err)

	prev := 0
	for i := 0; c.State().Phase == PhaseActive && i < 20; i++ {
		next, err := c.Next(ctx)
		require.NoError(t, err)
		answer := next.Delivery.Question.CorrectAnswer
		if i%3 == 2 {
			answer = "wrong"
		}
		res, err := c.Submit(ctx, next.Delivery.DeliveryUUID, answer, time.Second)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Session.CurrentXP, prev)
		assert.LessOrEqual(t, res.Session.CurrentXP, res.Session.XPGoal)
		assert.LessOrEqual(t, res.Session.CorrectAnswers, res.Session.QuestionsAnswered)
		prev = res.Session.CurrentXP
	}
	assert.Equal(t, PhaseEnding, c.State().Phase)
}

func TestEnd_RetriesNetworkFailure(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	c := newTestClient(t, fake)
	_, err := c.Start(ctx, "biology", practice.TypeRecall, 100)
	require.NoError(t, err)

	fake.FailNext(backend.EndpointEnd, &backend.NetworkError{Endpoint: backend.EndpointEnd, Err: errors.New("reset")})
	summary, err := c.End(ctx)
	require.NoError(t, err)
	assert.False(t, summary.GoalReached)

	require.NoError(t, c.Wait(ctx))
	assert.Equal(t, 2, fake.Calls(backend.EndpointEnd))
}

func TestEnd_FailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	c := newTestClient(t, fake)
	_, err := c.Start(ctx, "biology", practice.TypeRecall, 100)
	require.NoError(t, err)

	fake.FailNext(backend.EndpointEnd, &backend.BackendError{Endpoint: backend.EndpointEnd, Message: "nope"})
	_, err = c.End(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Wait(ctx))

	// Backend errors are not retried.
	assert.Equal(t, 1, fake.Calls(backend.EndpointEnd))
	assert.Equal(t, PhaseIdle, c.State().Phase)
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	first := newTestClient(t, fake)
	start, err := first.Start(ctx, "physics", practice.TypeRecall, 100)
	require.NoError(t, err)

	c := newTestClient(t, fake)
	c.Resume("", start.SessionID, practice.Session{Subject: "physics", PracticeType: practice.TypeRecall, XPGoal: 100, CurrentXP: 30})
	st := c.State()
	assert.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, 0, st.Streak)
	assert.Nil(t, st.Delivery)

	next, err := c.Next(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, next.Delivery.DeliveryUUID)
	assert.Equal(t, 30, next.Session.CurrentXP)
}

func TestClassifyAndMessage(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
		msg  string
	}{
		{nil, KindNone, ""},
		{&identity.AuthError{}, KindAuth, "Please sign in to continue."},
		{&ValidationError{Field: "goal", Message: "Pick a goal."}, KindValidation, "Pick a goal."},
		{&backend.BackendError{Message: "quota exceeded"}, KindBackend, "quota exceeded"},
		{&backend.MalformedResponseError{Err: errors.New("x")}, KindMalformed, "Something went wrong. Please try again."},
		{context.DeadlineExceeded, KindNetwork, "Network problem. Check your connection and try again."},
		{ErrBusy, KindRejected, ErrBusy.Error()},
		{errors.New("mystery"), KindUnknown, "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, Classify(tt.err), "%v", tt.err)
		assert.Equal(t, tt.msg, Message(tt.err), "%v", tt.err)
	}
	assert.False(t, KindMalformed.Recoverable())
	assert.True(t, KindNetwork.Recoverable())
}
