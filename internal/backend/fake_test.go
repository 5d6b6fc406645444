package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/unlock"
)

func startFake(t *testing.T, f *Fake, mode practice.Type, goal int) string {
	t.Helper()
	resp, err := f.Start(context.Background(), StartRequest{
		UserID: "u1", ExamID: "general", SubjectID: "physics", Mode: mode, XPGoal: goal,
	})
	require.NoError(t, err)
	return resp.SessionID
}

func TestFake_DeliveryIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := NewFake(FakeOptions{})
	sid := startFake(t, f, practice.TypeRecall, 100)

	next, err := f.Next(ctx, NextRequest{UserID: "u1", SessionID: sid})
	require.NoError(t, err)

	req := AnswerRequest{UserID: "u1", SessionID: sid, DeliveryUUID: next.DeliveryUUID, Answer: next.Question.CorrectAnswer}
	resp, err := f.Answer(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, DefaultXP[practice.TypeRecall], resp.XPAwarded)

	_, err = f.Answer(ctx, req)
	var be *BackendError
	assert.True(t, errors.As(err, &be))
}

func TestFake_NewDeliveryInvalidatesOld(t *testing.T) {
	ctx := context.Background()
	f := NewFake(FakeOptions{})
	sid := startFake(t, f, practice.TypeRecall, 100)

	first, err := f.Next(ctx, NextRequest{UserID: "u1", SessionID: sid})
	require.NoError(t, err)
	_, err = f.Next(ctx, NextRequest{UserID: "u1", SessionID: sid})
	require.NoError(t, err)

	_, err = f.Answer(ctx, AnswerRequest{UserID: "u1", SessionID: sid, DeliveryUUID: first.DeliveryUUID, Answer: "x"})
	assert.Error(t, err)
}

func TestFake_BonusAfterStreak(t *testing.T) {
	ctx := context.Background()
	f := NewFake(FakeOptions{BonusStreak: 2, XP: map[practice.Type]int{practice.TypeRecall: 5}})
	sid := startFake(t, f, practice.TypeRecall, 1000)

	var awards []int
	var bonus []bool
	for range 3 {
		next, err := f.Next(ctx, NextRequest{UserID: "u1", SessionID: sid})
		require.NoError(t, err)
		bonus = append(bonus, next.BonusActive)
		resp, err := f.Answer(ctx, AnswerRequest{UserID: "u1", SessionID: sid, DeliveryUUID: next.DeliveryUUID, Answer: next.Question.CorrectAnswer})
		require.NoError(t, err)
		awards = append(awards, resp.XPAwarded)
	}
	assert.Equal(t, []bool{false, false, true}, bonus)
	assert.Equal(t, []int{5, 5, 10}, awards)
}

func TestFake_LockedModeRejected(t *testing.T) {
	f := NewFake(FakeOptions{})
	_, err := f.Start(context.Background(), StartRequest{
		UserID: "u1", SubjectID: "physics", Mode: practice.TypeConquer, XPGoal: 50,
	})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Message, "locked")
}

func TestFake_IncrementAttemptUnlocks(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(FakeOptions{Now: func() time.Time { return at }})
	f.SetStats("u1", unlock.Stats{RecallAttempts: 49})

	resp, err := f.IncrementAttempt(ctx, AttemptRequest{UserID: "u1", PracticeType: practice.TypeRecall, Increment: 1})
	require.NoError(t, err)
	assert.Equal(t, 50, resp.RecallAttempts)
	assert.Equal(t, []practice.Type{practice.TypeRefine}, resp.NewlyUnlocked)

	// A second increment must not announce the same unlock.
	resp, err = f.IncrementAttempt(ctx, AttemptRequest{UserID: "u1", PracticeType: practice.TypeRecall})
	require.NoError(t, err)
	assert.Empty(t, resp.NewlyUnlocked)

	unlocks, err := f.Unlocks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []unlock.Unlock{{PracticeType: practice.TypeRefine, UnlockedAt: at}}, unlocks)

	// Records survive a counter reset.
	f.SetStats("u1", unlock.Stats{})
	stats, err := f.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, unlock.Evaluate(*stats, unlocks).Refine)
}

func TestFake_FailNext(t *testing.T) {
	ctx := context.Background()
	f := NewFake(FakeOptions{})
	boom := &NetworkError{Endpoint: EndpointStart, Err: errors.New("down")}
	f.FailNext(EndpointStart, boom)

	_, err := f.Start(ctx, StartRequest{UserID: "u1", SubjectID: "physics", Mode: practice.TypeRecall, XPGoal: 50})
	assert.ErrorIs(t, err, boom)

	_, err = f.Start(ctx, StartRequest{UserID: "u1", SubjectID: "physics", Mode: practice.TypeRecall, XPGoal: 50})
	assert.NoError(t, err)
	assert.Equal(t, 2, f.Calls(EndpointStart))
}

func TestFake_EndClosesSession(t *testing.T) {
	ctx := context.Background()
	f := NewFake(FakeOptions{})
	sid := startFake(t, f, practice.TypeRecall, 100)

	require.NoError(t, f.End(ctx, EndRequest{UserID: "u1", SessionID: sid}))
	_, err := f.Next(ctx, NextRequest{UserID: "u1", SessionID: sid})
	assert.Error(t, err)
}
