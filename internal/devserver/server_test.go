package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/unlock"
)

const testSecret = "dev-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, fake *backend.Fake) (*httptest.Server, *Server) {
	t.Helper()
	s := New(Options{Secret: testSecret, Backend: fake, Registry: prometheus.NewRegistry()})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func clientFor(t *testing.T, baseURL, userID string) *backend.Client {
	t.Helper()
	ident, err := identity.Local(testSecret, userID)
	require.NoError(t, err)
	c, err := backend.NewClient(backend.Options{BaseURL: baseURL, Identity: ident, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestServer_FullProtocol(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake(backend.FakeOptions{})
	srv, _ := newTestServer(t, fake)
	c := clientFor(t, srv.URL, "user-1")

	start, err := c.Start(ctx, backend.StartRequest{
		UserID: "user-1", ExamID: "general", SubjectID: "mathematics", Mode: practice.TypeRecall, XPGoal: 50,
	})
	require.NoError(t, err)

	next, err := c.Next(ctx, backend.NextRequest{UserID: "user-1", SessionID: start.SessionID})
	require.NoError(t, err)
	assert.NotEmpty(t, next.Question.Options)
	assert.Equal(t, 50, next.XPGoal)

	ans, err := c.Answer(ctx, backend.AnswerRequest{
		UserID: "user-1", SessionID: start.SessionID, DeliveryUUID: next.DeliveryUUID,
		Answer: next.Question.CorrectAnswer, TimeTakenSeconds: 3,
	})
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)

	// Replaying the delivery is refused with the backend's message.
	_, err = c.Answer(ctx, backend.AnswerRequest{
		UserID: "user-1", SessionID: start.SessionID, DeliveryUUID: next.DeliveryUUID, Answer: "x",
	})
	var be *backend.BackendError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Message, "already answered")

	attempt, err := c.IncrementAttempt(ctx, backend.AttemptRequest{UserID: "user-1", PracticeType: practice.TypeRecall})
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.RecallAttempts)

	stats, err := c.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RecallAttempts)

	unlocks, err := c.Unlocks(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, unlocks)

	require.NoError(t, c.End(ctx, backend.EndRequest{UserID: "user-1", SessionID: start.SessionID}))
}

func TestServer_UnlocksRoundTrip(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	fake := backend.NewFake(backend.FakeOptions{Now: func() time.Time { return at }})
	fake.SetStats("user-1", unlock.Stats{RecallAttempts: 49})
	srv, _ := newTestServer(t, fake)
	c := clientFor(t, srv.URL, "user-1")

	resp, err := c.IncrementAttempt(ctx, backend.AttemptRequest{UserID: "user-1", PracticeType: practice.TypeRecall})
	require.NoError(t, err)
	assert.Equal(t, []practice.Type{practice.TypeRefine}, resp.NewlyUnlocked)

	unlocks, err := c.Unlocks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.True(t, at.Equal(unlocks[0].UnlockedAt))
}

func TestServer_RejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t, backend.NewFake(backend.FakeOptions{}))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/functions/v1/practice-start", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ident, err := identity.Local("wrong-secret", "user-1")
	require.NoError(t, err)
	c, err := backend.NewClient(backend.Options{BaseURL: srv.URL, Identity: ident})
	require.NoError(t, err)
	_, err = c.Start(context.Background(), backend.StartRequest{UserID: "user-1"})
	var be *backend.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnauthorized, be.Status)
}

func TestServer_RejectsForeignUser(t *testing.T) {
	srv, _ := newTestServer(t, backend.NewFake(backend.FakeOptions{}))
	c := clientFor(t, srv.URL, "user-1")

	_, err := c.Start(context.Background(), backend.StartRequest{
		UserID: "user-2", SubjectID: "physics", Mode: practice.TypeRecall, XPGoal: 50,
	})
	var be *backend.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusForbidden, be.Status)

	_, err = c.Stats(context.Background(), "user-2")
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusForbidden, be.Status)
}

func TestServer_Metrics(t *testing.T) {
	srv, s := newTestServer(t, backend.NewFake(backend.FakeOptions{}))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.requests.WithLabelValues(http.MethodGet, "/healthz", "200")))
}
