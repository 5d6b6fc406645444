// Package devserver serves the practice backend protocol over HTTP from an
// in-process backend, for local development and integration tests.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/practice"
)

const userKey = "user_id"

// Options configures a Server.
type Options struct {
	Addr    string
	Secret  string
	Backend backend.Backend
	Logger  *zap.Logger
	// Registry receives HTTP metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server is the development backend.
type Server struct {
	opts     Options
	log      *zap.Logger
	engine   *gin.Engine
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		opts: opts,
		log:  opts.Logger.Named("devserver"),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "endpoint"},
		),
	}
	opts.Registry.MustRegister(s.requests, s.duration)

	r := gin.New()
	r.Use(gin.Recovery(), s.metricsMiddleware(), s.logMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))

	fn := r.Group("/functions/v1", s.authMiddleware())
	fn.POST("/"+backend.EndpointStart, s.start)
	fn.POST("/"+backend.EndpointNext, s.next)
	fn.POST("/"+backend.EndpointAnswer, s.answer)
	fn.POST("/"+backend.EndpointEnd, s.end)

	rest := r.Group("/rest/v1", s.authMiddleware())
	rest.POST("/rpc/"+backend.EndpointAttempt, s.incrementAttempt)
	rest.GET("/"+backend.EndpointStats, s.stats)
	rest.GET("/"+backend.EndpointUnlocks, s.unlocks)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		s.duration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// authMiddleware verifies the bearer token and stores its subject.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		sub, err := identity.Verify(s.opts.Secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userKey, sub)
		c.Next()
	}
}

// bind decodes the body into req and checks its user id against the token.
func bind(c *gin.Context, req any, userID func() string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if userID() != c.GetString(userKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "user_id does not match token"})
		return false
	}
	return true
}

// queryUser reads a PostgREST style user_id=eq.<id> filter.
func queryUser(c *gin.Context) (string, bool) {
	id := strings.TrimPrefix(c.Query("user_id"), "eq.")
	if id == "" || id != c.GetString(userKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "user_id does not match token"})
		return "", false
	}
	return id, true
}

func (s *Server) fail(c *gin.Context, err error) {
	var be *backend.BackendError
	if errors.As(err, &be) {
		status := be.Status
		if status < 400 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": be.Message})
		return
	}
	s.log.Error("backend call failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) start(c *gin.Context) {
	var req backend.StartRequest
	if !bind(c, &req, func() string { return req.UserID }) {
		return
	}
	resp, err := s.opts.Backend.Start(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) next(c *gin.Context) {
	var req backend.NextRequest
	if !bind(c, &req, func() string { return req.UserID }) {
		return
	}
	resp, err := s.opts.Backend.Next(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) answer(c *gin.Context) {
	var req backend.AnswerRequest
	if !bind(c, &req, func() string { return req.UserID }) {
		return
	}
	resp, err := s.opts.Backend.Answer(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) end(c *gin.Context) {
	var req backend.EndRequest
	if !bind(c, &req, func() string { return req.UserID }) {
		return
	}
	if err := s.opts.Backend.End(c.Request.Context(), req); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) incrementAttempt(c *gin.Context) {
	var req backend.AttemptRequest
	if !bind(c, &req, func() string { return req.UserID }) {
		return
	}
	resp, err := s.opts.Backend.IncrementAttempt(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	if resp.NewlyUnlocked == nil {
		resp.NewlyUnlocked = []practice.Type{}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) stats(c *gin.Context) {
	userID, ok := queryUser(c)
	if !ok {
		return
	}
	stats, err := s.opts.Backend.Stats(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, []any{stats})
}

func (s *Server) unlocks(c *gin.Context) {
	userID, ok := queryUser(c)
	if !ok {
		return
	}
	records, err := s.opts.Backend.Unlocks(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, records)
}
