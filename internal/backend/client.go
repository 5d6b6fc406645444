package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/unlock"
)

// Endpoint names, used in paths, errors and metrics.
const (
	EndpointStart   = "practice-start"
	EndpointNext    = "practice-next"
	EndpointAnswer  = "practice-answer"
	EndpointEnd     = "practice-end"
	EndpointAttempt = "increment_practice_attempt"
	EndpointStats   = "practice_stats"
	EndpointUnlocks = "practice_unlocks"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	// Timeout bounds one request when HTTPClient is nil. Default: 15s.
	Timeout    time.Duration
	HTTPClient *http.Client
	Identity   identity.Provider
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Client talks to the practice backend over HTTP.
type Client struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	ident   identity.Provider
	metrics *Metrics
	log     *zap.Logger
}

// NewClient validates opts and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if opts.Identity == nil {
		return nil, errors.New("backend: identity provider is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		base:    base,
		apiKey:  opts.APIKey,
		http:    hc,
		ident:   opts.Identity,
		metrics: opts.Metrics,
		log:     log.Named("backend"),
	}, nil
}

func (c *Client) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := c.call(ctx, EndpointStart, http.MethodPost, c.functionURL(EndpointStart), req, startSchema, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Next(ctx context.Context, req NextRequest) (*NextResponse, error) {
	var resp NextResponse
	if err := c.call(ctx, EndpointNext, http.MethodPost, c.functionURL(EndpointNext), req, nextSchema, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	var resp AnswerResponse
	if err := c.call(ctx, EndpointAnswer, http.MethodPost, c.functionURL(EndpointAnswer), req, answerSchema, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &BackendError{Endpoint: EndpointAnswer, Status: http.StatusOK, Message: "answer was not accepted"}
	}
	return &resp, nil
}

func (c *Client) End(ctx context.Context, req EndRequest) error {
	return c.call(ctx, EndpointEnd, http.MethodPost, c.functionURL(EndpointEnd), req, endSchema, nil)
}

func (c *Client) IncrementAttempt(ctx context.Context, req AttemptRequest) (*AttemptResponse, error) {
	if req.Increment <= 0 {
		req.Increment = 1
	}
	var resp AttemptResponse
	if err := c.call(ctx, EndpointAttempt, http.MethodPost, c.restURL("rpc/"+EndpointAttempt, nil), req, attemptSchema, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Stats(ctx context.Context, userID string) (*unlock.Stats, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "recall_attempts,refine_attempts,conquer_attempts")

	var rows []unlock.Stats
	if err := c.call(ctx, EndpointStats, http.MethodGet, c.restURL(EndpointStats, q), nil, statsSchema, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &unlock.Stats{}, nil
	}
	return &rows[0], nil
}

func (c *Client) Unlocks(ctx context.Context, userID string) ([]unlock.Unlock, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "practice_type,unlocked_at")
	q.Set("order", "unlocked_at.asc")

	var rows []unlock.Unlock
	if err := c.call(ctx, EndpointUnlocks, http.MethodGet, c.restURL(EndpointUnlocks, q), nil, unlocksSchema, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) functionURL(name string) string {
	return c.base.JoinPath("functions", "v1", name).String()
}

func (c *Client) restURL(path string, q url.Values) string {
	u := c.base.JoinPath("rest", "v1", path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// call performs one request/response exchange. out may be nil when the
// response body is ignored.
func (c *Client) call(ctx context.Context, endpoint, method, target string, body any, schema *Schema, out any) error {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		c.metrics.observe(endpoint, outcome, time.Since(start))
	}()

	token, err := c.ident.Token(ctx)
	if err != nil {
		outcome = OutcomeAuth
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With(zap.String("endpoint", endpoint), zap.String("request_id", requestID))

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = OutcomeNetwork
		log.Warn("request failed", zap.Error(err))
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		outcome = OutcomeNetwork
		return &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = OutcomeBackend
		msg := errorMessage(raw)
		if msg == "" {
			msg = statusMessage(raw)
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Warn("backend error", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return &BackendError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		if out == nil {
			return nil
		}
		outcome = OutcomeMalformed
		return &MalformedResponseError{Endpoint: endpoint, Err: errors.New("empty body")}
	}

	if msg := errorMessage(raw); msg != "" {
		outcome = OutcomeBackend
		log.Warn("backend error", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return &BackendError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}

	if _, err := validateResponse(schema, raw); err != nil {
		outcome = OutcomeMalformed
		log.Warn("malformed response", zap.Error(err))
		return &MalformedResponseError{Endpoint: endpoint, Body: json.RawMessage(raw), Err: err}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		outcome = OutcomeMalformed
		return &MalformedResponseError{Endpoint: endpoint, Body: json.RawMessage(raw), Err: err}
	}

	log.Debug("call ok", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// errorMessage extracts the "error" field of an object body.
func errorMessage(raw []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if len(env.Error) > 0 && string(env.Error) != "null" {
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		return string(env.Error)
	}
	return ""
}

// statusMessage reads the "message" field that non-2xx bodies may carry.
func statusMessage(raw []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Message
}
