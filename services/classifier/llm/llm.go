// Package llm implements the resilient client that escalates an
// ambiguous query to a language model. Retry/backoff-with-jitter and
// the success/failure parsing are authored fresh (the gateway's own
// providers call out over plain http.Client with no retry loop at
// all), grounded on the status-code-to-retry-classification idiom in
// the retrieved pack's temporal-agent-harness LLM client
// (classifyByStatusCode) combined with the gateway's general
// zerolog+context.WithTimeout style.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/taxonomy"
)

// ErrorKind classifies why a call failed, driving the retry decision.
type ErrorKind string

const (
	ErrTimeout               ErrorKind = "timeout"
	ErrRateLimit             ErrorKind = "rate_limit"
	ErrServerError           ErrorKind = "server_error"
	ErrAuth                  ErrorKind = "auth_error"
	ErrContextLengthExceeded ErrorKind = "context_length_exceeded"
	ErrUnknown               ErrorKind = "unknown_error"
	ErrBudgetExceeded        ErrorKind = "budget_exceeded"
)

// Retryable reports whether this kind of failure is worth retrying.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTimeout, ErrRateLimit, ErrServerError, ErrUnknown:
		return true
	default:
		return false
	}
}

// ClientError wraps a classified LLM-call failure.
type ClientError struct {
	Kind    ErrorKind
	Message string
}

func (e *ClientError) Error() string { return fmt.Sprintf("llm: %s: %s", e.Kind, e.Message) }

// classifyByStatusCode maps an HTTP status (and any transport error) to
// an ErrorKind, the way the pack's temporal-agent-harness LLM client
// classifies activity errors by status code.
func classifyByStatusCode(statusCode int, err error) ErrorKind {
	switch {
	case err != nil && isTimeoutErr(err):
		return ErrTimeout
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrAuth
	case statusCode == http.StatusRequestEntityTooLarge || statusCode == 422:
		return ErrContextLengthExceeded
	case statusCode >= 500:
		return ErrServerError
	case statusCode >= 400 && statusCode < 500:
		return ErrUnknown
	default:
		return ErrUnknown
	}
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "timeout")
}

// RawEntities holds the LLM's entity output as an untyped map; the
// typed struct is types.Entities, which entities.Merge fills from it.
type RawEntities map[string]any

// Result is what a successful classify call produces.
type Result struct {
	ActionCode taxonomy.ActionCode
	Confidence float64
	Entities   RawEntities
	Reasoning  string

	PromptTokens     int
	CompletionTokens int
	Cost             float64
	LatencyMS        int64
}

// Context is the recent-turn context passed alongside the query.
type Context struct {
	SessionID      string
	RecentMessages []string
}

// Config bundles the client's resilience knobs.
type Config struct {
	Endpoint          string
	APIKey            string
	Model             string
	MaxRetries        int
	BaseBackoff       time.Duration
	RequestTimeout    time.Duration
	MaxCostPerRequest float64
	PromptVersion     string
}

// RateLimiter is the subset of costmonitor.Limiter the client depends
// on; kept as an interface here to avoid an import cycle (costmonitor
// itself doesn't need llm).
type RateLimiter interface {
	Allow() bool
}

// UsageRecorder is the subset of costmonitor.Tracker the client
// depends on.
type UsageRecorder interface {
	Record(model string, promptTokens, completionTokens int, cost float64, latency time.Duration)
}

// AlertSink lets the client raise alerts without importing the alerts
// package's concrete sink.
type AlertSink interface {
	Alert(severity, kind, message string)
}

// Client classifies queries through a remote language model.
type Client struct {
	cfg     Config
	pool    *ConnectionPool
	pricing *PricingTable
	limiter RateLimiter
	usage   UsageRecorder
	alerts  AlertSink
	log     zerolog.Logger
}

// NewClient builds the LLM client.
func NewClient(cfg Config, pool *ConnectionPool, pricing *PricingTable, limiter RateLimiter, usage UsageRecorder, alerts AlertSink, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, pool: pool, pricing: pricing, limiter: limiter, usage: usage, alerts: alerts, log: log}
}

type wireRequest struct {
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Query        string   `json:"query"`
	Context      []string `json:"context,omitempty"`
}

type wireResponse struct {
	ActionCode       string         `json:"action_code"`
	Confidence       float64        `json:"confidence"`
	Entities         map[string]any `json:"entities"`
	Reasoning        string         `json:"reasoning"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
}

// Classify escalates query to the model, retrying per the classified
// error kind with exponential backoff + jitter, and enforcing the
// per-request cost ceiling before ever calling the network.
func (c *Client) Classify(ctx context.Context, query string, llmCtx Context, validActionCodes map[taxonomy.ActionCode]struct{}) (Result, error) {
	estimatedPromptTokens := EstimateTokens(query) + EstimateTokens(strings.Join(llmCtx.RecentMessages, " ")) + EstimateTokens(c.systemPrompt())
	estimatedCompletionTokens := 200
	projectedCost := c.pricing.Cost(c.cfg.Model, estimatedPromptTokens, estimatedCompletionTokens)
	if c.cfg.MaxCostPerRequest > 0 && projectedCost > c.cfg.MaxCostPerRequest {
		return Result{}, &ClientError{Kind: ErrBudgetExceeded, Message: "projected cost exceeds max_cost_per_request"}
	}

	if c.limiter != nil && !c.limiter.Allow() {
		return Result{}, &ClientError{Kind: ErrRateLimit, Message: "rate limit exceeded"}
	}

	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	base := c.cfg.BaseBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := c.callOnce(ctx, query, llmCtx, validActionCodes)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var cerr *ClientError
		if ce, ok := err.(*ClientError); ok {
			cerr = ce
		} else {
			cerr = &ClientError{Kind: ErrUnknown, Message: err.Error()}
		}

		switch cerr.Kind {
		case ErrAuth:
			if c.alerts != nil {
				c.alerts.Alert("critical", string(ErrAuth), "LLM auth failure, no retry")
			}
			return Result{}, cerr
		case ErrContextLengthExceeded:
			return Result{}, cerr
		}
		if !cerr.Kind.Retryable() || attempt == maxRetries {
			if c.alerts != nil {
				c.alerts.Alert("critical", "all_retries_failed", fmt.Sprintf("LLM call failed after %d attempts: %v", attempt, cerr))
			}
			return Result{}, cerr
		}

		if cerr.Kind == ErrRateLimit && c.alerts != nil {
			c.alerts.Alert("warning", string(ErrRateLimit), "LLM rate limited, retrying")
		}

		delay := backoffWithJitter(base, attempt)
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return Result{}, lastErr
}

func backoffWithJitter(base time.Duration, attempt int) time.Duration {
	multiplier := 1 << uint(attempt-1)
	backoff := base * time.Duration(multiplier)
	jitter := time.Duration(rand.Int63n(int64(backoff) / 10)) // up to 10%
	return backoff + jitter
}

func (c *Client) systemPrompt() string {
	return fmt.Sprintf("classify-v%s: respond with JSON {action_code, confidence, entities, reasoning}", c.cfg.PromptVersion)
}

func (c *Client) callOnce(ctx context.Context, query string, llmCtx Context, validActionCodes map[taxonomy.ActionCode]struct{}) (Result, error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(wireRequest{
		Model:        c.cfg.Model,
		SystemPrompt: c.systemPrompt(),
		Query:        query,
		Context:      llmCtx.RecentMessages,
	})
	if err != nil {
		return Result{}, &ClientError{Kind: ErrUnknown, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, &ClientError{Kind: ErrUnknown, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.pool.Client(c.cfg.RequestTimeout).Do(req)
	latency := time.Since(start)
	if err != nil {
		kind := classifyByStatusCode(0, err)
		return Result{}, &ClientError{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := classifyByStatusCode(resp.StatusCode, nil)
		return Result{}, &ClientError{Kind: kind, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &ClientError{Kind: ErrUnknown, Message: err.Error()}
	}
	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return Result{}, &ClientError{Kind: ErrUnknown, Message: "malformed response: " + err.Error()}
	}

	code := taxonomy.ActionCode(wr.ActionCode)
	if validActionCodes != nil {
		if _, ok := validActionCodes[code]; !ok {
			code = ""
		}
	}

	cost := c.pricing.Cost(c.cfg.Model, wr.PromptTokens, wr.CompletionTokens)
	if c.usage != nil {
		c.usage.Record(c.cfg.Model, wr.PromptTokens, wr.CompletionTokens, cost, latency)
	}

	return Result{
		ActionCode:       code,
		Confidence:       clamp01(wr.Confidence),
		Entities:         wr.Entities,
		Reasoning:        wr.Reasoning,
		PromptTokens:     wr.PromptTokens,
		CompletionTokens: wr.CompletionTokens,
		Cost:             cost,
		LatencyMS:        latency.Milliseconds(),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
