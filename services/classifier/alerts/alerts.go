// Package alerts implements a webhook-backed alert sink with
// per-error-kind frequency suppression inside a sliding window, so
// a noisy failure mode pages once instead of on every request. The
// webhook call itself follows the gateway's PagerDuty Events API client
// (observability/pagerduty.go) — POST a JSON payload, log on failure,
// never block the caller on a slow endpoint.
package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Severity mirrors the gateway's PagerDutySeverity levels.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// defaultThresholds caps how many alerts of a given kind may fire
// within suppressionWindow before subsequent ones are swallowed
// (logged at debug instead) to keep a noisy failure mode from paging
// on every request.
var defaultThresholds = map[string]int{
	"rate_limit":              10,
	"timeout":                 20,
	"server_error":            5,
	"auth_error":              1,
	"context_length_exceeded": 5,
	"unknown_error":           15,
}

const suppressionWindow = time.Hour
const defaultThreshold = 10

// Sink is the webhook-backed alert notifier. It implements llm.AlertSink.
type Sink struct {
	webhookURL string
	client     *http.Client
	log        zerolog.Logger

	mu         sync.Mutex
	recent     map[string][]time.Time
	thresholds map[string]int
}

// NewSink builds an alert sink. An empty webhookURL disables the
// outbound call but alerts are still logged and counted for
// suppression bookkeeping.
func NewSink(webhookURL string, log zerolog.Logger) *Sink {
	return &Sink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        log,
		recent:     make(map[string][]time.Time),
		thresholds: defaultThresholds,
	}
}

// Alert implements llm.AlertSink. kind should be one of the llm
// ErrorKind string values so the per-kind threshold applies; unknown
// kinds fall back to defaultThreshold.
func (s *Sink) Alert(severity, kind, message string) {
	if s.suppressed(kind) {
		s.log.Debug().Str("kind", kind).Msg("alert suppressed by frequency threshold")
		return
	}

	s.log.WithLevel(levelFor(severity)).
		Str("kind", kind).
		Str("severity", severity).
		Msg(message)

	if s.webhookURL == "" {
		return
	}
	go s.postWebhook(severity, kind, message)
}

func levelFor(severity string) zerolog.Level {
	switch Severity(severity) {
	case SeverityCritical, SeverityError:
		return zerolog.ErrorLevel
	case SeverityWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// suppressed records this occurrence and reports whether it exceeds the
// kind's threshold within the sliding window.
func (s *Sink) suppressed(kind string) bool {
	threshold, ok := s.thresholds[kind]
	if !ok {
		threshold = defaultThreshold
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-suppressionWindow)
	hist := s.recent[kind]
	kept := hist[:0]
	for _, t := range hist {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.recent[kind] = kept

	return len(kept) > threshold
}

type webhookPayload struct {
	Severity  string `json:"severity"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Sink) postWebhook(severity, kind, message string) {
	body, err := json.Marshal(webhookPayload{
		Severity:  severity,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("alert: marshal webhook payload failed")
		return
	}
	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		s.log.Error().Err(err).Msg("alert: webhook call failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		s.log.Error().Int("status", resp.StatusCode).Msg("alert: webhook returned error status")
	}
}

var _ fmt.Stringer = Severity("")

func (s Severity) String() string { return string(s) }
