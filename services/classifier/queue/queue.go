// Package queue implements the ambiguous-input queue and its worker
// pool. The Producer/Consumer/dead-letter interface shapes and the
// envelope-normalization idiom are grounded directly on the retrieved
// pack's generic job-queue example (Envelope/Producer/Consumer/
// NackWithDeadLetter), adapted from a generic envelope to a
// Message{request_id,created_at,priority,payload,attempt_count,
// last_error} with priority-then-FIFO ordering.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority is the queue's urgency bucket; lower values drain first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 5
	PriorityLow    Priority = 10
)

// Payload carries what the LLM client needs to classify an escalated
// query.
type Payload struct {
	Query           string
	RuleBasedHint   string
	ContextSnapshot map[string]string
}

// Message is one enqueued escalation request.
type Message struct {
	RequestID    string
	CreatedAt    time.Time
	Priority     Priority
	Payload      Payload
	AttemptCount int
	LastError    string

	visibilityDeadline time.Time
	seq                uint64 // tie-break for same-priority FIFO
}

var (
	ErrEmpty   = errors.New("queue: empty")
	ErrTimeout = errors.New("queue: dequeue timed out")
)

// DeadLetterEntry is a message that exhausted its retries.
type DeadLetterEntry struct {
	Message   Message
	FailedAt  time.Time
	LastError string
}

// Config bundles the queue's retry/visibility knobs.
type Config struct {
	MaxRetries    int
	RetryDelay    time.Duration // base for exponential backoff
	MessageTTL    time.Duration
	VisibilityTTL time.Duration
}

// pqItem is one entry in the internal priority heap.
type pqItem struct {
	msg   *Message
	ready time.Time // not dequeue-able until this time (retry delay)
	index int
}

type priorityHeap []*pqItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority < h[j].msg.Priority // lower number = higher priority
	}
	return h[i].msg.seq < h[j].msg.seq // FIFO within same priority
}
func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *priorityHeap) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// dequeuePollInterval bounds how often a blocked Dequeue rechecks for
// newly-ready work; it is the queue's one explicit-sleep suspension
// point, alongside retry backoff.
const dequeuePollInterval = 10 * time.Millisecond

// Queue is an in-process priority queue with lease-based dequeue and a
// dead-letter sink. Safe for concurrent use by many producers and a
// worker pool.
type Queue struct {
	cfg Config

	mu      sync.Mutex
	ready   priorityHeap
	leased  map[string]*pqItem // request_id -> leased item, pending ack/nack
	nextSeq uint64

	deadLetter []DeadLetterEntry
	closed     bool
}

// New builds an empty queue.
func New(cfg Config) *Queue {
	q := &Queue{cfg: cfg, leased: make(map[string]*pqItem)}
	heap.Init(&q.ready)
	return q
}

// Enqueue assigns a fresh request_id, stores the message in
// priority order, and returns the id immediately.
func (q *Queue) Enqueue(payload Payload, priority Priority) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", errors.New("queue: closed")
	}
	msg := &Message{
		RequestID: uuid.NewString(),
		CreatedAt: time.Now(),
		Priority:  priority,
		Payload:   payload,
	}
	q.pushLocked(msg, time.Time{})
	return msg.RequestID, nil
}

func (q *Queue) pushLocked(msg *Message, ready time.Time) {
	msg.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.ready, &pqItem{msg: msg, ready: ready})
}

// Dequeue leases the highest-priority, oldest ready message, polling
// every dequeuePollInterval up to timeout. Returns ErrTimeout if
// nothing became available in time, or ctx.Err() if ctx is cancelled
// first.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Message, error) {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, errors.New("queue: closed")
		}
		if item := q.popReadyLocked(); item != nil {
			item.msg.visibilityDeadline = time.Now().Add(q.cfg.VisibilityTTL)
			q.leased[item.msg.RequestID] = item
			q.mu.Unlock()
			return item.msg, nil
		}
		q.mu.Unlock()

		if !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dequeuePollInterval):
		}
	}
}

// popReadyLocked pops the highest-priority message whose retry delay
// has elapsed, pushing back any not-yet-ready items it had to skip.
func (q *Queue) popReadyLocked() *pqItem {
	if q.ready.Len() == 0 {
		return nil
	}
	var deferred []*pqItem
	var found *pqItem
	now := time.Now()
	for q.ready.Len() > 0 {
		item := heap.Pop(&q.ready).(*pqItem)
		if item.ready.IsZero() || !item.ready.After(now) {
			found = item
			break
		}
		deferred = append(deferred, item)
	}
	for _, d := range deferred {
		heap.Push(&q.ready, d)
	}
	return found
}

// Acknowledge marks a leased message as successfully processed.
func (q *Queue) Acknowledge(requestID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.leased[requestID]; !ok {
		return fmt.Errorf("queue: %s is not leased", requestID)
	}
	delete(q.leased, requestID)
	return nil
}

// Nack reports a processing failure. If the message has exceeded
// max_retries it moves to the dead-letter queue; otherwise it's
// re-enqueued with exponential backoff: retry_delay * 2^(attempt-1).
func (q *Queue) Nack(requestID string, procErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.leased[requestID]
	if !ok {
		return fmt.Errorf("queue: %s is not leased", requestID)
	}
	delete(q.leased, requestID)

	item.msg.AttemptCount++
	if procErr != nil {
		item.msg.LastError = procErr.Error()
	}

	if item.msg.AttemptCount > q.cfg.MaxRetries {
		q.deadLetter = append(q.deadLetter, DeadLetterEntry{
			Message:   *item.msg,
			FailedAt:  time.Now(),
			LastError: item.msg.LastError,
		})
		return nil
	}

	delay := backoffDelay(q.cfg.RetryDelay, item.msg.AttemptCount)
	q.pushLocked(item.msg, time.Now().Add(delay))
	return nil
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := 1 << uint(attempt-1)
	return base * time.Duration(multiplier)
}

// DeadLetters returns a copy of the dead-letter entries accumulated so
// far (FIFO by append order).
func (q *Queue) DeadLetters() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetterEntry, len(q.deadLetter))
	copy(out, q.deadLetter)
	return out
}

// Close stops accepting new work and wakes any blocked Dequeue callers.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len reports the number of messages currently waiting (not leased).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready.Len()
}
