// Package escalation implements decision.Escalator by combining the
// queue with the status store: enqueuing an ambiguous query creates
// its QUEUED status record in the same call, so a client polling
// /v1/status/{request_id} immediately after the synchronous response
// finds a record rather than a transient 404.
package escalation

import (
	"context"
	"fmt"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/queue"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/status"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/types"
)

// Escalator wires the queue and status store together behind
// decision.Escalator's single-method interface.
type Escalator struct {
	q      *queue.Queue
	status *status.Store
}

// New builds an Escalator.
func New(q *queue.Queue, s *status.Store) *Escalator {
	return &Escalator{q: q, status: s}
}

// Escalate enqueues query at PriorityNormal for synchronous-path
// escalations, reserving PriorityHigh for any future direct-enqueue
// admin path, then creates the matching status record.
func (e *Escalator) Escalate(query string, hint *types.Candidate, _ configmgr.ConfigVariant) (string, error) {
	payload := queue.Payload{Query: query}
	if hint != nil {
		payload.RuleBasedHint = string(hint.ActionCode)
	}

	requestID, err := e.q.Enqueue(payload, queue.PriorityNormal)
	if err != nil {
		return "", fmt.Errorf("escalation: enqueue failed: %w", err)
	}
	if err := e.status.Create(context.Background(), requestID); err != nil {
		return "", fmt.Errorf("escalation: status create failed: %w", err)
	}
	return requestID, nil
}
