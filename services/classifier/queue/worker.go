package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Processor handles one leased message. It returns an error to trigger
// Nack (and eventual retry/dead-letter); a nil return acknowledges.
type Processor func(ctx context.Context, msg *Message) error

// WorkerPool runs N stateless, interchangeable workers that loop
// dequeue -> process -> ack/nack, modeled on main.go's background-task
// + signal-based graceful shutdown idiom: Stop blocks until every
// worker finishes its current message (a shutdown fence), never
// interrupting mid-process.
type WorkerPool struct {
	q         *Queue
	process   Processor
	workers   int
	pollEvery time.Duration
	log       zerolog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewWorkerPool builds a pool of n workers reading from q.
func NewWorkerPool(q *Queue, n int, pollEvery time.Duration, process Processor, log zerolog.Logger) *WorkerPool {
	if n <= 0 {
		n = 4
	}
	return &WorkerPool{q: q, process: process, workers: n, pollEvery: pollEvery, log: log, stopCh: make(chan struct{})}
}

// Start launches the workers; they run until Stop is called.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := p.q.Dequeue(ctx, p.pollEvery)
		if err != nil {
			if err == ErrTimeout {
				continue
			}
			return
		}

		if procErr := p.process(ctx, msg); procErr != nil {
			p.log.Warn().Err(procErr).Str("request_id", msg.RequestID).Int("worker", id).Msg("queue: processing failed, nacking")
			if nackErr := p.q.Nack(msg.RequestID, procErr); nackErr != nil {
				p.log.Error().Err(nackErr).Str("request_id", msg.RequestID).Msg("queue: nack failed")
			}
			continue
		}
		if ackErr := p.q.Acknowledge(msg.RequestID); ackErr != nil {
			p.log.Error().Err(ackErr).Str("request_id", msg.RequestID).Msg("queue: ack failed")
		}
	}
}

// Stop signals workers to finish their current message and exit, then
// waits for all of them (the shutdown fence).
func (p *WorkerPool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
