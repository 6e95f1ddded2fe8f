// Package eventqueue merges transport messages and task actions into one ordered stream.
package eventqueue

import (
	"context"
	"errors"
	"sync"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	"go.uber.org/fx"
)

// ErrClosed is returned by Next once the queue is closed and drained.
var ErrClosed = errors.New("event queue closed")

// Module provides the shared queue.
var Module = fx.Provide(New)

// Queue is an unbounded FIFO of events. Push never blocks.
type Queue interface {
	Push(ev entity.Event)
	Next(ctx context.Context) (entity.Event, error)
	Close()
}

type queue struct {
	mu     sync.Mutex
	items  []entity.Event
	closed bool
	// ready has capacity one and holds a token while items may be available.
	ready chan struct{}
}

// New creates an empty queue.
func New() Queue {
	return &queue{ready: make(chan struct{}, 1)}
}

// Push appends an event. Events pushed after Close are still delivered before ErrClosed.
func (q *queue) Push(ev entity.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.signal()
}

// Next blocks until an event is available, the queue is closed and drained, or ctx is done.
func (q *queue) Next(ctx context.Context) (entity.Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				q.signal()
			}
			return ev, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close marks the end of the transport stream.
func (q *queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
