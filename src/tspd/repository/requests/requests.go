// Package requests tracks the lifecycle of requests received from and sent to the client.
package requests

import (
	"sync"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/clock"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the request ledger.
var Module = fx.Provide(New)

// Incoming is a request received from the client that has not been answered yet.
type Incoming struct {
	ID     jsonrpc2.ID
	Method string
	Start  time.Time
}

// Ledger is the bookkeeping of pending requests. It performs no I/O.
type Ledger interface {
	// RegisterIncoming records a request received from the client.
	RegisterIncoming(id jsonrpc2.ID, method string)
	// CompleteIncoming removes a pending request and records its latency. Completing an unknown
	// or already completed request returns false.
	CompleteIncoming(id jsonrpc2.ID) (Incoming, bool)
	// CancelIncoming removes a pending request without recording its latency.
	CancelIncoming(id jsonrpc2.ID) (Incoming, bool)
	// IsPending reports whether a request is still waiting for its response.
	IsPending(id jsonrpc2.ID) bool
	// PendingCount returns the number of pending incoming requests.
	PendingCount() int

	// RegisterOutgoing allocates the id of a request sent to the client and stores the handler
	// of its response.
	RegisterOutgoing(handler entity.ResponseHandler) jsonrpc2.ID
	// CompleteOutgoing returns the handler of a response at most once.
	CompleteOutgoing(id jsonrpc2.ID) (entity.ResponseHandler, bool)
}

type ledger struct {
	mu       sync.Mutex
	incoming map[jsonrpc2.ID]Incoming
	outgoing map[jsonrpc2.ID]entity.ResponseHandler
	nextID   int32

	clock  clock.Clock
	stats  tally.Scope
	logger *zap.SugaredLogger
}

// Params are the dependencies of the ledger.
type Params struct {
	fx.In

	Clock  clock.Clock
	Stats  tally.Scope
	Logger *zap.SugaredLogger
}

// New creates an empty ledger.
func New(p Params) Ledger {
	return &ledger{
		incoming: make(map[jsonrpc2.ID]Incoming),
		outgoing: make(map[jsonrpc2.ID]entity.ResponseHandler),
		clock:    p.Clock,
		stats:    p.Stats.SubScope("requests"),
		logger:   p.Logger,
	}
}

func (l *ledger) RegisterIncoming(id jsonrpc2.ID, method string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if previous, ok := l.incoming[id]; ok {
		// The client reused an id still in flight. The newer request replaces the older one.
		l.stats.Counter("duplicate_ids").Inc(1)
		l.logger.Warnw("protocol violation: duplicate request id", "id", id, "method", method, "pendingMethod", previous.Method)
	}
	l.incoming[id] = Incoming{ID: id, Method: method, Start: l.clock.Now()}
	l.stats.Counter("registered").Inc(1)
	l.stats.Gauge("pending").Update(float64(len(l.incoming)))
}

func (l *ledger) CompleteIncoming(id jsonrpc2.ID) (Incoming, bool) {
	entry, ok := l.removeIncoming(id)
	if !ok {
		return Incoming{}, false
	}
	l.stats.Counter("completed").Inc(1)
	l.stats.Tagged(map[string]string{"method": entry.Method}).Timer("request_latency").Record(l.clock.Since(entry.Start))
	return entry, true
}

func (l *ledger) CancelIncoming(id jsonrpc2.ID) (Incoming, bool) {
	entry, ok := l.removeIncoming(id)
	if ok {
		l.stats.Counter("canceled").Inc(1)
	}
	return entry, ok
}

func (l *ledger) removeIncoming(id jsonrpc2.ID) (Incoming, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.incoming[id]
	if !ok {
		return Incoming{}, false
	}
	delete(l.incoming, id)
	l.stats.Gauge("pending").Update(float64(len(l.incoming)))
	return entry, true
}

func (l *ledger) IsPending(id jsonrpc2.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.incoming[id]
	return ok
}

func (l *ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.incoming)
}

func (l *ledger) RegisterOutgoing(handler entity.ResponseHandler) jsonrpc2.ID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := jsonrpc2.NewNumberID(l.nextID)
	l.outgoing[id] = handler
	return id
}

func (l *ledger) CompleteOutgoing(id jsonrpc2.ID) (entity.ResponseHandler, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	handler, ok := l.outgoing[id]
	if !ok {
		return nil, false
	}
	delete(l.outgoing, id)
	return handler, true
}
