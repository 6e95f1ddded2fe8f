// Package typeserver answers Type Server Protocol queries.
package typeserver

import (
	"context"
	"sync"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/resolver"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/semantic"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/typeid"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	tspprotocol "github.com/uber/tsp-lsp/src/tspd/internal/protocol"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the type server Controller.
var Module = fx.Provide(New)

// Controller answers type queries against a snapshot. It is safe for concurrent use by workers.
type Controller interface {
	// GetType returns the type of the expression nearest to the requested range.
	GetType(ctx context.Context, snapshot *session.Snapshot, params entity.GetTypeParams) (*entity.Type, error)
	// GetTypeArgs returns the members of a union type in order, and an empty list for any other
	// type or for handles that were not returned by GetType at the current revision.
	GetTypeArgs(ctx context.Context, snapshot *session.Snapshot, params entity.GetTypeArgsParams) ([]entity.Type, error)
}

// Params are the dependencies of the Controller.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type controller struct {
	handles *handleTable
	logger  *zap.SugaredLogger
	stats   tally.Scope
}

// New creates a type server Controller.
func New(p Params) Controller {
	return &controller{
		handles: newHandleTable(),
		logger:  p.Logger,
		stats:   p.Stats.SubScope("typeserver"),
	}
}

func (c *controller) GetType(ctx context.Context, snapshot *session.Snapshot, params entity.GetTypeParams) (*entity.Type, error) {
	documentURI := mapper.ToDocumentURI(params.Node.URI)
	if params.Snapshot != nil && *params.Snapshot != snapshot.Revision() {
		c.logger.Debugw("answering from a different snapshot", "requested", *params.Snapshot, "revision", snapshot.Revision())
	}

	doc, err := snapshot.Document(ctx, documentURI)
	if err != nil {
		return nil, err
	}

	start, end := tspprotocol.NewTextOffsetMapper(doc.Tree.Source).RangeOffsets(params.Node.Range)
	resolved, ok := resolver.Nearest(doc.Tree.Root, uint32(start), uint32(end))
	if !ok {
		return nil, &errors.NoNodeFoundError{
			Document: protocol.TextDocumentIdentifier{URI: documentURI},
			Start:    start,
			End:      end,
		}
	}

	t := semantic.NewEngine(ctx, snapshot).TypeOf(doc, resolved.Node)
	projected := c.record(snapshot.Revision(), t)
	c.logger.Debugw("resolved type",
		"uri", documentURI,
		"node", resolved.Node.Kind,
		"scope", resolved.ScopeKind.String(),
		"type", t.Describe(),
		"handle", projected.Handle.String(),
	)
	return &projected, nil
}

func (c *controller) GetTypeArgs(ctx context.Context, snapshot *session.Snapshot, params entity.GetTypeArgsParams) ([]entity.Type, error) {
	t, ok := c.handles.lookup(snapshot.Revision(), params.Type.Handle)
	if !ok {
		c.stats.Counter("unknown_handles").Inc(1)
		c.logger.Warnw("unknown type handle", "handle", params.Type.Handle.String(), "name", params.Type.Name, "revision", snapshot.Revision())
		return []entity.Type{}, nil
	}

	args := typeid.TypeArgs(t)
	result := make([]entity.Type, 0, len(args))
	for _, arg := range args {
		result = append(result, c.record(snapshot.Revision(), arg))
	}
	return result, nil
}

func (c *controller) record(revision entity.Revision, t semantic.Type) entity.Type {
	projected := typeid.Project(t)
	c.handles.store(revision, projected.Handle, t)
	return projected
}

// handleTable maps handles returned at one revision back to their semantic types. Entries of an
// older revision are dropped once a newer revision is stored.
type handleTable struct {
	mu       sync.Mutex
	revision entity.Revision
	types    map[entity.TypeHandle]semantic.Type
}

func newHandleTable() *handleTable {
	return &handleTable{types: make(map[entity.TypeHandle]semantic.Type)}
}

func (h *handleTable) store(revision entity.Revision, handle entity.TypeHandle, t semantic.Type) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case revision < h.revision:
		return
	case revision > h.revision:
		h.revision = revision
		h.types = make(map[entity.TypeHandle]semantic.Type)
	}
	h.types[handle] = t
}

func (h *handleTable) lookup(revision entity.Revision, handle entity.TypeHandle) (semantic.Type, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if revision != h.revision {
		return nil, false
	}
	t, ok := h.types[handle]
	return t, ok
}
