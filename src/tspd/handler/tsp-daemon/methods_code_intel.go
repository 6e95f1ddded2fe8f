package tspdaemon

import (
	"context"

	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
)

func (r *router) hover(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	call, ok := r.asCall(req)
	if !ok {
		return scheduler.Immediate(req.Method())
	}
	params, err := mapper.RequestToHoverParams(req)
	if err != nil {
		return r.fail(ctx, call, err)
	}

	id := call.ID()
	return scheduler.Async(req.Method(), &id, func(ctx context.Context, snapshot *session.Snapshot) []entity.Action {
		return r.lsp.Hover(ctx, snapshot, id, params)
	})
}

func (r *router) documentDiagnostic(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	call, ok := r.asCall(req)
	if !ok {
		return scheduler.Immediate(req.Method())
	}
	params, err := mapper.RequestToDocumentDiagnosticParams(req)
	if err != nil {
		return r.fail(ctx, call, err)
	}

	id := call.ID()
	return scheduler.Async(req.Method(), &id, func(ctx context.Context, snapshot *session.Snapshot) []entity.Action {
		return r.lsp.DocumentDiagnostic(ctx, snapshot, id, params)
	})
}

// workspaceDiagnostic is a long poll: the task may suspend the call until the state changes.
func (r *router) workspaceDiagnostic(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	call, ok := r.asCall(req)
	if !ok {
		return scheduler.Immediate(req.Method())
	}
	params, err := mapper.RequestToWorkspaceDiagnosticParams(req)
	if err != nil {
		return r.fail(ctx, call, err)
	}

	id := call.ID()
	return scheduler.Async(req.Method(), &id, func(ctx context.Context, snapshot *session.Snapshot) []entity.Action {
		return r.lsp.WorkspaceDiagnostic(ctx, snapshot, call, params)
	})
}
