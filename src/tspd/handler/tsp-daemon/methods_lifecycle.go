package tspdaemon

import (
	"context"

	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
)

// initialize stores the client parameters in the session and answers the server capabilities.
func (r *router) initialize(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	call, ok := r.asCall(req)
	if !ok {
		return scheduler.Immediate(req.Method())
	}
	params, err := mapper.RequestToInitializeParams(req)
	if err != nil {
		return r.fail(ctx, call, err)
	}

	id := call.ID()
	return scheduler.Sync(req.Method(), &id, func(ctx context.Context, s *session.Session) []entity.Action {
		return r.lsp.Initialize(ctx, s, id, params)
	})
}

// initialized is sent after the client received the result of the initialize request.
func (r *router) initialized(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	return scheduler.Sync(req.Method(), nil, r.lsp.Initialized)
}

// shutdown asks the server to shut down, but to not exit.
func (r *router) shutdown(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	call, ok := r.asCall(req)
	if !ok {
		return scheduler.Immediate(req.Method())
	}

	id := call.ID()
	return scheduler.Sync(req.Method(), &id, func(ctx context.Context, s *session.Session) []entity.Action {
		return r.lsp.Shutdown(ctx, s, id)
	})
}
