package tspdaemon

import (
	"context"

	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
)

func (r *router) didOpen(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	params, err := mapper.RequestToDidOpenTextDocumentParams(req)
	if err != nil {
		return r.invalidNotification(req, err)
	}
	return scheduler.Sync(req.Method(), nil, func(ctx context.Context, s *session.Session) []entity.Action {
		return r.lsp.DidOpen(ctx, s, params)
	})
}

func (r *router) didChange(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	params, err := mapper.RequestToDidChangeTextDocumentParams(req)
	if err != nil {
		return r.invalidNotification(req, err)
	}
	return scheduler.Sync(req.Method(), nil, func(ctx context.Context, s *session.Session) []entity.Action {
		return r.lsp.DidChange(ctx, s, params)
	})
}

func (r *router) didClose(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	params, err := mapper.RequestToDidCloseTextDocumentParams(req)
	if err != nil {
		return r.invalidNotification(req, err)
	}
	return scheduler.Sync(req.Method(), nil, func(ctx context.Context, s *session.Session) []entity.Action {
		return r.lsp.DidClose(ctx, s, params)
	})
}

func (r *router) didChangeWatchedFiles(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	params, err := mapper.RequestToDidChangeWatchedFilesParams(req)
	if err != nil {
		return r.invalidNotification(req, err)
	}
	return scheduler.Sync(req.Method(), nil, func(ctx context.Context, s *session.Session) []entity.Action {
		return r.lsp.DidChangeWatchedFiles(ctx, s, params.Changes)
	})
}
