// Package tspdaemon routes incoming requests of both protocol families to their handlers.
package tspdaemon

import (
	"context"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/controller/lsp"
	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/controller/typeserver"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	ideclient "github.com/uber/tsp-lsp/src/tspd/gateway/ide-client"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the Router.
var Module = fx.Provide(New)

// Router builds the task handling a request.
type Router interface {
	// Route classifies a request by method. Methods with the typeServer/ prefix belong to the Type
	// Server Protocol, everything else to LSP. Requests whose payload cannot be decoded are
	// answered by an immediate task; such notifications produce an empty task.
	Route(ctx context.Context, req jsonrpc2.Request, s *session.Session) scheduler.Task
}

// Params are the dependencies of the Router.
type Params struct {
	fx.In

	LSP        lsp.Controller
	TypeServer typeserver.Controller
	IdeGateway ideclient.Gateway
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type router struct {
	lsp        lsp.Controller
	typeServer typeserver.Controller
	ideGateway ideclient.Gateway
	logger     *zap.SugaredLogger
	stats      tally.Scope
}

// New creates a Router.
func New(p Params) Router {
	return &router{
		lsp:        p.LSP,
		typeServer: p.TypeServer,
		ideGateway: p.IdeGateway,
		logger:     p.Logger,
		stats:      p.Stats.SubScope("router"),
	}
}

func (r *router) Route(ctx context.Context, req jsonrpc2.Request, s *session.Session) scheduler.Task {
	if entity.IsTSPMethod(req.Method()) {
		r.stats.Tagged(map[string]string{"family": "tsp"}).Counter("routed").Inc(1)
		return r.typeServerTask(ctx, req, s)
	}
	r.stats.Tagged(map[string]string{"family": "lsp"}).Counter("routed").Inc(1)

	switch req.Method() {
	// Lifecycle related methods.
	case protocol.MethodInitialize:
		return r.initialize(ctx, req)

	case protocol.MethodInitialized:
		return r.initialized(ctx, req)

	case protocol.MethodShutdown:
		return r.shutdown(ctx, req)

	// Document related methods.
	case protocol.MethodTextDocumentDidOpen:
		return r.didOpen(ctx, req)

	case protocol.MethodTextDocumentDidChange:
		return r.didChange(ctx, req)

	case protocol.MethodTextDocumentDidClose:
		return r.didClose(ctx, req)

	case protocol.MethodWorkspaceDidChangeWatchedFiles:
		return r.didChangeWatchedFiles(ctx, req)

	// Code intel related methods.
	case protocol.MethodTextDocumentHover:
		return r.hover(ctx, req)

	case entity.MethodTextDocumentDiagnostic:
		return r.documentDiagnostic(ctx, req)

	case entity.MethodWorkspaceDiagnostic:
		return r.workspaceDiagnostic(ctx, req)

	default:
		return r.methodNotFound(ctx, req)
	}
}

func (r *router) methodNotFound(ctx context.Context, req jsonrpc2.Request) scheduler.Task {
	call, ok := req.(*jsonrpc2.Call)
	if !ok {
		r.logger.Debugw("ignoring unknown notification", "method", req.Method())
		return scheduler.Immediate(req.Method())
	}
	return r.fail(ctx, call, &errors.UnimplementedMethodError{Method: req.Method()})
}

// fail answers a call with an error without scheduling any work.
func (r *router) fail(ctx context.Context, call *jsonrpc2.Call, err error) scheduler.Task {
	return scheduler.Immediate(call.Method(), r.ideGateway.Respond(ctx, call.ID(), call.Method(), nil, err))
}

// reply answers a call with a result without scheduling any work.
func (r *router) reply(ctx context.Context, call *jsonrpc2.Call, result interface{}) scheduler.Task {
	return scheduler.Immediate(call.Method(), r.ideGateway.Respond(ctx, call.ID(), call.Method(), result, nil))
}

// invalidNotification drops a notification whose params cannot be decoded.
func (r *router) invalidNotification(req jsonrpc2.Request, err error) scheduler.Task {
	r.logger.Warnw("ignoring invalid notification", "method", req.Method(), zap.Error(err))
	return scheduler.Immediate(req.Method())
}

// asCall returns the request as a call. Requests sent as notifications cannot be answered and are
// dropped.
func (r *router) asCall(req jsonrpc2.Request) (*jsonrpc2.Call, bool) {
	call, ok := req.(*jsonrpc2.Call)
	if !ok {
		r.logger.Warnw("ignoring request sent without an id", "method", req.Method())
	}
	return call, ok
}
