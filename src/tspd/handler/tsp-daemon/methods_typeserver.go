package tspdaemon

import (
	"context"

	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
)

// typeServerTask decodes a Type Server Protocol request in full. Version and snapshot queries are
// answered immediately, type queries run on a worker.
func (r *router) typeServerTask(ctx context.Context, req jsonrpc2.Request, s *session.Session) scheduler.Task {
	call, ok := req.(*jsonrpc2.Call)
	if !ok {
		r.logger.Warnw("ignoring type server notification", "method", req.Method())
		return scheduler.Immediate(req.Method())
	}

	request, err := mapper.CallToTSPRequest(call)
	if err != nil {
		return r.fail(ctx, call, err)
	}

	id := request.RequestID()
	switch request := request.(type) {
	case entity.GetSupportedProtocolVersionRequest:
		return r.reply(ctx, call, entity.TSPProtocolVersion)

	case entity.GetSnapshotRequest:
		return r.reply(ctx, call, s.Revision())

	case entity.GetTypeRequest:
		return scheduler.Async(request.Method(), &id, func(ctx context.Context, snapshot *session.Snapshot) []entity.Action {
			result, err := r.typeServer.GetType(ctx, snapshot, request.Params)
			return []entity.Action{r.ideGateway.Respond(ctx, id, request.Method(), result, err)}
		})

	case entity.GetTypeArgsRequest:
		return scheduler.Async(request.Method(), &id, func(ctx context.Context, snapshot *session.Snapshot) []entity.Action {
			result, err := r.typeServer.GetTypeArgs(ctx, snapshot, request.Params)
			return []entity.Action{r.ideGateway.Respond(ctx, id, request.Method(), result, err)}
		})

	case entity.UnimplementedTSPRequest:
		return r.fail(ctx, call, &errors.UnimplementedMethodError{Method: request.Method()})

	default:
		return r.fail(ctx, call, &errors.UnimplementedMethodError{Method: request.Method()})
	}
}
