// Package mainloop consumes events one at a time and owns the session, the request ledger and
// every response written to the client.
package mainloop

import (
	"bytes"
	"context"
	"encoding/json"
	stderr "errors"
	"fmt"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	ideclient "github.com/uber/tsp-lsp/src/tspd/gateway/ide-client"
	tspdaemon "github.com/uber/tsp-lsp/src/tspd/handler/tsp-daemon"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/eventqueue"
	"github.com/uber/tsp-lsp/src/tspd/internal/fswatch"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"github.com/uber/tsp-lsp/src/tspd/repository/requests"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module runs the Loop for the lifetime of the application.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(Register),
)

// Loop is the single consumer of the event queue.
type Loop interface {
	// Run processes events until the client exits. It returns nil after a clean exit and an error
	// when the client broke the shutdown sequence.
	Run(ctx context.Context) error
}

// Params are the dependencies of the Loop.
type Params struct {
	fx.In

	Queue      eventqueue.Queue
	Router     tspdaemon.Router
	Scheduler  scheduler.Scheduler
	Ledger     requests.Ledger
	Session    *session.Session
	IdeGateway ideclient.Gateway
	Watcher    fswatch.Watcher
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type loop struct {
	queue      eventqueue.Queue
	router     tspdaemon.Router
	scheduler  scheduler.Scheduler
	ledger     requests.Ledger
	session    *session.Session
	ideGateway ideclient.Gateway
	watcher    fswatch.Watcher
	logger     *zap.SugaredLogger
	stats      tally.Scope

	// revision is the latest revision reported by a GlobalStateChanged action.
	revision  entity.Revision
	suspended []*jsonrpc2.Call
}

// New creates the Loop.
func New(p Params) Loop {
	return &loop{
		queue:      p.Queue,
		router:     p.Router,
		scheduler:  p.Scheduler,
		ledger:     p.Ledger,
		session:    p.Session,
		ideGateway: p.IdeGateway,
		watcher:    p.Watcher,
		logger:     p.Logger,
		stats:      p.Stats.SubScope("mainloop"),
	}
}

// RegisterParams are the dependencies of Register.
type RegisterParams struct {
	fx.In

	Loop       Loop
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.SugaredLogger
}

// Register starts the Loop with the application and stops the application once the Loop returns,
// with exit code 0 after a clean exit and 1 otherwise.
func Register(p RegisterParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := p.Loop.Run(ctx)
				close(done)
				if ctx.Err() != nil {
					return
				}

				code := 0
				if err != nil {
					p.Logger.Errorw("main loop stopped", zap.Error(err))
					code = 1
				}
				if err := p.Shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					p.Logger.Warnw("shutting down failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func (l *loop) Run(ctx context.Context) error {
	l.logger.Infow("main loop started", "session", l.session.UUID.String())
	for {
		ev, err := l.queue.Next(ctx)
		if err != nil {
			if stderr.Is(err, eventqueue.ErrClosed) {
				return errors.ClientExitedError
			}
			return err
		}

		exit, err := l.handleEvent(ctx, ev)
		if err != nil {
			return err
		}
		if exit {
			l.logger.Infow("client exited", "pending", l.ledger.PendingCount())
			return nil
		}
	}
}

// handleEvent reports whether the client asked to exit.
func (l *loop) handleEvent(ctx context.Context, ev entity.Event) (bool, error) {
	switch ev := ev.(type) {
	case entity.MessageEvent:
		return l.handleMessage(ctx, ev.Message)
	case entity.InvalidMessageEvent:
		l.handleInvalidMessage(ctx, ev)
	case entity.ActionEvent:
		l.apply(ctx, ev.Action)
	}
	return false, nil
}

func (l *loop) handleMessage(ctx context.Context, msg jsonrpc2.Message) (bool, error) {
	switch msg := msg.(type) {
	case *jsonrpc2.Response:
		handler, ok := l.ledger.CompleteOutgoing(msg.ID())
		if !ok {
			l.stats.Counter("unexpected_responses").Inc(1)
			l.logger.Warnw("protocol violation: response to an unknown request", "id", msg.ID())
			return false, nil
		}
		handler(msg)
		return false, nil

	case jsonrpc2.Request:
		return l.handleRequest(ctx, msg)
	}
	return false, nil
}

func (l *loop) handleRequest(ctx context.Context, req jsonrpc2.Request) (bool, error) {
	switch req.Method() {
	case protocol.MethodExit:
		if !l.session.ShutdownRequested() {
			return false, errors.ExitBeforeShutdownError
		}
		return true, nil

	case protocol.MethodCancelRequest:
		l.cancel(ctx, req)
		return false, nil
	}

	call, ok := req.(*jsonrpc2.Call)
	if !ok {
		if l.session.ShutdownRequested() || !l.session.Initialized() {
			l.logger.Debugw("dropping notification", "method", req.Method())
			return false, nil
		}
		l.dispatch(ctx, req)
		return false, nil
	}

	l.ledger.RegisterIncoming(call.ID(), call.Method())
	if err := l.precondition(call); err != nil {
		action := l.ideGateway.Respond(ctx, call.ID(), call.Method(), nil, err)
		// lifecycle rejections are not shown to the user
		if send, ok := action.(entity.SendResponse); ok {
			send.Notice = nil
			action = send
		}
		l.apply(ctx, action)
		return false, nil
	}
	l.dispatch(ctx, call)
	return false, nil
}

// precondition rejects calls the session cannot serve in its current state.
func (l *loop) precondition(call *jsonrpc2.Call) error {
	switch {
	case l.session.ShutdownRequested():
		return errors.ShutdownRequestedError
	case !l.session.Initialized() && call.Method() != protocol.MethodInitialize:
		return errors.NotInitializedError
	}
	return nil
}

func (l *loop) dispatch(ctx context.Context, req jsonrpc2.Request) {
	task := l.router.Route(ctx, req, l.session)
	for _, action := range l.scheduler.Dispatch(ctx, task, l.session) {
		l.apply(ctx, action)
	}
}

func (l *loop) cancel(ctx context.Context, req jsonrpc2.Request) {
	id, err := mapper.RequestToCancelID(req)
	if err != nil {
		l.logger.Warnw("ignoring invalid cancellation", zap.Error(err))
		return
	}
	entry, ok := l.ledger.CancelIncoming(id)
	if !ok {
		l.logger.Debugw("cancellation of a completed request", "id", id)
		return
	}
	l.unsuspend(id)

	resp, err := jsonrpc2.NewResponse(id, nil, errors.NewRequestCancelledError())
	if err != nil {
		l.logger.Errorw("building cancellation response failed", "id", id, zap.Error(err))
		return
	}
	l.logger.Debugw("request cancelled", "id", id, "method", entry.Method)
	l.write(ctx, resp)
}

// apply executes an action. Actions are the only way tasks affect the outside world.
func (l *loop) apply(ctx context.Context, action entity.Action) {
	switch a := action.(type) {
	case entity.SendResponse:
		entry, ok := l.ledger.CompleteIncoming(a.Response.ID())
		if !ok {
			l.stats.Counter("responses_dropped").Inc(1)
			l.logger.Debugw("dropping response of a request that is no longer pending", "id", a.Response.ID())
			return
		}
		l.write(ctx, a.Response)
		l.logger.Debugw("request completed", "id", entry.ID, "method", entry.Method)
		if a.Notice != nil {
			if err := l.ideGateway.ShowMessage(ctx, a.Notice); err != nil {
				l.logger.Warnw("unable to show failure", "method", entry.Method, zap.Error(err))
			}
		}

	case entity.RetryRequest:
		if !l.ledger.IsPending(a.Request.ID()) {
			return
		}
		l.dispatch(ctx, a.Request)

	case entity.SendRequest:
		id := l.ledger.RegisterOutgoing(a.Handler)
		if err := l.ideGateway.Call(ctx, id, a.Method, a.Params); err != nil {
			l.ledger.CompleteOutgoing(id)
			l.logger.Warnw("sending request failed", "method", a.Method, zap.Error(err))
		}

	case entity.SuspendDiagnostics:
		if !l.ledger.IsPending(a.Request.ID()) {
			return
		}
		if a.Revision < l.revision {
			l.dispatch(ctx, a.Request)
			return
		}
		l.suspended = append(l.suspended, a.Request)
		l.stats.Gauge("suspended").Update(float64(len(l.suspended)))

	case entity.InitializeWorkspaces:
		l.initializeWorkspaces(ctx, a.Folders)

	case entity.GlobalStateChanged:
		l.stateChanged(ctx, a.Revision)

	case entity.FilesChanged:
		l.stateChanged(ctx, l.session.FilesChanged(a.Changes))

	default:
		l.logger.Errorw("unknown action", "action", fmt.Sprintf("%T", action))
	}
}

func (l *loop) stateChanged(ctx context.Context, revision entity.Revision) {
	if revision > l.revision {
		l.revision = revision
	}
	l.stats.Gauge("revision").Update(float64(l.revision))

	parked := l.suspended
	l.suspended = nil
	l.stats.Gauge("suspended").Update(0)
	for _, call := range parked {
		l.apply(ctx, entity.RetryRequest{Request: call})
	}
}

func (l *loop) unsuspend(id jsonrpc2.ID) {
	kept := l.suspended[:0]
	for _, call := range l.suspended {
		if call.ID() != id {
			kept = append(kept, call)
		}
	}
	l.suspended = kept
}

func (l *loop) initializeWorkspaces(ctx context.Context, folders []protocol.WorkspaceFolder) {
	if err := l.session.InitializeWorkspaces(folders); err != nil {
		l.logger.Warnw("invalid workspace configuration", zap.Error(err))
		fmt.Fprintf(l.ideGateway.GetLogMessageWriter(ctx, "workspace"), "invalid workspace configuration: %v", err)
	}

	roots := make([]string, 0, len(folders))
	for _, ws := range l.session.Workspaces() {
		roots = append(roots, ws.Root)
	}
	if err := l.watcher.Watch(roots); err != nil {
		l.logger.Warnw("watching workspaces failed", zap.Error(err))
	}
}

// handleInvalidMessage answers frames that are not valid JSON-RPC messages when they look like calls.
func (l *loop) handleInvalidMessage(ctx context.Context, ev entity.InvalidMessageEvent) {
	l.stats.Counter("invalid_messages").Inc(1)
	var envelope struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(ev.Data, &envelope); err != nil {
		l.logger.Warnw("received a malformed message", zap.Error(ev.Err))
		l.replyInvalid(ctx, jsonrpc2.NewError(jsonrpc2.ParseError, "Parse error"))
		return
	}
	if len(envelope.ID) == 0 || bytes.Equal(bytes.TrimSpace(envelope.ID), []byte("null")) {
		l.logger.Warnw("dropping invalid notification", "method", envelope.Method, zap.Error(ev.Err))
		return
	}

	id, err := mapper.DecodeRequestID(envelope.ID)
	if err != nil {
		l.logger.Warnw("received a request with an invalid id", "method", envelope.Method, zap.Error(err))
		l.replyInvalid(ctx, errors.ToResponseError(err))
		return
	}

	l.logger.Warnw("received an invalid request", "id", id, "method", envelope.Method, zap.Error(ev.Err))
	resp, err := jsonrpc2.NewResponse(id, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "Invalid request"))
	if err != nil {
		return
	}
	l.write(ctx, resp)
}

func (l *loop) replyInvalid(ctx context.Context, rpcErr *jsonrpc2.Error) {
	if err := l.ideGateway.ReplyInvalid(ctx, rpcErr); err != nil {
		l.logger.Warnw("answering invalid message failed", zap.Error(err))
	}
}

func (l *loop) write(ctx context.Context, resp *jsonrpc2.Response) {
	if err := l.ideGateway.Reply(ctx, resp); err != nil {
		l.logger.Warnw("writing response failed", "id", resp.ID(), zap.Error(err))
	}
}
