// Package ideclient writes responses, requests and notifications to the IDE.
package ideclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/jsonrpcfx"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_errSendToClient = "sending %s to IDE: %w"
	_failureMessage  = "%s failed. Check the logs for more details."
)

// Module provides the Gateway.
var Module = fx.Provide(New)

// Gateway is used to send outbound messages to the IDE. It is safe for concurrent use, so workers
// may notify the IDE directly while the main loop owns the responses.
type Gateway interface {
	// Reply writes a response. Only the main loop replies, after consulting the request ledger.
	Reply(ctx context.Context, resp *jsonrpc2.Response) error
	// ReplyInvalid answers a message whose id could not be read.
	ReplyInvalid(ctx context.Context, rpcErr *jsonrpc2.Error) error
	// Call issues a request. The id must be registered in the request ledger beforehand.
	Call(ctx context.Context, id jsonrpc2.ID, method string, params interface{}) error
	Notify(ctx context.Context, method string, params interface{}) error

	ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error
	// LogMessage sends a window/logMessage notification.
	LogMessage(ctx context.Context, params *protocol.LogMessageParams) error

	// Respond builds the response of a handler. A failure is logged with its cause and answered
	// with a generic error, and the action carries a notice for the user. Respond performs no I/O.
	Respond(ctx context.Context, id jsonrpc2.ID, method string, result interface{}, err error) entity.Action

	// GetLogMessageWriter returns an io.Writer that forwards each write as a window/logMessage.
	GetLogMessageWriter(ctx context.Context, prefix string) io.Writer
}

// Params are the dependencies of the Gateway.
type Params struct {
	fx.In

	Transport jsonrpcfx.Transport
	Logger    *zap.SugaredLogger
}

type gateway struct {
	transport jsonrpcfx.Transport
	logger    *zap.SugaredLogger
}

// New returns a Gateway writing to the transport.
func New(p Params) Gateway {
	return &gateway{
		transport: p.Transport,
		logger:    p.Logger,
	}
}

func (g *gateway) Reply(ctx context.Context, resp *jsonrpc2.Response) error {
	if err := g.transport.Write(ctx, resp); err != nil {
		return fmt.Errorf(_errSendToClient, "response", err)
	}
	return nil
}

// nullIDResponse is an error response without an id. jsonrpc2.ID cannot represent null.
type nullIDResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *jsonrpc2.ID    `json:"id"`
	Error   *jsonrpc2.Error `json:"error"`
}

func (g *gateway) ReplyInvalid(ctx context.Context, rpcErr *jsonrpc2.Error) error {
	data, err := json.Marshal(nullIDResponse{JSONRPC: jsonrpc2.Version, Error: rpcErr})
	if err != nil {
		return fmt.Errorf(_errSendToClient, "response", err)
	}
	if err := g.transport.WriteRaw(ctx, data); err != nil {
		return fmt.Errorf(_errSendToClient, "response", err)
	}
	return nil
}

func (g *gateway) Call(ctx context.Context, id jsonrpc2.ID, method string, params interface{}) error {
	call, err := jsonrpc2.NewCall(id, method, params)
	if err != nil {
		return fmt.Errorf(_errSendToClient, method, err)
	}
	if err := g.transport.Write(ctx, call); err != nil {
		return fmt.Errorf(_errSendToClient, method, err)
	}
	return nil
}

func (g *gateway) Notify(ctx context.Context, method string, params interface{}) error {
	n, err := jsonrpc2.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf(_errSendToClient, method, err)
	}
	if err := g.transport.Write(ctx, n); err != nil {
		return fmt.Errorf(_errSendToClient, method, err)
	}
	return nil
}

func (g *gateway) ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error {
	return g.Notify(ctx, protocol.MethodWindowShowMessage, params)
}

func (g *gateway) LogMessage(ctx context.Context, params *protocol.LogMessageParams) error {
	return g.Notify(ctx, protocol.MethodWindowLogMessage, params)
}

func (g *gateway) Respond(ctx context.Context, id jsonrpc2.ID, method string, result interface{}, err error) entity.Action {
	if err == nil {
		resp, marshalErr := jsonrpc2.NewResponse(id, result, nil)
		if marshalErr == nil {
			return entity.SendResponse{Response: resp}
		}
		err = fmt.Errorf("encoding result: %w", marshalErr)
	}

	if errors.IsBadRequest(err) {
		g.logger.Warnw("request failed", "method", method, "id", id, zap.Error(err))
	} else {
		g.logger.Errorw("request failed", "method", method, "id", id, zap.Error(err))
	}
	resp, _ := jsonrpc2.NewResponse(id, nil, errors.ToResponseError(err))
	return entity.SendResponse{
		Response: resp,
		Notice: &protocol.ShowMessageParams{
			Type:    protocol.MessageTypeError,
			Message: fmt.Sprintf(_failureMessage, method),
		},
	}
}

type logMessageWriter struct {
	gateway *gateway
	ctx     context.Context
	prefix  string
}

func (g *gateway) GetLogMessageWriter(ctx context.Context, prefix string) io.Writer {
	return &logMessageWriter{
		gateway: g,
		ctx:     ctx,
		prefix:  prefix,
	}
}

func (w *logMessageWriter) Write(p []byte) (n int, err error) {
	str := strings.TrimSuffix(string(p), "\n")
	if err := w.gateway.LogMessage(w.ctx, &protocol.LogMessageParams{
		Message: fmt.Sprintf("[%s] %s", w.prefix, str),
		Type:    protocol.MessageTypeLog,
	}); err != nil {
		return 0, fmt.Errorf("writing to IDE log message writer: %w", err)
	}
	return len(p), nil
}
