package errors

import (
	stderr "errors"

	"go.lsp.dev/jsonrpc2"
)

// RequestCancelled is the LSP error code for requests canceled by the client.
const RequestCancelled jsonrpc2.Code = -32800

// NewRequestCancelledError returns the error sent in place of a canceled request's result.
func NewRequestCancelledError() *jsonrpc2.Error {
	return jsonrpc2.NewError(RequestCancelled, "request cancelled")
}

// ToResponseError converts a handler error into the error placed on the wire.
// Messages are generic; the cause is expected to be logged by the caller.
func ToResponseError(err error) *jsonrpc2.Error {
	if err == nil {
		return nil
	}

	var (
		wire    *jsonrpc2.Error
		parse   *ParseError
		badID   *InvalidRequestIDError
		noNode  *NoNodeFoundError
		unknown *UnimplementedMethodError
		doc     *DocumentNotFoundError
	)
	switch {
	case stderr.As(err, &wire):
		return wire
	case stderr.As(err, &parse):
		return jsonrpc2.NewError(jsonrpc2.ParseError, "Invalid request format")
	case stderr.As(err, &badID):
		return jsonrpc2.NewError(jsonrpc2.InvalidRequest, "Invalid request ID format")
	case stderr.Is(err, ShutdownRequestedError):
		return jsonrpc2.NewError(jsonrpc2.InvalidRequest, ShutdownRequestedError.Error())
	case stderr.Is(err, AlreadyInitializedError):
		return jsonrpc2.NewError(jsonrpc2.InvalidRequest, AlreadyInitializedError.Error())
	case stderr.Is(err, NotInitializedError):
		return jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, NotInitializedError.Error())
	case stderr.As(err, &noNode):
		return jsonrpc2.NewError(jsonrpc2.InvalidRequest, "No expression found at position")
	case stderr.As(err, &unknown):
		return jsonrpc2.Errorf(jsonrpc2.MethodNotFound, "Unimplemented method: %s", unknown.Method)
	case stderr.As(err, &doc):
		return jsonrpc2.NewError(jsonrpc2.InternalError, "Failed to resolve document")
	default:
		return jsonrpc2.NewError(jsonrpc2.InternalError, "Internal error")
	}
}
