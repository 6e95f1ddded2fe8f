package entity

import (
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Event is consumed by the main loop: a MessageEvent, an InvalidMessageEvent or an ActionEvent.
type Event interface {
	isEvent()
}

// MessageEvent carries a message read from the transport.
type MessageEvent struct {
	Message jsonrpc2.Message
}

// InvalidMessageEvent carries a frame that could not be decoded as a JSON-RPC message.
type InvalidMessageEvent struct {
	Data []byte
	Err  error
}

// ActionEvent carries an Action produced by a task.
type ActionEvent struct {
	Action Action
}

func (MessageEvent) isEvent()        {}
func (InvalidMessageEvent) isEvent() {}
func (ActionEvent) isEvent()         {}

// Action is produced by tasks and consumed only by the main loop.
type Action interface {
	isAction()
}

// ResponseHandler is invoked on the main loop when the client answers a server issued request.
type ResponseHandler func(resp *jsonrpc2.Response)

// SendResponse answers an incoming request unless it was canceled or already answered.
type SendResponse struct {
	Response *jsonrpc2.Response
	// Notice is shown to the user once the response has been sent.
	Notice *protocol.ShowMessageParams
}

// RetryRequest dispatches a request again if it is still pending.
type RetryRequest struct {
	Request *jsonrpc2.Call
}

// SendRequest issues a request to the client. Handler receives the answer.
type SendRequest struct {
	Method  string
	Params  interface{}
	Handler ResponseHandler
}

// SuspendDiagnostics parks a workspace diagnostic request until the global state changes.
type SuspendDiagnostics struct {
	Request *jsonrpc2.Call
	// Revision is the revision the request was evaluated at.
	Revision Revision
}

// InitializeWorkspaces sets up the workspaces sent by the client during initialize.
type InitializeWorkspaces struct {
	Folders []protocol.WorkspaceFolder
}

// GlobalStateChanged reports a new revision.
type GlobalStateChanged struct {
	Revision Revision
}

// FilesChanged reports files changed on disk.
type FilesChanged struct {
	Changes []*protocol.FileEvent
}

func (SendResponse) isAction()         {}
func (RetryRequest) isAction()         {}
func (SendRequest) isAction()          {}
func (SuspendDiagnostics) isAction()   {}
func (InitializeWorkspaces) isAction() {}
func (GlobalStateChanged) isAction()   {}
func (FilesChanged) isAction()         {}
