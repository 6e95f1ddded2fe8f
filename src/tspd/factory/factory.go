package factory

import (
	"github.com/gofrs/uuid"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC request containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	return Call(5, method, params)
}

// Call is a factory for a JSON-RPC call with a numeric id.
func Call(id int32, method string, params interface{}) *jsonrpc2.Call {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(id), method, params)
	return req
}

// Notification is a factory for a JSON-RPC notification.
func Notification(method string, params interface{}) *jsonrpc2.Notification {
	n, _ := jsonrpc2.NewNotification(method, params)
	return n
}

// Response is a factory for a successful JSON-RPC response.
func Response(id jsonrpc2.ID, result interface{}) *jsonrpc2.Response {
	resp, _ := jsonrpc2.NewResponse(id, result, nil)
	return resp
}

// DidOpenParams is a factory for opening a Python document.
func DidOpenParams(documentURI protocol.DocumentURI, text string) protocol.DidOpenTextDocumentParams {
	return protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        documentURI,
			LanguageID: "python",
			Version:    1,
			Text:       text,
		},
	}
}

// Range is a factory for a range on a single line.
func Range(line, startChar, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: startChar},
		End:   protocol.Position{Line: line, Character: endChar},
	}
}

// GetTypeParams is a factory for typeServer/getType parameters.
func GetTypeParams(documentURI protocol.DocumentURI, r protocol.Range) entity.GetTypeParams {
	return entity.GetTypeParams{
		Node: entity.Node{URI: string(documentURI), Range: r},
	}
}
