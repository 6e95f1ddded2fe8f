package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

const _unknownDocument = "file:///unknown"

// CallToTSPRequest decodes a Type Server Protocol call into its request variant.
func CallToTSPRequest(call *jsonrpc2.Call) (entity.TSPRequest, error) {
	return decodeTSPRequest(call.ID(), call.Method(), call.Params())
}

// DecodeTSPRequest decodes a raw JSON-RPC request whose method has the typeServer/ prefix.
func DecodeTSPRequest(data []byte) (entity.TSPRequest, error) {
	var envelope struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, wrapErrParse("", err)
	}

	id, err := DecodeRequestID(envelope.ID)
	if err != nil {
		return nil, err
	}
	return decodeTSPRequest(id, envelope.Method, envelope.Params)
}

func decodeTSPRequest(id jsonrpc2.ID, method string, params json.RawMessage) (entity.TSPRequest, error) {
	switch {
	case method == entity.MethodTSPGetType:
		var p entity.GetTypeParams
		if err := decodeTSPParams(method, params, &p); err != nil {
			return nil, err
		}
		return entity.GetTypeRequest{ID: id, Params: p}, nil
	case method == entity.MethodTSPGetTypeArgs:
		var p entity.GetTypeArgsParams
		if err := decodeTSPParams(method, params, &p); err != nil {
			return nil, err
		}
		return entity.GetTypeArgsRequest{ID: id, Params: p}, nil
	case method == entity.MethodTSPGetSupportedProtocolVersion:
		return entity.GetSupportedProtocolVersionRequest{ID: id}, nil
	case method == entity.MethodTSPGetSnapshot:
		return entity.GetSnapshotRequest{ID: id}, nil
	case slices.Contains(entity.UnimplementedTSPMethods, method):
		return entity.UnimplementedTSPRequest{ID: id, MethodName: method}, nil
	default:
		return nil, wrapErrParse(method, fmt.Errorf("unknown type server method %q", method))
	}
}

func decodeTSPParams(method string, raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return wrapErrParse(method, errors.New("missing params"))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return wrapErrParse(method, err)
	}
	return nil
}

// ToDocumentURI normalizes a document identifier sent by a client. Strings that do not parse as a
// URI are treated as file paths.
func ToDocumentURI(raw string) protocol.DocumentURI {
	if u, err := uri.Parse(raw); err == nil {
		return u
	}
	if raw == "" {
		return uri.URI(_unknownDocument)
	}
	return uri.File(raw)
}

// URIToPath returns the file path of a file URI, or false for other schemes.
func URIToPath(documentURI protocol.DocumentURI) (path string, ok bool) {
	defer func() {
		if recover() != nil {
			path, ok = "", false
		}
	}()
	return documentURI.Filename(), true
}
