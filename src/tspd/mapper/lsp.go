package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	tspderrors "github.com/uber/tsp-lsp/src/tspd/internal/errors"
	protocolmapper "github.com/uber/tsp-lsp/src/tspd/internal/protocol"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// RequestToInitializeParams maps the parameters from a jsonrpc2.Request into protocol.InitializeParams.
func RequestToInitializeParams(req jsonrpc2.Request) (*protocol.InitializeParams, error) {
	params := protocol.InitializeParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToDidOpenTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidOpenTextDocumentParams.
func RequestToDidOpenTextDocumentParams(req jsonrpc2.Request) (*protocol.DidOpenTextDocumentParams, error) {
	params := protocol.DidOpenTextDocumentParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToDidChangeTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidChangeTextDocumentParams.
func RequestToDidChangeTextDocumentParams(req jsonrpc2.Request) (*protocol.DidChangeTextDocumentParams, error) {
	params := protocol.DidChangeTextDocumentParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToDidCloseTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidCloseTextDocumentParams.
func RequestToDidCloseTextDocumentParams(req jsonrpc2.Request) (*protocol.DidCloseTextDocumentParams, error) {
	params := protocol.DidCloseTextDocumentParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToDidChangeWatchedFilesParams maps the parameters from a jsonrpc2.Request into protocol.DidChangeWatchedFilesParams.
func RequestToDidChangeWatchedFilesParams(req jsonrpc2.Request) (*protocol.DidChangeWatchedFilesParams, error) {
	params := protocol.DidChangeWatchedFilesParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToHoverParams maps the parameters from a jsonrpc2.Request into protocol.HoverParams.
func RequestToHoverParams(req jsonrpc2.Request) (*protocol.HoverParams, error) {
	params := protocol.HoverParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToDocumentDiagnosticParams maps the parameters from a jsonrpc2.Request into entity.DocumentDiagnosticParams.
func RequestToDocumentDiagnosticParams(req jsonrpc2.Request) (*entity.DocumentDiagnosticParams, error) {
	params := entity.DocumentDiagnosticParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToWorkspaceDiagnosticParams maps the parameters from a jsonrpc2.Request into entity.WorkspaceDiagnosticParams.
func RequestToWorkspaceDiagnosticParams(req jsonrpc2.Request) (*entity.WorkspaceDiagnosticParams, error) {
	params := entity.WorkspaceDiagnosticParams{}
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RequestToCancelID returns the id carried by a $/cancelRequest notification.
func RequestToCancelID(req jsonrpc2.Request) (jsonrpc2.ID, error) {
	var params struct {
		ID json.RawMessage `json:"id"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return jsonrpc2.ID{}, err
	}
	return DecodeRequestID(params.ID)
}

// RequestToTraceValue returns the value carried by a $/setTrace notification.
func RequestToTraceValue(req jsonrpc2.Request) (string, error) {
	var params struct {
		Value string `json:"value"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return "", err
	}
	return params.Value, nil
}

// DecodeRequestID converts a raw JSON id into a jsonrpc2.ID. Only strings and 32-bit integers are accepted.
func DecodeRequestID(raw json.RawMessage) (jsonrpc2.ID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return jsonrpc2.ID{}, &tspderrors.InvalidRequestIDError{Raw: string(raw)}
		}
		return jsonrpc2.NewStringID(s), nil
	}

	n, err := strconv.ParseInt(string(raw), 10, 32)
	if err != nil {
		return jsonrpc2.ID{}, &tspderrors.InvalidRequestIDError{Raw: string(raw)}
	}
	return jsonrpc2.NewNumberID(int32(n)), nil
}

// ApplyContentChanges applies incremental or full changes in order. A change without a range
// replaces the whole document.
func ApplyContentChanges(initialText string, changes []protocol.TextDocumentContentChangeEvent) (string, error) {
	content := []byte(initialText)
	for _, change := range changes {
		if change.Range == nil {
			content = []byte(change.Text)
			continue
		}

		// Offsets refer to the text produced by the previous change.
		m := protocolmapper.NewTextOffsetMapper(content)
		start, err := m.PositionOffset(change.Range.Start)
		if err != nil {
			return "", fmt.Errorf("unable to apply changes: %w", err)
		}
		end, err := m.PositionOffset(change.Range.End)
		if err != nil {
			return "", fmt.Errorf("unable to apply changes: %w", err)
		}
		if end < start {
			return "", fmt.Errorf("unable to apply changes: range end %d precedes start %d", end, start)
		}
		var buf bytes.Buffer
		buf.Write(content[:start])
		buf.WriteString(change.Text)
		buf.Write(content[end:])
		content = buf.Bytes()
	}

	return string(content), nil
}

func unmarshalParams(req jsonrpc2.Request, v interface{}) error {
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return wrapErrParse(req.Method(), err)
	}
	return nil
}

func wrapErrParse(method string, err error) error {
	return &tspderrors.ParseError{Method: method, Err: fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err)}
}
