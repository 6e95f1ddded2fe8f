package mapper

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/factory"
	tspderrors "github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func TestDecodeTSPRequest(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expected  entity.TSPRequest
		wantParse bool
		wantID    bool
	}{
		{
			name: "get type",
			raw:  `{"jsonrpc":"2.0","id":1,"method":"typeServer/getType","params":{"node":{"uri":"file:///a.py","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}}}}`,
			expected: entity.GetTypeRequest{
				ID: jsonrpc2.NewNumberID(1),
				Params: entity.GetTypeParams{
					Node: entity.Node{URI: "file:///a.py", Range: factory.Range(0, 0, 1)},
				},
			},
		},
		{
			name: "get type args with string id",
			raw:  `{"jsonrpc":"2.0","id":"r1","method":"typeServer/getTypeArgs","params":{"type":{"handle":12,"category":6,"flags":0,"name":"Union","categoryFlags":0},"snapshot":3}}`,
			expected: entity.GetTypeArgsRequest{
				ID: jsonrpc2.NewStringID("r1"),
				Params: entity.GetTypeArgsParams{
					Type:     entity.Type{Handle: entity.IntHandle(12), Category: entity.TypeCategoryUnion, Name: "Union"},
					Snapshot: 3,
				},
			},
		},
		{
			name:     "protocol version without params",
			raw:      `{"jsonrpc":"2.0","id":2,"method":"typeServer/getSupportedProtocolVersion"}`,
			expected: entity.GetSupportedProtocolVersionRequest{ID: jsonrpc2.NewNumberID(2)},
		},
		{
			name:     "snapshot",
			raw:      `{"jsonrpc":"2.0","id":3,"method":"typeServer/getSnapshot","params":null}`,
			expected: entity.GetSnapshotRequest{ID: jsonrpc2.NewNumberID(3)},
		},
		{
			name:     "unimplemented",
			raw:      `{"jsonrpc":"2.0","id":4,"method":"typeServer/getOverloads","params":{}}`,
			expected: entity.UnimplementedTSPRequest{ID: jsonrpc2.NewNumberID(4), MethodName: entity.MethodTSPGetOverloads},
		},
		{
			name:      "unknown method",
			raw:       `{"jsonrpc":"2.0","id":5,"method":"typeServer/doesNotExist","params":{}}`,
			wantParse: true,
		},
		{
			name:      "missing params",
			raw:       `{"jsonrpc":"2.0","id":6,"method":"typeServer/getType"}`,
			wantParse: true,
		},
		{
			name:      "malformed params",
			raw:       `{"jsonrpc":"2.0","id":7,"method":"typeServer/getType","params":{"node":"nope"}}`,
			wantParse: true,
		},
		{
			name:      "malformed envelope",
			raw:       `{"jsonrpc":"2.0",`,
			wantParse: true,
		},
		{
			name:   "float id",
			raw:    `{"jsonrpc":"2.0","id":1.5,"method":"typeServer/getSnapshot"}`,
			wantID: true,
		},
		{
			name:   "boolean id",
			raw:    `{"jsonrpc":"2.0","id":true,"method":"typeServer/getSnapshot"}`,
			wantID: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeTSPRequest([]byte(tt.raw))
			switch {
			case tt.wantParse:
				var parseErr *tspderrors.ParseError
				assert.ErrorAs(t, err, &parseErr)
				assert.Equal(t, jsonrpc2.ParseError, tspderrors.ToResponseError(err).Code)
			case tt.wantID:
				var badID *tspderrors.InvalidRequestIDError
				assert.ErrorAs(t, err, &badID)
				assert.Equal(t, jsonrpc2.InvalidRequest, tspderrors.ToResponseError(err).Code)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expected, req)
			}
		})
	}
}

func TestCallToTSPRequest(t *testing.T) {
	t.Run("get type", func(t *testing.T) {
		params := factory.GetTypeParams("file:///a.py", factory.Range(0, 4, 6))
		req, err := CallToTSPRequest(factory.Call(9, entity.MethodTSPGetType, params))
		require.NoError(t, err)
		assert.Equal(t, entity.GetTypeRequest{ID: jsonrpc2.NewNumberID(9), Params: params}, req)
	})

	t.Run("no params", func(t *testing.T) {
		call, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), entity.MethodTSPGetSnapshot, nil)
		require.NoError(t, err)
		req, err := CallToTSPRequest(call)
		require.NoError(t, err)
		assert.Equal(t, entity.GetSnapshotRequest{ID: jsonrpc2.NewNumberID(1)}, req)
	})
}

func TestToDocumentURI(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "mod.py")
	tests := []struct {
		name     string
		raw      string
		expected protocol.DocumentURI
	}{
		{name: "file uri", raw: "file:///ws/a.py", expected: "file:///ws/a.py"},
		{name: "plain path", raw: abs, expected: uri.File(abs)},
		{name: "empty", raw: "", expected: "file:///unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToDocumentURI(tt.raw))
		})
	}
}

func TestURIToPath(t *testing.T) {
	path, ok := URIToPath("file:///ws/a.py")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/ws/a.py"), path)

	_, ok = URIToPath("untitled:Untitled-1")
	assert.False(t, ok)
}
