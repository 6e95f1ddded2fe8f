package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

func TestTypeHandleJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TypeHandle
		wantErr  bool
	}{
		{name: "integer", input: `42`, expected: IntHandle(42)},
		{name: "negative integer", input: `-7`, expected: IntHandle(-7)},
		{name: "string", input: `"abc"`, expected: StringHandle("abc")},
		{name: "float", input: `1.5`, wantErr: true},
		{name: "out of range", input: `4294967296`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h TypeHandle
			err := json.Unmarshal([]byte(tt.input), &h)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, h)

			out, err := json.Marshal(h)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestTypeHandleString(t *testing.T) {
	assert.Equal(t, "12", IntHandle(12).String())
	assert.Equal(t, "h", StringHandle("h").String())
	assert.True(t, StringHandle("h").IsString())
	assert.False(t, IntHandle(1).IsString())
	assert.Equal(t, int32(1), IntHandle(1).Int())
}

func TestTypeJSON(t *testing.T) {
	typ := Type{
		Handle:   IntHandle(-5),
		Category: TypeCategoryFunction,
		Flags:    TypeFlagsCallable,
		ModuleName: &ModuleName{
			NameParts: []string{"utils"},
		},
		Name: "function",
	}

	out, err := json.Marshal(typ)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"handle": -5,
		"category": 1,
		"flags": 4,
		"moduleName": {"leadingDots": 0, "nameParts": ["utils"]},
		"name": "function",
		"categoryFlags": 0
	}`, string(out))

	var decoded Type
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, typ, decoded)
}

func TestWireConstants(t *testing.T) {
	assert.Equal(t, TypeCategory(0), TypeCategoryAny)
	assert.Equal(t, TypeCategory(4), TypeCategoryModule)
	assert.Equal(t, TypeCategory(6), TypeCategoryUnion)
	assert.Equal(t, TypeFlags(8), TypeFlagsLiteral)
	assert.Equal(t, TypeFlags(64), TypeFlagsFromAlias)
}

func TestModuleNameString(t *testing.T) {
	assert.Equal(t, "pkg.mod", ModuleName{NameParts: []string{"pkg", "mod"}}.String())
	assert.Equal(t, "..mod", ModuleName{LeadingDots: 2, NameParts: []string{"mod"}}.String())
}

func TestIsTSPMethod(t *testing.T) {
	assert.True(t, IsTSPMethod(MethodTSPGetType))
	assert.True(t, IsTSPMethod("typeServer/unknown"))
	assert.False(t, IsTSPMethod(protocol.MethodTextDocumentHover))
	assert.Len(t, UnimplementedTSPMethods, 10)
	for _, m := range UnimplementedTSPMethods {
		assert.True(t, IsTSPMethod(m))
	}
}

func TestTSPRequestVariants(t *testing.T) {
	id := jsonrpc2.NewNumberID(3)
	tests := []struct {
		req    TSPRequest
		method string
	}{
		{GetTypeRequest{ID: id}, MethodTSPGetType},
		{GetTypeArgsRequest{ID: id}, MethodTSPGetTypeArgs},
		{GetSupportedProtocolVersionRequest{ID: id}, MethodTSPGetSupportedProtocolVersion},
		{GetSnapshotRequest{ID: id}, MethodTSPGetSnapshot},
		{UnimplementedTSPRequest{ID: id, MethodName: MethodTSPGetDocString}, MethodTSPGetDocString},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, id, tt.req.RequestID())
			assert.Equal(t, tt.method, tt.req.Method())
		})
	}
}

func TestInitializeResultJSON(t *testing.T) {
	result := InitializeResult{
		Capabilities: ServerCapabilities{
			ServerCapabilities: protocol.ServerCapabilities{HoverProvider: true},
			DiagnosticProvider: &DiagnosticOptions{WorkspaceDiagnostics: true},
		},
		ServerInfo: ServerInfo{Name: "tspd", Version: "dev"}.ToProtocol(),
	}

	out, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	capabilities := decoded["capabilities"].(map[string]interface{})
	assert.Equal(t, true, capabilities["hoverProvider"])
	assert.Equal(t, true, capabilities["diagnosticProvider"].(map[string]interface{})["workspaceDiagnostics"])
	assert.Equal(t, "tspd", decoded["serverInfo"].(map[string]interface{})["name"])
}
