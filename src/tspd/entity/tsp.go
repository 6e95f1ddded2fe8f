package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// TSPProtocolVersion is the Type Server Protocol version implemented by tspd.
const TSPProtocolVersion = "0.2.0"

// TSPMethodPrefix is reserved for Type Server Protocol methods.
const TSPMethodPrefix = "typeServer/"

// Type Server Protocol methods.
const (
	MethodTSPGetType                     = TSPMethodPrefix + "getType"
	MethodTSPGetTypeArgs                 = TSPMethodPrefix + "getTypeArgs"
	MethodTSPGetSupportedProtocolVersion = TSPMethodPrefix + "getSupportedProtocolVersion"
	MethodTSPGetSnapshot                 = TSPMethodPrefix + "getSnapshot"

	MethodTSPGetSymbol             = TSPMethodPrefix + "getSymbol"
	MethodTSPGetDiagnostics        = TSPMethodPrefix + "getDiagnostics"
	MethodTSPGetDiagnosticsVersion = TSPMethodPrefix + "getDiagnosticsVersion"
	MethodTSPResolveImport         = TSPMethodPrefix + "resolveImport"
	MethodTSPGetPythonSearchPaths  = TSPMethodPrefix + "getPythonSearchPaths"
	MethodTSPGetTypeAttributes     = TSPMethodPrefix + "getTypeAttributes"
	MethodTSPGetOverloads          = TSPMethodPrefix + "getOverloads"
	MethodTSPGetMatchingOverloads  = TSPMethodPrefix + "getMatchingOverloads"
	MethodTSPGetTypeOfDeclaration  = TSPMethodPrefix + "getTypeOfDeclaration"
	MethodTSPGetDocString          = TSPMethodPrefix + "getDocString"
)

// UnimplementedTSPMethods are recognized but answered with MethodNotFound.
var UnimplementedTSPMethods = []string{
	MethodTSPGetSymbol,
	MethodTSPGetDiagnostics,
	MethodTSPGetDiagnosticsVersion,
	MethodTSPResolveImport,
	MethodTSPGetPythonSearchPaths,
	MethodTSPGetTypeAttributes,
	MethodTSPGetOverloads,
	MethodTSPGetMatchingOverloads,
	MethodTSPGetTypeOfDeclaration,
	MethodTSPGetDocString,
}

// IsTSPMethod reports whether a method belongs to the Type Server Protocol family.
func IsTSPMethod(method string) bool {
	return strings.HasPrefix(method, TSPMethodPrefix)
}

// TypeCategory is the coarse classification of a Type.
type TypeCategory int32

// Type categories.
const (
	TypeCategoryAny TypeCategory = iota
	TypeCategoryFunction
	TypeCategoryOverloaded
	TypeCategoryClass
	TypeCategoryModule
	TypeCategoryTypeVar
	TypeCategoryUnion
)

// TypeFlags is a bit set describing a Type.
type TypeFlags int32

// Type flags.
const (
	TypeFlagsNone         TypeFlags = 0
	TypeFlagsInstantiable TypeFlags = 1 << 0
	TypeFlagsInstance     TypeFlags = 1 << 1
	TypeFlagsCallable     TypeFlags = 1 << 2
	TypeFlagsLiteral      TypeFlags = 1 << 3
	TypeFlagsInterface    TypeFlags = 1 << 4
	TypeFlagsGeneric      TypeFlags = 1 << 5
	TypeFlagsFromAlias    TypeFlags = 1 << 6
)

// TypeHandle is an opaque identifier of a Type. On the wire it is an integer or a string.
type TypeHandle struct {
	str      string
	num      int32
	isString bool
}

// IntHandle creates an integer handle.
func IntHandle(v int32) TypeHandle {
	return TypeHandle{num: v}
}

// StringHandle creates a string handle.
func StringHandle(v string) TypeHandle {
	return TypeHandle{str: v, isString: true}
}

// IsString reports whether the handle is a string handle.
func (h TypeHandle) IsString() bool {
	return h.isString
}

// Int returns the integer value of the handle.
func (h TypeHandle) Int() int32 {
	return h.num
}

// String implements fmt.Stringer.
func (h TypeHandle) String() string {
	if h.isString {
		return h.str
	}
	return strconv.FormatInt(int64(h.num), 10)
}

// MarshalJSON implements json.Marshaler.
func (h TypeHandle) MarshalJSON() ([]byte, error) {
	if h.isString {
		return json.Marshal(h.str)
	}
	return json.Marshal(h.num)
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *TypeHandle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*h = StringHandle(s)
		return nil
	}

	v, err := strconv.ParseInt(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("type handle must be a string or a 32-bit integer: %s", data)
	}
	*h = IntHandle(int32(v))
	return nil
}

// ModuleName is a dotted module name split into parts.
type ModuleName struct {
	LeadingDots int      `json:"leadingDots"`
	NameParts   []string `json:"nameParts"`
}

// String returns the dotted form.
func (m ModuleName) String() string {
	return strings.Repeat(".", m.LeadingDots) + strings.Join(m.NameParts, ".")
}

// Declaration locates the definition of a Type.
type Declaration struct {
	URI   protocol.DocumentURI `json:"uri"`
	Range protocol.Range       `json:"range"`
	Name  string               `json:"name"`
}

// Type is the wire form of a semantic type.
type Type struct {
	Handle        TypeHandle   `json:"handle"`
	Category      TypeCategory `json:"category"`
	Flags         TypeFlags    `json:"flags"`
	ModuleName    *ModuleName  `json:"moduleName,omitempty"`
	Decl          *Declaration `json:"decl,omitempty"`
	Name          string       `json:"name"`
	CategoryFlags int32        `json:"categoryFlags"`
	AliasName     *string      `json:"aliasName,omitempty"`
}

// Node identifies a range in a document. The URI may also be a plain file path.
type Node struct {
	URI   string         `json:"uri"`
	Range protocol.Range `json:"range"`
}

// GetTypeParams are the parameters of typeServer/getType.
type GetTypeParams struct {
	Node     Node      `json:"node"`
	Snapshot *Revision `json:"snapshot,omitempty"`
}

// GetTypeArgsParams are the parameters of typeServer/getTypeArgs.
type GetTypeArgsParams struct {
	Type     Type     `json:"type"`
	Snapshot Revision `json:"snapshot"`
}

// TSPRequest is a fully decoded Type Server Protocol request.
// The set of implementations is closed.
type TSPRequest interface {
	RequestID() jsonrpc2.ID
	Method() string
	isTSPRequest()
}

// GetTypeRequest is typeServer/getType.
type GetTypeRequest struct {
	ID     jsonrpc2.ID
	Params GetTypeParams
}

// GetTypeArgsRequest is typeServer/getTypeArgs.
type GetTypeArgsRequest struct {
	ID     jsonrpc2.ID
	Params GetTypeArgsParams
}

// GetSupportedProtocolVersionRequest is typeServer/getSupportedProtocolVersion.
type GetSupportedProtocolVersionRequest struct {
	ID jsonrpc2.ID
}

// GetSnapshotRequest is typeServer/getSnapshot.
type GetSnapshotRequest struct {
	ID jsonrpc2.ID
}

// UnimplementedTSPRequest is a recognized method without an implementation.
type UnimplementedTSPRequest struct {
	ID         jsonrpc2.ID
	MethodName string
}

func (r GetTypeRequest) RequestID() jsonrpc2.ID                     { return r.ID }
func (r GetTypeArgsRequest) RequestID() jsonrpc2.ID                 { return r.ID }
func (r GetSupportedProtocolVersionRequest) RequestID() jsonrpc2.ID { return r.ID }
func (r GetSnapshotRequest) RequestID() jsonrpc2.ID                 { return r.ID }
func (r UnimplementedTSPRequest) RequestID() jsonrpc2.ID            { return r.ID }

func (GetTypeRequest) Method() string                     { return MethodTSPGetType }
func (GetTypeArgsRequest) Method() string                 { return MethodTSPGetTypeArgs }
func (GetSupportedProtocolVersionRequest) Method() string { return MethodTSPGetSupportedProtocolVersion }
func (GetSnapshotRequest) Method() string                 { return MethodTSPGetSnapshot }
func (r UnimplementedTSPRequest) Method() string          { return r.MethodName }

func (GetTypeRequest) isTSPRequest()                     {}
func (GetTypeArgsRequest) isTSPRequest()                 {}
func (GetSupportedProtocolVersionRequest) isTSPRequest() {}
func (GetSnapshotRequest) isTSPRequest()                 {}
func (UnimplementedTSPRequest) isTSPRequest()            {}
