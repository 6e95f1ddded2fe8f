package entity

import "go.lsp.dev/protocol"

// Pull diagnostic methods.
const (
	MethodTextDocumentDiagnostic = "textDocument/diagnostic"
	MethodWorkspaceDiagnostic    = "workspace/diagnostic"
)

// Document diagnostic report kinds.
const (
	DiagnosticReportKindFull      = "full"
	DiagnosticReportKindUnchanged = "unchanged"
)

// DiagnosticOptions advertises pull diagnostics.
type DiagnosticOptions struct {
	Identifier            string `json:"identifier,omitempty"`
	InterFileDependencies bool   `json:"interFileDependencies"`
	WorkspaceDiagnostics  bool   `json:"workspaceDiagnostics"`
}

// ServerCapabilities extends the protocol capabilities with pull diagnostics.
type ServerCapabilities struct {
	protocol.ServerCapabilities
	DiagnosticProvider *DiagnosticOptions `json:"diagnosticProvider,omitempty"`
}

// InitializeResult is the result of the initialize request.
type InitializeResult struct {
	Capabilities ServerCapabilities   `json:"capabilities"`
	ServerInfo   *protocol.ServerInfo `json:"serverInfo,omitempty"`
}

// DocumentDiagnosticParams are the parameters of textDocument/diagnostic.
type DocumentDiagnosticParams struct {
	TextDocument     protocol.TextDocumentIdentifier `json:"textDocument"`
	Identifier       string                          `json:"identifier,omitempty"`
	PreviousResultID string                          `json:"previousResultId,omitempty"`
}

// FullDocumentDiagnosticReport is a complete set of diagnostics for a document.
type FullDocumentDiagnosticReport struct {
	Kind     string                `json:"kind"`
	ResultID string                `json:"resultId,omitempty"`
	Items    []protocol.Diagnostic `json:"items"`
}

// UnchangedDocumentDiagnosticReport signals that the previous report is still valid.
type UnchangedDocumentDiagnosticReport struct {
	Kind     string `json:"kind"`
	ResultID string `json:"resultId"`
}

// PreviousResultID is a result id reported earlier for a document.
type PreviousResultID struct {
	URI   protocol.DocumentURI `json:"uri"`
	Value string               `json:"value"`
}

// WorkspaceDiagnosticParams are the parameters of workspace/diagnostic.
type WorkspaceDiagnosticParams struct {
	Identifier        string             `json:"identifier,omitempty"`
	PreviousResultIDs []PreviousResultID `json:"previousResultIds"`
}

// WorkspaceFullDocumentDiagnosticReport is a full report for one document of the workspace.
type WorkspaceFullDocumentDiagnosticReport struct {
	FullDocumentDiagnosticReport
	URI     protocol.DocumentURI `json:"uri"`
	Version *int32               `json:"version"`
}

// WorkspaceDiagnosticReport is the result of workspace/diagnostic.
type WorkspaceDiagnosticReport struct {
	Items []WorkspaceFullDocumentDiagnosticReport `json:"items"`
}
