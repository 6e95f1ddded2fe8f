package errors

import (
	"fmt"

	"go.lsp.dev/protocol"
)

// DocumentNotFoundError indicates that a document is neither open nor readable from disk.
type DocumentNotFoundError struct {
	Document protocol.TextDocumentIdentifier
	Err      error
}

// Error is an implementation of the error interface.
func (n *DocumentNotFoundError) Error() string {
	if n.Err != nil {
		return fmt.Sprintf("Document %q not found: %v", n.Document.URI, n.Err)
	}
	return fmt.Sprintf("Document %q not found", n.Document.URI)
}

// Unwrap returns the underlying lookup error, if any.
func (n *DocumentNotFoundError) Unwrap() error {
	return n.Err
}

// NoNodeFoundError indicates that no syntax node matched the requested location.
type NoNodeFoundError struct {
	Document   protocol.TextDocumentIdentifier
	Start, End int
}

// Error is an implementation of the error interface.
func (n *NoNodeFoundError) Error() string {
	return fmt.Sprintf("no node found in %q at offsets %d-%d", n.Document.URI, n.Start, n.End)
}

// DocumentOutdatedError indicates that a change notification does not follow the current version.
type DocumentOutdatedError struct {
	Document        protocol.DocumentURI
	CurrentVersion  int32
	OutdatedVersion int32
}

// Error is an implementation of the error interface.
func (n *DocumentOutdatedError) Error() string {
	return fmt.Sprintf("document %q version is outdated.  Current version: %v, Outdated version: %v", n.Document, n.CurrentVersion, n.OutdatedVersion)
}
