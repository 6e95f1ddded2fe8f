package entity

import (
	"github.com/uber/tsp-lsp/src/tspd/internal/projectview"
	"go.lsp.dev/protocol"
)

// Document is a text document opened by the client.
type Document struct {
	URI        protocol.DocumentURI        `json:"uri"`
	LanguageID protocol.LanguageIdentifier `json:"languageId"`
	Version    int32                       `json:"version"`
	Text       string                      `json:"-"`
}

// Workspace is a workspace folder with its project configuration.
type Workspace struct {
	Name    string                  `json:"name"`
	URI     protocol.DocumentURI    `json:"uri"`
	Root    string                  `json:"root"`
	Project projectview.ProjectFile `json:"-"`
}
