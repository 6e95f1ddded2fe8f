// Package entity contains the domain types for the tspd service.
package entity

import (
	"github.com/gofrs/uuid"
	"go.lsp.dev/protocol"
)

type keyType string

// SessionContextKey indicates the key to be used to identify the session UUID in the context.
const SessionContextKey keyType = "SessionUUID"

// Revision is the global state counter. It never decreases.
type Revision int64

// ServerInfo identifies the running server.
type ServerInfo struct {
	Name    string    `json:"name" yaml:"name"`
	Version string    `json:"version" yaml:"version"`
	UUID    uuid.UUID `json:"-" yaml:"-"`
}

// ToProtocol converts to the initialize result form.
func (s ServerInfo) ToProtocol() *protocol.ServerInfo {
	return &protocol.ServerInfo{
		Name:    s.Name,
		Version: s.Version,
	}
}
