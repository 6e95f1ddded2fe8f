// Package session holds the state shared by every request of the connection.
package session

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"github.com/uber/tsp-lsp/src/tspd/internal/projectview"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Module provides the Session of the connection.
var Module = fx.Provide(New)

// Session is owned by the main loop. Its methods are not safe for concurrent use; tasks running
// on workers receive a Snapshot instead.
type Session struct {
	UUID uuid.UUID

	initParams *protocol.InitializeParams
	workspaces []entity.Workspace
	documents  map[protocol.DocumentURI]entity.Document
	revision   entity.Revision
	shutdown   bool

	fs     fs.FS
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// Params are the dependencies of the Session.
type Params struct {
	fx.In

	FS     fs.FS
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

// New creates an empty, uninitialized Session.
func New(p Params) (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Session{
		UUID:      id,
		documents: make(map[protocol.DocumentURI]entity.Document),
		fs:        p.FS,
		logger:    p.Logger,
		stats:     p.Stats.SubScope("session"),
	}, nil
}

// Initialize stores the parameters of the initialize handshake.
func (s *Session) Initialize(params *protocol.InitializeParams) error {
	if s.initParams != nil {
		return errors.AlreadyInitializedError
	}
	if params == nil {
		params = &protocol.InitializeParams{}
	}
	s.initParams = params
	return nil
}

// Initialized reports whether the initialize handshake happened.
func (s *Session) Initialized() bool {
	return s.initParams != nil
}

// InitializeParams returns the parameters of the initialize handshake.
func (s *Session) InitializeParams() *protocol.InitializeParams {
	return s.initParams
}

// WorkspaceFolders returns the folders announced by the client, falling back to the root URI.
func (s *Session) WorkspaceFolders() []protocol.WorkspaceFolder {
	if s.initParams == nil {
		return nil
	}
	if len(s.initParams.WorkspaceFolders) > 0 {
		return s.initParams.WorkspaceFolders
	}
	if s.initParams.RootURI != "" {
		root := string(s.initParams.RootURI)
		return []protocol.WorkspaceFolder{{URI: root, Name: filepath.Base(root)}}
	}
	return nil
}

// InitializeWorkspaces loads the project file of every folder. Invalid project files are
// reported while the valid part is still used.
func (s *Session) InitializeWorkspaces(folders []protocol.WorkspaceFolder) error {
	var errs error
	for _, folder := range folders {
		documentURI := mapper.ToDocumentURI(folder.URI)
		root, ok := mapper.URIToPath(documentURI)
		if !ok {
			errs = multierr.Append(errs, &errors.DocumentNotFoundError{Document: protocol.TextDocumentIdentifier{URI: documentURI}})
			continue
		}

		project, err := projectview.Load(s.fs, root)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		s.workspaces = append(s.workspaces, entity.Workspace{
			Name:    folder.Name,
			URI:     documentURI,
			Root:    filepath.Clean(root),
			Project: project,
		})
		s.logger.Infow("workspace initialized", "root", root, "moduleRoot", project.ModuleRoot, "exclude", project.Exclude)
	}

	// deepest roots first so nested workspaces win lookups
	sort.SliceStable(s.workspaces, func(i, j int) bool {
		return len(s.workspaces[i].Root) > len(s.workspaces[j].Root)
	})
	return errs
}

// Workspaces returns the initialized workspaces.
func (s *Session) Workspaces() []entity.Workspace {
	return s.workspaces
}

// OpenDocument starts tracking a document and returns the new revision.
func (s *Session) OpenDocument(params *protocol.DidOpenTextDocumentParams) entity.Revision {
	item := params.TextDocument
	s.documents[item.URI] = entity.Document{
		URI:        item.URI,
		LanguageID: item.LanguageID,
		Version:    item.Version,
		Text:       item.Text,
	}
	return s.bump()
}

// ChangeDocument applies content changes to an open document and returns the new revision.
func (s *Session) ChangeDocument(params *protocol.DidChangeTextDocumentParams) (entity.Revision, error) {
	documentURI := params.TextDocument.URI
	doc, ok := s.documents[documentURI]
	if !ok {
		return s.revision, &errors.DocumentNotFoundError{Document: params.TextDocument.TextDocumentIdentifier}
	}
	if params.TextDocument.Version <= doc.Version {
		return s.revision, &errors.DocumentOutdatedError{
			Document:        documentURI,
			CurrentVersion:  doc.Version,
			OutdatedVersion: params.TextDocument.Version,
		}
	}

	text, err := mapper.ApplyContentChanges(doc.Text, params.ContentChanges)
	if err != nil {
		return s.revision, err
	}
	doc.Text = text
	doc.Version = params.TextDocument.Version
	s.documents[documentURI] = doc
	return s.bump(), nil
}

// CloseDocument stops tracking a document and returns the new revision.
func (s *Session) CloseDocument(params *protocol.DidCloseTextDocumentParams) (entity.Revision, error) {
	if _, ok := s.documents[params.TextDocument.URI]; !ok {
		return s.revision, &errors.DocumentNotFoundError{Document: params.TextDocument}
	}
	delete(s.documents, params.TextDocument.URI)
	return s.bump(), nil
}

// Document returns an open document.
func (s *Session) Document(documentURI protocol.DocumentURI) (entity.Document, bool) {
	doc, ok := s.documents[documentURI]
	return doc, ok
}

// FilesChanged records that files changed on disk and returns the new revision. Later snapshots
// read unopened files again.
func (s *Session) FilesChanged(changes []*protocol.FileEvent) entity.Revision {
	for _, change := range changes {
		s.logger.Debugw("file changed", "uri", change.URI, "type", change.Type)
	}
	return s.bump()
}

// Revision returns the current revision.
func (s *Session) Revision() entity.Revision {
	return s.revision
}

// RequestShutdown sets the shutdown flag. It never clears.
func (s *Session) RequestShutdown() {
	s.shutdown = true
}

// ShutdownRequested reports whether shutdown was requested.
func (s *Session) ShutdownRequested() bool {
	return s.shutdown
}

// Snapshot returns an immutable view of the current state.
func (s *Session) Snapshot() *Snapshot {
	documents := make(map[protocol.DocumentURI]entity.Document, len(s.documents))
	for k, v := range s.documents {
		documents[k] = v
	}
	return newSnapshot(s.revision, append([]entity.Workspace(nil), s.workspaces...), documents, s.fs)
}

func (s *Session) bump() entity.Revision {
	s.revision++
	s.stats.Gauge("revision").Update(float64(s.revision))
	s.stats.Gauge("open_documents").Update(float64(len(s.documents)))
	return s.revision
}

// workspaceFor returns the workspace containing path and the slash separated relative path.
func workspaceFor(workspaces []entity.Workspace, path string) (entity.Workspace, string, bool) {
	for _, ws := range workspaces {
		rel, err := filepath.Rel(ws.Root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return ws, filepath.ToSlash(rel), true
	}
	return entity.Workspace{}, "", false
}
