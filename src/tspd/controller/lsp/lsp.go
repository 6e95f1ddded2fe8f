// Package lsp implements the base Language Server Protocol handlers: lifecycle, document
// synchronization, hover and pull diagnostics.
package lsp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	ideclient "github.com/uber/tsp-lsp/src/tspd/gateway/ide-client"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/resolver"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/semantic"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/syntax"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	tspprotocol "github.com/uber/tsp-lsp/src/tspd/internal/protocol"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_serverKey         = "server"
	_diagnosticSource  = "tspd"
	_watchedFilesGlob  = "**/*.{py,pyi}"
	_diagnosticMessage = "Syntax error"
)

// Module provides the LSP Controller.
var Module = fx.Provide(New)

// Controller handles the base LSP methods. Methods taking a Session run on the main loop, methods
// taking a Snapshot run on a worker. Every method answers through the returned actions.
type Controller interface {
	Initialize(ctx context.Context, s *session.Session, id jsonrpc2.ID, params *protocol.InitializeParams) []entity.Action
	Initialized(ctx context.Context, s *session.Session) []entity.Action
	Shutdown(ctx context.Context, s *session.Session, id jsonrpc2.ID) []entity.Action

	DidOpen(ctx context.Context, s *session.Session, params *protocol.DidOpenTextDocumentParams) []entity.Action
	DidChange(ctx context.Context, s *session.Session, params *protocol.DidChangeTextDocumentParams) []entity.Action
	DidClose(ctx context.Context, s *session.Session, params *protocol.DidCloseTextDocumentParams) []entity.Action
	// DidChangeWatchedFiles bumps the revision so that later snapshots read changed files again.
	DidChangeWatchedFiles(ctx context.Context, s *session.Session, changes []*protocol.FileEvent) []entity.Action

	Hover(ctx context.Context, snapshot *session.Snapshot, id jsonrpc2.ID, params *protocol.HoverParams) []entity.Action
	DocumentDiagnostic(ctx context.Context, snapshot *session.Snapshot, id jsonrpc2.ID, params *entity.DocumentDiagnosticParams) []entity.Action
	// WorkspaceDiagnostic reports every open document. When the client already holds the reports of
	// the current revision the request is suspended until the state changes.
	WorkspaceDiagnostic(ctx context.Context, snapshot *session.Snapshot, call *jsonrpc2.Call, params *entity.WorkspaceDiagnosticParams) []entity.Action
}

// Params are the dependencies of the Controller.
type Params struct {
	fx.In

	Config     config.Provider
	IdeGateway ideclient.Gateway
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type controller struct {
	serverInfo entity.ServerInfo
	ideGateway ideclient.Gateway
	logger     *zap.SugaredLogger
	stats      tally.Scope
}

// New creates the LSP Controller.
func New(p Params) (Controller, error) {
	var info entity.ServerInfo
	if err := p.Config.Get(_serverKey).Populate(&info); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _serverKey, err)
	}
	return &controller{
		serverInfo: info,
		ideGateway: p.IdeGateway,
		logger:     p.Logger,
		stats:      p.Stats.SubScope("lsp"),
	}, nil
}

func (c *controller) Initialize(ctx context.Context, s *session.Session, id jsonrpc2.ID, params *protocol.InitializeParams) []entity.Action {
	if err := s.Initialize(params); err != nil {
		return []entity.Action{c.ideGateway.Respond(ctx, id, protocol.MethodInitialize, nil, err)}
	}

	info := c.serverInfo
	info.UUID = s.UUID
	c.logger.Infow("initializing session", "session", s.UUID.String(), "rootURI", params.RootURI, "workspaceFolders", len(params.WorkspaceFolders))

	result := &entity.InitializeResult{
		Capabilities: entity.ServerCapabilities{
			ServerCapabilities: protocol.ServerCapabilities{
				TextDocumentSync: protocol.TextDocumentSyncKindIncremental,
				HoverProvider:    true,
			},
			DiagnosticProvider: &entity.DiagnosticOptions{
				Identifier:            _diagnosticSource,
				InterFileDependencies: true,
				WorkspaceDiagnostics:  true,
			},
		},
		ServerInfo: info.ToProtocol(),
	}
	return []entity.Action{
		c.ideGateway.Respond(ctx, id, protocol.MethodInitialize, result, nil),
		entity.InitializeWorkspaces{Folders: s.WorkspaceFolders()},
	}
}

func (c *controller) Initialized(ctx context.Context, s *session.Session) []entity.Action {
	registrationID, err := uuid.NewV4()
	if err != nil {
		c.logger.Warnw("skipping watched files registration", zap.Error(err))
		return nil
	}
	params := &protocol.RegistrationParams{
		Registrations: []protocol.Registration{{
			ID:     registrationID.String(),
			Method: protocol.MethodWorkspaceDidChangeWatchedFiles,
			RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
				Watchers: []protocol.FileSystemWatcher{{GlobPattern: _watchedFilesGlob}},
			},
		}},
	}
	return []entity.Action{entity.SendRequest{
		Method: protocol.MethodClientRegisterCapability,
		Params: params,
		Handler: func(resp *jsonrpc2.Response) {
			if err := resp.Err(); err != nil {
				c.logger.Warnw("client rejected watched files registration", zap.Error(err))
				return
			}
			c.logger.Infow("registered watched files", "registration", registrationID.String())
		},
	}}
}

func (c *controller) Shutdown(ctx context.Context, s *session.Session, id jsonrpc2.ID) []entity.Action {
	s.RequestShutdown()
	c.logger.Infow("shutdown requested", "session", s.UUID.String())
	return []entity.Action{c.ideGateway.Respond(ctx, id, protocol.MethodShutdown, nil, nil)}
}

func (c *controller) DidOpen(ctx context.Context, s *session.Session, params *protocol.DidOpenTextDocumentParams) []entity.Action {
	revision := s.OpenDocument(params)
	c.logger.Debugw("opened document", "uri", params.TextDocument.URI, "revision", revision)
	return []entity.Action{entity.GlobalStateChanged{Revision: revision}}
}

func (c *controller) DidChange(ctx context.Context, s *session.Session, params *protocol.DidChangeTextDocumentParams) []entity.Action {
	revision, err := s.ChangeDocument(params)
	if err != nil {
		c.logger.Warnw("ignoring document change", "uri", params.TextDocument.URI, zap.Error(err))
		return nil
	}
	return []entity.Action{entity.GlobalStateChanged{Revision: revision}}
}

func (c *controller) DidClose(ctx context.Context, s *session.Session, params *protocol.DidCloseTextDocumentParams) []entity.Action {
	revision, err := s.CloseDocument(params)
	if err != nil {
		c.logger.Warnw("ignoring document close", "uri", params.TextDocument.URI, zap.Error(err))
		return nil
	}
	return []entity.Action{entity.GlobalStateChanged{Revision: revision}}
}

func (c *controller) DidChangeWatchedFiles(ctx context.Context, s *session.Session, changes []*protocol.FileEvent) []entity.Action {
	if len(changes) == 0 {
		return nil
	}
	revision := s.FilesChanged(changes)
	c.logger.Debugw("files changed on disk", "count", len(changes), "revision", revision)
	return []entity.Action{entity.GlobalStateChanged{Revision: revision}}
}

func (c *controller) Hover(ctx context.Context, snapshot *session.Snapshot, id jsonrpc2.ID, params *protocol.HoverParams) []entity.Action {
	hover, err := c.hover(ctx, snapshot, params)
	return []entity.Action{c.ideGateway.Respond(ctx, id, protocol.MethodTextDocumentHover, hover, err)}
}

func (c *controller) hover(ctx context.Context, snapshot *session.Snapshot, params *protocol.HoverParams) (*protocol.Hover, error) {
	documentURI := params.TextDocument.URI
	doc, err := snapshot.Document(ctx, documentURI)
	if err != nil {
		return nil, err
	}

	offsets := tspprotocol.NewTextOffsetMapper(doc.Tree.Source)
	offset := offsets.ClampedOffset(params.Position)
	resolved, ok := resolver.Exact(doc.Tree.Root, uint32(offset))
	if !ok {
		return nil, &errors.NoNodeFoundError{Document: params.TextDocument, Start: offset, End: offset}
	}

	t := semantic.NewEngine(ctx, snapshot).TypeOf(doc, resolved.Node)
	value := semantic.Display(t)
	if resolved.Node.Kind == syntax.KindIdentifier {
		value = resolved.Node.Text(doc.Tree.Source) + ": " + value
	}
	r, err := offsets.OffsetRange(int(resolved.Node.Start), int(resolved.Node.End))
	if err != nil {
		return nil, err
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: "```python\n" + value + "\n```",
		},
		Range: &r,
	}, nil
}

func (c *controller) DocumentDiagnostic(ctx context.Context, snapshot *session.Snapshot, id jsonrpc2.ID, params *entity.DocumentDiagnosticParams) []entity.Action {
	resultID := resultID(snapshot.Revision())
	if params.PreviousResultID == resultID {
		report := entity.UnchangedDocumentDiagnosticReport{Kind: entity.DiagnosticReportKindUnchanged, ResultID: resultID}
		return []entity.Action{c.ideGateway.Respond(ctx, id, entity.MethodTextDocumentDiagnostic, report, nil)}
	}

	doc, err := snapshot.Document(ctx, params.TextDocument.URI)
	if err != nil {
		return []entity.Action{c.ideGateway.Respond(ctx, id, entity.MethodTextDocumentDiagnostic, nil, err)}
	}
	report := entity.FullDocumentDiagnosticReport{
		Kind:     entity.DiagnosticReportKindFull,
		ResultID: resultID,
		Items:    syntaxDiagnostics(doc),
	}
	return []entity.Action{c.ideGateway.Respond(ctx, id, entity.MethodTextDocumentDiagnostic, report, nil)}
}

func (c *controller) WorkspaceDiagnostic(ctx context.Context, snapshot *session.Snapshot, call *jsonrpc2.Call, params *entity.WorkspaceDiagnosticParams) []entity.Action {
	resultID := resultID(snapshot.Revision())
	if upToDate(params.PreviousResultIDs, resultID) {
		c.stats.Counter("diagnostics_suspended").Inc(1)
		return []entity.Action{entity.SuspendDiagnostics{Request: call, Revision: snapshot.Revision()}}
	}

	report := entity.WorkspaceDiagnosticReport{Items: []entity.WorkspaceFullDocumentDiagnosticReport{}}
	for _, open := range snapshot.OpenDocuments() {
		doc, err := snapshot.Document(ctx, open.URI)
		if err != nil {
			c.logger.Warnw("skipping document in workspace diagnostics", "uri", open.URI, zap.Error(err))
			continue
		}
		version := open.Version
		report.Items = append(report.Items, entity.WorkspaceFullDocumentDiagnosticReport{
			FullDocumentDiagnosticReport: entity.FullDocumentDiagnosticReport{
				Kind:     entity.DiagnosticReportKindFull,
				ResultID: resultID,
				Items:    syntaxDiagnostics(doc),
			},
			URI:     open.URI,
			Version: &version,
		})
	}
	return []entity.Action{c.ideGateway.Respond(ctx, call.ID(), entity.MethodWorkspaceDiagnostic, report, nil)}
}

func resultID(revision entity.Revision) string {
	return strconv.FormatInt(int64(revision), 10)
}

// upToDate reports whether the client holds reports of the current revision for every document.
func upToDate(previous []entity.PreviousResultID, resultID string) bool {
	if len(previous) == 0 {
		return false
	}
	for _, p := range previous {
		if p.Value != resultID {
			return false
		}
	}
	return true
}

func syntaxDiagnostics(doc *semantic.Document) []protocol.Diagnostic {
	offsets := tspprotocol.NewTextOffsetMapper(doc.Tree.Source)
	items := make([]protocol.Diagnostic, 0, len(doc.Tree.Errors))
	for _, e := range doc.Tree.Errors {
		r, err := offsets.OffsetRange(int(e.Start), int(e.End))
		if err != nil {
			continue
		}
		message := _diagnosticMessage
		if e.Missing {
			message = fmt.Sprintf("%s: missing %s", _diagnosticMessage, e.Kind)
		}
		items = append(items, protocol.Diagnostic{
			Range:    r,
			Severity: protocol.DiagnosticSeverityError,
			Source:   _diagnosticSource,
			Message:  message,
		})
	}
	return items
}
