package session

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/factory"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs/fsmock"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newSession(t *testing.T, files map[string]string) *Session {
	t.Helper()
	ctrl := gomock.NewController(t)
	fileSystem := fsmock.NewMockFS(ctrl)
	fileSystem.EXPECT().FileExists(gomock.Any()).DoAndReturn(func(name string) (bool, error) {
		_, ok := files[name]
		return ok, nil
	}).AnyTimes()
	fileSystem.EXPECT().ReadFile(gomock.Any()).DoAndReturn(func(name string) ([]byte, error) {
		content, ok := files[name]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(content), nil
	}).AnyTimes()

	s, err := New(Params{
		FS:     fileSystem,
		Logger: zap.NewNop().Sugar(),
		Stats:  tally.NewTestScope("testing", make(map[string]string, 0)),
	})
	require.NoError(t, err)
	return s
}

func TestInitialize(t *testing.T) {
	s := newSession(t, nil)
	assert.False(t, s.Initialized())
	assert.Nil(t, s.WorkspaceFolders())

	require.NoError(t, s.Initialize(&protocol.InitializeParams{RootURI: "file:///ws/project"}))
	assert.True(t, s.Initialized())
	assert.Equal(t, []protocol.WorkspaceFolder{{URI: "file:///ws/project", Name: "project"}}, s.WorkspaceFolders())

	err := s.Initialize(&protocol.InitializeParams{})
	assert.ErrorIs(t, err, errors.AlreadyInitializedError)
}

func TestDocumentLifecycle(t *testing.T) {
	s := newSession(t, nil)
	documentURI := uri.File("/ws/a.py")

	assert.Equal(t, int64(1), int64(s.OpenDocument(&protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: documentURI, LanguageID: "python", Version: 1, Text: "x = 1\n"},
	})))

	rev, err := s.ChangeDocument(&protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: documentURI}, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "x = 2\n"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), int64(rev))
	doc, ok := s.Document(documentURI)
	require.True(t, ok)
	assert.Equal(t, "x = 2\n", doc.Text)

	t.Run("outdated change", func(t *testing.T) {
		rev, err := s.ChangeDocument(&protocol.DidChangeTextDocumentParams{
			TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: documentURI}, Version: 2},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "x = 3\n"}},
		})
		var outdated *errors.DocumentOutdatedError
		assert.ErrorAs(t, err, &outdated)
		assert.Equal(t, int64(2), int64(rev))
	})

	t.Run("close", func(t *testing.T) {
		rev, err := s.CloseDocument(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: documentURI}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), int64(rev))

		_, err = s.CloseDocument(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: documentURI}})
		var notFound *errors.DocumentNotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(3), int64(s.Revision()))
	})

	t.Run("files changed", func(t *testing.T) {
		assert.Equal(t, int64(4), int64(s.FilesChanged([]*protocol.FileEvent{{URI: documentURI, Type: protocol.FileChangeTypeChanged}})))
	})
}

func TestShutdown(t *testing.T) {
	s := newSession(t, nil)
	assert.False(t, s.ShutdownRequested())
	s.RequestShutdown()
	s.RequestShutdown()
	assert.True(t, s.ShutdownRequested())
}

func TestSnapshot(t *testing.T) {
	files := map[string]string{
		"/ws/.tspd.yaml":          "moduleRoot: src\nexclude:\n  - build\n",
		"/ws/src/utils.py":        "class MyClass:\n    pass\n\ndef create_instance():\n    return MyClass()\n",
		"/ws/src/pkg/__init__.py": "",
		"/ws/build/gen.py":        "x = 1\n",
	}
	s := newSession(t, files)
	require.NoError(t, s.Initialize(&protocol.InitializeParams{}))
	require.NoError(t, s.InitializeWorkspaces([]protocol.WorkspaceFolder{{URI: "file:///ws", Name: "ws"}}))
	require.Len(t, s.Workspaces(), 1)
	assert.Equal(t, "src", s.Workspaces()[0].Project.ModuleRoot)

	mainURI := uri.File("/ws/src/main.py")
	s.OpenDocument(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI: mainURI, Version: 1, Text: "from utils import create_instance\nmy_instance = create_instance()\n",
	}})
	snapshot := s.Snapshot()
	ctx := context.Background()

	t.Run("isolated from later changes", func(t *testing.T) {
		_, err := s.ChangeDocument(&protocol.DidChangeTextDocumentParams{
			TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: mainURI}, Version: 2},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "changed = 1\n"}},
		})
		require.NoError(t, err)

		doc, err := snapshot.Document(ctx, mainURI)
		require.NoError(t, err)
		assert.Contains(t, string(doc.Tree.Source), "create_instance")
		assert.Equal(t, "main", doc.Module)
		assert.Equal(t, entity.Revision(1), snapshot.Revision())
		assert.Len(t, snapshot.OpenDocuments(), 1)
	})

	t.Run("parsed documents are cached", func(t *testing.T) {
		first, err := snapshot.Document(ctx, mainURI)
		require.NoError(t, err)
		second, err := snapshot.Document(ctx, mainURI)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("unopened files are read from disk", func(t *testing.T) {
		doc, ok := snapshot.Load(ctx, "utils")
		require.True(t, ok)
		assert.Equal(t, "utils", doc.Module)
		assert.Equal(t, uri.File("/ws/src/utils.py"), doc.URI)
		assert.False(t, doc.Tree.Root == nil)
	})

	t.Run("packages", func(t *testing.T) {
		doc, ok := snapshot.Load(ctx, "pkg")
		require.True(t, ok)
		assert.Equal(t, "pkg", doc.Module)
		assert.True(t, doc.Package)

		_, ok = snapshot.Load(ctx, "missing")
		assert.False(t, ok)
	})

	t.Run("excluded files are not found", func(t *testing.T) {
		_, err := snapshot.Document(ctx, uri.File("/ws/build/gen.py"))
		var notFound *errors.DocumentNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("missing files are not found", func(t *testing.T) {
		_, err := snapshot.Document(ctx, uri.File("/ws/src/nope.py"))
		var notFound *errors.DocumentNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("files outside the module root have no module name", func(t *testing.T) {
		other := uri.File("/ws/scripts/run.py")
		s.OpenDocument(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{URI: other, Version: 1, Text: "pass\n"}})
		doc, err := s.Snapshot().Document(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, doc.Module)
	})
}

func TestInitializeWorkspacesReportsInvalidProjectFiles(t *testing.T) {
	s := newSession(t, map[string]string{
		"/ws/.tspd.yaml": "moduleRoot: /abs\nexclude:\n  - build\n",
	})
	err := s.InitializeWorkspaces([]protocol.WorkspaceFolder{{URI: "file:///ws", Name: "ws"}})
	assert.Error(t, err)
	require.Len(t, s.Workspaces(), 1)
	assert.Equal(t, []string{"build"}, s.Workspaces()[0].Project.Exclude)
}

func TestNestedWorkspacesPreferDeepestRoot(t *testing.T) {
	s := newSession(t, nil)
	require.NoError(t, s.InitializeWorkspaces([]protocol.WorkspaceFolder{
		{URI: "file:///ws", Name: "outer"},
		{URI: "file:///ws/inner", Name: "inner"},
	}))
	ws, rel, ok := workspaceFor(s.Workspaces(), "/ws/inner/a/b.py")
	require.True(t, ok)
	assert.Equal(t, "inner", ws.Name)
	assert.Equal(t, "a/b.py", rel)

	_, _, ok = workspaceFor(s.Workspaces(), "/elsewhere/c.py")
	assert.False(t, ok)
}

func TestSnapshotOfFactoryDocument(t *testing.T) {
	s := newSession(t, nil)
	params := factory.DidOpenParams(uri.File("/tmp/x.py"), "y = \"hello\"\n")
	s.OpenDocument(&params)
	doc, err := s.Snapshot().Document(context.Background(), uri.File("/tmp/x.py"))
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Module)
}
