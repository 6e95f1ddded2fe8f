package tspdaemon

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/controller/lsp/lspmock"
	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/controller/typeserver/typeservermock"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/factory"
	ideclient "github.com/uber/tsp-lsp/src/tspd/gateway/ide-client"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"github.com/uber/tsp-lsp/src/tspd/internal/jsonrpcfx/jsonrpcfxmock"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type fixture struct {
	router     Router
	lsp        *lspmock.MockController
	typeServer *typeservermock.MockController
	transport  *jsonrpcfxmock.MockTransport
	session    *session.Session
	stats      tally.TestScope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		lsp:        lspmock.NewMockController(ctrl),
		typeServer: typeservermock.NewMockController(ctrl),
		transport:  jsonrpcfxmock.NewMockTransport(ctrl),
		stats:      tally.NewTestScope("testing", make(map[string]string, 0)),
	}
	s, err := session.New(session.Params{FS: fs.New(), Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope})
	require.NoError(t, err)
	f.session = s
	f.router = New(Params{
		LSP:        f.lsp,
		TypeServer: f.typeServer,
		IdeGateway: ideclient.New(ideclient.Params{Transport: f.transport, Logger: zap.NewNop().Sugar()}),
		Logger:     zap.NewNop().Sugar(),
		Stats:      f.stats,
	})
	return f
}

// immediateResponse returns the single response carried by an immediate task.
func immediateResponse(t *testing.T, task scheduler.Task) *jsonrpc2.Response {
	t.Helper()
	require.Equal(t, scheduler.KindImmediate, task.Kind)
	require.Len(t, task.Actions, 1)
	send, ok := task.Actions[0].(entity.SendResponse)
	require.True(t, ok)
	return send.Response
}

func errorCode(t *testing.T, resp *jsonrpc2.Response) jsonrpc2.Code {
	t.Helper()
	var wire *jsonrpc2.Error
	require.ErrorAs(t, resp.Err(), &wire)
	return wire.Code
}

func TestTypeServerRouting(t *testing.T) {
	ctx := context.Background()

	t.Run("supported protocol version", func(t *testing.T) {
		f := newFixture(t)
		resp := immediateResponse(t, f.router.Route(ctx, factory.Call(1, entity.MethodTSPGetSupportedProtocolVersion, nil), f.session))
		assert.Equal(t, jsonrpc2.NewNumberID(1), resp.ID())
		require.NoError(t, resp.Err())
		assert.Regexp(t, regexp.MustCompile(`^"\d+\.\d+\.\d+"$`), string(resp.Result()))
	})

	t.Run("snapshot is the session revision", func(t *testing.T) {
		f := newFixture(t)
		params := factory.DidOpenParams("file:///a.py", "x = 1\n")
		f.session.OpenDocument(&params)
		resp := immediateResponse(t, f.router.Route(ctx, factory.Call(2, entity.MethodTSPGetSnapshot, nil), f.session))
		assert.JSONEq(t, "1", string(resp.Result()))
	})

	t.Run("getType runs on a worker", func(t *testing.T) {
		f := newFixture(t)
		params := factory.GetTypeParams("file:///a.py", factory.Range(0, 4, 6))
		want := &entity.Type{Handle: entity.IntHandle(7), Name: "int", Flags: entity.TypeFlagsInstance}
		f.typeServer.EXPECT().GetType(gomock.Any(), gomock.Any(), params).Return(want, nil)

		task := f.router.Route(ctx, factory.Call(3, entity.MethodTSPGetType, params), f.session)
		require.Equal(t, scheduler.KindAsync, task.Kind)
		require.NotNil(t, task.ID)
		assert.Equal(t, jsonrpc2.NewNumberID(3), *task.ID)

		actions := task.Async(ctx, f.session.Snapshot())
		require.Len(t, actions, 1)
		resp := actions[0].(entity.SendResponse).Response
		assert.JSONEq(t, `{"handle":7,"category":0,"flags":2,"name":"int","categoryFlags":0}`, string(resp.Result()))
	})

	t.Run("getTypeArgs runs on a worker", func(t *testing.T) {
		f := newFixture(t)
		params := entity.GetTypeArgsParams{Type: entity.Type{Handle: entity.IntHandle(9)}, Snapshot: 1}
		f.typeServer.EXPECT().GetTypeArgs(gomock.Any(), gomock.Any(), params).Return([]entity.Type{}, nil)

		task := f.router.Route(ctx, factory.Call(4, entity.MethodTSPGetTypeArgs, params), f.session)
		require.Equal(t, scheduler.KindAsync, task.Kind)
		actions := task.Async(ctx, f.session.Snapshot())
		require.Len(t, actions, 1)
		assert.JSONEq(t, "[]", string(actions[0].(entity.SendResponse).Response.Result()))
	})

	t.Run("failing getType is answered with an error", func(t *testing.T) {
		f := newFixture(t)
		params := factory.GetTypeParams("file:///a.py", factory.Range(0, 0, 1))
		f.typeServer.EXPECT().GetType(gomock.Any(), gomock.Any(), params).Return(nil, &errors.NoNodeFoundError{Start: 0, End: 1})

		task := f.router.Route(ctx, factory.Call(5, entity.MethodTSPGetType, params), f.session)
		actions := task.Async(ctx, f.session.Snapshot())
		require.Len(t, actions, 1)
		assert.Equal(t, jsonrpc2.InvalidRequest, errorCode(t, actions[0].(entity.SendResponse).Response))
	})

	t.Run("unimplemented methods", func(t *testing.T) {
		f := newFixture(t)
		for i, method := range entity.UnimplementedTSPMethods {
			resp := immediateResponse(t, f.router.Route(ctx, factory.Call(int32(i), method, map[string]string{}), f.session))
			assert.Equal(t, jsonrpc2.MethodNotFound, errorCode(t, resp), method)
		}
	})

	t.Run("malformed params", func(t *testing.T) {
		f := newFixture(t)
		resp := immediateResponse(t, f.router.Route(ctx, factory.Call(6, entity.MethodTSPGetType, nil), f.session))
		assert.Equal(t, jsonrpc2.ParseError, errorCode(t, resp))

		resp = immediateResponse(t, f.router.Route(ctx, factory.Call(7, entity.MethodTSPGetType, map[string]int{"node": 3}), f.session))
		assert.Equal(t, jsonrpc2.ParseError, errorCode(t, resp))
	})

	t.Run("unknown method", func(t *testing.T) {
		f := newFixture(t)
		resp := immediateResponse(t, f.router.Route(ctx, factory.Call(8, "typeServer/doesNotExist", nil), f.session))
		assert.Equal(t, jsonrpc2.ParseError, errorCode(t, resp))
	})

	t.Run("notifications are ignored", func(t *testing.T) {
		f := newFixture(t)
		task := f.router.Route(ctx, factory.Notification(entity.MethodTSPGetSnapshot, nil), f.session)
		assert.Equal(t, scheduler.KindImmediate, task.Kind)
		assert.Empty(t, task.Actions)
	})
}

func TestLSPRouting(t *testing.T) {
	ctx := context.Background()

	t.Run("initialize runs on the main loop", func(t *testing.T) {
		f := newFixture(t)
		id := jsonrpc2.NewNumberID(1)
		want := []entity.Action{entity.InitializeWorkspaces{}}
		f.lsp.EXPECT().Initialize(gomock.Any(), f.session, id, gomock.Any()).Return(want)

		task := f.router.Route(ctx, factory.Call(1, protocol.MethodInitialize, protocol.InitializeParams{RootURI: "file:///ws"}), f.session)
		require.Equal(t, scheduler.KindSync, task.Kind)
		assert.Equal(t, want, task.Sync(ctx, f.session))
	})

	t.Run("initialized and shutdown run on the main loop", func(t *testing.T) {
		f := newFixture(t)
		f.lsp.EXPECT().Initialized(gomock.Any(), f.session).Return(nil)
		f.lsp.EXPECT().Shutdown(gomock.Any(), f.session, jsonrpc2.NewNumberID(2)).Return(nil)

		task := f.router.Route(ctx, factory.Notification(protocol.MethodInitialized, struct{}{}), f.session)
		require.Equal(t, scheduler.KindSync, task.Kind)
		assert.Nil(t, task.ID)
		task.Sync(ctx, f.session)

		task = f.router.Route(ctx, factory.Call(2, protocol.MethodShutdown, nil), f.session)
		require.Equal(t, scheduler.KindSync, task.Kind)
		task.Sync(ctx, f.session)
	})

	t.Run("document sync", func(t *testing.T) {
		f := newFixture(t)
		f.lsp.EXPECT().DidOpen(gomock.Any(), f.session, gomock.Any()).Return([]entity.Action{entity.GlobalStateChanged{Revision: 1}})
		f.lsp.EXPECT().DidChange(gomock.Any(), f.session, gomock.Any()).Return(nil)
		f.lsp.EXPECT().DidClose(gomock.Any(), f.session, gomock.Any()).Return(nil)
		f.lsp.EXPECT().DidChangeWatchedFiles(gomock.Any(), f.session, gomock.Len(1)).Return(nil)

		requests := []jsonrpc2.Request{
			factory.Notification(protocol.MethodTextDocumentDidOpen, factory.DidOpenParams("file:///a.py", "x = 1\n")),
			factory.Notification(protocol.MethodTextDocumentDidChange, protocol.DidChangeTextDocumentParams{}),
			factory.Notification(protocol.MethodTextDocumentDidClose, protocol.DidCloseTextDocumentParams{}),
			factory.Notification(protocol.MethodWorkspaceDidChangeWatchedFiles, protocol.DidChangeWatchedFilesParams{
				Changes: []*protocol.FileEvent{{URI: "file:///a.py", Type: protocol.FileChangeTypeDeleted}},
			}),
		}
		for _, req := range requests {
			task := f.router.Route(ctx, req, f.session)
			require.Equal(t, scheduler.KindSync, task.Kind, req.Method())
			task.Sync(ctx, f.session)
		}
	})

	t.Run("invalid notifications are dropped", func(t *testing.T) {
		f := newFixture(t)
		task := f.router.Route(ctx, factory.Notification(protocol.MethodTextDocumentDidOpen, []int{1}), f.session)
		assert.Equal(t, scheduler.KindImmediate, task.Kind)
		assert.Empty(t, task.Actions)
	})

	t.Run("code intel runs on a worker", func(t *testing.T) {
		f := newFixture(t)
		f.lsp.EXPECT().Hover(gomock.Any(), gomock.Any(), jsonrpc2.NewNumberID(3), gomock.Any()).Return(nil)
		f.lsp.EXPECT().DocumentDiagnostic(gomock.Any(), gomock.Any(), jsonrpc2.NewNumberID(4), gomock.Any()).Return(nil)
		f.lsp.EXPECT().WorkspaceDiagnostic(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		for _, call := range []*jsonrpc2.Call{
			factory.Call(3, protocol.MethodTextDocumentHover, protocol.HoverParams{}),
			factory.Call(4, entity.MethodTextDocumentDiagnostic, entity.DocumentDiagnosticParams{}),
			factory.Call(5, entity.MethodWorkspaceDiagnostic, entity.WorkspaceDiagnosticParams{}),
		} {
			task := f.router.Route(ctx, call, f.session)
			require.Equal(t, scheduler.KindAsync, task.Kind, call.Method())
			task.Async(ctx, f.session.Snapshot())
		}
	})

	t.Run("invalid request params", func(t *testing.T) {
		f := newFixture(t)
		resp := immediateResponse(t, f.router.Route(ctx, factory.Call(6, protocol.MethodTextDocumentHover, []int{1}), f.session))
		assert.Equal(t, jsonrpc2.ParseError, errorCode(t, resp))
	})

	t.Run("unknown methods", func(t *testing.T) {
		f := newFixture(t)
		resp := immediateResponse(t, f.router.Route(ctx, factory.Call(7, "textDocument/foldingRange", nil), f.session))
		assert.Equal(t, jsonrpc2.MethodNotFound, errorCode(t, resp))

		task := f.router.Route(ctx, factory.Notification("$/progress", nil), f.session)
		assert.Equal(t, scheduler.KindImmediate, task.Kind)
		assert.Empty(t, task.Actions)
	})

	t.Run("routed requests are counted per family", func(t *testing.T) {
		f := newFixture(t)
		f.router.Route(ctx, factory.Call(8, "textDocument/foldingRange", nil), f.session)
		f.router.Route(ctx, factory.Call(9, entity.MethodTSPGetSnapshot, nil), f.session)

		counts := make(map[string]int64)
		for _, c := range f.stats.Snapshot().Counters() {
			counts[c.Tags()["family"]] += c.Value()
		}
		assert.Equal(t, map[string]int64{"lsp": 1, "tsp": 1}, counts)
	})
}
