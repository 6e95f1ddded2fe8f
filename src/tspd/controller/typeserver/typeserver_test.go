package typeserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/factory"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/semantic"
	"github.com/uber/tsp-lsp/src/tspd/internal/errors"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
)

func newController() *controller {
	return New(Params{Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope}).(*controller)
}

func newSession(t *testing.T, files map[string]string) *session.Session {
	t.Helper()
	s, err := session.New(session.Params{FS: fs.New(), Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope})
	require.NoError(t, err)
	for path, text := range files {
		params := factory.DidOpenParams(uri.File(path), text)
		s.OpenDocument(&params)
	}
	return s
}

func getType(t *testing.T, c Controller, snapshot *session.Snapshot, path string, r protocol.Range) *entity.Type {
	t.Helper()
	result, err := c.GetType(context.Background(), snapshot, factory.GetTypeParams(uri.File(path), r))
	require.NoError(t, err)
	return result
}

func TestGetTypeScenarios(t *testing.T) {
	s := newSession(t, map[string]string{
		"/tmp/x.py": "x = 42\n",
		"/tmp/y.py": "y = \"hello\"\n",
	})
	c := newController()
	snapshot := s.Snapshot()

	x := getType(t, c, snapshot, "/tmp/x.py", factory.Range(0, 0, 1))
	assert.Equal(t, "int", x.Name)
	assert.Equal(t, entity.TypeCategoryAny, x.Category)
	assert.Equal(t, entity.TypeFlagsLiteral, x.Flags)
	assert.NotZero(t, x.Handle.Int())

	y := getType(t, c, snapshot, "/tmp/y.py", factory.Range(0, 0, 1))
	assert.Equal(t, "str", y.Name)
	assert.NotEqual(t, x.Handle, y.Handle)
}

func TestGetTypeBytesAndStrDiffer(t *testing.T) {
	s := newSession(t, map[string]string{"/tmp/b.py": "a = \"hi\"\nb = b\"hi\"\n"})
	c := newController()

	str := getType(t, c, s.Snapshot(), "/tmp/b.py", factory.Range(0, 0, 1))
	raw := getType(t, c, s.Snapshot(), "/tmp/b.py", factory.Range(1, 0, 1))
	assert.Equal(t, "str", str.Name)
	assert.Equal(t, entity.TypeFlagsLiteral, str.Flags)
	assert.Equal(t, "object", raw.Name)
	assert.NotEqual(t, entity.TypeFlagsLiteral, raw.Flags)
	assert.NotEqual(t, str.Handle, raw.Handle)
}

func TestGetTypeIsDeterministic(t *testing.T) {
	s := newSession(t, map[string]string{"/tmp/a.py": "values = [1, 2, 3]\ncount = len(values)\n"})
	c := newController()

	first := getType(t, c, s.Snapshot(), "/tmp/a.py", factory.Range(0, 0, 6))
	for i := 0; i < 3; i++ {
		again := getType(t, c, s.Snapshot(), "/tmp/a.py", factory.Range(0, 0, 6))
		assert.Equal(t, first.Handle, again.Handle)
		assert.Equal(t, first.Name, again.Name)
		assert.Equal(t, first.Category, again.Category)
	}
	assert.Equal(t, "list", first.Name)

	count := getType(t, c, s.Snapshot(), "/tmp/a.py", factory.Range(1, 0, 5))
	assert.Equal(t, "int", count.Name)
	assert.NotEqual(t, first.Handle, count.Handle, "an int and a list never share a handle")
}

func TestGetTypeProximity(t *testing.T) {
	s := newSession(t, map[string]string{"/tmp/p.py": "x = 42\n"})
	c := newController()

	t.Run("position past the end of the line is clamped", func(t *testing.T) {
		result := getType(t, c, s.Snapshot(), "/tmp/p.py", factory.Range(0, 40, 40))
		assert.Equal(t, "int", result.Name)
	})

	t.Run("plain file paths are accepted", func(t *testing.T) {
		result, err := c.GetType(context.Background(), s.Snapshot(), entity.GetTypeParams{
			Node: entity.Node{URI: "/tmp/p.py", Range: factory.Range(0, 0, 1)},
		})
		require.NoError(t, err)
		assert.Equal(t, "int", result.Name)
	})
}

func TestGetTypeErrors(t *testing.T) {
	c := newController()

	t.Run("document not found", func(t *testing.T) {
		s := newSession(t, nil)
		_, err := c.GetType(context.Background(), s.Snapshot(), factory.GetTypeParams(uri.File("/nonexistent/dir/z.py"), factory.Range(0, 0, 1)))
		var notFound *errors.DocumentNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("no expression", func(t *testing.T) {
		s := newSession(t, map[string]string{"/tmp/empty.py": "# nothing here\n"})
		_, err := c.GetType(context.Background(), s.Snapshot(), factory.GetTypeParams(uri.File("/tmp/empty.py"), factory.Range(0, 2, 4)))
		var noNode *errors.NoNodeFoundError
		assert.ErrorAs(t, err, &noNode)
	})
}

func TestGetTypeArgs(t *testing.T) {
	s := newSession(t, map[string]string{"/tmp/u.py": "u = 1 if True else \"hello\"\nn = 3\n"})
	c := newController()
	snapshot := s.Snapshot()
	ctx := context.Background()

	union := getType(t, c, snapshot, "/tmp/u.py", factory.Range(0, 0, 1))
	assert.Equal(t, "Union", union.Name)
	assert.Equal(t, entity.TypeCategoryUnion, union.Category)

	args, err := c.GetTypeArgs(ctx, snapshot, entity.GetTypeArgsParams{Type: *union, Snapshot: snapshot.Revision()})
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "int", args[0].Name)
	assert.Equal(t, "str", args[1].Name)

	t.Run("constituents can be queried in turn", func(t *testing.T) {
		nested, err := c.GetTypeArgs(ctx, snapshot, entity.GetTypeArgsParams{Type: args[0]})
		require.NoError(t, err)
		assert.Empty(t, nested)
		assert.NotNil(t, nested)
	})

	t.Run("non union types have no arguments", func(t *testing.T) {
		n := getType(t, c, snapshot, "/tmp/u.py", factory.Range(1, 0, 1))
		args, err := c.GetTypeArgs(ctx, snapshot, entity.GetTypeArgsParams{Type: *n})
		require.NoError(t, err)
		assert.Empty(t, args)
	})

	t.Run("unknown handles yield an empty list", func(t *testing.T) {
		args, err := c.GetTypeArgs(ctx, snapshot, entity.GetTypeArgsParams{Type: entity.Type{Handle: entity.StringHandle("nope")}})
		require.NoError(t, err)
		assert.NotNil(t, args)
		assert.Empty(t, args)
	})

	t.Run("handles of an older revision are forgotten", func(t *testing.T) {
		params := factory.DidOpenParams(uri.File("/tmp/other.py"), "z = 1\n")
		s.OpenDocument(&params)
		newer := s.Snapshot()
		getType(t, c, newer, "/tmp/other.py", factory.Range(0, 0, 1))

		args, err := c.GetTypeArgs(ctx, newer, entity.GetTypeArgsParams{Type: *union})
		require.NoError(t, err)
		assert.Empty(t, args)
	})
}

func TestHandleTable(t *testing.T) {
	intType := semantic.Instance{Class: semantic.ClassInt}
	table := newHandleTable()
	table.store(2, entity.IntHandle(1), intType)
	table.store(1, entity.IntHandle(2), intType)

	_, ok := table.lookup(2, entity.IntHandle(1))
	assert.True(t, ok)
	_, ok = table.lookup(2, entity.IntHandle(2))
	assert.False(t, ok, "stale revisions are not recorded")
	_, ok = table.lookup(1, entity.IntHandle(1))
	assert.False(t, ok)
}
