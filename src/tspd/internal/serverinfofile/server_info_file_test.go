package serverinfofile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs/fsmock"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newProvider(t *testing.T, yaml string) config.Provider {
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	return provider
}

func TestNew(t *testing.T) {
	t.Run("disabled without a path", func(t *testing.T) {
		info, err := New(Params{
			Config:    newProvider(t, "serverInfoFilePath: \"\"\n"),
			Lifecycle: fxtest.NewLifecycle(t),
			FS:        fsmock.NewMockFS(gomock.NewController(t)),
			Logger:    zap.NewNop().Sugar(),
		})
		require.NoError(t, err)
		assert.NoError(t, info.UpdateField("jsonrpc", "localhost:1"))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(Params{
			Config:    newProvider(t, "serverInfoFilePath:\n  nested: true\n"),
			Lifecycle: fxtest.NewLifecycle(t),
			Logger:    zap.NewNop().Sugar(),
		})
		assert.Error(t, err)
	})

	t.Run("lifecycle", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "info.json")
		lc := fxtest.NewLifecycle(t)
		info, err := New(Params{
			Config:    newProvider(t, "serverInfoFilePath: "+path+"\n"),
			Lifecycle: lc,
			FS:        fs.New(),
			Logger:    zap.NewNop().Sugar(),
		})
		require.NoError(t, err)

		lc.RequireStart()
		require.NoError(t, info.UpdateField("jsonrpc", "localhost:7658"))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"pid":"`+strconv.Itoa(os.Getpid())+`","jsonrpc":"localhost:7658"}`, string(content))

		lc.RequireStop()
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestOnStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileSystem := fsmock.NewMockFS(ctrl)
	m := &module{infoFile: "/run/tspd/info.json", fs: fileSystem, logger: zap.NewNop().Sugar(), fileContents: map[string]string{}}

	fileSystem.EXPECT().MkdirAll("/run/tspd").Return(errors.New("read-only file system"))
	assert.ErrorContains(t, m.OnStart(context.Background()), "read-only file system")
}

func TestUpdateField(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileSystem := fsmock.NewMockFS(ctrl)
	m := &module{infoFile: "/tmp/info.json", fs: fileSystem, logger: zap.NewNop().Sugar(), fileContents: map[string]string{}}

	fileSystem.EXPECT().WriteFile("/tmp/info.json", []byte(`{"a":"1"}`)).Return(nil)
	require.NoError(t, m.UpdateField("a", "1"))

	fileSystem.EXPECT().WriteFile("/tmp/info.json", []byte(`{"a":"1","b":"2"}`)).Return(errors.New("disk full"))
	assert.ErrorContains(t, m.UpdateField("b", "2"), "disk full")
}

func TestOnStopWithoutContents(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := &module{infoFile: "/tmp/info.json", fs: fsmock.NewMockFS(ctrl), logger: zap.NewNop().Sugar(), fileContents: map[string]string{}}
	assert.NoError(t, m.OnStop(context.Background()))
}
