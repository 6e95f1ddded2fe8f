package jsonrpcfx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/factory"
	"github.com/uber/tsp-lsp/src/tspd/internal/eventqueue"
	"github.com/uber/tsp-lsp/src/tspd/internal/serverinfofile/serverinfofilemock"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func next(t *testing.T, q eventqueue.Queue) entity.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := q.Next(ctx)
	require.NoError(t, err)
	return ev
}

func newProvider(t *testing.T, yaml string) config.Provider {
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	return provider
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "stdio", yaml: "jsonrpc:\n  mode: stdio\n"},
		{name: "default mode", yaml: "jsonrpc: {}\n"},
		{name: "tcp", yaml: "jsonrpc:\n  mode: tcp\n  address: localhost:0\n"},
		{name: "tcp without address", yaml: "jsonrpc:\n  mode: tcp\n", wantErr: true},
		{name: "unknown mode", yaml: "jsonrpc:\n  mode: pipe\n", wantErr: true},
		{name: "frame limit", yaml: "jsonrpc:\n  maxFrameSize: 1024\n"},
		{name: "negative frame limit", yaml: "jsonrpc:\n  maxFrameSize: -1\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Params{
				Config:         newProvider(t, tt.yaml),
				Lifecycle:      fxtest.NewLifecycle(t),
				Queue:          eventqueue.New(),
				ServerInfoFile: serverinfofilemock.NewMockServerInfoFile(gomock.NewController(t)),
				Level:          zap.NewAtomicLevel(),
				Logger:         zap.NewNop().Sugar(),
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("missing required params", func(t *testing.T) {
		_, err := New(Params{})
		assert.Error(t, err)
	})
}

func TestStdio(t *testing.T) {
	q := eventqueue.New()
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	m := newModule(Config{Mode: ModeStdio}, q, serverinfofilemock.NewMockServerInfoFile(gomock.NewController(t)), level, zap.NewNop().Sugar())
	client, server := net.Pipe()
	m.open = func() io.ReadWriteCloser { return server }
	require.NoError(t, m.OnStart(context.Background()))

	_, err := client.Write([]byte(frame(`{"jsonrpc":"2.0","id":1,"method":"typeServer/getSnapshot"}`)))
	require.NoError(t, err)
	_, err = client.Write([]byte(frame(`{"jsonrpc":"2.0","method":"$/setTrace","params":{"value":"verbose"}}`)))
	require.NoError(t, err)
	_, err = client.Write([]byte(frame(`{"jsonrpc":"2.0","id":1.5,"method":"typeServer/getSnapshot"}`)))
	require.NoError(t, err)

	msg, ok := next(t, q).(entity.MessageEvent)
	require.True(t, ok)
	call, ok := msg.Message.(*jsonrpc2.Call)
	require.True(t, ok)
	assert.Equal(t, jsonrpc2.NewNumberID(1), call.ID())

	invalid, ok := next(t, q).(entity.InvalidMessageEvent)
	require.True(t, ok, "$/setTrace never reaches the queue")
	assert.Contains(t, string(invalid.Data), "1.5")
	assert.Error(t, invalid.Err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	t.Run("write", func(t *testing.T) {
		errs := make(chan error, 1)
		go func() {
			errs <- m.Write(context.Background(), factory.Response(jsonrpc2.NewNumberID(1), 3))
		}()
		data, err := readFrame(bufio.NewReader(client), _defaultMaxFrameSize)
		require.NoError(t, err)
		assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":3}`, string(data))
		require.NoError(t, <-errs)
	})

	require.NoError(t, client.Close())
	<-m.done
	_, err = q.Next(context.Background())
	assert.ErrorIs(t, err, eventqueue.ErrClosed)
	assert.NoError(t, m.OnStop(context.Background()))
}

func TestTCP(t *testing.T) {
	t.Run("serves the first client", func(t *testing.T) {
		q := eventqueue.New()
		infoFile := serverinfofilemock.NewMockServerInfoFile(gomock.NewController(t))
		m := newModule(Config{Mode: ModeTCP, Address: "127.0.0.1:0"}, q, infoFile, zap.NewAtomicLevel(), zap.NewNop().Sugar())
		var published string
		infoFile.EXPECT().UpdateField("jsonrpc", gomock.Any()).DoAndReturn(func(_, address string) error {
			published = address
			return nil
		})
		require.NoError(t, m.OnStart(context.Background()))
		assert.Equal(t, m.ln.Addr().String(), published)

		conn, err := net.Dial("tcp", m.ln.Addr().String())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte(frame(`{"jsonrpc":"2.0","method":"initialized","params":{}}`)))
		require.NoError(t, err)
		msg, ok := next(t, q).(entity.MessageEvent)
		require.True(t, ok)
		assert.Equal(t, "initialized", msg.Message.(*jsonrpc2.Notification).Method())

		require.NoError(t, m.WriteRaw(context.Background(), []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32600,"message":"x"}}`)))
		data, err := readFrame(bufio.NewReader(conn), _defaultMaxFrameSize)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"id":null`)

		assert.NoError(t, m.OnStop(context.Background()))
	})

	t.Run("stopping without a client", func(t *testing.T) {
		q := eventqueue.New()
		infoFile := serverinfofilemock.NewMockServerInfoFile(gomock.NewController(t))
		infoFile.EXPECT().UpdateField("jsonrpc", gomock.Any()).Return(errors.New("read-only file system"))
		m := newModule(Config{Mode: ModeTCP, Address: "127.0.0.1:0"}, q, infoFile, zap.NewAtomicLevel(), zap.NewNop().Sugar())
		require.NoError(t, m.OnStart(context.Background()))
		assert.NoError(t, m.OnStop(context.Background()))

		err := m.Write(context.Background(), factory.Response(jsonrpc2.NewNumberID(1), nil))
		assert.ErrorIs(t, err, ErrNotConnected)
		_, err = q.Next(context.Background())
		assert.ErrorIs(t, err, eventqueue.ErrClosed)
	})
}

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: frame(`{}`), want: `{}`},
		{name: "unknown headers are ignored", input: "Content-Type: application/json\r\nContent-Length: 2\r\n\r\n{}", want: `{}`},
		{name: "missing length", input: "Content-Type: x\r\n\r\n{}", wantErr: true},
		{name: "invalid length", input: "Content-Length: abc\r\n\r\n{}", wantErr: true},
		{name: "negative length", input: "Content-Length: -1\r\n\r\n{}", wantErr: true},
		{name: "invalid header", input: "garbage\r\n\r\n", wantErr: true},
		{name: "truncated body", input: "Content-Length: 5\r\n\r\n{}", wantErr: true},
		{name: "length at limit", input: frame(`{"a":1}`), want: `{"a":1}`},
		{name: "length above limit", input: "Content-Length: 2147483647\r\n\r\n{}", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := readFrame(bufio.NewReader(strings.NewReader(tt.input)), 7)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}

	t.Run("oversized frame is a framing error", func(t *testing.T) {
		_, err := readFrame(bufio.NewReader(strings.NewReader("Content-Length: 8\r\n\r\n{\"a\":12}")), 7)
		assert.ErrorIs(t, err, errFrameTooLarge)
	})
}
