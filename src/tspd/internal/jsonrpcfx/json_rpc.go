package jsonrpcfx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/eventqueue"
	"github.com/uber/tsp-lsp/src/tspd/internal/serverinfofile"
	"github.com/uber/tsp-lsp/src/tspd/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_configKey = "jsonrpc"

	// ModeStdio serves a single client over stdin and stdout.
	ModeStdio = "stdio"
	// ModeTCP serves the first client connecting to the configured address.
	ModeTCP = "tcp"

	_methodSetTrace = "$/setTrace"
	_infoFileKey    = "jsonrpc"

	_defaultMaxFrameSize = 64 << 20
)

// ErrNotConnected is returned by writes attempted after the client went away without connecting.
var ErrNotConnected = errors.New("no client connected")

// Module is an fx module to exchange JSON-RPC messages with the client.
var Module = fx.Provide(New)

// Transport writes messages to the client. Messages read from the client are pushed to the event
// queue; the queue is closed when the client disconnects. Writes are safe for concurrent use.
type Transport interface {
	Write(ctx context.Context, msg jsonrpc2.Message) error
	// WriteRaw writes an already encoded message.
	WriteRaw(ctx context.Context, data []byte) error
}

// Config is the transport configuration.
type Config struct {
	Mode    string `yaml:"mode"`
	Address string `yaml:"address"`

	// MaxFrameSize bounds the Content-Length accepted from the client, in bytes.
	MaxFrameSize int64 `yaml:"maxFrameSize"`
}

// Params define values to be used by the transport.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Queue          eventqueue.Queue
	ServerInfoFile serverinfofile.ServerInfoFile
	Level          zap.AtomicLevel
	Logger         *zap.SugaredLogger
}

type module struct {
	cfg      Config
	queue    eventqueue.Queue
	infoFile serverinfofile.ServerInfoFile
	level    zap.AtomicLevel
	logger   *zap.SugaredLogger
	// open returns the stdio connection. Replaced in tests.
	open func() io.ReadWriteCloser

	ln        net.Listener
	conn      io.ReadWriteCloser
	connected chan struct{}
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// New creates the transport. The connection is opened when the application starts.
func New(p Params) (Transport, error) {
	if p.Lifecycle == nil || p.Config == nil || p.Queue == nil || p.ServerInfoFile == nil {
		return nil, errors.New("required parameters are missing")
	}

	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStdio
	}
	if cfg.Mode != ModeStdio && cfg.Mode != ModeTCP {
		return nil, fmt.Errorf("unsupported %s.mode %q", _configKey, cfg.Mode)
	}
	if cfg.Mode == ModeTCP && cfg.Address == "" {
		return nil, fmt.Errorf("missing field %s.address in config", _configKey)
	}
	if cfg.MaxFrameSize < 0 {
		return nil, fmt.Errorf("invalid %s.maxFrameSize %d", _configKey, cfg.MaxFrameSize)
	}

	m := newModule(cfg, p.Queue, p.ServerInfoFile, p.Level, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})
	return m, nil
}

func newModule(cfg Config, queue eventqueue.Queue, infoFile serverinfofile.ServerInfoFile, level zap.AtomicLevel, logger *zap.SugaredLogger) *module {
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = _defaultMaxFrameSize
	}
	return &module{
		cfg:       cfg,
		queue:     queue,
		infoFile:  infoFile,
		level:     level,
		logger:    logger,
		open:      func() io.ReadWriteCloser { return stdio{in: os.Stdin, out: os.Stdout} },
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// OnStart opens the connection and starts forwarding messages to the event queue.
func (m *module) OnStart(ctx context.Context) error {
	if m.cfg.Mode == ModeStdio {
		m.connect(m.open())
		go m.forward()
		return nil
	}

	ln, err := net.Listen("tcp", m.cfg.Address)
	if err != nil {
		return err
	}
	m.ln = ln
	m.logger.Warnw("started JSON-RPC inbound", "address", ln.Addr().String())
	if err := m.infoFile.UpdateField(_infoFileKey, ln.Addr().String()); err != nil {
		m.logger.Warnw("publishing the address failed", zap.Error(err))
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			m.logger.Infow("stopped accepting connections", zap.Error(err))
			close(m.done)
			m.queue.Close()
			return
		}
		m.logger.Infow("client connected", "remote", conn.RemoteAddr().String())
		m.connect(conn)
		m.forward()
	}()
	return nil
}

// OnStop closes the connection and waits for the forwarding goroutine. A blocked read of the
// process stdin cannot be interrupted, so stdio mode does not wait.
func (m *module) OnStop(ctx context.Context) error {
	err := m.close()
	if m.cfg.Mode == ModeStdio {
		return err
	}
	select {
	case <-m.done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}

func (m *module) close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.ln != nil {
			err = multierr.Append(err, m.ln.Close())
		}
		select {
		case <-m.connected:
			err = multierr.Append(err, m.conn.Close())
		default:
		}
	})
	return err
}

func (m *module) connect(conn io.ReadWriteCloser) {
	m.conn = conn
	close(m.connected)
}

// forward reads frames in order and pushes them to the event queue. $/setTrace is applied here
// and never reaches the queue. The queue is closed once the connection ends.
func (m *module) forward() {
	defer close(m.done)
	defer m.queue.Close()

	in := bufio.NewReader(m.conn)
	for {
		data, err := readFrame(in, m.cfg.MaxFrameSize)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
				m.logger.Infow("client disconnected")
			} else {
				m.logger.Warnw("reading from client failed", zap.Error(err))
			}
			return
		}

		msg, err := jsonrpc2.DecodeMessage(data)
		if err != nil {
			m.queue.Push(entity.InvalidMessageEvent{Data: data, Err: err})
			continue
		}
		if n, ok := msg.(*jsonrpc2.Notification); ok && n.Method() == _methodSetTrace {
			m.setTrace(n)
			continue
		}
		m.queue.Push(entity.MessageEvent{Message: msg})
	}
}

func (m *module) setTrace(n *jsonrpc2.Notification) {
	value, err := mapper.RequestToTraceValue(n)
	if err != nil {
		m.logger.Warnw("ignoring invalid trace value", zap.Error(err))
		return
	}
	switch protocol.TraceValue(value) {
	case protocol.TraceOff:
		m.level.SetLevel(zapcore.WarnLevel)
	case protocol.TraceMessage, "messages":
		m.level.SetLevel(zapcore.InfoLevel)
	case protocol.TraceVerbose:
		m.level.SetLevel(zapcore.DebugLevel)
	default:
		m.logger.Warnw("ignoring unknown trace value", "value", value)
		return
	}
	m.logger.Infow("trace level changed", "value", value)
}

func (m *module) Write(ctx context.Context, msg jsonrpc2.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return m.WriteRaw(ctx, data)
}

func (m *module) WriteRaw(ctx context.Context, data []byte) error {
	select {
	case <-m.connected:
	default:
		select {
		case <-m.connected:
		case <-m.done:
			return ErrNotConnected
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return writeFrame(m.conn, data)
}

type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdio) Close() error                { return multierr.Combine(s.in.Close(), s.out.Close()) }
