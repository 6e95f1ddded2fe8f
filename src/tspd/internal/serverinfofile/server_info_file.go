// Package serverinfofile publishes connection details of the running server for the IDE.
package serverinfofile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKeyInfoFile = "serverInfoFilePath"
	_keyPID            = "pid"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ServerInfoFile manages the contents of a single JSON file holding string fields. The file is
// removed when the application stops. Without a configured path every update is a no-op.
type ServerInfoFile interface {
	UpdateField(key string, value string) error
}

// Params define values to be used by ServerInfoFile.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	FS        fs.FS
	Logger    *zap.SugaredLogger
}

type module struct {
	infoFile string
	fs       fs.FS
	logger   *zap.SugaredLogger

	mu           sync.Mutex
	fileContents map[string]string
}

type disabled struct{}

func (disabled) UpdateField(string, string) error { return nil }

// New creates the ServerInfoFile. The process id is recorded when the application starts.
func New(p Params) (ServerInfoFile, error) {
	var infoFile string
	if err := p.Config.Get(_configKeyInfoFile).Populate(&infoFile); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyInfoFile, err)
	}
	if infoFile == "" {
		return disabled{}, nil
	}

	m := &module{
		infoFile:     infoFile,
		fs:           p.FS,
		logger:       p.Logger,
		fileContents: make(map[string]string),
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})
	return m, nil
}

// OnStart creates the parent directory and writes the process id.
func (m *module) OnStart(ctx context.Context) error {
	if err := m.fs.MkdirAll(filepath.Dir(m.infoFile)); err != nil {
		return fmt.Errorf("creating info file directory: %w", err)
	}
	return m.UpdateField(_keyPID, strconv.Itoa(os.Getpid()))
}

// OnStop removes the file so stale connection details are never read.
func (m *module) OnStop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.fileContents) == 0 {
		return nil
	}
	return m.fs.Remove(m.infoFile)
}

func (m *module) UpdateField(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fileContents[key] = value
	jsonOutput, err := json.Marshal(m.fileContents)
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}
	if err := m.fs.WriteFile(m.infoFile, jsonOutput); err != nil {
		return fmt.Errorf("writing info file: %w", err)
	}
	m.logger.Infow("connection info saved", "file", m.infoFile, key, value)
	return nil
}
