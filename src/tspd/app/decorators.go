package app

import (
	"fmt"
	"path"

	"github.com/uber/tsp-lsp/src/tspd/internal/core"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
)

// DecorateConfigParams is the set of dependencies required to decorate the config.Provider.
type DecorateConfigParams struct {
	fx.In

	Cfg config.Provider
	FS  fs.FS
}

// decorateConfigProvider runs the startup steps that depend on the configuration before any
// other component reads it.
func decorateConfigProvider(p DecorateConfigParams) (config.Provider, error) {
	if err := ensureLogFolder(p.Cfg, p.FS); err != nil {
		return nil, fmt.Errorf("ensuring log folder: %w", err)
	}
	return p.Cfg, nil
}

// ensureLogFolder creates the directory of every file based logging output.
func ensureLogFolder(cfg config.Provider, fileSystem fs.FS) error {
	var c core.LoggingConfig
	if err := cfg.Get("logging").Populate(&c); err != nil {
		return fmt.Errorf("loading logging config: %w", err)
	}

	for _, outputPath := range c.OutputPaths {
		if outputPath == "stderr" || outputPath == "stdout" {
			continue
		}
		if err := fileSystem.MkdirAll(path.Dir(outputPath)); err != nil {
			return fmt.Errorf("creating logging directory: %w", err)
		}
	}
	return nil
}
