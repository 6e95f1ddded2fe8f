package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/controller/lsp"
	"github.com/uber/tsp-lsp/src/tspd/controller/mainloop"
	"github.com/uber/tsp-lsp/src/tspd/controller/scheduler"
	"github.com/uber/tsp-lsp/src/tspd/controller/typeserver"
	ideclient "github.com/uber/tsp-lsp/src/tspd/gateway/ide-client"
	tspdaemon "github.com/uber/tsp-lsp/src/tspd/handler/tsp-daemon"
	"github.com/uber/tsp-lsp/src/tspd/internal/clock"
	"github.com/uber/tsp-lsp/src/tspd/internal/core"
	"github.com/uber/tsp-lsp/src/tspd/internal/eventqueue"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"github.com/uber/tsp-lsp/src/tspd/internal/fswatch"
	"github.com/uber/tsp-lsp/src/tspd/internal/jsonrpcfx"
	"github.com/uber/tsp-lsp/src/tspd/internal/serverinfofile"
	"github.com/uber/tsp-lsp/src/tspd/repository/requests"
	"github.com/uber/tsp-lsp/src/tspd/repository/session"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const _reportInterval = 1 * time.Second

// Module defines the tspd application module.
var Module = fx.Options(
	ideclient.Module, // outbounds
	tspdaemon.Module, // inbounds
	lsp.Module,
	typeserver.Module,
	scheduler.Module,
	mainloop.Module,
	session.Module,
	requests.Module,
	jsonrpcfx.Module,
	serverinfofile.Module,
	eventqueue.Module,
	fswatch.Module,
	fs.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(clock.New),
	fx.Provide(newRootScope),
	fx.Decorate(decorateConfigProvider),
	// stdout carries the protocol in stdio mode, so fx events go through the configured logger
	fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger}
	}),
)

func newRootScope(lc fx.Lifecycle) tally.Scope {
	rs, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags: map[string]string{
			"service": "tspd",
		},
	}, _reportInterval)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return rs
}
