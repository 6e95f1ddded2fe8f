package main

import (
	"github.com/uber/tsp-lsp/src/tspd/app"
	"go.uber.org/fx"
)

func opts() fx.Option {
	return fx.Options(
		app.Module,
	)
}

func main() {
	// The exit code is 0 after a clean exit sequence and 1 otherwise.
	fx.New(opts()).Run()
}
