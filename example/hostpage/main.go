// Command hostpage binds the widgets on index.html. Build it for js/wasm,
// or run it with `uibind serve ./example/hostpage`.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/octoberswimmer/uibind"
	"github.com/octoberswimmer/uibind/clock"
	"go.uber.org/zap"
)

//go:embed uibind.yaml
var configYAML []byte

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := uibind.LoadConfig(bytes.NewReader(configYAML))
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	loop := clock.NewLoop()
	page, doc, err := uibind.Browser(loop.Post)
	if err != nil {
		return err
	}
	sdk, err := uibind.NewGlobalSDK(loop.Post)
	if err != nil {
		return err
	}
	session := uibind.NewSessionState()

	b := uibind.NewBinder(page, sdk, session, append(opts,
		uibind.WithClock(loop),
		uibind.WithLogger(logger),
		uibind.WithFailureHandler(func(err *uibind.RenderError) {
			logger.Warn("widget unavailable", zap.Error(err))
		}),
	)...)
	defer b.Close()

	release, err := uibind.Export("uibindRefresh", loop.Post, func() { b.BindAll(doc) })
	if err != nil {
		return err
	}
	defer release()

	loop.Post(func() {
		b.BindAll(doc)
		if err := uibind.WatchAccount(loop.Post, session); err != nil {
			logger.Error("cannot follow account changes", zap.Error(err))
		}
	})
	return loop.Run(ctx)
}
