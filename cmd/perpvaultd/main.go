// Command perpvaultd runs the settlement engine as a standalone process:
// it loads configuration, wires Vault/OrderBook/Market/PriceFeed, opens the
// audit log, starts the executor loop, and serves REST + WebSocket until
// interrupted. CLI surface follows the teacher's own cmd/* convention
// (urfave/cli/v2).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/thrasher-corp/perpvault/common/log"
	"github.com/thrasher-corp/perpvault/config"
	"github.com/thrasher-corp/perpvault/engine"
	"github.com/thrasher-corp/perpvault/engine/restapi"
	"github.com/thrasher-corp/perpvault/engine/stream"
)

var mainLog = log.NewSubLogger("Main")

func main() {
	app := &cli.App{
		Name:  "perpvaultd",
		Usage: "run the perpvault settlement engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the engine config file",
				Required: true,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		mainLog.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}

	if err := eng.OpenAuditLog(); err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng.StartExecutor(ctx)
	defer eng.StopExecutor()

	api := restapi.New(eng, cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)
	restServer := &http.Server{Addr: cfg.Server.RESTListenAddress, Handler: api}

	broadcaster := stream.New(eng.Mux(), eng.Topics())
	streamStop := make(chan struct{})
	go broadcaster.Run(streamStop)
	wsServer := &http.Server{Addr: cfg.Server.WSListenAddress, Handler: broadcaster}

	errs := make(chan error, 2)
	go func() { errs <- restServer.ListenAndServe() }()
	go func() { errs <- wsServer.ListenAndServe() }()

	mainLog.Infof("perpvaultd listening: rest=%s ws=%s", cfg.Server.RESTListenAddress, cfg.Server.WSListenAddress)

	select {
	case <-ctx.Done():
		mainLog.Infof("shutting down")
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			mainLog.Errorf("server error: %v", err)
		}
	}

	close(streamStop)
	_ = restServer.Shutdown(context.Background())
	_ = wsServer.Shutdown(context.Background())
	return nil
}
