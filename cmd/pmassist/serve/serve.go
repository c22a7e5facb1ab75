package servecmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
	"github.com/papercomputeco/pmassist/pkg/config"
	"github.com/papercomputeco/pmassist/server"
)

const serveLongDesc string = `Run the HTTP API.

Routes:
  POST   /api/chat                 run one exchange (JSON, or NDJSON with "stream": true)
  GET    /api/conversations        list stored conversations
  POST   /api/conversations        create a conversation
  GET    /api/conversations/:id    get a conversation and its turns
  DELETE /api/conversations/:id    delete a conversation
  DELETE /api/conversations        delete every conversation
  GET    /api/categories           categories and quick actions
  GET    /metrics                  Prometheus metrics
  GET    /health                   health check

When a config file is in use it is watched, and gate, dispatch and rate limit
settings are applied without a restart.

Examples:
  pmassist serve
  pmassist serve --listen :9090 --config ./pmassist.toml`

const serveShortDesc string = "Run the HTTP API"

type serveCommander struct {
	listen string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides server.listen)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	app, err := bootstrap.New(cmd, bootstrap.Options{JSONLogs: true})
	if err != nil {
		return err
	}
	defer app.Close()

	listen := app.Config.Server.Listen
	if c.listen != "" {
		listen = c.listen
	}

	srv := server.New(server.Config{
		ListenAddr: listen,
		RateLimit:  app.Config.Server.RateLimit,
		RateBurst:  app.Config.Server.RateBurst,
	}, app.Dispatcher, app.Store, app.Logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.ConfigPath != "" {
		go func() {
			err := config.Watch(ctx, app.ConfigPath, app.Logger, func(cfg *config.Config) {
				if err := app.Reconfigure(cfg); err != nil {
					app.Logger.Error("failed to apply reloaded config", zap.Error(err))
					return
				}
				srv.SetRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst)
			})
			if err != nil {
				app.Logger.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.Logger.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
