package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/leeforge/imgpress/config"
	"github.com/leeforge/imgpress/env_mode"
	"github.com/leeforge/imgpress/http/api"
	"github.com/leeforge/imgpress/http/middleware"
	"github.com/leeforge/imgpress/logging"
	"github.com/leeforge/imgpress/media/processor"
	"github.com/leeforge/imgpress/metrics"
	"github.com/leeforge/imgpress/redis_client"
	"github.com/leeforge/imgpress/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(env *cliEnv, root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM, then drain in-flight requests.

With --watch (default in development mode) changes to the pipeline section
of the config files are applied without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, env, root, cmd)
		},
	}
	cmd.Flags().BoolVar(&root.watch, "watch", env_mode.Mode() == env_mode.DevMode, "reload pipeline settings when config files change")
	return cmd
}

// server is everything serve builds before listening.
type server struct {
	http    *http.Server
	images  *api.ImageHandler
	logger  logging.Logger
	cleanup []func()
}

func (s *server) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func buildServer(ctx context.Context, app *config.AppConfig) (*server, error) {
	var collector *metrics.Collector
	var hooks []logging.Hook
	if app.Metrics.Enabled {
		collector = metrics.NewCollector()
		hooks = append(hooks, collector.LogHook())
	}
	logger := logging.Init(app.Log, hooks...)
	s := &server{logger: logger}

	var pipelineOpts []processor.Option
	if collector != nil {
		pipelineOpts = append(pipelineOpts, processor.WithObserver(collector))
	}
	images, err := api.NewImageHandler(app.Pipeline, api.Limits{
		MaxUploadBytes: app.Server.MaxUploadBytes(),
		MaxFiles:       app.Server.MaxFiles,
	}, logger.Named("pipeline"), pipelineOpts...)
	if err != nil {
		return nil, err
	}
	s.images = images

	var limiter *middleware.RateLimiter
	if app.RateLimit.Enabled {
		var client *redis.Client
		if app.RateLimit.Backend == "redis" {
			client, err = redis_client.NewRedis(ctx, app.Redis, logger)
			if err != nil {
				return nil, err
			}
			s.cleanup = append(s.cleanup, func() { _ = client.Close() })
		}
		limiter, err = middleware.NewRateLimiterFromConfig(app.RateLimit, client, logger.Named("ratelimit"))
		if err != nil {
			s.close()
			return nil, err
		}
	}

	router := api.NewRouter(images, api.RouterOptions{
		Logger:      logger,
		Metrics:     collector,
		MetricsPath: app.Metrics.Path,
		RateLimiter: limiter,
		Timeout:     app.Server.ProcessTimeout,
		TrustProxy:  app.Server.TrustProxy,
	})
	if env_mode.Mode() == env_mode.DevMode {
		utils.PrintRoutes(os.Stderr, router)
	}

	s.http = &http.Server{
		Addr:              app.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: app.Server.ReadTimeout,
		ReadTimeout:       app.Server.ReadTimeout,
		WriteTimeout:      app.Server.WriteTimeout,
		ErrorLog:          zap.NewStdLog(logger.Zap()),
	}
	return s, nil
}

func runServe(ctx context.Context, env *cliEnv, root *rootOptions, cmd *cobra.Command) error {
	// s is assigned before the watcher can fire.
	var s *server
	var cfg *config.Config

	app, cfg, err := env.loadConfig(root, func(co *config.ConfigOptions) {
		co.WatchAble = root.watch
		co.OnChange = func(e fsnotify.Event) {
			var fresh config.AppConfig
			if err := cfg.BindWithDefaults(&fresh); err != nil {
				s.logger.Error("config reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			if err := s.images.Reload(fresh.Pipeline); err != nil {
				s.logger.Error("pipeline reload failed", zap.Error(err))
				return
			}
			s.logger.Info("pipeline config reloaded", zap.String("file", e.Name))
		}
	})
	if err != nil {
		return err
	}

	s, err = buildServer(ctx, app)
	if err != nil {
		return err
	}
	defer s.close()
	defer func() { _ = logging.Sync() }()

	cfg.Watch()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening",
			zap.String("addr", app.Server.Addr),
			zap.String("mode", string(env_mode.Mode())),
			zap.Int("workers", app.Pipeline.Workers),
		)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("timeout", app.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "server stopped")
	return nil
}
