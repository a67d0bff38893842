package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/zephyr-web/internal/catalog"
	"finitefield.org/zephyr-web/internal/config"
	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	addr    string
	dev     bool
	envFile string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var opts []config.Option
		if serveFlags.envFile != "" {
			opts = append(opts, config.WithEnvFile(serveFlags.envFile))
		}
		cfg, err := config.Load(opts...)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveFlags.addr
		}
		if cmd.Flags().Changed("dev") {
			cfg.Dev = serveFlags.dev
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":8080", "listen address (overrides STOREFRONT_ADDR)")
	serveCmd.Flags().BoolVar(&serveFlags.dev, "dev", false, "reparse templates per request and reload the catalog on change")
	serveCmd.Flags().StringVar(&serveFlags.envFile, "env-file", "", "dotenv file read before the environment")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx = observability.WithLogger(ctx, logger)

	codec, err := newCookieCodec(cfg, logger)
	if err != nil {
		return err
	}

	products, err := catalog.LoadFile(cfg.Paths.Catalog)
	if err != nil {
		return err
	}
	for _, p := range catalog.Validate(products) {
		logger.Warn("catalog problem", zap.String("problem", p.String()))
	}
	repo := catalog.NewStatic(products...)

	a, err := newApp(appDeps{Config: cfg, Logger: logger, Catalog: repo, Codec: codec})
	if err != nil {
		return err
	}
	srv := a.server()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storefront listening",
			zap.String("addr", srv.Addr),
			zap.Int("products", repo.Len()),
			zap.Bool("dev", cfg.Dev),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Dev {
		g.Go(func() error {
			return catalog.Watch(gctx, cfg.Paths.Catalog, func(next []catalog.Product) {
				repo.Replace(next)
				logger.Info("catalog reloaded", zap.Int("products", len(next)))
			})
		})
	}
	return g.Wait()
}

// newCookieCodec uses the configured key, or a random one that invalidates cookies on restart.
func newCookieCodec(cfg config.Config, logger *zap.Logger) (*securecookie.SecureCookie, error) {
	if cfg.Security.SigningKey != "" {
		return storage.NewCodec([]byte(cfg.Security.SigningKey)), nil
	}
	logger.Warn("STOREFRONT_SIGNING_KEY is empty; using an ephemeral key, cookies will not survive a restart")
	return storage.NewEphemeralCodec()
}
