package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/castlot/internal/adapters/generator"
	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/alejandrodnm/castlot/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			ex, store, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(server.Config{
				Addr:       cfg.Server.Addr,
				RatePerSec: cfg.Server.RatePerSec,
				Burst:      cfg.Server.Burst,
			}, ex, generator.NewStatic(domain.CategoryCareer), slog.Default())

			slog.Info("castlot starting",
				"addr", cfg.Server.Addr,
				"dsn", cfg.Storage.DSN,
				"liquidity_b", cfg.Exchange.LiquidityB,
				"trade_fee", cfg.Exchange.Fee(),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
				defer done()
				return srv.Shutdown(shutdownCtx)
			})
			if err := g.Wait(); err != nil {
				return err
			}

			slog.Info("castlot stopped cleanly")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
