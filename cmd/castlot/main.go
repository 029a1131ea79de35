package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/castlot/config"
	"github.com/alejandrodnm/castlot/internal/adapters/storage"
	"github.com/alejandrodnm/castlot/internal/application/exchange"
	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	logFormat  string
	tableOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "castlot",
	Short: "Personal prediction markets with LMSR pricing and Brier calibration",
	Long: `castlot runs the market-making and calibration engine behind a social
prediction app: users publish yes/no questions about their own lives, others
trade on them with Foresight Points, and forecasters are ranked by Brier score.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "set log level to debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&tableOut, "table", true, "print full tables (false: compact 1-line)")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(demoCommand())
	rootCmd.AddCommand(marketsCommand())
	rootCmd.AddCommand(leaderboardCommand())
	rootCmd.AddCommand(commentsCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig carga la config y aplica los flags globales.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	setupLogger(cfg.Log)
	return cfg, nil
}

// bootstrap abre el storage, construye el exchange y carga los mercados demo
// que aún no existan. El caller cierra el storage.
func bootstrap(ctx context.Context, cfg *config.Config) (*exchange.Exchange, *storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}

	ex := exchange.New(exchangeConfig(cfg.Exchange), store)
	if err := seedDemoMarkets(ctx, ex, cfg.DemoMarkets); err != nil {
		store.Close()
		return nil, nil, err
	}
	return ex, store, nil
}

func exchangeConfig(c config.ExchangeConfig) exchange.Config {
	return exchange.Config{
		Liquidity:      c.LiquidityB,
		TradeFee:       c.Fee(),
		ShareStep:      c.ShareStep,
		InitialBalance: c.InitialBalance,
		SeedQuantity:   c.SeedQ,
		Workers:        c.Workers,
	}
}

func seedDemoMarkets(ctx context.Context, ex *exchange.Exchange, demos []config.DemoMarket) error {
	now := time.Now().UTC()
	seeded := 0
	for _, d := range demos {
		if _, err := ex.GetMarket(ctx, d.ID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrMarketNotFound) {
			return err
		}

		deadline, err := d.Deadline(now)
		if err != nil {
			return err
		}
		err = ex.SeedMarket(ctx, domain.Market{
			ID:                 d.ID,
			Question:           d.Question,
			Summary:            d.Summary,
			Category:           d.Category,
			Tags:               d.Tags,
			QYes:               d.QYes,
			QNo:                d.QNo,
			ParticipantCount:   d.Traders,
			ResolutionDeadline: deadline,
		})
		if err != nil {
			return err
		}
		for _, c := range d.Comments {
			err := ex.SeedComment(ctx, domain.Comment{
				MarketID: d.ID,
				UserID:   c.User,
				Text:     c.Text,
				Score:    c.Score,
			})
			if err != nil {
				return err
			}
		}
		seeded++
	}
	if seeded > 0 {
		slog.Info("demo markets loaded", "count", seeded)
	}
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
