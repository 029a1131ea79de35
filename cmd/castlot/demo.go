package main

// demo.go — simulación end-to-end sobre un store en memoria.
//
// Publica los mercados demo (y uno creado desde una narración), hace operar a
// traders sintéticos con distinta habilidad, resuelve todo con override y
// muestra el leaderboard resultante.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/castlot/config"
	"github.com/alejandrodnm/castlot/internal/adapters/generator"
	"github.com/alejandrodnm/castlot/internal/adapters/notify"
	"github.com/alejandrodnm/castlot/internal/application/exchange"
	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/spf13/cobra"
)

const demoNarration = "So I just finished my third week at the internship and my manager keeps " +
	"giving me bigger tasks. I want to land the full-time offer before graduation. " +
	"The interview loop is in September."

// builtinDemoMarkets se usan cuando la config no define demo_markets.
var builtinDemoMarkets = []config.DemoMarket{
	{ID: "1", Question: "Will I get a return offer from Goldman Sachs after my summer internship?", Category: domain.CategoryCareer, QYes: 120, QNo: 60, Traders: 47},
	{ID: "2", Question: "Will I go to the gym at least 4 times a week for the next month?", Category: domain.CategoryHabits, QYes: 40, QNo: 90, Traders: 31},
	{ID: "3", Question: "Will I ask my lab partner out before the semester ends?", Category: domain.CategoryRelationships, QYes: 55, QNo: 70, Traders: 63},
}

type demoTrader struct {
	id    string
	skill float64 // probabilidad de elegir el lado ganador
}

func demoCommand() *cobra.Command {
	var (
		traders int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Simulate traders on the demo markets and print the leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.DemoMarkets) == 0 {
				cfg.DemoMarkets = builtinDemoMarkets
			}
			cfg.Storage.DSN = ":memory:"

			ctx := cmd.Context()
			ex, store, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			console := newConsole(cmd)
			return runDemo(ctx, ex, console, traders, seed)
		},
	}
	cmd.Flags().IntVar(&traders, "traders", 12, "number of simulated traders")
	cmd.Flags().Uint64Var(&seed, "seed", 7, "random seed for the simulation")
	return cmd
}

func runDemo(ctx context.Context, ex *exchange.Exchange, console *notify.Console, traders int, seed uint64) error {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	draft := exchange.ComposeDraft(ctx, generator.NewStatic(domain.CategoryCareer), demoNarration, "")
	if _, err := ex.CreateMarket(ctx, draft, "narrator", time.Now().Add(90*24*time.Hour)); err != nil {
		return fmt.Errorf("demo: create market: %w", err)
	}

	markets, err := ex.ListMarkets(ctx, "")
	if err != nil {
		return err
	}
	console.PrintMarkets(markets, ex.MarketMaker())

	// Resultado oculto de cada mercado, sorteado al precio inicial.
	outcomes := make(map[string]domain.Side, len(markets))
	for _, m := range markets {
		p := ex.MarketMaker().Price(m.QYes, m.QNo, domain.SideYes)
		outcomes[m.ID] = domain.SideNo
		if rng.Float64() < p {
			outcomes[m.ID] = domain.SideYes
		}
	}

	crowd := make([]demoTrader, traders)
	for i := range crowd {
		crowd[i] = demoTrader{id: fmt.Sprintf("trader-%02d", i+1), skill: 0.35 + 0.6*rng.Float64()}
	}

	fmt.Fprintln(console.Writer(), "\n=== TRADES ===")
	for _, m := range markets {
		if q, err := ex.Quote(ctx, m.ID, domain.SideYes); err == nil {
			console.PrintQuote(m, q)
		}
		for _, t := range crowd {
			if rng.Float64() < 0.25 {
				continue
			}
			side := outcomes[m.ID]
			if rng.Float64() > t.skill {
				side = side.Opposite()
			}
			pos, err := ex.SubmitTrade(ctx, m.ID, t.id, side)
			if errors.Is(err, domain.ErrInsufficientBalance) {
				continue
			}
			if err != nil {
				return fmt.Errorf("demo: trade: %w", err)
			}
			console.PrintPosition(m, pos)
		}
	}

	for _, m := range markets {
		if err := ex.Resolve(ctx, m.ID, outcomes[m.ID], true); err != nil {
			return fmt.Errorf("demo: resolve: %w", err)
		}
	}
	slog.Info("demo markets resolved", "count", len(markets))

	markets, err = ex.ListMarkets(ctx, "")
	if err != nil {
		return err
	}
	console.PrintMarkets(markets, ex.MarketMaker())

	board, err := ex.GetLeaderboard(ctx)
	if err != nil {
		return err
	}
	return console.Notify(ctx, board)
}
