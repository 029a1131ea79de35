package exchange

// calibration.go — Brier score por usuario y leaderboard.
//
// Solo las posiciones de mercados resueltos entran en el score; las de mercados
// abiertos se cuentan como pendientes.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/alejandrodnm/castlot/internal/domain"
	"golang.org/x/sync/errgroup"
)

// marketLookup resuelve el estado de un mercado por id.
type marketLookup func(ctx context.Context, id string) (domain.Market, error)

// GetCalibration devuelve el registro de calibración del usuario. Un usuario
// sin posiciones resueltas tiene HasScore=false y tier "No data".
func (e *Exchange) GetCalibration(ctx context.Context, userID string) (domain.CalibrationRecord, error) {
	rec, err := e.calibrate(ctx, userID, e.store.GetMarket)
	if err != nil {
		return domain.CalibrationRecord{}, fmt.Errorf("exchange.GetCalibration: %w", err)
	}
	return rec, nil
}

// GetLeaderboard calcula la calibración de todos los usuarios conocidos en
// paralelo y los devuelve ordenados (mejor primero, sin score al final).
func (e *Exchange) GetLeaderboard(ctx context.Context) ([]domain.CalibrationRecord, error) {
	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange.GetLeaderboard: %w", err)
	}
	markets, err := e.store.ListMarkets(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("exchange.GetLeaderboard: %w", err)
	}

	// Snapshot de mercados: todos los workers ven el mismo estado.
	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}
	// Un mercado creado después del snapshot se lee del store.
	lookup := func(ctx context.Context, id string) (domain.Market, error) {
		if m, ok := byID[id]; ok {
			return m, nil
		}
		return e.store.GetMarket(ctx, id)
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	records := make([]domain.CalibrationRecord, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, acct := range accounts {
		g.Go(func() error {
			rec, err := e.calibrate(gctx, acct.UserID, lookup)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("exchange.GetLeaderboard: %w", err)
	}

	domain.RankCalibrations(records)

	slog.Debug("leaderboard computed",
		"users", len(records),
		"markets", len(markets),
		"workers", workers,
	)
	return records, nil
}

func (e *Exchange) calibrate(ctx context.Context, userID string, lookup marketLookup) (domain.CalibrationRecord, error) {
	positions, err := e.store.PositionsFor(ctx, userID)
	if err != nil {
		return domain.CalibrationRecord{}, err
	}

	resolved := make([]domain.Forecast, 0, len(positions))
	pending := 0
	for _, p := range positions {
		m, err := lookup(ctx, p.MarketID)
		if err != nil {
			return domain.CalibrationRecord{}, err
		}
		outcome, ok := m.Status.Outcome()
		if !ok {
			pending++
			continue
		}
		resolved = append(resolved, p.Forecast(outcome))
	}
	return domain.NewCalibrationRecord(userID, resolved, pending), nil
}
