package exchange_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/castlot/internal/adapters/storage"
	"github.com/alejandrodnm/castlot/internal/application/exchange"
	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0       = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline = time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
)

func newExchange(t *testing.T) *exchange.Exchange {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ex := exchange.New(exchange.DefaultConfig(), db)
	ex.SetClock(func() time.Time { return t0 })
	return ex
}

func seed(t *testing.T, ex *exchange.Exchange, id string, qYes, qNo float64) {
	t.Helper()
	require.NoError(t, ex.SeedMarket(context.Background(), domain.Market{
		ID:                 id,
		Question:           "Will I get a return offer?",
		Category:           domain.CategoryCareer,
		QYes:               qYes,
		QNo:                qNo,
		ResolutionDeadline: deadline,
		ParticipantCount:   47,
	}))
}

func TestSubmitTrade_AppliesFlatTrade(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	pos, err := ex.SubmitTrade(ctx, "1", "u1", domain.SideYes)
	require.NoError(t, err)

	// Precio pre-trade: 1/(1+e^(-60/80)) ≈ 0.679.
	assert.InDelta(t, 0.6792, pos.ProbabilityAtEntry, 1e-4)
	assert.Equal(t, domain.SideYes, pos.Side)
	assert.Equal(t, 50.0, pos.Stake)
	assert.NotEmpty(t, pos.ID)
	assert.Positive(t, pos.Seq)

	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 130.0, m.QYes)
	assert.Equal(t, 60.0, m.QNo)
	assert.Equal(t, 48, m.ParticipantCount)

	bal, err := ex.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 950.0, bal)
}

func TestSubmitTrade_NoSideUsesNoPrice(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "2", 40, 90)

	pos, err := ex.SubmitTrade(ctx, "2", "u1", domain.SideNo)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-50.0/80)), pos.ProbabilityAtEntry, 1e-9)

	m, err := ex.GetMarket(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 40.0, m.QYes)
	assert.Equal(t, 100.0, m.QNo)
}

func TestSubmitTrade_SecondTradeRejected(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	_, err := ex.SubmitTrade(ctx, "1", "u1", domain.SideYes)
	require.NoError(t, err)

	// Ni el mismo lado ni el contrario.
	_, err = ex.SubmitTrade(ctx, "1", "u1", domain.SideNo)
	assert.ErrorIs(t, err, domain.ErrAlreadyPositioned)
	_, err = ex.SubmitTrade(ctx, "1", "u1", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrAlreadyPositioned)

	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 130.0, m.QYes)
	assert.Equal(t, 60.0, m.QNo)
	assert.Equal(t, 48, m.ParticipantCount)

	bal, err := ex.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 950.0, bal)
}

func TestSubmitTrade_InsufficientBalanceChangesNothing(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	_, err := ex.OpenAccount(ctx, "poor", 40)
	require.NoError(t, err)

	_, err = ex.SubmitTrade(ctx, "1", "poor", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, m.QYes)
	assert.Equal(t, 47, m.ParticipantCount)

	bal, err := ex.Balance(ctx, "poor")
	require.NoError(t, err)
	assert.Equal(t, 40.0, bal)

	rec, err := ex.GetCalibration(ctx, "poor")
	require.NoError(t, err)
	assert.Zero(t, rec.Resolved)
	assert.Zero(t, rec.Pending)
}

func TestSubmitTrade_RejectedNewUserLeavesNoAccount(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := exchange.DefaultConfig()
	cfg.InitialBalance = 40
	ex := exchange.New(cfg, db)
	ex.SetClock(func() time.Time { return t0 })
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	_, err = ex.SubmitTrade(ctx, "1", "newbie", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, known, err := db.GetAccount(ctx, "newbie")
	require.NoError(t, err)
	assert.False(t, known)

	accounts, err := db.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	board, err := ex.GetLeaderboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestSubmitTrade_OpensAccountForNewUser(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 50, 50)

	_, err := ex.SubmitTrade(ctx, "1", "fresh", domain.SideNo)
	require.NoError(t, err)

	bal, err := ex.Balance(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 950.0, bal)

	board, err := ex.GetLeaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "fresh", board[0].UserID)
}

func TestSubmitTrade_BalanceRunsOut(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	for i := 0; i < 21; i++ {
		seed(t, ex, fmt.Sprintf("m%02d", i), 50, 50)
	}

	// 1000 / 50 = 20 trades.
	for i := 0; i < 20; i++ {
		_, err := ex.SubmitTrade(ctx, fmt.Sprintf("m%02d", i), "u1", domain.SideYes)
		require.NoError(t, err)
	}
	_, err := ex.SubmitTrade(ctx, "m20", "u1", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	bal, err := ex.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, bal)
}

func TestSubmitTrade_Errors(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	_, err := ex.SubmitTrade(ctx, "missing", "u1", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)

	_, err = ex.SubmitTrade(ctx, "1", "u1", domain.Side("MAYBE"))
	assert.ErrorIs(t, err, domain.ErrInvalidSide)

	_, err = ex.SubmitTrade(ctx, "1", "  ", domain.SideYes)
	assert.Error(t, err)
}

func TestSubmitTrade_ClosedMarket(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	require.NoError(t, ex.Resolve(ctx, "1", domain.SideYes, true))

	_, err := ex.SubmitTrade(ctx, "1", "u1", domain.SideNo)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)

	bal, err := ex.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal)
}

func TestSubmitTrade_ClosedCheckedBeforePositioned(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	_, err := ex.SubmitTrade(ctx, "1", "u1", domain.SideYes)
	require.NoError(t, err)
	require.NoError(t, ex.Resolve(ctx, "1", domain.SideYes, true))

	_, err = ex.SubmitTrade(ctx, "1", "u1", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
}

func TestSubmitTrade_ConcurrentUsers(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 50, 50)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			side := domain.SideYes
			if i%2 == 1 {
				side = domain.SideNo
			}
			_, errs[i] = ex.SubmitTrade(ctx, "1", fmt.Sprintf("user-%02d", i), side)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 150.0, m.QYes)
	assert.Equal(t, 150.0, m.QNo)
	assert.Equal(t, 47+n, m.ParticipantCount)
}

func TestSubmitTrade_ConcurrentSameUser(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 50, 50)

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ex.SubmitTrade(ctx, "1", "u1", domain.SideYes)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyPositioned)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, m.QYes)
	assert.Equal(t, 48, m.ParticipantCount)
}

func TestResolve_Lifecycle(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	err := ex.Resolve(ctx, "1", domain.SideYes, false)
	assert.ErrorIs(t, err, domain.ErrTooEarly)

	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, m.Status)

	// En el deadline exacto ya se puede resolver.
	ex.SetClock(func() time.Time { return deadline })
	require.NoError(t, ex.Resolve(ctx, "1", domain.SideNo, false))

	err = ex.Resolve(ctx, "1", domain.SideYes, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	err = ex.Resolve(ctx, "1", domain.SideYes, true)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	m, err = ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolvedNo, m.Status)
	require.NotNil(t, m.ResolvedAt)
	assert.True(t, m.ResolvedAt.Equal(deadline))
}

func TestResolve_Override(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	require.NoError(t, ex.Resolve(ctx, "1", domain.SideYes, true))

	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolvedYes, m.Status)
}

func TestResolve_Errors(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()

	assert.ErrorIs(t, ex.Resolve(ctx, "missing", domain.SideYes, true), domain.ErrMarketNotFound)

	seed(t, ex, "1", 120, 60)
	assert.ErrorIs(t, ex.Resolve(ctx, "1", domain.Side(""), true), domain.ErrInvalidSide)
}

func TestCreateMarket(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()

	draft := domain.FallbackDraft("I want to run a marathon before my 30th birthday", domain.CategoryHabits)
	m, err := ex.CreateMarket(ctx, draft, "creator", t0.Add(30*24*time.Hour))
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 50.0, m.QYes)
	assert.Equal(t, 50.0, m.QNo)
	assert.Equal(t, 1, m.ParticipantCount)
	assert.Equal(t, domain.StatusOpen, m.Status)
	assert.Equal(t, domain.CategoryHabits, m.Category)
	assert.Equal(t, "creator", m.CreatorID)

	p, err := ex.GetPrice(ctx, m.ID, domain.SideYes)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	got, err := ex.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.Question, got.Question)
	assert.Equal(t, draft.Transcript, got.Transcript)
}

func TestCreateMarket_DeadlineMustBeFuture(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	draft := domain.FallbackDraft("narration", domain.CategoryCareer)

	_, err := ex.CreateMarket(ctx, draft, "creator", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidDeadline)
	_, err = ex.CreateMarket(ctx, draft, "creator", t0.Add(-time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidDeadline)

	markets, err := ex.ListMarkets(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, markets)
}

func TestGetPrice(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	yes, err := ex.GetPrice(ctx, "1", domain.SideYes)
	require.NoError(t, err)
	no, err := ex.GetPrice(ctx, "1", domain.SideNo)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, yes+no, 1e-12)
	assert.InDelta(t, 0.6792, yes, 1e-4)

	_, err = ex.GetPrice(ctx, "missing", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestQuote(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()
	seed(t, ex, "1", 120, 60)

	q, err := ex.Quote(ctx, "1", domain.SideYes)
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.Shares)
	assert.InDelta(t, 0.6792, q.PriceBefore, 1e-4)
	assert.Greater(t, q.PriceAfter, q.PriceBefore)
	assert.Greater(t, q.Cost, 10*q.PriceBefore)
	assert.Less(t, q.Cost, 10*q.PriceAfter)

	// Quote es solo lectura.
	m, err := ex.GetMarket(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, m.QYes)
}

func TestBalance_UnknownUser(t *testing.T) {
	ex := newExchange(t)
	bal, err := ex.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal)
}

func TestOpenAccount(t *testing.T) {
	ex := newExchange(t)
	ctx := context.Background()

	acct, err := ex.OpenAccount(ctx, "ana", 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, acct.Balance)

	// Idempotente: no resetea un balance ya gastado.
	seed(t, ex, "1", 50, 50)
	_, err = ex.SubmitTrade(ctx, "1", "ana", domain.SideYes)
	require.NoError(t, err)
	acct, err = ex.OpenAccount(ctx, "ana", 0)
	require.NoError(t, err)
	assert.Equal(t, 950.0, acct.Balance)

	_, err = ex.OpenAccount(ctx, "  ", 0)
	assert.Error(t, err)
}
