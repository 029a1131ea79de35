package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/alejandrodnm/castlot/internal/ports"
	"github.com/google/uuid"
)

// Config contiene los parámetros del exchange.
type Config struct {
	Liquidity      float64 // b del LMSR
	TradeFee       float64 // Foresight Points cobrados por trade
	ShareStep      float64 // shares añadidas al lado operado por trade
	InitialBalance float64 // balance de una cuenta nueva
	SeedQuantity   float64 // qYes = qNo iniciales de un mercado creado por usuario
	Workers        int     // goroutines para el leaderboard (0 = NumCPU*2)
}

// DefaultConfig devuelve los valores de la app original.
func DefaultConfig() Config {
	return Config{
		Liquidity:      domain.DefaultLiquidity,
		TradeFee:       50,
		ShareStep:      10,
		InitialBalance: domain.DefaultInitialBalance,
		SeedQuantity:   50,
	}
}

// Exchange is the market ledger: the only component that mutates market state,
// balances and positions. Writes to a market are serialized by a per-market
// lock and committed to storage as one transaction.
type Exchange struct {
	cfg   Config
	amm   domain.LMSR
	store ports.Storage
	locks *keyedMutex
	now   func() time.Time
}

// New crea un Exchange sobre el storage dado.
func New(cfg Config, store ports.Storage) *Exchange {
	return &Exchange{
		cfg:   cfg,
		amm:   domain.NewLMSR(cfg.Liquidity),
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// SetClock replaces the time source (tests, replays).
func (e *Exchange) SetClock(now func() time.Time) {
	e.now = now
}

// MarketMaker devuelve el LMSR usado por el exchange.
func (e *Exchange) MarketMaker() domain.LMSR {
	return e.amm
}

// Config devuelve la configuración efectiva.
func (e *Exchange) Config() Config {
	return e.cfg
}

// GetPrice devuelve la probabilidad actual del lado dado. Solo lectura.
func (e *Exchange) GetPrice(ctx context.Context, marketID string, side domain.Side) (float64, error) {
	if !side.Valid() {
		return 0, fmt.Errorf("exchange.GetPrice: %w", domain.ErrInvalidSide)
	}
	m, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("exchange.GetPrice: %w", err)
	}
	return e.amm.Price(m.QYes, m.QNo, side), nil
}

// Quote simula el próximo trade de ShareStep shares y su coste LMSR real.
func (e *Exchange) Quote(ctx context.Context, marketID string, side domain.Side) (domain.Quote, error) {
	if !side.Valid() {
		return domain.Quote{}, fmt.Errorf("exchange.Quote: %w", domain.ErrInvalidSide)
	}
	m, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("exchange.Quote: %w", err)
	}
	return e.amm.Quote(m.QYes, m.QNo, e.cfg.ShareStep, side), nil
}

// SubmitTrade takes a position for userID on side of the market.
//
// Errors: domain.ErrMarketClosed, domain.ErrAlreadyPositioned,
// domain.ErrInsufficientBalance (checked in that order). A rejected trade
// leaves every piece of state unchanged.
func (e *Exchange) SubmitTrade(ctx context.Context, marketID, userID string, side domain.Side) (domain.Position, error) {
	if !side.Valid() {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: %w", domain.ErrInvalidSide)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: empty user id")
	}

	unlock := e.locks.Lock(marketID)
	defer unlock()

	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: %w", err)
	}
	if !market.IsOpen() {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: market %s is %s: %w", marketID, market.Status, domain.ErrMarketClosed)
	}

	if _, held, err := e.store.GetPosition(ctx, marketID, userID); err != nil {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: %w", err)
	} else if held {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: user %s in market %s: %w", userID, marketID, domain.ErrAlreadyPositioned)
	}

	// Solo lectura: la cuenta de un usuario nuevo se abre dentro de CommitTrade.
	acct, known, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: %w", err)
	}
	if !known {
		acct = domain.Account{UserID: userID, Balance: e.cfg.InitialBalance}
	}
	if !acct.CanAfford(e.cfg.TradeFee) {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: balance %.0f < fee %.0f: %w",
			acct.Balance, e.cfg.TradeFee, domain.ErrInsufficientBalance)
	}

	// El usuario opera al precio que vio: cantidades previas al trade.
	prob := e.amm.Price(market.QYes, market.QNo, side)

	pos, err := e.store.CommitTrade(ctx, domain.TradeCommit{
		Market: market.WithTrade(side, e.cfg.ShareStep),
		Position: domain.Position{
			ID:                 uuid.New().String(),
			MarketID:           marketID,
			UserID:             userID,
			Side:               side,
			ProbabilityAtEntry: prob,
			Stake:              e.cfg.TradeFee,
			CreatedAt:          e.now().UTC(),
		},
		Fee:            e.cfg.TradeFee,
		InitialBalance: e.cfg.InitialBalance,
	})
	if err != nil {
		return domain.Position{}, fmt.Errorf("exchange.SubmitTrade: %w", err)
	}

	slog.Info("position taken",
		"market_id", marketID,
		"user_id", userID,
		"side", side,
		"probability", prob,
		"stake", e.cfg.TradeFee,
	)
	return pos, nil
}

// Resolve settles an OPEN market to outcome. Before the deadline it fails
// with domain.ErrTooEarly unless override is set; a resolved market fails
// with domain.ErrAlreadyResolved. Resolution is irreversible.
func (e *Exchange) Resolve(ctx context.Context, marketID string, outcome domain.Side, override bool) error {
	if !outcome.Valid() {
		return fmt.Errorf("exchange.Resolve: %w", domain.ErrInvalidSide)
	}

	unlock := e.locks.Lock(marketID)
	defer unlock()

	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return fmt.Errorf("exchange.Resolve: %w", err)
	}
	if !market.IsOpen() {
		return fmt.Errorf("exchange.Resolve: market %s is %s: %w", marketID, market.Status, domain.ErrAlreadyResolved)
	}
	now := e.now()
	if !override && !market.DeadlinePassed(now) {
		return fmt.Errorf("exchange.Resolve: market %s resolves at %s: %w",
			marketID, market.ResolutionDeadline.Format(time.RFC3339), domain.ErrTooEarly)
	}

	if err := e.store.ResolveMarket(ctx, marketID, domain.ResolvedStatus(outcome), now.UTC()); err != nil {
		return fmt.Errorf("exchange.Resolve: %w", err)
	}

	slog.Info("market resolved",
		"market_id", marketID,
		"outcome", outcome,
		"override", override,
		"participants", market.ParticipantCount,
	)
	return nil
}

// CreateMarket publishes a user market from a generated draft, seeded at
// qYes = qNo = SeedQuantity with the creator counted as first participant.
func (e *Exchange) CreateMarket(ctx context.Context, draft domain.MarketDraft, creatorID string, deadline time.Time) (domain.Market, error) {
	now := e.now().UTC()
	if !deadline.After(now) {
		return domain.Market{}, fmt.Errorf("exchange.CreateMarket: %w", domain.ErrInvalidDeadline)
	}

	m := domain.Market{
		ID:                 uuid.New().String(),
		Question:           draft.Question,
		Summary:            draft.Summary,
		Category:           domain.NormalizeCategory(draft.Category, domain.CategoryCareer),
		Tags:               draft.Tags,
		Transcript:         draft.Transcript,
		CreatorID:          creatorID,
		QYes:               e.cfg.SeedQuantity,
		QNo:                e.cfg.SeedQuantity,
		ResolutionDeadline: deadline.UTC(),
		Status:             domain.StatusOpen,
		ParticipantCount:   1,
		CreatedAt:          now,
	}
	if err := e.store.CreateMarket(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("exchange.CreateMarket: %w", err)
	}

	slog.Info("market published", "market_id", m.ID, "category", m.Category, "creator", creatorID)
	return m, nil
}

// SeedMarket loads a preloaded market with arbitrary quantities as-is.
func (e *Exchange) SeedMarket(ctx context.Context, m domain.Market) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.StatusOpen
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = e.now().UTC()
	}
	m.Category = domain.NormalizeCategory(m.Category, domain.CategoryCareer)
	if err := e.store.CreateMarket(ctx, m); err != nil {
		return fmt.Errorf("exchange.SeedMarket: %w", err)
	}
	return nil
}

// GetMarket devuelve un mercado por id.
func (e *Exchange) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	m, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("exchange.GetMarket: %w", err)
	}
	return m, nil
}

// ListMarkets devuelve el feed, opcionalmente filtrado por categoría.
func (e *Exchange) ListMarkets(ctx context.Context, category string) ([]domain.Market, error) {
	markets, err := e.store.ListMarkets(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("exchange.ListMarkets: %w", err)
	}
	return markets, nil
}

// Balance devuelve los Foresight Points del usuario. Un usuario sin cuenta
// tiene el balance inicial; no se crea la cuenta al leer.
func (e *Exchange) Balance(ctx context.Context, userID string) (float64, error) {
	acct, ok, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("exchange.Balance: %w", err)
	}
	if !ok {
		return e.cfg.InitialBalance, nil
	}
	return acct.Balance, nil
}

// OpenAccount registra al usuario con el balance inicial (o el dado, si > 0).
// Es idempotente: una cuenta existente se devuelve sin cambios.
func (e *Exchange) OpenAccount(ctx context.Context, userID string, balance float64) (domain.Account, error) {
	if balance <= 0 {
		balance = e.cfg.InitialBalance
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Account{}, fmt.Errorf("exchange.OpenAccount: empty user id")
	}
	acct, err := e.store.EnsureAccount(ctx, userID, balance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("exchange.OpenAccount: %w", err)
	}
	return acct, nil
}
