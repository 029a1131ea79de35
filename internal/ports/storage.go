package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/castlot/internal/domain"
)

// MarketStore persiste mercados y su ciclo de vida.
type MarketStore interface {
	// CreateMarket inserta un mercado nuevo.
	CreateMarket(ctx context.Context, market domain.Market) error

	// GetMarket devuelve domain.ErrMarketNotFound (wrapped) si no existe.
	GetMarket(ctx context.Context, id string) (domain.Market, error)

	// ListMarkets devuelve los mercados, más recientes primero. category "" = todas.
	ListMarkets(ctx context.Context, category string) ([]domain.Market, error)

	// ResolveMarket mueve un mercado OPEN a su estado terminal.
	// Devuelve domain.ErrAlreadyResolved si ya no estaba OPEN.
	ResolveMarket(ctx context.Context, id string, status domain.MarketStatus, at time.Time) error
}

// PositionStore records locked positions keyed by (marketID, userID).
type PositionStore interface {
	// RecordPosition inserts a position and returns it with its acceptance Seq.
	// Fails with domain.ErrDuplicatePosition if the key already exists.
	RecordPosition(ctx context.Context, pos domain.Position) (domain.Position, error)

	// GetPosition returns ok=false when the user holds no position in the market.
	GetPosition(ctx context.Context, marketID, userID string) (pos domain.Position, ok bool, err error)

	// PositionsFor returns a user's positions ordered by acceptance.
	PositionsFor(ctx context.Context, userID string) ([]domain.Position, error)
}

// AccountStore persists Foresight Points balances.
type AccountStore interface {
	// EnsureAccount opens the account with initial balance if missing.
	EnsureAccount(ctx context.Context, userID string, initial float64) (domain.Account, error)

	// GetAccount returns ok=false for unknown users.
	GetAccount(ctx context.Context, userID string) (acct domain.Account, ok bool, err error)

	// ListAccounts returns every known account ordered by user id.
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

// CommentStore persists the discussion thread of each market.
type CommentStore interface {
	// AddComment appends a comment and returns it with its Seq.
	// Fails with domain.ErrMarketNotFound if the market does not exist.
	AddComment(ctx context.Context, c domain.Comment) (domain.Comment, error)

	// CommentsFor returns a market's comments in publication order.
	CommentsFor(ctx context.Context, marketID string) ([]domain.Comment, error)
}

// Storage is the full state store behind the exchange.
type Storage interface {
	MarketStore
	PositionStore
	AccountStore
	CommentStore

	// CommitTrade opens the account if missing, then applies the market
	// update, the fee debit and the position insert as one unit. On any
	// error nothing is written, the account included.
	CommitTrade(ctx context.Context, commit domain.TradeCommit) (domain.Position, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
