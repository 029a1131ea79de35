package storage

// sqlite.go — estado del exchange en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `markets`: una fila por mercado con su estado LMSR (q_yes, q_no) y ciclo de vida.
//   - `accounts`: balance de Foresight Points por usuario. CHECK balance >= 0.
//   - `positions`: UNIQUE(market_id, user_id); `seq` AUTOINCREMENT da el orden de aceptación.
//   - `comments`: hilo de cada mercado, ordenado por `seq`.
//   - Un trade aceptado escribe las tres tablas en una sola transacción,
//     incluida la apertura de la cuenta de un usuario nuevo.
//   - DSN por defecto ":memory:" — el estado vive lo que vive el proceso.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/alejandrodnm/castlot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS markets (
    id                  TEXT PRIMARY KEY,
    question            TEXT    NOT NULL,
    summary             TEXT    NOT NULL DEFAULT '',
    category            TEXT    NOT NULL,
    tags                TEXT    NOT NULL DEFAULT '[]',
    transcript          TEXT    NOT NULL DEFAULT '[]',
    creator_id          TEXT    NOT NULL DEFAULT '',
    q_yes               REAL    NOT NULL CHECK (q_yes >= 0),
    q_no                REAL    NOT NULL CHECK (q_no >= 0),
    resolution_deadline TEXT    NOT NULL,
    status              TEXT    NOT NULL DEFAULT 'OPEN',
    participant_count   INTEGER NOT NULL DEFAULT 0,
    created_at          TEXT    NOT NULL,
    resolved_at         TEXT
);

CREATE TABLE IF NOT EXISTS accounts (
    user_id TEXT PRIMARY KEY,
    balance REAL NOT NULL CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS positions (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL UNIQUE,
    market_id   TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    side        TEXT NOT NULL,
    probability REAL NOT NULL,
    stake       REAL NOT NULL,
    created_at  TEXT NOT NULL,
    UNIQUE (market_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT    NOT NULL UNIQUE,
    market_id  TEXT    NOT NULL REFERENCES markets(id),
    user_id    TEXT    NOT NULL,
    text       TEXT    NOT NULL,
    score      INTEGER NOT NULL DEFAULT 0,
    created_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_markets_category ON markets(category);
CREATE INDEX IF NOT EXISTS idx_markets_created  ON markets(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_positions_user   ON positions(user_id, seq);
CREATE INDEX IF NOT EXISTS idx_comments_market  ON comments(market_id, seq);
`

// ErrConflict is returned when a trade commit finds the market changed under it.
var ErrConflict = errors.New("storage: concurrent market update")

// querier es el subconjunto común de *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implementa ports.Storage usando SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer; además ":memory:" es por conexión
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// CommitTrade aplica el trade completo en una transacción:
//  1. UPDATE del mercado, condicionado a OPEN y al participant_count previo (CAS)
//  2. apertura de la cuenta con InitialBalance si no existe
//  3. débito del fee, condicionado a balance >= fee
//  4. INSERT de la posición
func (s *SQLiteStorage) CommitTrade(ctx context.Context, c domain.TradeCommit) (domain.Position, error) {
	if err := c.Market.Validate(); err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	m := c.Market
	res, err := tx.ExecContext(ctx, `
		UPDATE markets SET q_yes = ?, q_no = ?, participant_count = ?
		WHERE id = ? AND status = 'OPEN' AND participant_count = ?`,
		m.QYes, m.QNo, m.ParticipantCount, m.ID, m.ParticipantCount-1,
	)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: update market %s: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		current, err := getMarket(ctx, tx, m.ID)
		if err != nil {
			return domain.Position{}, fmt.Errorf("storage.CommitTrade: %w", err)
		}
		if !current.IsOpen() {
			return domain.Position{}, fmt.Errorf("storage.CommitTrade: market %s: %w", m.ID, domain.ErrMarketClosed)
		}
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: market %s: %w", m.ID, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		c.Position.UserID, c.InitialBalance,
	); err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: open account %s: %w", c.Position.UserID, err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - ? WHERE user_id = ? AND balance >= ?`,
		c.Fee, c.Position.UserID, c.Fee,
	)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: debit %s: %w", c.Position.UserID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: debit %s: %w", c.Position.UserID, domain.ErrInsufficientBalance)
	}

	pos, err := insertPosition(ctx, tx, c.Position)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Position{}, fmt.Errorf("storage.CommitTrade: commit: %w", err)
	}
	return pos, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
