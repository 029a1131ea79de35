package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/castlot/internal/domain"
)

// EnsureAccount abre la cuenta con el balance inicial si no existe y la devuelve.
func (s *SQLiteStorage) EnsureAccount(ctx context.Context, userID string, initial float64) (domain.Account, error) {
	if userID == "" {
		return domain.Account{}, fmt.Errorf("storage.EnsureAccount: empty user id")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, initial,
	); err != nil {
		return domain.Account{}, fmt.Errorf("storage.EnsureAccount: insert %s: %w", userID, err)
	}

	acct, _, err := s.GetAccount(ctx, userID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("storage.EnsureAccount: %w", err)
	}
	return acct, nil
}

// GetAccount devuelve ok=false si el usuario no tiene cuenta.
func (s *SQLiteStorage) GetAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	acct := domain.Account{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID,
	).Scan(&acct.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("storage.GetAccount: %w", err)
	}
	return acct, true, nil
}

// ListAccounts devuelve todas las cuentas ordenadas por user_id.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, balance FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListAccounts: query: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.UserID, &a.Balance); err != nil {
			return nil, fmt.Errorf("storage.ListAccounts: scan row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
