package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/castlot/internal/domain"
)

const positionColumns = `seq, id, market_id, user_id, side, probability, stake, created_at`

// RecordPosition inserta una posición fuera de un trade (seed de datos, imports).
func (s *SQLiteStorage) RecordPosition(ctx context.Context, pos domain.Position) (domain.Position, error) {
	pos, err := insertPosition(ctx, s.db, pos)
	if err != nil {
		return domain.Position{}, fmt.Errorf("storage.RecordPosition: %w", err)
	}
	return pos, nil
}

// GetPosition devuelve la posición del usuario en el mercado, si existe.
func (s *SQLiteStorage) GetPosition(ctx context.Context, marketID, userID string) (domain.Position, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE market_id = ? AND user_id = ?`,
		marketID, userID,
	)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("storage.GetPosition: %w", err)
	}
	return pos, true, nil
}

// PositionsFor devuelve las posiciones del usuario en orden de aceptación.
func (s *SQLiteStorage) PositionsFor(ctx context.Context, userID string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE user_id = ? ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.PositionsFor: query: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.PositionsFor: scan row: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// insertPosition comprueba la clave (market_id, user_id) antes de insertar;
// el UNIQUE del schema cubre el resto.
func insertPosition(ctx context.Context, q querier, pos domain.Position) (domain.Position, error) {
	if !pos.Side.Valid() {
		return domain.Position{}, fmt.Errorf("position %s: %w", pos.ID, domain.ErrInvalidSide)
	}

	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM positions WHERE market_id = ? AND user_id = ?`,
		pos.MarketID, pos.UserID,
	).Scan(&exists)
	if err != nil {
		return domain.Position{}, fmt.Errorf("check position: %w", err)
	}
	if exists > 0 {
		return domain.Position{}, fmt.Errorf("market %s user %s: %w", pos.MarketID, pos.UserID, domain.ErrDuplicatePosition)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO positions (id, market_id, user_id, side, probability, stake, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.MarketID, pos.UserID, string(pos.Side), pos.ProbabilityAtEntry,
		pos.Stake, formatTime(pos.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.Position{}, fmt.Errorf("market %s user %s: %w", pos.MarketID, pos.UserID, domain.ErrDuplicatePosition)
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("insert position: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return domain.Position{}, fmt.Errorf("position seq: %w", err)
	}
	pos.Seq = seq
	return pos, nil
}

func scanPosition(r rowScanner) (domain.Position, error) {
	var (
		pos             domain.Position
		side, createdAt string
	)
	if err := r.Scan(
		&pos.Seq, &pos.ID, &pos.MarketID, &pos.UserID, &side,
		&pos.ProbabilityAtEntry, &pos.Stake, &createdAt,
	); err != nil {
		return domain.Position{}, err
	}
	pos.Side = domain.Side(side)
	pos.CreatedAt = parseTime(createdAt)
	return pos, nil
}
