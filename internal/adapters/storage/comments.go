package storage

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/castlot/internal/domain"
)

const commentColumns = `seq, id, market_id, user_id, text, score, created_at`

// AddComment inserta el comentario al final del hilo del mercado.
func (s *SQLiteStorage) AddComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	if _, err := getMarket(ctx, s.db, c.MarketID); err != nil {
		return domain.Comment{}, fmt.Errorf("storage.AddComment: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, market_id, user_id, text, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.MarketID, c.UserID, c.Text, c.Score, formatTime(c.CreatedAt),
	)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("storage.AddComment: insert %s: %w", c.ID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return domain.Comment{}, fmt.Errorf("storage.AddComment: seq: %w", err)
	}
	c.Seq = seq
	return c, nil
}

// CommentsFor devuelve el hilo del mercado en orden de publicación.
func (s *SQLiteStorage) CommentsFor(ctx context.Context, marketID string) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE market_id = ? ORDER BY seq ASC`,
		marketID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.CommentsFor: query: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var (
			c         domain.Comment
			createdAt string
		)
		if err := rows.Scan(&c.Seq, &c.ID, &c.MarketID, &c.UserID, &c.Text, &c.Score, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.CommentsFor: scan row: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
