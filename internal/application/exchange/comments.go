package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/google/uuid"
)

// AddComment publica un comentario en el hilo del mercado. Se puede comentar
// en mercados resueltos; el comentario no toca el estado LMSR ni el balance.
func (e *Exchange) AddComment(ctx context.Context, marketID, userID, text string) (domain.Comment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Comment{}, fmt.Errorf("exchange.AddComment: empty user id")
	}
	text, err := domain.NormalizeCommentText(text)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("exchange.AddComment: %w", err)
	}

	c, err := e.store.AddComment(ctx, domain.Comment{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		UserID:    userID,
		Text:      text,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		return domain.Comment{}, fmt.Errorf("exchange.AddComment: %w", err)
	}

	slog.Debug("comment added", "market_id", marketID, "user_id", userID, "seq", c.Seq)
	return c, nil
}

// SeedComment carga un comentario precargado conservando su score.
func (e *Exchange) SeedComment(ctx context.Context, c domain.Comment) error {
	text, err := domain.NormalizeCommentText(c.Text)
	if err != nil {
		return fmt.Errorf("exchange.SeedComment: %w", err)
	}
	c.Text = text
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = e.now().UTC()
	}
	if _, err := e.store.AddComment(ctx, c); err != nil {
		return fmt.Errorf("exchange.SeedComment: %w", err)
	}
	return nil
}

// Comments devuelve el hilo del mercado en orden de publicación.
// Un mercado inexistente devuelve domain.ErrMarketNotFound.
func (e *Exchange) Comments(ctx context.Context, marketID string) ([]domain.Comment, error) {
	if _, err := e.store.GetMarket(ctx, marketID); err != nil {
		return nil, fmt.Errorf("exchange.Comments: %w", err)
	}
	comments, err := e.store.CommentsFor(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("exchange.Comments: %w", err)
	}
	return comments, nil
}
