package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/castlot/internal/domain"
)

const marketColumns = `id, question, summary, category, tags, transcript, creator_id,
	q_yes, q_no, resolution_deadline, status, participant_count, created_at, resolved_at`

// marketSelect añade al SELECT el número de comentarios del mercado.
const marketSelect = `SELECT ` + marketColumns + `,
	(SELECT COUNT(1) FROM comments c WHERE c.market_id = markets.id) AS comment_count
	FROM markets`

// CreateMarket inserta un mercado nuevo. Falla si el id ya existe.
func (s *SQLiteStorage) CreateMarket(ctx context.Context, m domain.Market) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("storage.CreateMarket: %w", err)
	}
	if m.Status == "" {
		m.Status = domain.StatusOpen
	}
	tags, err := json.Marshal(nonNil(m.Tags))
	if err != nil {
		return fmt.Errorf("storage.CreateMarket: marshal tags: %w", err)
	}
	transcript, err := json.Marshal(nonNilSegments(m.Transcript))
	if err != nil {
		return fmt.Errorf("storage.CreateMarket: marshal transcript: %w", err)
	}

	var resolvedAt *string
	if m.ResolvedAt != nil {
		t := formatTime(*m.ResolvedAt)
		resolvedAt = &t
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO markets (`+marketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Question, m.Summary, m.Category, string(tags), string(transcript), m.CreatorID,
		m.QYes, m.QNo, formatTime(m.ResolutionDeadline), string(m.Status), m.ParticipantCount,
		formatTime(m.CreatedAt), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.CreateMarket: insert %s: %w", m.ID, err)
	}
	return nil
}

// GetMarket devuelve el mercado por id.
func (s *SQLiteStorage) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := getMarket(ctx, s.db, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("storage.GetMarket: %w", err)
	}
	return m, nil
}

// ListMarkets devuelve los mercados más recientes primero. category vacío = todas.
func (s *SQLiteStorage) ListMarkets(ctx context.Context, category string) ([]domain.Market, error) {
	query := marketSelect
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListMarkets: query: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListMarkets: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// ResolveMarket mueve un mercado OPEN a RESOLVED_YES/RESOLVED_NO.
func (s *SQLiteStorage) ResolveMarket(ctx context.Context, id string, status domain.MarketStatus, at time.Time) error {
	if _, ok := status.Outcome(); !ok {
		return fmt.Errorf("storage.ResolveMarket: %s is not a terminal status", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE markets SET status = ?, resolved_at = ? WHERE id = ? AND status = 'OPEN'`,
		string(status), formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("storage.ResolveMarket: update %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := getMarket(ctx, s.db, id); err != nil {
		return fmt.Errorf("storage.ResolveMarket: %w", err)
	}
	return fmt.Errorf("storage.ResolveMarket: market %s: %w", id, domain.ErrAlreadyResolved)
}

func getMarket(ctx context.Context, q querier, id string) (domain.Market, error) {
	row := q.QueryRowContext(ctx, marketSelect+` WHERE id = ?`, id)
	m, err := scanMarket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrMarketNotFound)
	}
	if err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(r rowScanner) (domain.Market, error) {
	var (
		m                        domain.Market
		tags, transcript, status string
		deadline, createdAt      string
		resolvedAt               sql.NullString
	)
	if err := r.Scan(
		&m.ID, &m.Question, &m.Summary, &m.Category, &tags, &transcript, &m.CreatorID,
		&m.QYes, &m.QNo, &deadline, &status, &m.ParticipantCount, &createdAt, &resolvedAt,
		&m.CommentCount,
	); err != nil {
		return domain.Market{}, err
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return domain.Market{}, fmt.Errorf("decode tags of %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(transcript), &m.Transcript); err != nil {
		return domain.Market{}, fmt.Errorf("decode transcript of %s: %w", m.ID, err)
	}
	m.Status = domain.MarketStatus(status)
	m.ResolutionDeadline = parseTime(deadline)
	m.CreatedAt = parseTime(createdAt)
	if resolvedAt.Valid {
		t := parseTime(resolvedAt.String)
		m.ResolvedAt = &t
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilSegments(s []domain.TranscriptSegment) []domain.TranscriptSegment {
	if s == nil {
		return []domain.TranscriptSegment{}
	}
	return s
}
