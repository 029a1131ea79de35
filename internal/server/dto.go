package server

import (
	"time"

	"github.com/alejandrodnm/castlot/internal/domain"
)

type marketResponse struct {
	ID               string                     `json:"id"`
	Question         string                     `json:"question"`
	Summary          string                     `json:"summary"`
	Category         string                     `json:"category"`
	Tags             []string                   `json:"tags"`
	Transcript       []domain.TranscriptSegment `json:"transcript"`
	CreatorID        string                     `json:"creator_id,omitempty"`
	QYes             float64                    `json:"q_yes"`
	QNo              float64                    `json:"q_no"`
	PriceYes         float64                    `json:"price_yes"`
	PriceNo          float64                    `json:"price_no"`
	Status           domain.MarketStatus        `json:"status"`
	ParticipantCount int                        `json:"participant_count"`
	CommentCount     int                        `json:"comment_count"`
	ResolutionDate   time.Time                  `json:"resolution_date"`
	CreatedAt        time.Time                  `json:"created_at"`
	ResolvedAt       *time.Time                 `json:"resolved_at,omitempty"`
}

func toMarketResponse(m domain.Market, amm domain.LMSR) marketResponse {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	transcript := m.Transcript
	if transcript == nil {
		transcript = []domain.TranscriptSegment{}
	}
	return marketResponse{
		ID:               m.ID,
		Question:         m.Question,
		Summary:          m.Summary,
		Category:         m.Category,
		Tags:             tags,
		Transcript:       transcript,
		CreatorID:        m.CreatorID,
		QYes:             m.QYes,
		QNo:              m.QNo,
		PriceYes:         amm.Price(m.QYes, m.QNo, domain.SideYes),
		PriceNo:          amm.Price(m.QYes, m.QNo, domain.SideNo),
		Status:           m.Status,
		ParticipantCount: m.ParticipantCount,
		CommentCount:     m.CommentCount,
		ResolutionDate:   m.ResolutionDeadline,
		CreatedAt:        m.CreatedAt,
		ResolvedAt:       m.ResolvedAt,
	}
}

type positionResponse struct {
	ID                 string      `json:"id"`
	MarketID           string      `json:"market_id"`
	UserID             string      `json:"user_id"`
	Side               domain.Side `json:"side"`
	ProbabilityAtEntry float64     `json:"probability_at_entry"`
	Stake              float64     `json:"stake"`
	Seq                int64       `json:"seq"`
	CreatedAt          time.Time   `json:"created_at"`
}

func toPositionResponse(p domain.Position) positionResponse {
	return positionResponse{
		ID:                 p.ID,
		MarketID:           p.MarketID,
		UserID:             p.UserID,
		Side:               p.Side,
		ProbabilityAtEntry: p.ProbabilityAtEntry,
		Stake:              p.Stake,
		Seq:                p.Seq,
		CreatedAt:          p.CreatedAt,
	}
}

// calibrationResponse: brier_score es null cuando no hay posiciones resueltas.
type calibrationResponse struct {
	Rank       int         `json:"rank,omitempty"`
	UserID     string      `json:"user_id"`
	BrierScore *float64    `json:"brier_score"`
	Tier       domain.Tier `json:"tier"`
	Resolved   int         `json:"resolved"`
	Pending    int         `json:"pending"`
}

func toCalibrationResponse(r domain.CalibrationRecord) calibrationResponse {
	resp := calibrationResponse{
		UserID:   r.UserID,
		Tier:     r.Tier,
		Resolved: r.Resolved,
		Pending:  r.Pending,
	}
	if r.HasScore {
		score := domain.RoundScore(r.BrierScore)
		resp.BrierScore = &score
	}
	return resp
}

type quoteResponse struct {
	MarketID     string      `json:"market_id"`
	Side         domain.Side `json:"side"`
	Shares       float64     `json:"shares"`
	PriceBefore  float64     `json:"price_before"`
	PriceAfter   float64     `json:"price_after"`
	PriceImpact  float64     `json:"price_impact"`
	Cost         float64     `json:"cost"`
	AveragePrice float64     `json:"average_price"`
	Fee          float64     `json:"fee"`
}

type createMarketRequest struct {
	Narration      string `json:"narration"`
	Category       string `json:"category"`
	CreatorID      string `json:"creator_id"`
	ResolutionDate string `json:"resolution_date"` // RFC3339 o YYYY-MM-DD
}

type tradeRequest struct {
	UserID string `json:"user_id"`
	Side   string `json:"side"`
}

type resolveRequest struct {
	Outcome  string `json:"outcome"`
	Override bool   `json:"override"`
}

type commentRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	MarketID  string    `json:"market_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		MarketID:  c.MarketID,
		UserID:    c.UserID,
		Text:      c.Text,
		Score:     c.Score,
		CreatedAt: c.CreatedAt,
	}
}

type balanceResponse struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
