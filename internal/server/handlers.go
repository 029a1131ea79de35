package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/castlot/internal/application/exchange"
	"github.com/alejandrodnm/castlot/internal/domain"
)

const maxBodyBytes = 64 << 10

// writeJSON serializa v con el status dado.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError traduce los errores del exchange a status HTTP.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrMarketNotFound):
		status, code = http.StatusNotFound, "market_not_found"
	case errors.Is(err, domain.ErrInvalidSide):
		status, code = http.StatusBadRequest, "invalid_side"
	case errors.Is(err, domain.ErrInvalidDeadline):
		status, code = http.StatusBadRequest, "invalid_deadline"
	case errors.Is(err, domain.ErrInsufficientBalance):
		status, code = http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, domain.ErrAlreadyPositioned), errors.Is(err, domain.ErrDuplicatePosition):
		status, code = http.StatusConflict, "already_positioned"
	case errors.Is(err, domain.ErrMarketClosed):
		status, code = http.StatusConflict, "market_closed"
	case errors.Is(err, domain.ErrAlreadyResolved):
		status, code = http.StatusConflict, "already_resolved"
	case errors.Is(err, domain.ErrTooEarly):
		status, code = http.StatusConflict, "too_early"
	case errors.Is(err, domain.ErrEmptyComment), errors.Is(err, domain.ErrCommentTooLong):
		status, code = http.StatusBadRequest, "invalid_comment"
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "handler failed", "path", r.URL.Path, "err", err)
		writeError(w, status, code, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// GET /api/health
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/markets?category=career
func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.ex.ListMarkets(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	amm := s.ex.MarketMaker()
	out := make([]marketResponse, 0, len(markets))
	for _, m := range markets {
		out = append(out, toMarketResponse(m, amm))
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": out})
}

// GET /api/markets/{id}
func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.ex.GetMarket(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(m, s.ex.MarketMaker()))
}

// GET /api/markets/{id}/quote?side=yes
func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	side, err := domain.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	id := r.PathValue("id")
	q, err := s.ex.Quote(r.Context(), id, side)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		MarketID:     id,
		Side:         q.Side,
		Shares:       q.Shares,
		PriceBefore:  q.PriceBefore,
		PriceAfter:   q.PriceAfter,
		PriceImpact:  q.PriceImpact(),
		Cost:         q.Cost,
		AveragePrice: q.AveragePrice,
		Fee:          s.ex.Config().TradeFee,
	})
}

// POST /api/markets
func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Narration) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "narration is required")
		return
	}
	deadline, err := parseDate(req.ResolutionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_deadline", err.Error())
		return
	}

	draft := exchange.ComposeDraft(r.Context(), s.gen, req.Narration, req.Category)
	m, err := s.ex.CreateMarket(r.Context(), draft, req.CreatorID, deadline)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMarketResponse(m, s.ex.MarketMaker()))
}

// POST /api/markets/{id}/trades
func (s *Server) submitTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "user_id is required")
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	pos, err := s.ex.SubmitTrade(r.Context(), r.PathValue("id"), req.UserID, side)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPositionResponse(pos))
}

// POST /api/markets/{id}/resolve
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := domain.ParseSide(req.Outcome)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.ex.Resolve(r.Context(), id, outcome, req.Override); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	m, err := s.ex.GetMarket(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(m, s.ex.MarketMaker()))
}

// GET /api/markets/{id}/comments
func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.ex.Comments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": out})
}

// POST /api/markets/{id}/comments
func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "user_id is required")
		return
	}

	c, err := s.ex.AddComment(r.Context(), r.PathValue("id"), req.UserID, req.Text)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

// POST /api/users/{id}
// Abre la cuenta con el balance inicial; si ya existe la devuelve tal cual.
func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "user id is required")
		return
	}
	acct, err := s.ex.OpenAccount(r.Context(), id, 0)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, balanceResponse{UserID: acct.UserID, Balance: acct.Balance})
}

// GET /api/users/{id}/calibration
func (s *Server) calibration(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ex.GetCalibration(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalibrationResponse(rec))
}

// GET /api/users/{id}/balance
func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	bal, err := s.ex.Balance(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: id, Balance: bal})
}

// GET /api/leaderboard
func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	records, err := s.ex.GetLeaderboard(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]calibrationResponse, 0, len(records))
	for i, rec := range records {
		entry := toCalibrationResponse(rec)
		entry.Rank = i + 1
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}

// parseDate acepta RFC3339 o una fecha YYYY-MM-DD (medianoche UTC).
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("resolution_date must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}
