package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side es uno de los dos resultados de un mercado binario.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// ParseSide acepta "yes"/"no" en cualquier capitalización.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideYes:
		return SideYes, nil
	case SideNo:
		return SideNo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Valid devuelve true si s es YES o NO.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Opposite devuelve el otro lado.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// MarketStatus is the lifecycle of a market. OPEN is the only non-terminal state.
type MarketStatus string

const (
	StatusOpen        MarketStatus = "OPEN"
	StatusResolvedYes MarketStatus = "RESOLVED_YES"
	StatusResolvedNo  MarketStatus = "RESOLVED_NO"
)

// ResolvedStatus maps an outcome to its terminal status.
func ResolvedStatus(outcome Side) MarketStatus {
	if outcome == SideNo {
		return StatusResolvedNo
	}
	return StatusResolvedYes
}

// Outcome returns the winning side of a resolved market.
func (s MarketStatus) Outcome() (Side, bool) {
	switch s {
	case StatusResolvedYes:
		return SideYes, true
	case StatusResolvedNo:
		return SideNo, true
	}
	return "", false
}

// Categories used by the feed. "career" is the fallback.
const (
	CategoryCareer        = "career"
	CategoryRelationships = "relationships"
	CategoryHabits        = "habits"
	CategoryAcademics     = "academics"
	CategoryPurchases     = "purchases"
)

var categories = []string{CategoryCareer, CategoryRelationships, CategoryHabits, CategoryAcademics, CategoryPurchases}

// Categories devuelve las categorías válidas en orden de display.
func Categories() []string {
	return append([]string(nil), categories...)
}

// NormalizeCategory devuelve la categoría en minúsculas, o fallback si no es válida.
func NormalizeCategory(c, fallback string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range categories {
		if c == known {
			return c
		}
	}
	return fallback
}

// TranscriptSegment es un fragmento con timestamp de la narración.
type TranscriptSegment struct {
	Time string `json:"time" yaml:"time"`
	Text string `json:"text" yaml:"text"`
}

// Market es un mercado de predicción personal con su estado LMSR.
type Market struct {
	ID                 string
	Question           string
	Summary            string
	Category           string
	Tags               []string
	Transcript         []TranscriptSegment
	CreatorID          string
	QYes               float64
	QNo                float64
	ResolutionDeadline time.Time
	Status             MarketStatus
	ParticipantCount   int // trades aceptados, no usuarios distintos
	CreatedAt          time.Time
	ResolvedAt         *time.Time
	CommentCount       int // derivado del hilo, no se persiste en la fila
}

// IsOpen devuelve true si el mercado acepta trades.
func (m Market) IsOpen() bool {
	return m.Status == StatusOpen
}

// DeadlinePassed devuelve true si now >= ResolutionDeadline.
func (m Market) DeadlinePassed(now time.Time) bool {
	return !now.Before(m.ResolutionDeadline)
}

// HoursToResolution devuelve las horas hasta el deadline, 0 si ya pasó.
func (m Market) HoursToResolution(now time.Time) float64 {
	if m.ResolutionDeadline.IsZero() {
		return 0
	}
	h := m.ResolutionDeadline.Sub(now).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// WithTrade devuelve el estado del mercado tras aceptar un trade de step
// shares en side. No modifica m.
func (m Market) WithTrade(side Side, step float64) Market {
	next := m
	if side == SideNo {
		next.QNo += step
	} else {
		next.QYes += step
	}
	next.ParticipantCount++
	return next
}

// Validate comprueba el invariante de cantidades no negativas.
func (m Market) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("market: empty id")
	}
	if m.QYes < 0 || m.QNo < 0 {
		return fmt.Errorf("market %s: negative quantities (%.2f, %.2f)", m.ID, m.QYes, m.QNo)
	}
	return nil
}

// TruncateQuestion devuelve la pregunta truncada a maxLen caracteres.
// Si la pregunta está vacía usa el id del mercado como fallback.
func TruncateQuestion(question, id string, maxLen int) string {
	q := question
	if q == "" {
		q = id
	}
	r := []rune(q)
	if len(r) > maxLen {
		q = string(r[:maxLen-3]) + "..."
	}
	return q
}
