package domain

import (
	"fmt"
	"math"
	"sort"
)

// Tier es la etiqueta cualitativa de un Brier score.
type Tier string

const (
	TierOracle  Tier = "Oracle"
	TierExpert  Tier = "Expert"
	TierAnalyst Tier = "Analyst"
	TierNovice  Tier = "Novice"
	TierNoData  Tier = "No data"
)

// BrierScore calcula el error cuadrático medio entre la probabilidad respaldada
// y el resultado (1 si el lado ganó, 0 si no). ok=false si no hay forecasts:
// "sin score" no es lo mismo que 0 (calibración perfecta).
//
// Fórmula: score = mean((p_i - o_i)²)
func BrierScore(forecasts []Forecast) (score float64, ok bool) {
	if len(forecasts) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, f := range forecasts {
		o := 0.0
		if f.Hit {
			o = 1
		}
		d := f.Probability - o
		sum += d * d
	}
	return sum / float64(len(forecasts)), true
}

// RoundScore redondea a 3 decimales para display. Los agregados usan el valor completo.
func RoundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

// TierFor mapea un score a su tier (menor = mejor).
func TierFor(score float64, ok bool) Tier {
	switch {
	case !ok:
		return TierNoData
	case score < 0.10:
		return TierOracle
	case score < 0.15:
		return TierExpert
	case score < 0.20:
		return TierAnalyst
	default:
		return TierNovice
	}
}

// CalibrationRecord is a user's accuracy over resolved positions.
type CalibrationRecord struct {
	UserID     string
	BrierScore float64 // valid only when HasScore
	HasScore   bool
	Tier       Tier
	Resolved   int // positions that entered the score
	Pending    int // positions in markets still open
}

// NewCalibrationRecord scores the forecasts of resolved positions.
func NewCalibrationRecord(userID string, resolved []Forecast, pending int) CalibrationRecord {
	score, ok := BrierScore(resolved)
	return CalibrationRecord{
		UserID:     userID,
		BrierScore: score,
		HasScore:   ok,
		Tier:       TierFor(score, ok),
		Resolved:   len(resolved),
		Pending:    pending,
	}
}

// DisplayScore formats the score with 3 decimals, or "—" when there is none.
func (r CalibrationRecord) DisplayScore() string {
	if !r.HasScore {
		return "—"
	}
	return fmt.Sprintf("%.3f", RoundScore(r.BrierScore))
}

// RankCalibrations ordena in-place: Brier ascendente, sin score al final,
// empates por UserID ascendente.
func RankCalibrations(records []CalibrationRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.HasScore != b.HasScore {
			return a.HasScore
		}
		if a.HasScore && a.BrierScore != b.BrierScore {
			return a.BrierScore < b.BrierScore
		}
		return a.UserID < b.UserID
	})
}
