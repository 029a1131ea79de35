package domain

import "time"

// Position is a user's locked stake on one side of one market. At most one
// exists per (MarketID, UserID) and it never changes once recorded.
type Position struct {
	ID                 string
	MarketID           string
	UserID             string
	Side               Side
	ProbabilityAtEntry float64 // price of Side quoted before the trade moved the market
	Stake              float64
	Seq                int64 // acceptance order, assigned by the store
	CreatedAt          time.Time
}

// Forecast is a (probability, outcome) pair fed to the Brier score.
type Forecast struct {
	Probability float64
	Hit         bool // the side backed resolved true
}

// Forecast scores the position against the resolved outcome of its market.
func (p Position) Forecast(outcome Side) Forecast {
	return Forecast{Probability: p.ProbabilityAtEntry, Hit: p.Side == outcome}
}

// TradeCommit is everything an accepted trade writes, applied as one unit.
type TradeCommit struct {
	Market         Market // post-trade state
	Position       Position
	Fee            float64
	InitialBalance float64 // balance con el que se abre la cuenta si el usuario es nuevo
}
