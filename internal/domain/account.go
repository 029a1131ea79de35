package domain

// DefaultInitialBalance is the Foresight Points balance a new user starts with.
const DefaultInitialBalance = 1000.0

// Account holds a user's spendable Foresight Points.
type Account struct {
	UserID  string
	Balance float64
}

// CanAfford devuelve true si el balance cubre el fee sin quedar negativo.
func (a Account) CanAfford(fee float64) bool {
	return a.Balance >= fee
}
