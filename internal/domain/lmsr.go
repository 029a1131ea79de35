package domain

import "math"

// DefaultLiquidity es el parámetro b compartido por todos los mercados.
const DefaultLiquidity = 80.0

// LMSR es el market maker automático (Logarithmic Market Scoring Rule) para
// mercados binarios. No guarda estado: todo sale de (qYes, qNo) y de B.
//
// Las exponenciales se calculan restando el máximo (log-sum-exp) porque las
// cantidades crecen sin límite con el volumen y b es pequeño.
type LMSR struct {
	B float64
}

// NewLMSR crea un market maker con liquidez b. b <= 0 usa DefaultLiquidity.
func NewLMSR(b float64) LMSR {
	if b <= 0 {
		b = DefaultLiquidity
	}
	return LMSR{B: b}
}

// Cost es la función potencial C(q) = b · ln(e^(qYes/b) + e^(qNo/b)).
func (m LMSR) Cost(qYes, qNo float64) float64 {
	hi := math.Max(qYes, qNo)
	return hi + m.B*math.Log(math.Exp((qYes-hi)/m.B)+math.Exp((qNo-hi)/m.B))
}

// Price devuelve el precio instantáneo (probabilidad) del lado dado:
// el softmax de las dos cantidades. Price(YES) + Price(NO) = 1.
func (m LMSR) Price(qYes, qNo float64, side Side) float64 {
	hi := math.Max(qYes, qNo)
	expYes := math.Exp((qYes - hi) / m.B)
	expNo := math.Exp((qNo - hi) / m.B)
	if side == SideNo {
		return expNo / (expYes + expNo)
	}
	return expYes / (expYes + expNo)
}

// CostToBuy es el coste real (integral LMSR) de comprar shares del lado dado:
// C(q') - C(q). Siempre >= shares × precio actual por convexidad.
func (m LMSR) CostToBuy(qYes, qNo, shares float64, side Side) float64 {
	before := m.Cost(qYes, qNo)
	if side == SideNo {
		return m.Cost(qYes, qNo+shares) - before
	}
	return m.Cost(qYes+shares, qNo) - before
}

// MaxLoss es la pérdida máxima del market maker en un mercado binario: b · ln(2).
func (m LMSR) MaxLoss() float64 {
	return m.B * math.Ln2
}

// Quote describe el impacto de comprar shares de un lado al estado actual.
type Quote struct {
	Side         Side
	Shares       float64
	PriceBefore  float64 // precio del lado antes del trade
	PriceAfter   float64 // precio del lado después del trade
	Cost         float64 // integral LMSR
	AveragePrice float64 // Cost / Shares
}

// PriceImpact devuelve cuánto mueve el trade el precio del lado comprado.
func (q Quote) PriceImpact() float64 {
	return q.PriceAfter - q.PriceBefore
}

// Quote simula la compra de shares sin mutar nada.
func (m LMSR) Quote(qYes, qNo, shares float64, side Side) Quote {
	q := Quote{
		Side:        side,
		Shares:      shares,
		PriceBefore: m.Price(qYes, qNo, side),
		Cost:        m.CostToBuy(qYes, qNo, shares, side),
	}
	if side == SideNo {
		q.PriceAfter = m.Price(qYes, qNo+shares, side)
	} else {
		q.PriceAfter = m.Price(qYes+shares, qNo, side)
	}
	if shares > 0 {
		q.AveragePrice = q.Cost / shares
	}
	return q
}
