package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLMSR_PricesSumToOne(t *testing.T) {
	m := NewLMSR(80)
	for _, q := range [][2]float64{{0, 0}, {120, 60}, {40, 90}, {0, 5000}, {1e6, 3}, {22, 95}} {
		yes := m.Price(q[0], q[1], SideYes)
		no := m.Price(q[0], q[1], SideNo)
		assert.InDelta(t, 1.0, yes+no, 1e-9, "q=%v", q)
	}
}

func TestLMSR_PriceKnownValue(t *testing.T) {
	// e^1.5 / (e^1.5 + e^0.75)
	m := NewLMSR(80)
	want := math.Exp(1.5) / (math.Exp(1.5) + math.Exp(0.75))
	assert.InDelta(t, want, m.Price(120, 60, SideYes), 1e-12)
	assert.InDelta(t, 0.6792, m.Price(120, 60, SideYes), 0.0001)
	assert.Equal(t, 68.0, math.Round(m.Price(120, 60, SideYes)*100))
}

func TestLMSR_PriceMonotonic(t *testing.T) {
	for _, b := range []float64{10, 80, 1000} {
		m := NewLMSR(b)
		prev := m.Price(0, 50, SideYes)
		for q := 5.0; q <= 200; q += 5 {
			p := m.Price(q, 50, SideYes)
			assert.Greater(t, p, prev, "b=%v q=%v", b, q)
			prev = p
		}
	}
}

func TestLMSR_PriceDecreasesWithOtherSide(t *testing.T) {
	m := NewLMSR(80)
	assert.Less(t, m.Price(50, 60, SideYes), m.Price(50, 50, SideYes))
}

func TestLMSR_PriceStrictlyInsideUnitInterval(t *testing.T) {
	m := NewLMSR(80)
	p := m.Price(400, 0, SideYes)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
}

func TestLMSR_NoOverflowOnLargeQuantities(t *testing.T) {
	m := NewLMSR(80)
	p := m.Price(1e6, 1e6-80, SideYes)
	assert.False(t, math.IsNaN(p))
	assert.InDelta(t, math.E/(math.E+1), p, 1e-9)

	c := m.Cost(1e6, 0)
	assert.False(t, math.IsInf(c, 0))
	assert.InDelta(t, 1e6, c, 1e-6)
}

func TestLMSR_CostAtOrigin(t *testing.T) {
	m := NewLMSR(80)
	assert.InDelta(t, 80*math.Log(2), m.Cost(0, 0), 1e-12)
	assert.InDelta(t, 55.452, m.Cost(0, 0), 0.001)
	assert.InDelta(t, m.Cost(0, 0), m.MaxLoss(), 1e-12)
}

func TestLMSR_CostMatchesNaiveFormula(t *testing.T) {
	m := NewLMSR(80)
	naive := 80 * math.Log(math.Exp(120.0/80)+math.Exp(60.0/80))
	assert.InDelta(t, naive, m.Cost(120, 60), 1e-9)
}

func TestLMSR_CostIsConvex(t *testing.T) {
	m := NewLMSR(80)
	// Midpoint convexity along the YES axis.
	for q := 0.0; q < 300; q += 25 {
		a, b := m.Cost(q, 40), m.Cost(q+50, 40)
		mid := m.Cost(q+25, 40)
		assert.LessOrEqual(t, mid, (a+b)/2+1e-9)
	}
}

func TestLMSR_CostToBuyExceedsLinearCost(t *testing.T) {
	m := NewLMSR(80)
	price := m.Price(120, 60, SideYes)
	cost := m.CostToBuy(120, 60, 10, SideYes)
	assert.Greater(t, cost, 10*price)
	assert.Less(t, cost, 10.0)
}

func TestLMSR_Quote(t *testing.T) {
	m := NewLMSR(80)
	q := m.Quote(50, 50, 10, SideNo)
	assert.InDelta(t, 0.5, q.PriceBefore, 1e-12)
	assert.Greater(t, q.PriceAfter, q.PriceBefore)
	assert.Greater(t, q.PriceImpact(), 0.0)
	assert.InDelta(t, q.Cost/10, q.AveragePrice, 1e-12)
}

func TestNewLMSR_DefaultLiquidity(t *testing.T) {
	assert.Equal(t, DefaultLiquidity, NewLMSR(0).B)
	assert.Equal(t, DefaultLiquidity, NewLMSR(-3).B)
}
