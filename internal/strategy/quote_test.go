package strategy

import (
	"math"
	"testing"
)

func testParams() Params {
	return Params{GammaBase: 0.1, TotalHorizon: 3600, MaxInventory: 10}
}

func TestComputeQuoteBidBelowAskWhenBothFinite(t *testing.T) {
	t.Parallel()
	q := ComputeQuote(testParams(), 0, 0.50, 50.0, 0.02, 0, 1.0)
	if math.IsNaN(q.Bid) || math.IsNaN(q.Ask) {
		t.Fatal("both legs should be finite at q=0")
	}
	if q.Bid >= q.Ask {
		t.Errorf("bid (%v) should be < ask (%v)", q.Bid, q.Ask)
	}
}

func TestComputeQuoteReservationMovesAwayFromFairPriceAsInventoryGrows(t *testing.T) {
	t.Parallel()
	p := testParams()
	var prevDist float64
	for _, q := range []float64{1, 2, 4, 8} {
		quote := ComputeQuote(p, q, 0.50, 50.0, 0.02, 0, 1.0)
		dist := math.Abs(quote.ReservationPrice - 0.50)
		if dist <= prevDist && q > 1 {
			t.Errorf("|r - S| did not increase monotonically at q=%v: dist=%v, prev=%v", q, dist, prevDist)
		}
		// Positive inventory should push the reservation price down (discourage more buying).
		if quote.ReservationPrice >= 0.50 {
			t.Errorf("reservation price should be below fair price for long inventory, got %v", quote.ReservationPrice)
		}
		prevDist = dist
	}
}

func TestComputeQuoteKillSwitchSuppressesBidWhenLong(t *testing.T) {
	t.Parallel()
	p := testParams()
	q := ComputeQuote(p, p.MaxInventory, 0.50, 50.0, 0.02, 0, 1.0)
	if !math.IsNaN(q.Bid) {
		t.Errorf("Bid = %v, want NaN once inventory reaches MaxInventory", q.Bid)
	}
	if math.IsNaN(q.Ask) {
		t.Error("Ask should remain quotable when only the long kill-switch trips")
	}
}

func TestComputeQuoteKillSwitchSuppressesAskWhenShort(t *testing.T) {
	t.Parallel()
	p := testParams()
	q := ComputeQuote(p, -p.MaxInventory, 0.50, 50.0, 0.02, 0, 1.0)
	if !math.IsNaN(q.Ask) {
		t.Errorf("Ask = %v, want NaN once inventory reaches -MaxInventory", q.Ask)
	}
	if math.IsNaN(q.Bid) {
		t.Error("Bid should remain quotable when only the short kill-switch trips")
	}
}

func TestComputeQuoteTimeHorizonFloorsAtSessionEnd(t *testing.T) {
	t.Parallel()
	p := testParams()
	// elapsed == TotalHorizon would divide by zero without the 0.001 floor.
	q := ComputeQuote(p, 3, 0.50, 50.0, 0.02, p.TotalHorizon, 1.0)
	if math.IsNaN(q.ReservationPrice) || math.IsInf(q.ReservationPrice, 0) {
		t.Fatalf("reservation price = %v, want finite at t=T", q.ReservationPrice)
	}
}

func TestComputeQuoteGammaScalesWithAbsInventory(t *testing.T) {
	t.Parallel()
	p := testParams()
	gNeg := ComputeQuote(p, -3, 0.50, 50.0, 0.02, 0, 1.0).Gamma
	gPos := ComputeQuote(p, 3, 0.50, 50.0, 0.02, 0, 1.0).Gamma
	if math.Abs(gNeg-gPos) > 1e-12 {
		t.Errorf("gamma should depend on |q| only: gamma(-3)=%v, gamma(3)=%v", gNeg, gPos)
	}
	gFlat := ComputeQuote(p, 0, 0.50, 50.0, 0.02, 0, 1.0).Gamma
	if gFlat >= gPos {
		t.Errorf("gamma(0)=%v should be less than gamma(3)=%v", gFlat, gPos)
	}
}

func TestComputeQuoteFlowMultiplierWidensSpreadSymmetrically(t *testing.T) {
	t.Parallel()
	p := testParams()
	normal := ComputeQuote(p, 0, 0.50, 50.0, 0.02, 0, 1.0)
	widened := ComputeQuote(p, 0, 0.50, 50.0, 0.02, 0, 2.5)

	normalSpread := normal.Ask - normal.Bid
	widenedSpread := widened.Ask - widened.Bid
	if math.Abs(widenedSpread-normalSpread*2.5) > 1e-9 {
		t.Errorf("widened spread = %v, want %v (2.5x normal)", widenedSpread, normalSpread*2.5)
	}
	if widened.ReservationPrice != normal.ReservationPrice {
		t.Errorf("flow multiplier should not move the reservation price: got %v, want %v", widened.ReservationPrice, normal.ReservationPrice)
	}
}
