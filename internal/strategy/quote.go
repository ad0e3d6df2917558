package strategy

import "math"

// minTimeHorizon is the floor substituted for (T-t)/T as t approaches T, so
// the spread never divides by zero at the end of a session.
const minTimeHorizon = 0.001

// Params bundles the inputs to Quote that stay fixed for a session.
type Params struct {
	GammaBase      float64 // base risk aversion, gamma_0
	TotalHorizon   float64 // T, seconds
	MaxInventory   float64 // Q_max, kill-switch threshold on |q|
}

// Quote is a single-layer Avellaneda-Stoikov bid/ask pair for one tick.
// Bid or Ask is NaN when the inventory kill-switch has suppressed that side.
type Quote struct {
	Bid              float64
	Ask              float64
	ReservationPrice float64
	Gamma            float64
}

// ComputeQuote implements the single-layer Avellaneda-Stoikov model, grounded
// verbatim on AvellanedaStrategy.calcular_spread_optimo: reservation price
// skewed by inventory, optimal spread from kappa and sigma, and an inventory
// kill-switch that suppresses the side that would deepen the position.
//
//   q              inventory (shares, signed)
//   fairPrice      S, the Kalman-estimated fair price
//   kappa          order-book liquidity density
//   sigma          current rolling volatility
//   elapsed        seconds since the start of the trading phase
//   flowMultiplier widens the optimal spread under toxic recent flow; 1.0 is a no-op
func ComputeQuote(p Params, q, fairPrice, kappa, sigma, elapsed, flowMultiplier float64) Quote {
	tHorizon := math.Max((p.TotalHorizon-elapsed)/p.TotalHorizon, minTimeHorizon)

	gamma := p.GammaBase * math.Exp(0.1*math.Abs(q))

	skew := q * gamma * sigma * sigma * tHorizon
	reservation := fairPrice - skew

	spread := (1 / gamma) * math.Log(1+gamma/kappa) * (1 + sigma) * flowMultiplier

	bid := reservation - spread/2
	ask := reservation + spread/2

	if q >= p.MaxInventory {
		bid = math.NaN()
	}
	if q <= -p.MaxInventory {
		ask = math.NaN()
	}

	return Quote{Bid: bid, Ask: ask, ReservationPrice: reservation, Gamma: gamma}
}
