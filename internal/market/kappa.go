package market

import (
	"math"

	"polymarket-mm/pkg/types"
)

// minDeltaForFit and minUsablePoints mirror the point-filtering rule used to
// build the (delta, size) scatter the decay curve is fit against.
const (
	minDeltaForFit  = 0.005
	minUsablePoints = 2
	maxFitIters     = 2000
	minKappa        = 1e-4
)

// estimateKappa fits v = A*exp(-k*delta) to order-book depth by distance
// from the top of book, returning k (the liquidity density). Returns NaN if
// fewer than minUsablePoints usable points remain after filtering, or if the
// fit does not converge to k >= minKappa.
func estimateKappa(bids, asks []types.PriceLevel, bestBid, bestAsk float64) float64 {
	var deltas, sizes []float64

	for _, lvl := range asks {
		price := parsePrice(lvl.Price)
		delta := price - bestAsk
		size := parsePrice(lvl.Size)
		if delta > minDeltaForFit && size > 0 {
			deltas = append(deltas, delta)
			sizes = append(sizes, size)
		}
	}
	for _, lvl := range bids {
		price := parsePrice(lvl.Price)
		delta := bestBid - price
		size := parsePrice(lvl.Size)
		if delta > minDeltaForFit && size > 0 {
			deltas = append(deltas, delta)
			sizes = append(sizes, size)
		}
	}

	if len(deltas) < minUsablePoints {
		return math.NaN()
	}

	a0 := sizes[0]
	k, ok := fitExpDecay(deltas, sizes, a0, 1.0)
	if !ok || k < minKappa {
		return math.NaN()
	}
	return k
}

// fitExpDecay fits v = A*exp(-k*delta) by Gauss-Newton least squares, with
// both parameters held to [0, +Inf). This stands in for scipy's curve_fit
// (no such package exists anywhere in the retrieved corpus; see DESIGN.md).
func fitExpDecay(deltas, values []float64, a0, k0 float64) (k float64, ok bool) {
	a, k := a0, k0
	n := len(deltas)
	if n == 0 {
		return 0, false
	}

	for iter := 0; iter < maxFitIters; iter++ {
		// Residual r_i = value_i - A*exp(-k*delta_i); Jacobian columns
		// d(model)/dA = exp(-k*delta), d(model)/dk = -A*delta*exp(-k*delta).
		var jtjAA, jtjAK, jtjKK, jtrA, jtrK float64
		for i := 0; i < n; i++ {
			e := math.Exp(-k * deltas[i])
			model := a * e
			r := values[i] - model
			dA := e
			dK := -a * deltas[i] * e

			jtjAA += dA * dA
			jtjAK += dA * dK
			jtjKK += dK * dK
			jtrA += dA * r
			jtrK += dK * r
		}

		det := jtjAA*jtjKK - jtjAK*jtjAK
		if math.Abs(det) < 1e-12 {
			break
		}

		deltaA := (jtjKK*jtrA - jtjAK*jtrK) / det
		deltaK := (jtjAA*jtrK - jtjAK*jtrA) / det

		newA := a + deltaA
		newK := k + deltaK
		if newA < 0 {
			newA = 0
		}
		if newK < 0 {
			newK = 0
		}

		converged := math.Abs(newA-a) < 1e-9 && math.Abs(newK-k) < 1e-9
		a, k = newA, newK
		if converged {
			break
		}
		if math.IsNaN(a) || math.IsNaN(k) || math.IsInf(a, 0) || math.IsInf(k, 0) {
			return 0, false
		}
	}

	return k, true
}
