package kalman

import "math"

// minCovFloor bounds the diagonal of dynamically scaled Q and R away from zero.
const minCovFloor = 1e-9

// State is the filter's current mean and covariance.
type State struct {
	X Vec4
	P Mat4
}

// Estimator is the online 4-state Kalman filter. It is mutated only by the
// session loop; MarketFeed and the calibrator never touch it.
type Estimator struct {
	state State

	qBase Vec4
	rBase Vec2

	rFactorSpread float64
	qFactorVol    float64
}

// NewEstimator builds an estimator seeded with the given calibration result
// and tuning factors. The initial state is set separately via Seed during
// warm-up.
func NewEstimator(qBase Vec4, rBase Vec2, rFactorSpread, qFactorVol float64) *Estimator {
	return &Estimator{
		qBase:         qBase,
		rBase:         rBase,
		rFactorSpread: rFactorSpread,
		qFactorVol:    qFactorVol,
		state: State{
			P: identity4(),
		},
	}
}

// Seed sets the state mean to [wmp, 0, volDiff, 0] and resets P to the
// identity. Warm-up calls it once on its first positive wmp (later warm-up
// ticks go through PredictAndSeedObservation), and calibration calls it on
// the freshly built estimator with the last warm-up observation.
func (e *Estimator) Seed(wmp, volDiff float64) {
	e.state.X = Vec4{wmp, 0, volDiff, 0}
	e.state.P = identity4()
}

// PredictAndSeedObservation advances the state one step via F*x, then
// overwrites only the price and vol_diff components with the newest
// observation, leaving the velocity components (x[1], x[3]) to carry
// forward from the predict. This mirrors the warm-up loop's treatment of
// the seed vector: velocities are never reset mid warm-up, only predicted.
func (e *Estimator) PredictAndSeedObservation(wmp, volDiff float64) {
	predicted := mulMat4Vec4(transitionMatrix, e.state.X)
	predicted[0] = wmp
	predicted[2] = volDiff
	e.state.X = predicted
}

// State returns a copy of the current filter state.
func (e *Estimator) State() State {
	return e.state
}

// FairPrice returns the current price estimate, x[0].
func (e *Estimator) FairPrice() float64 {
	return e.state.X[0]
}

// Step runs one predict/innovate/gain/update cycle and returns the new fair
// price. sigmaRoll is the rolling volatility estimate, spread is the current
// market spread (best_ask - best_bid). On a numeric failure (singular or
// non-PSD innovation covariance) the prior state is returned unchanged and ok
// is false; the caller logs this as a recorded-but-unsteered tick.
func (e *Estimator) Step(observation Vec2, spread, sigmaRoll float64) (fairPrice float64, ok bool) {
	qDyn := diagMat4(Vec4{
		e.qBase[0] * (1 + sigmaRoll*e.qFactorVol),
		e.qBase[1] * (1 + sigmaRoll*e.qFactorVol),
		e.qBase[2] * (1 + sigmaRoll*e.qFactorVol),
		e.qBase[3] * (1 + sigmaRoll*e.qFactorVol),
	})
	qDyn = clampDiagMat4(qDyn, minCovFloor)

	rDyn := diagMat2(Vec2{
		e.rBase[0] * (1 + spread*e.rFactorSpread),
		e.rBase[1] * (1 + spread*e.rFactorSpread),
	})
	rDyn = clampDiagMat2(rDyn, minCovFloor)

	// Predict
	xPrior := mulMat4Vec4(transitionMatrix, e.state.X)
	pPrior := addMat4(mulMat4Mat4(mulMat4Mat4(transitionMatrix, e.state.P), transposeMat4(transitionMatrix)), qDyn)

	// Innovate
	hx := mulMat2x4Vec4(observationMatrix, xPrior)
	y := subVec2(observation, hx)
	hp := mulMat2x4Mat4(observationMatrix, pPrior)
	ht := transposeMat2x4(observationMatrix)
	s := addMat2(mulMat2x4Mat4x2(hp, ht), rDyn)

	if !isFiniteMat2(s) {
		return e.state.X[0], false
	}

	// Gain via a Cholesky solve of P*H^T against S, rather than forming S^-1.
	pht := mulMat4Mat4x2(pPrior, ht)
	gain := solveGain(pht, s)
	if gain == nil {
		return e.state.X[0], false
	}

	xUpdated := addVec4(xPrior, mulMat4x2Vec2(*gain, y))
	khP := mulMat4x2Mat2x4(*gain, observationMatrix)
	pUpdated := mulMat4Mat4(subMat4(identity4(), khP), pPrior)

	if !isSymmetricPSD4(pUpdated) {
		return e.state.X[0], false
	}

	e.state = State{X: xUpdated, P: pUpdated}
	return e.state.X[0], true
}

func isFiniteMat2(m Mat2) bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return false
			}
		}
	}
	return true
}

func addVec4(a, b Vec4) Vec4 {
	return Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// solveGain computes K = P*H^T*S^-1 one row at a time via the same
// Cholesky factorization used for the innovation solve, avoiding an explicit
// matrix inverse.
func solveGain(pht Mat4x2, s Mat2) *Mat4x2 {
	a, b, d := s[0][0], s[0][1], s[1][1]
	if a <= 0 {
		return nil
	}
	l11 := math.Sqrt(a)
	l21 := b / l11
	inner := d - l21*l21
	if inner <= 0 {
		return nil
	}
	l22 := math.Sqrt(inner)

	var k Mat4x2
	for row := 0; row < 4; row++ {
		rhs := Vec2{pht[row][0], pht[row][1]}
		z1 := rhs[0] / l11
		z2 := (rhs[1] - l21*z1) / l22
		w2 := z2 / l22
		w1 := (z1 - l21*w2) / l11
		k[row][0] = w1
		k[row][1] = w2
	}
	return &k
}
