package kalman

import (
	"errors"
	"math"
)

// ErrCalibrationFailed is returned when the optimizer cannot find finite,
// positive parameters for the warm-up tape.
var ErrCalibrationFailed = errors.New("kalman: calibration failed")

// CalibrationResult bundles a session's calibrated base diagonals (from
// Calibrator.Fit, or configured defaults), sigma base and kappa base.
// session.Runner assembles it once after warm-up and never mutates it.
type CalibrationResult struct {
	QBaseDiag Vec4
	RBaseDiag Vec2
	SigmaBase float64
	KappaBase float64
}

// Calibrator fits the model's noise covariances to a warm-up observation
// tape by maximum likelihood, and smooths that same tape once fitted.
type Calibrator struct {
	wmp     []float64
	volDiff []float64
}

// NewCalibrator builds a calibrator over the given warm-up observations.
// len(wmp) must equal len(volDiff) and both must have at least 2 entries.
func NewCalibrator(wmp, volDiff []float64) *Calibrator {
	return &Calibrator{wmp: wmp, volDiff: volDiff}
}

var defaultInitialParams = [6]float64{0.01, 0.01, 0.1, 0.1, 0.1, 1.0}

const paramLowerBound = 1e-6

// Fit minimizes the negative log-likelihood of the stacked (wmp, vol_diff)
// observations under the 4-state linear Gaussian model over six positive
// parameters (Q_p, Q_v, Q_d, Q_s, R_price, R_diff), using projected gradient
// descent: a forward-difference gradient, a step that is halved until the
// objective improves, and clamping to the lower bound. It keeps no curvature
// (Hessian) approximation, so it is not a quasi-Newton method; it stops after
// 60 iterations or once the step falls below 1e-6. Returns
// ErrCalibrationFailed if the best parameters found are not finite and
// positive.
func (c *Calibrator) Fit() (Vec4, Vec2, error) {
	if len(c.wmp) < 2 || len(c.wmp) != len(c.volDiff) {
		return Vec4{}, Vec2{}, ErrCalibrationFailed
	}

	params := defaultInitialParams
	best := params
	bestNLL := c.negLogLikelihood(params)
	if math.IsInf(bestNLL, 0) {
		return Vec4{}, Vec2{}, ErrCalibrationFailed
	}

	const iterations = 60
	step := 0.25
	for it := 0; it < iterations; it++ {
		grad := c.gradient(params, 1e-4)
		improved := false

		// Backtracking step along the negative gradient: halve the step until
		// the objective improves (at most 8 trials), clamping each parameter
		// to the lower bound.
		for trial := 0; trial < 8; trial++ {
			candidate := params
			for i := range candidate {
				candidate[i] -= step * grad[i]
				if candidate[i] < paramLowerBound {
					candidate[i] = paramLowerBound
				}
			}
			nll := c.negLogLikelihood(candidate)
			if nll < bestNLL {
				best = candidate
				bestNLL = nll
				params = candidate
				improved = true
				break
			}
			step /= 2
		}

		if !improved {
			step *= 0.5
			if step < 1e-6 {
				break
			}
		}
	}

	if math.IsInf(bestNLL, 0) || math.IsNaN(bestNLL) {
		return Vec4{}, Vec2{}, ErrCalibrationFailed
	}
	for _, p := range best {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return Vec4{}, Vec2{}, ErrCalibrationFailed
		}
	}

	qDiag := Vec4{best[0], best[1], best[2], best[3]}
	rDiag := Vec2{best[4], best[5]}
	return qDiag, rDiag, nil
}

func (c *Calibrator) gradient(params [6]float64, h float64) [6]float64 {
	var grad [6]float64
	base := c.negLogLikelihood(params)
	for i := range params {
		perturbed := params
		perturbed[i] += h
		grad[i] = (c.negLogLikelihood(perturbed) - base) / h
	}
	return grad
}

// negLogLikelihood runs a forward Kalman pass with the trial parameters and
// accumulates the Gaussian innovation log-likelihood, returning +Inf if any
// step yields a non-PSD or singular innovation covariance.
func (c *Calibrator) negLogLikelihood(params [6]float64) float64 {
	qDiag := Vec4{params[0], params[1], params[2], params[3]}
	rDiag := Vec2{params[4], params[5]}
	q := diagMat4(qDiag)
	r := diagMat2(rDiag)

	x := Vec4{c.wmp[0], 0, c.volDiff[0], 0}
	p := identity4()

	nll := 0.0
	for i := 0; i < len(c.wmp); i++ {
		xPrior := mulMat4Vec4(transitionMatrix, x)
		pPrior := addMat4(mulMat4Mat4(mulMat4Mat4(transitionMatrix, p), transposeMat4(transitionMatrix)), q)

		z := Vec2{c.wmp[i], c.volDiff[i]}
		hx := mulMat2x4Vec4(observationMatrix, xPrior)
		y := subVec2(z, hx)

		hp := mulMat2x4Mat4(observationMatrix, pPrior)
		ht := transposeMat2x4(observationMatrix)
		s := addMat2(mulMat2x4Mat4x2(hp, ht), r)

		det := s[0][0]*s[1][1] - s[0][1]*s[1][0]
		if det <= 0 {
			return math.Inf(1)
		}

		w, ok := cholesky2Solve(s, y)
		if !ok {
			return math.Inf(1)
		}
		quad := y[0]*w[0] + y[1]*w[1]
		nll += 0.5*math.Log(det) + 0.5*quad

		pht := mulMat4Mat4x2(pPrior, ht)
		gain := solveGain(pht, s)
		if gain == nil {
			return math.Inf(1)
		}
		x = addVec4(xPrior, mulMat4x2Vec2(*gain, y))
		khP := mulMat4x2Mat2x4(*gain, observationMatrix)
		p = mulMat4Mat4(subMat4(identity4(), khP), pPrior)

		if !isSymmetricPSD4(p) {
			return math.Inf(1)
		}
	}
	return nll
}

// FilterTape runs a forward Kalman pass over the warm-up tape with the given
// fitted diagonals and returns the smoothed price series (x[0] at each tick).
func (c *Calibrator) FilterTape(qDiag Vec4, rDiag Vec2) []float64 {
	q := diagMat4(qDiag)
	r := diagMat2(rDiag)

	x := Vec4{c.wmp[0], 0, c.volDiff[0], 0}
	p := identity4()

	out := make([]float64, len(c.wmp))
	for i := 0; i < len(c.wmp); i++ {
		xPrior := mulMat4Vec4(transitionMatrix, x)
		pPrior := addMat4(mulMat4Mat4(mulMat4Mat4(transitionMatrix, p), transposeMat4(transitionMatrix)), q)

		z := Vec2{c.wmp[i], c.volDiff[i]}
		hx := mulMat2x4Vec4(observationMatrix, xPrior)
		y := subVec2(z, hx)

		hp := mulMat2x4Mat4(observationMatrix, pPrior)
		ht := transposeMat2x4(observationMatrix)
		s := addMat2(mulMat2x4Mat4x2(hp, ht), r)

		pht := mulMat4Mat4x2(pPrior, ht)
		gain := solveGain(pht, s)
		if gain == nil {
			x = xPrior
			p = pPrior
			out[i] = x[0]
			continue
		}
		x = addVec4(xPrior, mulMat4x2Vec2(*gain, y))
		khP := mulMat4x2Mat2x4(*gain, observationMatrix)
		p = mulMat4Mat4(subMat4(identity4(), khP), pPrior)
		out[i] = x[0]
	}
	return out
}

// SigmaBase computes std(diff(smoothed)), floored at 0.01.
func SigmaBase(smoothed []float64) float64 {
	if len(smoothed) < 2 {
		return 0.01
	}
	diffs := make([]float64, len(smoothed)-1)
	for i := 1; i < len(smoothed); i++ {
		diffs[i-1] = smoothed[i] - smoothed[i-1]
	}
	sigma := stdDev(diffs)
	if sigma < 0.01 {
		return 0.01
	}
	return sigma
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

// RollingSigma computes std(diff(x)) over the last min(len(x), window)
// entries, substituting sigmaBase when the result is zero.
func RollingSigma(history []float64, window int, sigmaBase float64) float64 {
	if len(history) < 2 {
		return sigmaBase
	}
	n := window
	if n > len(history) {
		n = len(history)
	}
	tail := history[len(history)-n:]
	diffs := make([]float64, len(tail)-1)
	for i := 1; i < len(tail); i++ {
		diffs[i-1] = tail[i] - tail[i-1]
	}
	sigma := stdDev(diffs)
	if sigma == 0 {
		return sigmaBase
	}
	return sigma
}
