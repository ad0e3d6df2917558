// Package kalman implements the 4-state linear Gaussian fair-price model:
// offline MLE calibration of its noise covariances (Calibrator) and the
// online filter that consumes them tick by tick (Estimator).
package kalman

import "math"

// Vec4 is the filter's state mean [price, price_velocity, vol_diff, vol_diff_velocity].
type Vec4 [4]float64

// Mat4 is a 4x4 state covariance or transition matrix.
type Mat4 [4][4]float64

// Vec2 is an observation [wmp, vol_diff].
type Vec2 [2]float64

// Mat2 is a 2x2 innovation covariance.
type Mat2 [2][2]float64

// Mat2x4 is the observation-to-state Jacobian shape (H or its transpose's transpose).
type Mat2x4 [2][4]float64

// Mat4x2 is H transposed.
type Mat4x2 [4][2]float64

// transitionMatrix is F: position and vol_diff integrate their own velocities.
var transitionMatrix = Mat4{
	{1, 1, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 1},
	{0, 0, 0, 1},
}

// observationMatrix is H: only price and vol_diff (not their velocities) are observed.
var observationMatrix = Mat2x4{
	{1, 0, 0, 0},
	{0, 0, 1, 0},
}

func identity4() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func mulMat4Vec4(m Mat4, v Vec4) Vec4 {
	var out Vec4
	for i := 0; i < 4; i++ {
		sum := 0.0
		for j := 0; j < 4; j++ {
			sum += m[i][j] * v[j]
		}
		out[i] = sum
	}
	return out
}

func mulMat4Mat4(a, b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func transposeMat4(m Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}

func addMat4(a, b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

func subMat4(a, b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = a[i][j] - b[i][j]
		}
	}
	return out
}

func diagMat4(d Vec4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		out[i][i] = d[i]
	}
	return out
}

func diagMat2(d Vec2) Mat2 {
	return Mat2{{d[0], 0}, {0, d[1]}}
}

// mulMat2x4Mat4 computes H*P.
func mulMat2x4Mat4(h Mat2x4, p Mat4) Mat2x4 {
	var out Mat2x4
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += h[i][k] * p[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// mulMat2x4Vec4 computes H*x.
func mulMat2x4Vec4(h Mat2x4, x Vec4) Vec2 {
	var out Vec2
	for i := 0; i < 2; i++ {
		sum := 0.0
		for j := 0; j < 4; j++ {
			sum += h[i][j] * x[j]
		}
		out[i] = sum
	}
	return out
}

func transposeMat2x4(h Mat2x4) Mat4x2 {
	var out Mat4x2
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			out[j][i] = h[i][j]
		}
	}
	return out
}

// mulMat2x4Mat4x2 computes (H*P)*H^T, a 2x2 result.
func mulMat2x4Mat4x2(hp Mat2x4, ht Mat4x2) Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += hp[i][k] * ht[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func addMat2(a, b Mat2) Mat2 {
	return Mat2{
		{a[0][0] + b[0][0], a[0][1] + b[0][1]},
		{a[1][0] + b[1][0], a[1][1] + b[1][1]},
	}
}

func subVec2(a, b Vec2) Vec2 {
	return Vec2{a[0] - b[0], a[1] - b[1]}
}

// cholesky2Solve solves S*w = y for a symmetric positive-definite 2x2 S via a
// Cholesky factorization, used instead of forming S^-1 explicitly (spec's
// numeric-stability note).
func cholesky2Solve(s Mat2, y Vec2) (Vec2, bool) {
	a, b, d := s[0][0], s[0][1], s[1][1]
	if a <= 0 {
		return Vec2{}, false
	}
	l11 := math.Sqrt(a)
	l21 := b / l11
	inner := d - l21*l21
	if inner <= 0 {
		return Vec2{}, false
	}
	l22 := math.Sqrt(inner)

	// Solve L*z = y
	z1 := y[0] / l11
	z2 := (y[1] - l21*z1) / l22

	// Solve L^T*w = z
	w2 := z2 / l22
	w1 := (z1 - l21*w2) / l11
	return Vec2{w1, w2}, true
}

// mulMat4x2Vec2 computes M*v for a 4x2 matrix and a 2-vector.
func mulMat4x2Vec2(m Mat4x2, v Vec2) Vec4 {
	var out Vec4
	for i := 0; i < 4; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1]
	}
	return out
}

// mulMat4Mat4x2 computes P*H^T, a 4x2 result.
func mulMat4Mat4x2(p Mat4, ht Mat4x2) Mat4x2 {
	var out Mat4x2
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += p[i][k] * ht[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// mulMat4x2Mat2x4 computes K*(H) where K is 4x2 and H is 2x4, a 4x4 result.
func mulMat4x2Mat2x4(k Mat4x2, h Mat2x4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for l := 0; l < 2; l++ {
				sum += k[i][l] * h[l][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func isSymmetricPSD4(m Mat4) bool {
	const tol = 1e-9
	for i := 0; i < 4; i++ {
		if m[i][i] < -tol {
			return false
		}
		for j := i + 1; j < 4; j++ {
			if math.Abs(m[i][j]-m[j][i]) > 1e-6*(1+math.Abs(m[i][j])) {
				return false
			}
		}
	}
	return true
}

func clampDiagMat4(m Mat4, floor float64) Mat4 {
	out := m
	for i := 0; i < 4; i++ {
		if out[i][i] < floor {
			out[i][i] = floor
		}
	}
	return out
}

func clampDiagMat2(m Mat2, floor float64) Mat2 {
	out := m
	if out[0][0] < floor {
		out[0][0] = floor
	}
	if out[1][1] < floor {
		out[1][1] = floor
	}
	return out
}
