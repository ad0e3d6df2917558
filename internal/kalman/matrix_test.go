package kalman

import (
	"math"
	"testing"
)

func TestCholesky2SolveMatchesDirectInverse(t *testing.T) {
	t.Parallel()
	s := Mat2{{4, 1}, {1, 3}}
	y := Vec2{1, 2}

	got, ok := cholesky2Solve(s, y)
	if !ok {
		t.Fatal("cholesky2Solve reported failure on a PD matrix")
	}

	// Direct 2x2 inverse for comparison: det=11, inv = (1/11)*[[3,-1],[-1,4]]
	det := s[0][0]*s[1][1] - s[0][1]*s[1][0]
	want := Vec2{
		(s[1][1]*y[0] - s[0][1]*y[1]) / det,
		(-s[1][0]*y[0] + s[0][0]*y[1]) / det,
	}

	if math.Abs(got[0]-want[0]) > 1e-9 || math.Abs(got[1]-want[1]) > 1e-9 {
		t.Errorf("cholesky2Solve = %v, want %v", got, want)
	}
}

func TestCholesky2SolveRejectsNonPD(t *testing.T) {
	t.Parallel()
	s := Mat2{{1, 2}, {2, 1}} // not PD: leading principal minor det = -3
	_, ok := cholesky2Solve(s, Vec2{1, 1})
	if ok {
		t.Error("cholesky2Solve should reject a non-positive-definite matrix")
	}
}

func TestIsSymmetricPSD4(t *testing.T) {
	t.Parallel()
	if !isSymmetricPSD4(identity4()) {
		t.Error("identity matrix should be symmetric PSD")
	}
	asym := identity4()
	asym[0][1] = 5
	if isSymmetricPSD4(asym) {
		t.Error("asymmetric matrix should not be reported PSD")
	}
}

func TestClampDiagFloors(t *testing.T) {
	t.Parallel()
	m := diagMat4(Vec4{-1, 0, 1e-12, 5})
	clamped := clampDiagMat4(m, 1e-9)
	for i, want := range []float64{1e-9, 1e-9, 1e-9, 5} {
		if clamped[i][i] != want {
			t.Errorf("diag[%d] = %v, want %v", i, clamped[i][i], want)
		}
	}
}
