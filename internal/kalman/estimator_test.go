package kalman

import (
	"math"
	"testing"
)

func TestEstimatorSeedThenPredictPersistsVelocity(t *testing.T) {
	t.Parallel()
	e := NewEstimator(Vec4{0.01, 0.01, 0.1, 0.1}, Vec2{0.1, 0.1}, 0, 0)
	e.Seed(0.50, 10)

	e.state.X[1] = 0.002
	e.state.X[3] = 1.5

	e.PredictAndSeedObservation(0.51, 12)

	if e.state.X[1] != 0.002 {
		t.Errorf("x[1] = %v, want 0.002 (velocity must survive the predict)", e.state.X[1])
	}
	if e.state.X[3] != 1.5 {
		t.Errorf("x[3] = %v, want 1.5", e.state.X[3])
	}
	if e.state.X[0] != 0.51 {
		t.Errorf("x[0] = %v, want 0.51", e.state.X[0])
	}
	if e.state.X[2] != 12 {
		t.Errorf("x[2] = %v, want 12", e.state.X[2])
	}
}

func TestEstimatorStepKeepsPSymmetricPSD(t *testing.T) {
	t.Parallel()
	e := NewEstimator(Vec4{0.01, 0.01, 0.1, 0.1}, Vec2{0.05, 0.05}, 0.1, 0.1)
	e.Seed(0.50, 5)

	obs := []Vec2{{0.50, 5}, {0.505, 6}, {0.498, 4}, {0.51, 7}}
	for _, z := range obs {
		_, ok := e.Step(z, 0.02, 0.01)
		if !ok {
			t.Fatalf("Step returned ok=false for observation %v", z)
		}
		p := e.State().P
		if !isSymmetricPSD4(p) {
			t.Fatalf("P not symmetric PSD after step: %v", p)
		}
	}
}

func TestEstimatorStepConvergesOnFlatBook(t *testing.T) {
	t.Parallel()
	e := NewEstimator(Vec4{0.001, 0.001, 0.01, 0.01}, Vec2{0.001, 0.001}, 0, 0)
	e.Seed(0.50, 0)

	var fair float64
	for i := 0; i < 200; i++ {
		fair, _ = e.Step(Vec2{0.50, 0}, 0.02, 0.01)
	}

	if math.Abs(fair-0.50) > 1e-3 {
		t.Errorf("fair price = %v, want ~0.50", fair)
	}
}
