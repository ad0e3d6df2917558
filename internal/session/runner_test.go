package session

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"polymarket-mm/internal/config"
	"polymarket-mm/internal/strategy"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMeanIgnoringNaN(t *testing.T) {
	got := meanIgnoringNaN([]float64{1, 2, math.NaN(), 3})
	if got != 2 {
		t.Errorf("expected mean 2, got %f", got)
	}

	if !math.IsNaN(meanIgnoringNaN([]float64{math.NaN(), math.NaN()})) {
		t.Error("expected NaN when all values are NaN")
	}

	if !math.IsNaN(meanIgnoringNaN(nil)) {
		t.Error("expected NaN for an empty slice")
	}
}

func TestKappaColumn(t *testing.T) {
	tape := []warmupObservation{{kappa: 1.5}, {kappa: 2.5}}
	got := kappaColumn(tape)
	if len(got) != 2 || got[0] != 1.5 || got[1] != 2.5 {
		t.Errorf("unexpected kappa column: %v", got)
	}
}

func newTestRunner() *Runner {
	cfg := config.Config{
		Session: config.SessionConfig{
			MarketSlug:       "test-market",
			WarmupTicks:      10,
			RollingVolWindow: 5,
			GammaBase:        0.1,
			KappaFallback:    5.0,
			MaxInventario:    100,
			RFactorSpread:    0.1,
			QFactorVol:       0.1,
			SizeUSDC:         10,

			FlowWindow:              60 * time.Second,
			FlowToxicityThreshold:   0.6,
			FlowCooldownPeriod:      120 * time.Second,
			FlowMaxSpreadMultiplier: 3.0,
		},
		Risk: config.RiskConfig{},
	}
	return &Runner{
		cfg:    cfg,
		logger: discardLogger(),
		inv:    strategy.NewInventory(),
		flow: strategy.NewFlowTracker(
			cfg.Session.FlowWindow,
			cfg.Session.FlowToxicityThreshold,
			cfg.Session.FlowCooldownPeriod,
			cfg.Session.FlowMaxSpreadMultiplier,
		),
	}
}

func TestRunCalibrationUsesManualOverride(t *testing.T) {
	r := newTestRunner()
	r.cfg.Session.QBaseDiag = [4]float64{0.2, 0.2, 0.2, 0.2}
	r.cfg.Session.RBaseDiag = [2]float64{0.3, 0.3}
	r.cfg.Session.SigmaBase = 0.05

	tape := []warmupObservation{{wmp: 0.5, volDiff: 0.01, kappa: 6.0}, {wmp: 0.51, volDiff: 0.02, kappa: 7.0}}
	r.runCalibration(tape)

	if r.calib.QBaseDiag != [4]float64{0.2, 0.2, 0.2, 0.2} {
		t.Errorf("expected manual Q_base to be used, got %v", r.calib.QBaseDiag)
	}
	if r.calib.SigmaBase != 0.05 {
		t.Errorf("expected manual sigma_base 0.05, got %f", r.calib.SigmaBase)
	}
	if r.estimator == nil {
		t.Fatal("expected estimator to be seeded")
	}
}

func TestRunCalibrationFallsBackToKappaFallback(t *testing.T) {
	r := newTestRunner()
	r.cfg.Session.QBaseDiag = [4]float64{0.2, 0.2, 0.2, 0.2}
	r.cfg.Session.RBaseDiag = [2]float64{0.3, 0.3}

	tape := []warmupObservation{{wmp: 0.5, volDiff: 0.01, kappa: math.NaN()}, {wmp: 0.51, volDiff: 0.02, kappa: math.NaN()}}
	r.runCalibration(tape)

	if r.calib.KappaBase != r.cfg.Session.KappaFallback {
		t.Errorf("expected kappa fallback %f, got %f", r.cfg.Session.KappaFallback, r.calib.KappaBase)
	}
}

func TestAttemptSimulatedFillBuyAndSell(t *testing.T) {
	r := newTestRunner()
	r.prevBid = 0.40
	r.prevAsk = 0.60

	// Current best ask dropped to our resting bid: buy fill.
	r.attemptSimulatedFill(0.30, 0.40)
	if r.inv.Shares() != 1 {
		t.Fatalf("expected 1 share after buy fill, got %f", r.inv.Shares())
	}

	// Current best bid rose to our resting ask: sell fill.
	r.attemptSimulatedFill(0.60, 0.70)
	if r.inv.Shares() != 0 {
		t.Fatalf("expected 0 shares after offsetting sell fill, got %f", r.inv.Shares())
	}

	if got := r.flow.GetFillCount(); got != 2 {
		t.Errorf("expected both fills to reach the flow tracker, got %d", got)
	}
}

func TestAttemptSimulatedFillRespectsInventoryCap(t *testing.T) {
	r := newTestRunner()
	r.cfg.Session.MaxInventario = 1
	r.prevBid = 0.40
	r.prevAsk = 0.60

	r.attemptSimulatedFill(0.30, 0.40)
	if r.inv.Shares() != 1 {
		t.Fatalf("expected first buy fill to land, got %f", r.inv.Shares())
	}

	// A second buy fill would exceed the cap and must be skipped.
	r.attemptSimulatedFill(0.30, 0.40)
	if r.inv.Shares() != 1 {
		t.Errorf("expected inventory cap to block further buy fills, got %f", r.inv.Shares())
	}
}

func TestAttemptSimulatedFillSkipsNaNQuotes(t *testing.T) {
	r := newTestRunner()
	r.prevBid = math.NaN()
	r.prevAsk = math.NaN()

	r.attemptSimulatedFill(0.30, 0.70)
	if r.inv.Shares() != 0 {
		t.Errorf("expected no fill when previous quotes are NaN, got %f", r.inv.Shares())
	}
}
