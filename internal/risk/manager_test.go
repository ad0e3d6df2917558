package risk

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"polymarket-mm/internal/config"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		KillSwitchDropPct:   0.10, // 10%
		KillSwitchWindowSec: 60,
		CooldownAfterKill:   5 * time.Minute,
	}
}

func newTestManager() *Manager {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewManager(testRiskConfig(), logger)
}

func TestProcessReportUnderLimits(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.processReport(PositionReport{
		Shares:        10,
		UnrealizedPnL: 0,
		MidPrice:      0.50,
		Timestamp:     time.Now(),
	})

	if rm.killSwitchActive {
		t.Error("kill switch should not fire for report under limits")
	}

	select {
	case sig := <-rm.killCh:
		t.Errorf("unexpected kill signal: %+v", sig)
	default:
	}
}

func TestCheckPriceMovementNormal(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	now := time.Now()

	rm.processReport(PositionReport{MidPrice: 0.50, Timestamp: now})
	rm.processReport(PositionReport{MidPrice: 0.52, Timestamp: now.Add(10 * time.Second)}) // 4% move

	select {
	case <-rm.killCh:
		t.Error("should not fire kill for 4% move")
	default:
	}
}

func TestCheckPriceMovementSpike(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	now := time.Now()

	rm.processReport(PositionReport{MidPrice: 0.50, Timestamp: now})
	rm.processReport(PositionReport{MidPrice: 0.35, Timestamp: now.Add(10 * time.Second)}) // 30% drop

	if !rm.killSwitchActive {
		t.Error("kill switch should fire for 30% price spike")
	}

	select {
	case sig := <-rm.killCh:
		if sig.Reason == "" {
			t.Error("expected non-empty kill reason")
		}
	default:
		t.Error("expected kill signal on channel")
	}
}

func TestCheckPriceMovementAnchorExpiresOutsideWindow(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	now := time.Now()

	rm.processReport(PositionReport{MidPrice: 0.50, Timestamp: now})
	// Move arrives after the window has elapsed: anchor resets instead of firing.
	rm.processReport(PositionReport{MidPrice: 0.35, Timestamp: now.Add(90 * time.Second)})

	if rm.killSwitchActive {
		t.Error("kill switch should not fire once the anchor window has expired")
	}
}

func TestIsKillSwitchCooldown(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	rm.cfg.CooldownAfterKill = 100 * time.Millisecond

	now := time.Now()
	rm.processReport(PositionReport{MidPrice: 0.50, Timestamp: now})
	rm.processReport(PositionReport{MidPrice: 0.30, Timestamp: now.Add(time.Second)})

	if !rm.IsKillSwitchActive() {
		t.Error("kill switch should be active immediately after breach")
	}

	time.Sleep(150 * time.Millisecond)

	if rm.IsKillSwitchActive() {
		t.Error("kill switch should expire after cooldown")
	}
}

func TestSnapshotReflectsLastReport(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.processReport(PositionReport{MidPrice: 0.60, UnrealizedPnL: 12.5, Timestamp: time.Now()})

	snap := rm.Snapshot()
	if snap.MidPrice != 0.60 {
		t.Errorf("snapshot MidPrice = %v, want 0.60", snap.MidPrice)
	}
	if snap.UnrealizedPnL != 12.5 {
		t.Errorf("snapshot UnrealizedPnL = %v, want 12.5", snap.UnrealizedPnL)
	}
}

func TestReportNonBlockingUnderBackpressure(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rm := NewManager(testRiskConfig(), logger)

	for i := 0; i < 100; i++ {
		rm.Report(PositionReport{MidPrice: 0.5, Timestamp: time.Now()})
	}
}
