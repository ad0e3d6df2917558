// Package risk enforces session-level risk limits on top of the
// strategy's own inventory kill-switch (see internal/strategy.ComputeQuote).
//
// The risk manager runs as a standalone goroutine that receives
// PositionReports from the session loop every tick and checks them against
// a single guardrail:
//
//   - Rapid price movement: triggers the kill switch if the mid-price moves
//     more than KillSwitchDropPct within KillSwitchWindowSec seconds.
//
// When the limit is breached, the manager emits a KillSignal on KillCh().
// The session reads this signal and cancels all resting orders. After a
// kill, the kill switch stays active for CooldownAfterKill, during which
// the strategy skips quoting.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"polymarket-mm/internal/config"
)

// PositionReport is sent by the session loop every tick. It carries the
// current inventory state and mid-price so the risk manager can watch for
// dislocations.
type PositionReport struct {
	Shares        float64
	Cash          float64
	MidPrice      float64
	UnrealizedPnL float64
	Timestamp     time.Time
}

// KillSignal tells the session to cancel all resting orders and pause
// quoting for the cooldown window.
type KillSignal struct {
	Reason string
}

// priceAnchor stores a reference price at a point in time for detecting
// rapid price movements within a rolling window.
type priceAnchor struct {
	price     float64
	timestamp time.Time
}

// Manager watches one session's price/inventory stream and emits kill
// signals when the configured guardrail is breached.
type Manager struct {
	cfg    config.RiskConfig
	logger *slog.Logger

	mu               sync.RWMutex
	last             PositionReport
	killSwitchActive bool
	killSwitchUntil  time.Time
	anchor           priceAnchor

	reportCh chan PositionReport
	killCh   chan KillSignal
}

// NewManager creates a risk manager for a single session.
func NewManager(cfg config.RiskConfig, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger.With("component", "risk"),
		reportCh: make(chan PositionReport, 16),
		killCh:   make(chan KillSignal, 4),
	}
}

// Run starts the risk monitoring loop. It returns when ctx is canceled.
func (rm *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case report := <-rm.reportCh:
			rm.processReport(report)
		case <-ticker.C:
			rm.clearExpiredKillSwitch()
		}
	}
}

// Report submits a position report (non-blocking; drops under backpressure).
func (rm *Manager) Report(report PositionReport) {
	select {
	case rm.reportCh <- report:
	default:
		rm.logger.Warn("risk report channel full, dropping report")
	}
}

// KillCh returns the channel the session reads kill signals from.
func (rm *Manager) KillCh() <-chan KillSignal {
	return rm.killCh
}

// IsKillSwitchActive reports whether the kill switch is currently engaged.
func (rm *Manager) IsKillSwitchActive() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.killSwitchActive {
		return false
	}
	if time.Now().After(rm.killSwitchUntil) {
		rm.killSwitchActive = false
		rm.logger.Info("kill switch cooldown expired")
		return false
	}
	return true
}

// Snapshot returns the current risk state for the dashboard.
func (rm *Manager) Snapshot() RiskSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var killReason string
	if rm.killSwitchActive {
		killReason = "price movement cooldown"
	}

	return RiskSnapshot{
		KillSwitchActive: rm.killSwitchActive,
		KillSwitchUntil:  rm.killSwitchUntil,
		KillSwitchReason: killReason,
		UnrealizedPnL:    rm.last.UnrealizedPnL,
		MidPrice:         rm.last.MidPrice,
	}
}

// RiskSnapshot is the dashboard-facing view of the risk manager's state.
type RiskSnapshot struct {
	KillSwitchActive bool
	KillSwitchUntil  time.Time
	KillSwitchReason string
	UnrealizedPnL    float64
	MidPrice         float64
}

func (rm *Manager) processReport(report PositionReport) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.last = report
	rm.checkPriceMovement(report)
}

// checkPriceMovement detects rapid price swings using a rolling anchor. On
// each report it compares mid-price to the anchor set at the start of the
// window. If the anchor is older than KillSwitchWindowSec, it resets. If
// price moved more than KillSwitchDropPct from the anchor, the kill switch
// fires.
func (rm *Manager) checkPriceMovement(report PositionReport) {
	window := time.Duration(rm.cfg.KillSwitchWindowSec) * time.Second

	if rm.anchor.timestamp.IsZero() || report.Timestamp.Sub(rm.anchor.timestamp) > window {
		rm.anchor = priceAnchor{price: report.MidPrice, timestamp: report.Timestamp}
		return
	}

	if rm.anchor.price == 0 {
		return
	}

	pctChange := (report.MidPrice - rm.anchor.price) / rm.anchor.price
	if pctChange < 0 {
		pctChange = -pctChange
	}

	if pctChange > rm.cfg.KillSwitchDropPct {
		rm.emitKill(fmt.Sprintf("rapid price movement: %.1f%% in %ds", pctChange*100, rm.cfg.KillSwitchWindowSec))
	}
}

func (rm *Manager) clearExpiredKillSwitch() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.killSwitchActive && time.Now().After(rm.killSwitchUntil) {
		rm.killSwitchActive = false
		rm.logger.Info("kill switch cooldown expired")
	}
}

// emitKill activates the kill switch, starts the cooldown timer, and sends
// a KillSignal to the session. If the kill channel is full, it drains the
// stale signal first so the latest kill reason is always delivered.
func (rm *Manager) emitKill(reason string) {
	rm.killSwitchActive = true
	rm.killSwitchUntil = time.Now().Add(rm.cfg.CooldownAfterKill)

	rm.logger.Error("KILL SWITCH", "reason", reason, "cooldown_until", rm.killSwitchUntil)

	sig := KillSignal{Reason: reason}
	select {
	case rm.killCh <- sig:
	default:
		select {
		case <-rm.killCh:
		default:
		}
		rm.killCh <- sig
	}
}
