package api

import (
	"time"

	"polymarket-mm/internal/config"
)

// MarketSnapshotProvider provides read-only snapshot access to the running
// session's state. internal/session.Runner implements this.
type MarketSnapshotProvider interface {
	GetMarketSnapshot() MarketStatus
	GetPhase() string
	GetRiskSnapshot() RiskSnapshot
	DashboardEvents() <-chan DashboardEvent
}

// BuildSnapshot aggregates state from the session into a dashboard snapshot.
func BuildSnapshot(provider MarketSnapshotProvider, cfg config.Config) DashboardSnapshot {
	market := provider.GetMarketSnapshot()
	riskSnap := provider.GetRiskSnapshot()

	return DashboardSnapshot{
		Timestamp:       time.Now(),
		Phase:           provider.GetPhase(),
		Market:          market,
		TotalRealized:   market.Position.RealizedPnL,
		TotalUnrealized: market.Position.UnrealizedPnL,
		TotalPnL:        market.Position.RealizedPnL + market.Position.UnrealizedPnL,
		Risk:            riskSnap,
		Config:          NewConfigSummary(cfg),
	}
}
