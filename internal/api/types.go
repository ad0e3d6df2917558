package api

import (
	"time"

	"polymarket-mm/internal/config"
)

// DashboardSnapshot represents the complete dashboard state for the one
// market the session is trading.
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Phase  string       `json:"phase"` // "warmup", "calibration", "trading"
	Market MarketStatus `json:"market"`

	TotalRealized   float64 `json:"total_realized"`
	TotalUnrealized float64 `json:"total_unrealized"`
	TotalPnL        float64 `json:"total_pnl"`

	Risk RiskSnapshot `json:"risk"`

	Config ConfigSummary `json:"config"`
}

// MarketStatus represents the traded market's live state.
type MarketStatus struct {
	ConditionID string `json:"condition_id"`
	Slug        string `json:"slug"`
	Question    string `json:"question"`

	MidPrice    float64   `json:"mid_price"`
	BestBid     float64   `json:"best_bid"`
	BestAsk     float64   `json:"best_ask"`
	Spread      float64   `json:"spread"`
	SpreadBps   float64   `json:"spread_bps"`
	LastUpdated time.Time `json:"last_updated"`
	IsStale     bool      `json:"is_stale"`

	Position PositionSnapshot `json:"position"`

	ActiveBid        *QuoteInfo `json:"active_bid,omitempty"`
	ActiveAsk        *QuoteInfo `json:"active_ask,omitempty"`
	ReservationPrice float64    `json:"reservation_price"`
	OptimalSpread    float64    `json:"optimal_spread"`
	Gamma            float64    `json:"gamma"`
	Kappa            float64    `json:"kappa"`
	Sigma            float64    `json:"sigma"`

	TickSize  float64   `json:"tick_size"`
	EndDate   time.Time `json:"end_date"`
	Liquidity float64   `json:"liquidity"`
	Volume24h float64   `json:"volume_24h"`

	Flow ToxicitySummary `json:"flow"`
}

// ToxicitySummary surfaces the flow tracker's adverse-selection read on
// recent fills, and the spread multiplier it is currently applying.
type ToxicitySummary struct {
	DirectionalImbalance float64 `json:"directional_imbalance"`
	FillVelocity         float64 `json:"fill_velocity"`
	ToxicityScore        float64 `json:"toxicity_score"`
	IsAverse             bool    `json:"is_averse"`
	SpreadMultiplier     float64 `json:"spread_multiplier"`
}

// PositionSnapshot represents the session's single-asset ledger and P&L.
type PositionSnapshot struct {
	Shares        float64   `json:"shares"`
	Cash          float64   `json:"cash"`
	RealizedPnL   float64   `json:"realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	LastUpdated   time.Time `json:"last_updated"`
}

// QuoteInfo represents a single resting quote (bid or ask).
type QuoteInfo struct {
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	OrderID   string    `json:"order_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskSnapshot represents the session's risk-manager state.
type RiskSnapshot struct {
	KillSwitchActive bool      `json:"kill_switch_active"`
	KillSwitchUntil  time.Time `json:"kill_switch_until,omitempty"`
	KillSwitchReason string    `json:"kill_switch_reason,omitempty"`

	UnrealizedPnL float64 `json:"unrealized_pnl"`
	MidPrice      float64 `json:"mid_price"`
}

// ConfigSummary represents the session's tuning configuration.
type ConfigSummary struct {
	MarketSlug    string  `json:"market_slug"`
	TotalDuration string  `json:"total_duration"`
	TickInterval  string  `json:"tick_interval"`
	GammaBase     float64 `json:"gamma_base"`
	KappaFallback float64 `json:"kappa_fallback"`
	MaxInventario float64 `json:"max_inventario"`
	SizeUSDC      float64 `json:"size_usdc"`

	KillSwitchDropPct   float64 `json:"kill_switch_drop_pct"`
	KillSwitchWindowSec int     `json:"kill_switch_window_sec"`
	CooldownAfterKill   string  `json:"cooldown_after_kill"`

	ModoReal bool `json:"modo_real"`
	DryRun   bool `json:"dry_run"`
}

// NewConfigSummary creates a config summary from the session config.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		MarketSlug:    cfg.Session.MarketSlug,
		TotalDuration: cfg.Session.TotalDuration.String(),
		TickInterval:  cfg.Session.TickInterval.String(),
		GammaBase:     cfg.Session.GammaBase,
		KappaFallback: cfg.Session.KappaFallback,
		MaxInventario: cfg.Session.MaxInventario,
		SizeUSDC:      cfg.Session.SizeUSDC,

		KillSwitchDropPct:   cfg.Risk.KillSwitchDropPct,
		KillSwitchWindowSec: cfg.Risk.KillSwitchWindowSec,
		CooldownAfterKill:   cfg.Risk.CooldownAfterKill.String(),

		ModoReal: cfg.Session.ModoReal,
		DryRun:   cfg.DryRun,
	}
}
