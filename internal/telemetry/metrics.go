package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the session, scraped at /metrics alongside the
// dashboard's /health.
var (
	ticksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_ticks_processed_total",
			Help: "Number of trading-loop ticks processed.",
		},
	)

	fairPriceGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_fair_price",
			Help: "Current Kalman-filtered fair price estimate.",
		},
	)

	inventoryGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_inventory",
			Help: "Current signed inventory in shares.",
		},
	)

	killSwitchActivations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_kill_switch_activations_total",
			Help: "Number of times the risk kill switch has activated.",
		},
	)

	calibrationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_calibration_failures_total",
			Help: "Number of times Kalman calibration failed to converge.",
		},
	)

	pnlGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_pnl",
			Help: "Current mark-to-market P&L.",
		},
	)

	toxicityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_flow_toxicity_score",
			Help: "Composite adverse-selection score computed from recent fills.",
		},
	)
)

func init() {
	prometheus.MustRegister(ticksProcessed, fairPriceGauge, inventoryGauge)
	prometheus.MustRegister(killSwitchActivations, calibrationFailures, pnlGauge)
	prometheus.MustRegister(toxicityGauge)
}

// IncTicksProcessed increments the processed-tick counter.
func IncTicksProcessed() { ticksProcessed.Inc() }

// SetFairPrice sets the fair-price gauge.
func SetFairPrice(v float64) { fairPriceGauge.Set(v) }

// SetInventory sets the inventory gauge.
func SetInventory(v float64) { inventoryGauge.Set(v) }

// SetPnL sets the P&L gauge.
func SetPnL(v float64) { pnlGauge.Set(v) }

// IncKillSwitchActivations increments the kill-switch-activations counter.
func IncKillSwitchActivations() { killSwitchActivations.Inc() }

// IncCalibrationFailures increments the calibration-failure counter.
func IncCalibrationFailures() { calibrationFailures.Inc() }

// SetToxicity sets the flow-toxicity-score gauge.
func SetToxicity(v float64) { toxicityGauge.Set(v) }
