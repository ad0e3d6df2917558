// Package telemetry records the per-tick history of a trading session and
// persists it for downstream inspection, replacing the shared mutable
// "dictionary of lists" pattern with a single owned record-of-slices.
package telemetry

import (
	"sync"
	"time"
)

// Row is one tick's worth of session state.
type Row struct {
	Timestamp      time.Time
	WMP            float64
	FairPrice      float64
	Reservation    float64
	OurBid         float64
	OurAsk         float64
	Inventory      float64
	Cash           float64
	PnL            float64
	Gamma          float64
	Sigma          float64
	Q00            float64
	R00            float64
	Kappa          float64
	Toxicity       float64 // flow tracker's composite adverse-selection score
	FlowMultiplier float64 // spread multiplier the flow tracker applied this tick
}

// Tape is an append-only, record-of-slices history of a session's ticks. It
// is safe for concurrent append and snapshot.
type Tape struct {
	mu   sync.RWMutex
	rows []Row
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{rows: make([]Row, 0, 1024)}
}

// Append adds one row to the tape.
func (t *Tape) Append(row Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
}

// Len returns the number of rows recorded so far.
func (t *Tape) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Snapshot returns an immutable copy of the tape's rows, safe for the
// dashboard/API to read without blocking the session loop.
func (t *Tape) Snapshot() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Column helpers extract one field across the whole tape, mirroring the
// hist_wmp/hist_fair_price/... sequences named in the session state model.

// WMPColumn returns the wmp history.
func (t *Tape) WMPColumn() []float64 { return t.column(func(r Row) float64 { return r.WMP }) }

// FairPriceColumn returns the fair-price history.
func (t *Tape) FairPriceColumn() []float64 { return t.column(func(r Row) float64 { return r.FairPrice }) }

// InventoryColumn returns the inventory history.
func (t *Tape) InventoryColumn() []float64 { return t.column(func(r Row) float64 { return r.Inventory }) }

// PnLColumn returns the P&L history.
func (t *Tape) PnLColumn() []float64 { return t.column(func(r Row) float64 { return r.PnL }) }

// KappaColumn returns the kappa history.
func (t *Tape) KappaColumn() []float64 { return t.column(func(r Row) float64 { return r.Kappa }) }

// ToxicityColumn returns the flow-toxicity-score history.
func (t *Tape) ToxicityColumn() []float64 { return t.column(func(r Row) float64 { return r.Toxicity }) }

func (t *Tape) column(extract func(Row) float64) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = extract(r)
	}
	return out
}

// Last returns the most recent row and true, or the zero Row and false if
// the tape is empty.
func (t *Tape) Last() (Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		return Row{}, false
	}
	return t.rows[len(t.rows)-1], true
}
