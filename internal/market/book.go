// Package market maintains a local order book for one outcome token and the
// derived scalar metrics (weighted mid-price, volume imbalance, fitted κ)
// that feed the Kalman estimator and the Avellaneda-Stoikov strategy.
//
// Book is updated from two sources:
//   - REST snapshots via ApplyBookResponse (initial load)
//   - WebSocket events via ApplyBookEvent (full snapshots) and
//     ApplyPriceChange (incremental level updates)
//
// Book is concurrency-safe (RWMutex protected): apart from the initial REST
// snapshot, which the session applies before streaming starts, the WebSocket
// reader goroutine is the sole writer; the session goroutine is the sole reader.
package market

import (
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"polymarket-mm/pkg/types"
)

// Metrics are the scalar values recomputed from the book after every applied
// event, per spec: best bid/ask, volume totals, weighted mid-price, and κ.
type Metrics struct {
	BestBid    float64
	BestAsk    float64
	VolBid     float64
	VolAsk     float64
	VolDiff    float64
	WMP        float64
	Kappa      float64
	Populated  bool
}

// Book maintains a local mirror of the order book for one token.
type Book struct {
	mu       sync.RWMutex
	marketID string
	yesToken string
	noToken  string
	yes      types.OrderBookSnapshot
	no       types.OrderBookSnapshot
	metrics  Metrics
	lastHash map[string]string
	updated  time.Time
}

// NewBook creates a new local order book for a market, tracked against its
// YES token (the side the strategy quotes).
func NewBook(marketID, yesToken, noToken string) *Book {
	return &Book{
		marketID: marketID,
		yesToken: yesToken,
		noToken:  noToken,
		lastHash: make(map[string]string),
		metrics: Metrics{
			WMP:   math.NaN(),
			Kappa: math.NaN(),
		},
	}
}

// ApplyBookEvent replaces the book for one token with a full snapshot.
func (b *Book) ApplyBookEvent(event types.WSBookEvent) {
	b.applySnapshot(event.AssetID, event.Buys, event.Sells, event.Hash)
}

// ApplyBookResponse applies a REST API book response.
func (b *Book) ApplyBookResponse(resp *types.BookResponse) {
	b.applySnapshot(resp.AssetID, resp.Bids, resp.Asks, resp.Hash)
}

func (b *Book) applySnapshot(assetID string, bids, asks []types.PriceLevel, hash string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := types.OrderBookSnapshot{
		AssetID:   assetID,
		Bids:      sortDesc(bids),
		Asks:      sortAsc(asks),
		Hash:      hash,
		Timestamp: time.Now(),
	}

	if assetID == b.yesToken {
		b.yes = snap
		b.recomputeMetricsLocked()
	} else if assetID == b.noToken {
		b.no = snap
	}

	b.lastHash[assetID] = hash
	b.updated = time.Now()
}

// ApplyPriceChange applies incremental price_change deltas: each entry
// updates (or removes, if size==0) a single level of the tracked token's
// book, then metrics are recomputed from the patched book.
func (b *Book) ApplyPriceChange(event types.WSPriceChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	touchedYes := false
	for _, pc := range event.PriceChanges {
		b.lastHash[pc.AssetID] = pc.Hash
		if pc.AssetID != b.yesToken {
			continue
		}
		touchedYes = true
		b.patchLevelLocked(pc)
	}

	if touchedYes {
		b.recomputeMetricsLocked()
	}
	b.updated = time.Now()
}

func (b *Book) patchLevelLocked(pc types.WSPriceChange) {
	isBid := pc.Side == "BUY"
	size := parsePrice(pc.Size)
	price := pc.Price

	if isBid {
		b.yes.Bids = upsertLevel(b.yes.Bids, price, size, true)
	} else {
		b.yes.Asks = upsertLevel(b.yes.Asks, price, size, false)
	}
}

// upsertLevel inserts, updates, or (size==0) removes a level, keeping the
// slice sorted: bids descending, asks ascending.
func upsertLevel(levels []types.PriceLevel, price string, size float64, descending bool) []types.PriceLevel {
	priceVal := parsePrice(price)

	idx := -1
	for i, lvl := range levels {
		if parsePrice(lvl.Price) == priceVal {
			idx = i
			break
		}
	}

	if size <= 0 {
		if idx >= 0 {
			return append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	newLevel := types.PriceLevel{Price: price, Size: strconv.FormatFloat(size, 'f', -1, 64)}
	if idx >= 0 {
		levels[idx] = newLevel
		return levels
	}

	levels = append(levels, newLevel)
	sort.Slice(levels, func(i, j int) bool {
		pi, pj := parsePrice(levels[i].Price), parsePrice(levels[j].Price)
		if descending {
			return pi > pj
		}
		return pi < pj
	})
	return levels
}

func sortDesc(levels []types.PriceLevel) []types.PriceLevel {
	out := append([]types.PriceLevel(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return parsePrice(out[i].Price) > parsePrice(out[j].Price) })
	return out
}

func sortAsc(levels []types.PriceLevel) []types.PriceLevel {
	out := append([]types.PriceLevel(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return parsePrice(out[i].Price) < parsePrice(out[j].Price) })
	return out
}

// recomputeMetricsLocked recomputes Metrics from b.yes; caller holds b.mu.
func (b *Book) recomputeMetricsLocked() {
	bids, asks := b.yes.Bids, b.yes.Asks

	var bestBid, bestAsk float64
	if len(bids) > 0 {
		bestBid = parsePrice(bids[0].Price)
	}
	if len(asks) > 0 {
		bestAsk = parsePrice(asks[0].Price)
	}

	var volBid, volAsk float64
	for _, lvl := range bids {
		volBid += parsePrice(lvl.Size)
	}
	for _, lvl := range asks {
		volAsk += parsePrice(lvl.Size)
	}

	var wmp float64
	totalVol := volBid + volAsk
	switch {
	case len(bids) == 0 && len(asks) == 0:
		wmp = math.NaN()
	case totalVol > 0:
		wmp = (bestBid*volAsk + bestAsk*volBid) / totalVol
	default:
		wmp = (bestBid + bestAsk) / 2
	}

	kappa := estimateKappa(bids, asks, bestBid, bestAsk)

	b.metrics = Metrics{
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		VolBid:    volBid,
		VolAsk:    volAsk,
		VolDiff:   volBid - volAsk,
		WMP:       wmp,
		Kappa:     kappa,
		Populated: len(bids) > 0 && len(asks) > 0,
	}
}

// Metrics returns a copy of the current derived metrics for the YES token.
func (b *Book) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// BestBid returns 0 if the book is not yet populated.
func (b *Book) BestBid() float64 { return b.Metrics().BestBid }

// BestAsk returns 0 if the book is not yet populated.
func (b *Book) BestAsk() float64 { return b.Metrics().BestAsk }

// WMP returns NaN if the book is not yet populated.
func (b *Book) WMP() float64 { return b.Metrics().WMP }

// VolDiff returns vol_bid - vol_ask.
func (b *Book) VolDiff() float64 { return b.Metrics().VolDiff }

// TotalBidVol returns the sum of bid-side sizes.
func (b *Book) TotalBidVol() float64 { return b.Metrics().VolBid }

// TotalAskVol returns the sum of ask-side sizes.
func (b *Book) TotalAskVol() float64 { return b.Metrics().VolAsk }

// Kappa returns NaN if the fit could not be performed.
func (b *Book) Kappa() float64 { return b.Metrics().Kappa }

// MidPrice returns (bestBid+bestAsk)/2 for the YES token.
func (b *Book) MidPrice() (float64, bool) {
	bid, ask, ok := b.BestBidAsk()
	if !ok {
		return 0, false
	}
	if bid == 0 && ask == 0 {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// BestBidAsk returns the best bid and ask for the YES token.
func (b *Book) BestBidAsk() (bid, ask float64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.yes.Bids) == 0 || len(b.yes.Asks) == 0 {
		return 0, 0, false
	}
	return parsePrice(b.yes.Bids[0].Price), parsePrice(b.yes.Asks[0].Price), true
}

// IsStale returns true if the book hasn't been updated within maxAge.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > maxAge
}

// LastUpdated returns the timestamp of the last book update.
func (b *Book) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}

func parsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
