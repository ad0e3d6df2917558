package market

import (
	"math"
	"testing"

	"polymarket-mm/pkg/types"
)

func newTestFeed() *MarketFeed {
	return &MarketFeed{
		info: types.MarketInfo{
			ConditionID: "0xcond",
			YesTokenID:  "yes-tok",
			NoTokenID:   "no-tok",
		},
	}
}

func TestSelectOutcomeYesAndNo(t *testing.T) {
	f := newTestFeed()

	tokenID, err := f.SelectOutcome(0)
	if err != nil {
		t.Fatalf("SelectOutcome(0) returned error: %v", err)
	}
	if tokenID != "yes-tok" {
		t.Errorf("tokenID = %q, want yes-tok", tokenID)
	}
	if f.book == nil {
		t.Error("expected book to be initialized after SelectOutcome")
	}

	f2 := newTestFeed()
	tokenID, err = f2.SelectOutcome(1)
	if err != nil {
		t.Fatalf("SelectOutcome(1) returned error: %v", err)
	}
	if tokenID != "no-tok" {
		t.Errorf("tokenID = %q, want no-tok", tokenID)
	}
}

func TestSelectOutcomeOutOfRange(t *testing.T) {
	f := newTestFeed()

	if _, err := f.SelectOutcome(2); err == nil {
		t.Error("expected an error for an out-of-range outcome index")
	}
	if _, err := f.SelectOutcome(-1); err == nil {
		t.Error("expected an error for a negative outcome index")
	}
}

func TestSelectOutcomeMissingTokenID(t *testing.T) {
	f := &MarketFeed{info: types.MarketInfo{ConditionID: "0xcond"}}

	if _, err := f.SelectOutcome(0); err == nil {
		t.Error("expected an error when the market has no YES token id")
	}
}

func TestWMPBeforeSelectOutcome(t *testing.T) {
	f := newTestFeed()
	if !math.IsNaN(f.WMP()) {
		t.Error("expected WMP to be NaN before a book is selected")
	}
	if !math.IsNaN(f.Kappa()) {
		t.Error("expected Kappa to be NaN before a book is selected")
	}
}

func TestMarketFeedDelegatesToBookAfterSelectOutcome(t *testing.T) {
	f := newTestFeed()
	if _, err := f.SelectOutcome(0); err != nil {
		t.Fatalf("SelectOutcome failed: %v", err)
	}

	f.book.ApplyBookResponse(&types.BookResponse{
		AssetID: "yes-tok",
		Bids:    []types.PriceLevel{{Price: "0.45", Size: "100"}},
		Asks:    []types.PriceLevel{{Price: "0.55", Size: "100"}},
		Hash:    "h1",
	})

	if f.BestBid() != 0.45 {
		t.Errorf("BestBid = %v, want 0.45", f.BestBid())
	}
	if f.BestAsk() != 0.55 {
		t.Errorf("BestAsk = %v, want 0.55", f.BestAsk())
	}
	if math.IsNaN(f.WMP()) {
		t.Error("expected WMP to be populated after a snapshot is applied")
	}
}
