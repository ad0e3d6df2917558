package strategy

import (
	"math"
	"testing"
	"time"
)

func TestOnFillBuyIncreasesSharesAndSpendsCash(t *testing.T) {
	t.Parallel()
	inv := NewInventory()

	inv.OnFill(Fill{Side: Buy, Price: 0.50, Size: 10, Timestamp: time.Now()})

	pos := inv.Snapshot()
	if pos.Shares != 10 {
		t.Errorf("Shares = %v, want 10", pos.Shares)
	}
	if pos.Cash != -5.0 {
		t.Errorf("Cash = %v, want -5.0", pos.Cash)
	}
}

func TestOnFillMultipleBuysAccumulate(t *testing.T) {
	t.Parallel()
	inv := NewInventory()

	inv.OnFill(Fill{Side: Buy, Price: 0.50, Size: 10, Timestamp: time.Now()})
	inv.OnFill(Fill{Side: Buy, Price: 0.60, Size: 10, Timestamp: time.Now()})

	pos := inv.Snapshot()
	if pos.Shares != 20 {
		t.Errorf("Shares = %v, want 20", pos.Shares)
	}
	if math.Abs(pos.Cash-(-11.0)) > 1e-10 {
		t.Errorf("Cash = %v, want -11.0", pos.Cash)
	}
}

func TestOnFillSellReducesSharesAndAddsCash(t *testing.T) {
	t.Parallel()
	inv := NewInventory()

	inv.OnFill(Fill{Side: Buy, Price: 0.50, Size: 10, Timestamp: time.Now()})
	inv.OnFill(Fill{Side: Sell, Price: 0.60, Size: 5, Timestamp: time.Now()})

	pos := inv.Snapshot()
	if pos.Shares != 5 {
		t.Errorf("Shares = %v, want 5", pos.Shares)
	}
	// cash = -0.50*10 + 0.60*5 = -5.0 + 3.0 = -2.0
	if math.Abs(pos.Cash-(-2.0)) > 1e-10 {
		t.Errorf("Cash = %v, want -2.0", pos.Cash)
	}
}

func TestOnFillSellingMoreThanHeldGoesShort(t *testing.T) {
	t.Parallel()
	inv := NewInventory()

	inv.OnFill(Fill{Side: Buy, Price: 0.40, Size: 5, Timestamp: time.Now()})
	inv.OnFill(Fill{Side: Sell, Price: 0.50, Size: 10, Timestamp: time.Now()})

	pos := inv.Snapshot()
	if pos.Shares != -5 {
		t.Errorf("Shares = %v, want -5 (short)", pos.Shares)
	}
}

func TestSharesMatchesSnapshot(t *testing.T) {
	t.Parallel()
	inv := NewInventory()
	inv.OnFill(Fill{Side: Buy, Price: 0.50, Size: 7, Timestamp: time.Now()})

	if inv.Shares() != 7 {
		t.Errorf("Shares() = %v, want 7", inv.Shares())
	}
}

func TestMarkToMarket(t *testing.T) {
	t.Parallel()
	inv := NewInventory()
	inv.OnFill(Fill{Side: Buy, Price: 0.50, Size: 10, Timestamp: time.Now()})

	// cash = -5.0, shares = 10, fairPrice = 0.60 -> pnl = -5.0 + 10*0.60 = 1.0
	pnl := inv.MarkToMarket(0.60)
	if math.Abs(pnl-1.0) > 1e-10 {
		t.Errorf("MarkToMarket = %v, want 1.0", pnl)
	}
}

func TestSetPosition(t *testing.T) {
	t.Parallel()
	inv := NewInventory()

	inv.SetPosition(Position{Shares: 42, Cash: -10.5})

	pos := inv.Snapshot()
	if pos.Shares != 42 {
		t.Errorf("Shares = %v, want 42", pos.Shares)
	}
	if pos.Cash != -10.5 {
		t.Errorf("Cash = %v, want -10.5", pos.Cash)
	}
}
