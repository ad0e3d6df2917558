package telemetry

import (
	"testing"
	"time"
)

func TestTapeAppendAndSnapshot(t *testing.T) {
	tape := NewTape()
	tape.Append(Row{Timestamp: time.Now(), WMP: 0.5, Inventory: 10, PnL: 1.5})
	tape.Append(Row{Timestamp: time.Now(), WMP: 0.6, Inventory: 12, PnL: 2.0})

	if tape.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tape.Len())
	}

	snap := tape.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected snapshot len 2, got %d", len(snap))
	}

	last, ok := tape.Last()
	if !ok {
		t.Fatal("expected Last to return a row")
	}
	if last.Inventory != 12 {
		t.Errorf("expected last inventory 12, got %f", last.Inventory)
	}

	inv := tape.InventoryColumn()
	if len(inv) != 2 || inv[0] != 10 || inv[1] != 12 {
		t.Errorf("unexpected inventory column: %v", inv)
	}
}

func TestTapeSnapshotIsIndependentCopy(t *testing.T) {
	tape := NewTape()
	tape.Append(Row{Inventory: 1})

	snap := tape.Snapshot()
	snap[0].Inventory = 999

	last, _ := tape.Last()
	if last.Inventory != 1 {
		t.Errorf("mutating snapshot leaked into tape: got %f", last.Inventory)
	}
}

func TestTapeLastEmpty(t *testing.T) {
	tape := NewTape()
	if _, ok := tape.Last(); ok {
		t.Error("expected Last to return false on empty tape")
	}
}
