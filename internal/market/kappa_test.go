package market

import (
	"math"
	"strconv"
	"testing"

	"polymarket-mm/pkg/types"
)

func TestEstimateKappaInsufficientPointsIsNaN(t *testing.T) {
	t.Parallel()
	bids := []types.PriceLevel{{Price: "0.49", Size: "100"}}
	asks := []types.PriceLevel{{Price: "0.51", Size: "100"}}
	k := estimateKappa(bids, asks, 0.49, 0.51)
	if !math.IsNaN(k) {
		t.Errorf("estimateKappa = %v, want NaN with only top-of-book levels", k)
	}
}

func TestEstimateKappaRecoversKnownDecay(t *testing.T) {
	t.Parallel()
	const trueK = 2.0
	const trueA = 500.0
	bestBid, bestAsk := 0.50, 0.52

	var asks []types.PriceLevel
	for i := 1; i <= 10; i++ {
		delta := 0.01 * float64(i)
		price := bestAsk + delta
		size := trueA * math.Exp(-trueK*delta)
		asks = append(asks, types.PriceLevel{
			Price: strconv.FormatFloat(price, 'f', 4, 64),
			Size:  strconv.FormatFloat(size, 'f', 4, 64),
		})
	}

	k := estimateKappa(nil, asks, bestBid, bestAsk)
	if math.IsNaN(k) {
		t.Fatal("estimateKappa returned NaN for a clean synthetic decay")
	}
	if math.Abs(k-trueK)/trueK > 0.10 {
		t.Errorf("estimateKappa = %v, want within 10%% of %v", k, trueK)
	}
}

func TestFitExpDecayRejectsDegenerateInput(t *testing.T) {
	t.Parallel()
	_, ok := fitExpDecay(nil, nil, 1, 1)
	if ok {
		t.Error("fitExpDecay should fail on empty input")
	}
}
