package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"polymarket-mm/pkg/types"
)

func newGammaTestServer(t *testing.T, events []gammaEvent) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			t.Fatalf("failed to encode test response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveMarketParsesTokenIDs(t *testing.T) {
	srv := newGammaTestServer(t, []gammaEvent{{
		Title: "will it happen",
		Markets: []gammaMarket{{
			ConditionID:           "0xcond",
			Slug:                  "will-it-happen",
			Question:              "Will it happen?",
			Outcomes:              `["Yes","No"]`,
			ClobTokenIds:          `["111","222"]`,
			OrderPriceMinTickSize: 0.001,
			OrderMinSize:          5,
		}},
	}})

	r := NewResolver(srv.URL)
	info, err := r.ResolveMarket(context.Background(), "will-it-happen")
	if err != nil {
		t.Fatalf("ResolveMarket returned error: %v", err)
	}

	if info.ConditionID != "0xcond" {
		t.Errorf("ConditionID = %q, want 0xcond", info.ConditionID)
	}
	if info.YesTokenID != "111" || info.NoTokenID != "222" {
		t.Errorf("token IDs = (%q, %q), want (111, 222)", info.YesTokenID, info.NoTokenID)
	}
	if info.TickSize != types.Tick0001 {
		t.Errorf("TickSize = %v, want Tick0001", info.TickSize)
	}
	if !info.Active {
		t.Error("resolved market should be marked Active")
	}
}

func TestResolveMarketNotFound(t *testing.T) {
	srv := newGammaTestServer(t, []gammaEvent{})

	r := NewResolver(srv.URL)
	_, err := r.ResolveMarket(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected an error for a slug with no events")
	}
}

func TestResolveMarketRejectsShortTokenList(t *testing.T) {
	srv := newGammaTestServer(t, []gammaEvent{{
		Markets: []gammaMarket{{
			ConditionID:  "0xcond",
			ClobTokenIds: `["111"]`,
		}},
	}})

	r := NewResolver(srv.URL)
	_, err := r.ResolveMarket(context.Background(), "whatever")
	if err == nil {
		t.Fatal("expected an error when fewer than 2 token ids are present")
	}
}

func TestTickSizeFromMinIncrement(t *testing.T) {
	cases := map[float64]types.TickSize{
		0.1:    types.Tick01,
		0.001:  types.Tick0001,
		0.0001: types.Tick00001,
		0.01:   types.Tick001,
		0.5:    types.Tick001,
	}
	for in, want := range cases {
		if got := tickSizeFromMinIncrement(in); got != want {
			t.Errorf("tickSizeFromMinIncrement(%v) = %v, want %v", in, got, want)
		}
	}
}
