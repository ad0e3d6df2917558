package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"polymarket-mm/pkg/types"
)

// ErrMarketNotFound is returned when the venue has no event for the
// requested slug, or the event carries no markets.
var ErrMarketNotFound = fmt.Errorf("market: not found")

// gammaEvent is the JSON shape of one element of the GET /events?slug=...
// response: a title plus the markets under that event.
type gammaEvent struct {
	Title   string        `json:"title"`
	Markets []gammaMarket `json:"markets"`
}

// gammaMarket is the single-market resolve shape: outcomes and token IDs
// arrive as JSON-string-encoded parallel arrays, trimmed to the fields one
// resolved market needs rather than a full discovery listing.
type gammaMarket struct {
	ConditionID           string `json:"conditionId"`
	Slug                  string `json:"slug"`
	Question              string `json:"question"`
	Outcomes              string `json:"outcomes"`
	ClobTokenIds          string `json:"clobTokenIds"`
	NegRisk               bool   `json:"negRisk"`
	OrderPriceMinTickSize float64 `json:"orderPriceMinTickSize"`
	OrderMinSize          float64 `json:"orderMinSize"`
}

// Resolver resolves a market slug to its condition/token IDs via the Gamma
// API, grounded on spec.md §6's "GET {host}/events?slug={slug}" contract.
type Resolver struct {
	http *resty.Client
}

// NewResolver creates a Resolver pointed at the given Gamma API base URL.
func NewResolver(gammaBaseURL string) *Resolver {
	client := resty.New().
		SetBaseURL(gammaBaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &Resolver{http: client}
}

// ResolveMarket fetches the event for slug and returns the first market's
// info: condition ID, YES/NO token IDs (parsed from the parallel
// clobTokenIds/outcomes JSON-string arrays), tick size, and min order size.
func (r *Resolver) ResolveMarket(ctx context.Context, slug string) (types.MarketInfo, error) {
	var events []gammaEvent
	resp, err := r.http.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetResult(&events).
		Get("/events")
	if err != nil {
		return types.MarketInfo{}, fmt.Errorf("resolve market %q: %w", slug, err)
	}
	if resp.StatusCode() != 200 {
		return types.MarketInfo{}, fmt.Errorf("resolve market %q: status %d", slug, resp.StatusCode())
	}
	if len(events) == 0 || len(events[0].Markets) == 0 {
		return types.MarketInfo{}, fmt.Errorf("%w: slug %q", ErrMarketNotFound, slug)
	}

	gm := events[0].Markets[0]

	var tokenIDs []string
	if err := json.Unmarshal([]byte(gm.ClobTokenIds), &tokenIDs); err != nil {
		return types.MarketInfo{}, fmt.Errorf("resolve market %q: parse clobTokenIds: %w", slug, err)
	}
	if len(tokenIDs) < 2 {
		return types.MarketInfo{}, fmt.Errorf("resolve market %q: expected 2 token ids, got %d", slug, len(tokenIDs))
	}

	var outcomes []string
	_ = json.Unmarshal([]byte(gm.Outcomes), &outcomes)

	return types.MarketInfo{
		ConditionID:  gm.ConditionID,
		Slug:         gm.Slug,
		Question:     gm.Question,
		YesTokenID:   tokenIDs[0],
		NoTokenID:    tokenIDs[1],
		TickSize:     tickSizeFromMinIncrement(gm.OrderPriceMinTickSize),
		MinOrderSize: gm.OrderMinSize,
		NegRisk:      gm.NegRisk,
		Active:       true,
	}, nil
}

func tickSizeFromMinIncrement(v float64) types.TickSize {
	switch v {
	case 0.1:
		return types.Tick01
	case 0.001:
		return types.Tick0001
	case 0.0001:
		return types.Tick00001
	default:
		return types.Tick001
	}
}
