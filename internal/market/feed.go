package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"polymarket-mm/internal/exchange"
	"polymarket-mm/pkg/types"
)

// ErrOutcomeOutOfRange is returned by SelectOutcome for an index outside
// {0, 1} (the venue is a binary market: YES/NO).
var ErrOutcomeOutOfRange = fmt.Errorf("market: outcome index out of range")

// MarketFeed resolves a market slug to its tokens, streams its order book
// over a WebSocket connection, and exposes the derived scalar metrics the
// Kalman filter and strategy consume — ResolveMarket, SelectOutcome, Run,
// and the book getters, all per §4.1.
type MarketFeed struct {
	resolver *Resolver
	ws       *exchange.WSFeed
	book     *Book
	info     types.MarketInfo
	tokenID  string
}

// NewMarketFeed creates a feed bound to the given Gamma/CLOB-websocket base
// URLs. Call ResolveMarket and SelectOutcome before Run.
func NewMarketFeed(gammaBaseURL, wsMarketURL string, logger *slog.Logger) *MarketFeed {
	return &MarketFeed{
		resolver: NewResolver(gammaBaseURL),
		ws:       exchange.NewMarketFeed(wsMarketURL, logger),
	}
}

// ResolveMarket fetches the market's metadata and token IDs for slug.
func (f *MarketFeed) ResolveMarket(ctx context.Context, slug string) (types.MarketInfo, error) {
	info, err := f.resolver.ResolveMarket(ctx, slug)
	if err != nil {
		return types.MarketInfo{}, err
	}
	f.info = info
	return info, nil
}

// SelectOutcome picks which of the two binary outcomes (0 = YES, 1 = NO)
// this feed tracks and initializes the local book for it.
func (f *MarketFeed) SelectOutcome(index int) (string, error) {
	var tokenID string
	switch index {
	case 0:
		tokenID = f.info.YesTokenID
	case 1:
		tokenID = f.info.NoTokenID
	default:
		return "", fmt.Errorf("%w: %d", ErrOutcomeOutOfRange, index)
	}
	if tokenID == "" {
		return "", fmt.Errorf("%w: %d", ErrOutcomeOutOfRange, index)
	}
	f.tokenID = tokenID
	f.book = NewBook(f.info.ConditionID, tokenID, "")
	return tokenID, nil
}

// SeedFromREST fetches one REST snapshot of the selected token's book and
// applies it before streaming starts, so the session doesn't run its first
// ticks against an empty book while the WebSocket connection warms up.
func (f *MarketFeed) SeedFromREST(ctx context.Context, client *exchange.Client) error {
	if f.tokenID == "" {
		return fmt.Errorf("market feed: SelectOutcome must be called before SeedFromREST")
	}
	resp, err := client.GetOrderBook(ctx, f.tokenID)
	if err != nil {
		return fmt.Errorf("market feed: seed from REST: %w", err)
	}
	f.book.ApplyBookResponse(resp)
	return nil
}

// Run subscribes to the selected token and streams book events until ctx is
// canceled, applying each event to the local book.
func (f *MarketFeed) Run(ctx context.Context) error {
	if f.tokenID == "" {
		return fmt.Errorf("market feed: SelectOutcome must be called before Run")
	}
	if err := f.ws.Subscribe(ctx, []string{f.tokenID}); err != nil {
		return fmt.Errorf("market feed: subscribe: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- f.ws.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case evt := <-f.ws.BookEvents():
			if evt.AssetID == f.tokenID {
				f.book.ApplyBookEvent(evt)
			}
		case evt := <-f.ws.PriceChangeEvents():
			f.book.ApplyPriceChange(evt)
		}
	}
}

// Close releases the underlying WebSocket connection.
func (f *MarketFeed) Close() error { return f.ws.Close() }

// Book exposes the underlying order book (e.g. for synchronous REST
// snapshot seeding before Run starts streaming).
func (f *MarketFeed) Book() *Book { return f.book }

// BestBid returns 0 if the book is not yet populated.
func (f *MarketFeed) BestBid() float64 { return f.book.BestBid() }

// BestAsk returns 0 if the book is not yet populated.
func (f *MarketFeed) BestAsk() float64 { return f.book.BestAsk() }

// WMP returns math.NaN() if the book is not yet populated.
func (f *MarketFeed) WMP() float64 {
	if f.book == nil {
		return math.NaN()
	}
	return f.book.WMP()
}

// VolDiff returns vol_bid - vol_ask.
func (f *MarketFeed) VolDiff() float64 { return f.book.VolDiff() }

// TotalBidVol returns the sum of bid-side sizes.
func (f *MarketFeed) TotalBidVol() float64 { return f.book.TotalBidVol() }

// TotalAskVol returns the sum of ask-side sizes.
func (f *MarketFeed) TotalAskVol() float64 { return f.book.TotalAskVol() }

// Kappa returns math.NaN() if the liquidity-density fit could not be
// performed on the current book.
func (f *MarketFeed) Kappa() float64 {
	if f.book == nil {
		return math.NaN()
	}
	return f.book.Kappa()
}
