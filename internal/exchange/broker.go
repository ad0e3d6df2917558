package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"polymarket-mm/pkg/types"
)

// WalletBroker is the capability set a session needs from a venue
// connection: read the available collateral, cancel everything outstanding,
// and place a single limit order. RealBroker and SimulatedBroker both
// satisfy it; the session never branches on mode at the call site.
type WalletBroker interface {
	BalanceUSDC(ctx context.Context) (float64, error)
	CancelAll(ctx context.Context) error
	PlaceLimit(ctx context.Context, tokenID string, price, sizeShares float64, side types.Side) (orderID string, err error)
}

// RealBroker talks to the live venue via Client, grounded on
// original_source/Gestor_Wallet.py's colocar_orden/cancelar_todas_las_ordenes/
// obtener_balance_usdc: round price to 2 decimals, reject price outside
// (0,1) or non-positive size, return "" (not an order id) on server reject.
type RealBroker struct {
	client *Client
	logger *slog.Logger
}

// NewRealBroker wraps an authenticated REST client as a WalletBroker.
func NewRealBroker(client *Client, logger *slog.Logger) *RealBroker {
	return &RealBroker{client: client, logger: logger.With("component", "real_broker")}
}

// BalanceUSDC returns the wallet's available USDC collateral.
func (b *RealBroker) BalanceUSDC(ctx context.Context) (float64, error) {
	bal, err := b.client.GetBalanceUSDC(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return bal, nil
}

// CancelAll cancels every outstanding order across the venue.
func (b *RealBroker) CancelAll(ctx context.Context) error {
	if _, err := b.client.CancelAll(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// PlaceLimit rounds price to two decimals and validates it before signing
// and posting. A validation failure is a reject, not a transport error: it
// never reaches the network.
func (b *RealBroker) PlaceLimit(ctx context.Context, tokenID string, price, sizeShares float64, side types.Side) (string, error) {
	price = math.Round(price*100) / 100
	if price <= 0 || price >= 1 {
		return "", fmt.Errorf("%w: price %.4f outside (0,1)", ErrOrderRejected, price)
	}
	if sizeShares <= 0 {
		return "", fmt.Errorf("%w: non-positive size %.4f", ErrOrderRejected, sizeShares)
	}

	order := types.UserOrder{
		TokenID:   tokenID,
		Price:     price,
		Size:      sizeShares,
		Side:      side,
		OrderType: types.OrderTypeGTC,
		TickSize:  types.Tick001,
	}

	results, err := b.client.PostOrders(ctx, []types.UserOrder{order}, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if len(results) == 0 || !results[0].Success {
		msg := ""
		if len(results) > 0 {
			msg = results[0].ErrorMsg
		}
		b.logger.Warn("order rejected", "token_id", tokenID, "side", side, "price", price, "error", msg)
		return "", fmt.Errorf("%w: %s", ErrOrderRejected, msg)
	}
	return results[0].OrderID, nil
}

// SimulatedBroker never touches the network: it hands back a synthetic
// order id so the session can run its own fill-attribution rules against
// the observed book (§4.6 Phase 3 step 2), grounded on
// original_source/Market_Maker.py's MODO_REAL=False branch.
type SimulatedBroker struct {
	mu      sync.Mutex
	balance float64
	counter int
}

// NewSimulatedBroker creates a broker with a fixed synthetic USDC balance.
func NewSimulatedBroker(startingBalance float64) *SimulatedBroker {
	return &SimulatedBroker{balance: startingBalance}
}

// BalanceUSDC returns the configured synthetic balance.
func (b *SimulatedBroker) BalanceUSDC(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance, nil
}

// CancelAll is a no-op in simulation; there is no resting book to clear.
func (b *SimulatedBroker) CancelAll(ctx context.Context) error {
	return nil
}

// PlaceLimit validates the same way a real venue would but never submits
// anything; it returns a unique synthetic id for bookkeeping.
func (b *SimulatedBroker) PlaceLimit(ctx context.Context, tokenID string, price, sizeShares float64, side types.Side) (string, error) {
	price = math.Round(price*100) / 100
	if price <= 0 || price >= 1 {
		return "", fmt.Errorf("%w: price %.4f outside (0,1)", ErrOrderRejected, price)
	}
	if sizeShares <= 0 {
		return "", fmt.Errorf("%w: non-positive size %.4f", ErrOrderRejected, sizeShares)
	}

	b.mu.Lock()
	b.counter++
	id := fmt.Sprintf("sim-%d", b.counter)
	b.mu.Unlock()
	return id, nil
}
