package exchange

import "errors"

// Sentinel errors returned by WalletBroker implementations. Callers compare
// with errors.Is; every wrapping site uses fmt.Errorf("...: %w", err).
var (
	// ErrAuthFailure is returned when L1/L2 authentication cannot complete
	// (signature rejected, credential derivation failed). Fatal at startup.
	ErrAuthFailure = errors.New("exchange: authentication failed")

	// ErrInsufficientFunds is returned at startup when the wallet's USDC
	// balance is below the configured order size.
	ErrInsufficientFunds = errors.New("exchange: insufficient USDC balance")

	// ErrTransport wraps any REST or WebSocket failure (dial, timeout,
	// non-2xx status). Recoverable: the caller skips or retries the tick.
	ErrTransport = errors.New("exchange: transport error")

	// ErrOrderRejected is returned when the venue accepts the request but
	// rejects the order itself (e.g. price/size validation, server reject).
	ErrOrderRejected = errors.New("exchange: order rejected")
)
