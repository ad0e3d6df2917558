package session

import "errors"

// Sentinel errors surfaced by Runner. Startup errors are fatal before any
// order is placed; mid-session errors trigger the standard shutdown path.
var (
	// ErrConfigInvalid wraps the first config.ErrInvalid violation that
	// Validate finds, surfaced when New refuses to build a Runner.
	ErrConfigInvalid = errors.New("session: invalid configuration")

	// ErrNumeric is recorded (not fatal) when a filter step or strategy
	// computation hits a non-finite intermediate value; the prior state is
	// kept and the tick is still recorded.
	ErrNumeric = errors.New("session: numeric instability")
)
