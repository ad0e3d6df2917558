package config

import "errors"

// ErrInvalid wraps every Validate failure so callers can distinguish a bad
// config from any other startup error via errors.Is.
var ErrInvalid = errors.New("config: invalid configuration")
