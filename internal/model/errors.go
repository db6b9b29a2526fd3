package model

import "errors"

// Sentinel errors every layer returns (wrapped with context) so callers
// can type-switch rather than string-match.
var (
	ErrInvalidOrder        = errors.New("invalid order")
	ErrSystemBusy          = errors.New("system busy")
	ErrSelfTrade           = errors.New("self trade")
	ErrMarketClosed        = errors.New("market closed")
	ErrEventExpired        = errors.New("event expired")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOnchainFailed       = errors.New("onchain settlement failed")
)
