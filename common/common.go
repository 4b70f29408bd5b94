// Package common holds error sentinels and small helpers shared across the
// vault, orderbook, market and pricefeed packages.
package common

import "errors"

// Sentinel errors shared by every package in this module. Package-specific
// failures (§7 of the settlement spec) live next to the code that raises
// them; these are the handful that recur everywhere.
var (
	ErrNilPointer    = errors.New("common: nil pointer")
	ErrDateUnset     = errors.New("common: date/time unset")
	ErrAmountIsZero  = errors.New("common: amount is zero")
	ErrAlreadyPaused = errors.New("common: already paused")
	ErrNotPaused     = errors.New("common: not paused")
)
