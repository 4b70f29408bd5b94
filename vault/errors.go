package vault

import "errors"

// Authorization.
var (
	ErrNotOwner      = errors.New("vault: caller is not the owner")
	ErrNotPlugin     = errors.New("vault: caller is not a registered plugin")
	ErrNotWhitelisted = errors.New("vault: token is not whitelisted")
	ErrPaused        = errors.New("vault: contract is paused")
)

// Invariant / math.
var (
	ErrSizeLessThanCollateral = errors.New("vault: size is less than collateral")
	ErrPoolUnderflow          = errors.New("vault: pool amount underflow")
	ErrReserveExceedsPool     = errors.New("vault: reserved amount exceeds pool amount")
	ErrPoolExceedsBalance     = errors.New("vault: pool amount exceeds held balance")
	ErrInsufficientReserve    = errors.New("vault: insufficient reserved amount")
	ErrArithmeticOverflow     = errors.New("vault: arithmetic overflow")
)

// Position lifecycle.
var (
	ErrPositionNotExist   = errors.New("vault: position does not exist")
	ErrEmptyPosition      = errors.New("vault: position is empty")
	ErrInvalidPositionSize = errors.New("vault: invalid position size")
	ErrCollateralExceeded = errors.New("vault: collateral delta exceeds collateral")
)

// Liquidation.
var (
	ErrLossesExceedCollateral         = errors.New("vault: losses exceed collateral")
	ErrFeesExceedCollateral           = errors.New("vault: fees exceed collateral")
	ErrLiquidationFeesExceedCollateral = errors.New("vault: liquidation fees exceed collateral")
	ErrMaxLeverageExceeded            = errors.New("vault: max leverage exceeded")
	// ErrNotLiquidatable is returned by liquidatePosition when the predicate
	// denies liquidation. Its text is pinned by the external interface
	// contract (§6) and must be reproduced exactly.
	ErrNotLiquidatable = errors.New("Vault: position cannot be liquidated")
)

// Oracle.
var ErrInvalidPrice = errors.New("vault: invalid price")

// USDG.
var ErrInvalidUsdgAmount = errors.New("vault: invalid usdg amount")

// Argument validation (not part of the named taxonomy, but required at
// every exported entry point).
var (
	ErrAccountEmpty = errors.New("vault: account is empty")
	ErrTokenEmpty   = errors.New("vault: token is empty")
	ErrZeroAmount   = errors.New("vault: amount must be greater than zero")
	ErrNilPriceFeed = errors.New("vault: price feed is nil")
	ErrNilLedger    = errors.New("vault: ledger is nil")
)

// ErrReentrant is returned by any mutative entry point invoked while
// another mutative call on the same Vault is still in flight (§5's
// explicit non-reentrancy guard).
var ErrReentrant = errors.New("vault: reentrant call")

// ErrNotRegistered guards SetPlugin against an empty plugin argument.
var ErrNotRegistered = errors.New("vault: plugin is not registered")
