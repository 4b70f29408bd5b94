package vault

import (
	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// Event is the common envelope every Vault event satisfies. The engine's
// dispatch.Mux fans these out to the REST/WebSocket layer; the concrete
// type carries the field ordering §6 pins per operation.
type Event interface {
	Name() string
}

// SetPluginEvent fires when an owner registers or deregisters a plugin.
type SetPluginEvent struct {
	Plugin string
	Active bool
}

func (SetPluginEvent) Name() string { return "SetPlugin" }

// SetWhitelistedTokenEvent fires when an owner whitelists or delists a token.
type SetWhitelistedTokenEvent struct {
	Token  currency.Token
	Active bool
}

func (SetWhitelistedTokenEvent) Name() string { return "SetWhitelistedToken" }

// IncreaseReservedAmountEvent / DecreaseReservedAmountEvent mirror the
// pool-invariant helpers of the same name (§4.2.8).
type IncreaseReservedAmountEvent struct{ Amount *uint256.Int }
type DecreaseReservedAmountEvent struct{ Amount *uint256.Int }

func (IncreaseReservedAmountEvent) Name() string { return "IncreaseReservedAmount" }
func (DecreaseReservedAmountEvent) Name() string { return "DecreaseReservedAmount" }

// IncreasePoolAmountEvent / DecreasePoolAmountEvent mirror the pool-invariant
// helpers of the same name.
type IncreasePoolAmountEvent struct{ Amount *uint256.Int }
type DecreasePoolAmountEvent struct{ Amount *uint256.Int }

func (IncreasePoolAmountEvent) Name() string { return "IncreasePoolAmount" }
func (DecreasePoolAmountEvent) Name() string { return "DecreasePoolAmount" }

// IncreasePositionEvent fires at the end of increasePosition.
type IncreasePositionEvent struct {
	Key        key.Position
	Account    string
	Token      currency.Token
	Collateral *uint256.Int
	Size       *uint256.Int
	IsLong     bool
	Price      *uint256.Int
	Fee        *uint256.Int
}

func (IncreasePositionEvent) Name() string { return "IncreasePosition" }

// DecreasePositionEvent fires at the end of decreasePosition.
type DecreasePositionEvent struct {
	Key        key.Position
	Account    string
	Token      currency.Token
	Collateral *uint256.Int
	Size       *uint256.Int
	IsLong     bool
	Price      *uint256.Int
	Fee        *uint256.Int
}

func (DecreasePositionEvent) Name() string { return "DecreasePosition" }

// UpdatePositionEvent mirrors a position's post-operation snapshot.
type UpdatePositionEvent struct {
	Key              key.Position
	Size             *uint256.Int
	Collateral       *uint256.Int
	EntryPrice       *uint256.Int
	EntryFundingRate *uint256.Int
	ReserveAmount    *uint256.Int
	RealisedPnl      *signedAmount
	MarkPrice        *uint256.Int
}

func (UpdatePositionEvent) Name() string { return "UpdatePosition" }

// ClosePositionEvent fires when a position's size reaches zero.
type ClosePositionEvent struct {
	Key              key.Position
	Size             *uint256.Int
	Collateral       *uint256.Int
	EntryPrice       *uint256.Int
	EntryFundingRate *uint256.Int
	ReserveAmount    *uint256.Int
	RealisedPnl      *signedAmount
}

func (ClosePositionEvent) Name() string { return "ClosePosition" }

// LiquidatePositionEvent fires when liquidatePosition succeeds.
type LiquidatePositionEvent struct {
	Key        key.Position
	Account    string
	Token      currency.Token
	IsLong     bool
	Size       *uint256.Int
	Collateral *uint256.Int
	ReserveAmount *uint256.Int
	RealisedPnl   *signedAmount
	MarkPrice     *uint256.Int
}

func (LiquidatePositionEvent) Name() string { return "LiquidatePosition" }

// UpdatePnlEvent fires whenever realisedPnl moves.
type UpdatePnlEvent struct {
	Key       key.Position
	HasProfit bool
	Delta     *uint256.Int
}

func (UpdatePnlEvent) Name() string { return "UpdatePnl" }

// BuyUSDGEvent / SellUSDGEvent record USDG mint/burn flows.
type BuyUSDGEvent struct {
	Account    string
	Amount     *uint256.Int
	UsdgAmount *uint256.Int
	FeeBasis   *uint256.Int
}
type SellUSDGEvent struct {
	Account    string
	Amount     *uint256.Int
	UsdgAmount *uint256.Int
	FeeBasis   *uint256.Int
}

func (BuyUSDGEvent) Name() string  { return "BuyUSDG" }
func (SellUSDGEvent) Name() string { return "SellUSDG" }

// publish is a no-op when no sink is wired; it is never required by the
// invariants, only by engine observability.
func (v *Vault) publish(e Event) {
	if v.sink == nil {
		return
	}
	v.sink.Publish(e, v.eventsTopic)
}
