// Package orderbook stores conditional limit orders and checks trigger
// prices before forwarding them to the Vault as a registered plugin (§4.3).
// It is a thin collaborator: all position accounting lives in vault, this
// package only marshals escrowed collateral and trigger-price checks into
// Vault calls.
package orderbook

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
	"github.com/kat-co/vala"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/currency"
)

// Pinned error strings (§6): the executor/test surface matches these
// exactly, so they are not wrapped sentinels with package-prefixed text
// like the rest of this module's errors.
var (
	ErrInvalidPriceForExecution = errors.New("OrderBook: invalid price for execution")
	ErrNonExistentOrder         = errors.New("OrderBook: non-existent order")
)

// Other failures raised by this package.
var (
	ErrAccountEmpty = errors.New("orderbook: account is empty")
	ErrTokenEmpty   = errors.New("orderbook: token is empty")
	ErrZeroAmount   = errors.New("orderbook: amount must be greater than zero")
	ErrNotOwner     = errors.New("orderbook: caller does not own this order")
)

// Vault is the narrow slice of vault.Vault this package calls as a
// registered plugin.
type Vault interface {
	IncreasePosition(ctx context.Context, caller, account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool) error
	DecreasePosition(ctx context.Context, caller, account string, token currency.Token, collateralDelta, sizeDelta *uint256.Int, isLong bool) (*uint256.Int, error)
}

// PriceFeed is the Vault's own oracle collaborator (§4.1), reused here for
// validatePositionOrderPrice (§4.3).
type PriceFeed interface {
	GetPrice(ctx context.Context, token currency.Token, maximise bool) (*uint256.Int, error)
}

// Ledger escrows collateral pulled from the order creator until execution
// or cancellation. It is the same dollar-token collaborator the Vault
// settles against, so a forwarded order's escrowed amount is pulled by the
// Vault's own TransferIn(pluginID, amount) from this package's balance.
type Ledger interface {
	TransferIn(caller string, amount *uint256.Int) (*uint256.Int, error)
	TransferOut(account string, amount *uint256.Int) error
}

// EventSink is the narrow slice of dispatch.Mux this package publishes
// order lifecycle events onto.
type EventSink interface {
	Publish(data interface{}, ids ...uuid.UUID) error
}

// IncreaseOrder is a conditional request to open or grow a position once
// the oracle price crosses triggerPrice (§3).
type IncreaseOrder struct {
	Account               string
	Token                 currency.Token
	Amount                *uint256.Int
	SizeDelta             *uint256.Int
	IsLong                bool
	TriggerPrice          *uint256.Int
	TriggerAboveThreshold bool
}

// DecreaseOrder is a conditional request to shrink or close a position
// once the oracle price crosses triggerPrice (§3). Unlike IncreaseOrder it
// escrows nothing: the position being shrunk already lives in the Vault.
type DecreaseOrder struct {
	Account               string
	Token                 currency.Token
	CollateralDelta       *uint256.Int
	SizeDelta             *uint256.Int
	IsLong                bool
	TriggerPrice          *uint256.Int
	TriggerAboveThreshold bool
}

// OrderBook is the Vault plugin that stores and triggers conditional
// orders. The zero value is not usable; construct with New.
type OrderBook struct {
	mu sync.Mutex

	pluginID  string
	vault     Vault
	priceFeed PriceFeed
	ledger    Ledger
	sink      EventSink
	topic     uuid.UUID

	increaseOrders      map[string]map[uint64]*IncreaseOrder
	increaseOrdersIndex map[string]uint64
	decreaseOrders      map[string]map[uint64]*DecreaseOrder
	decreaseOrdersIndex map[string]uint64
}

// New constructs an OrderBook identifying itself to vault as pluginID —
// the caller identity Vault.SetPlugin must register before any order in
// this book can execute.
func New(pluginID string, vault Vault, priceFeed PriceFeed, ledger Ledger) (*OrderBook, error) {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty{pluginID, "pluginID"}).Check(); err != nil {
		return nil, ErrAccountEmpty
	}
	if vault == nil || priceFeed == nil || ledger == nil {
		return nil, errors.New("orderbook: nil collaborator")
	}
	return &OrderBook{
		pluginID:            pluginID,
		vault:               vault,
		priceFeed:           priceFeed,
		ledger:              ledger,
		increaseOrders:      make(map[string]map[uint64]*IncreaseOrder),
		increaseOrdersIndex: make(map[string]uint64),
		decreaseOrders:      make(map[string]map[uint64]*DecreaseOrder),
		decreaseOrdersIndex: make(map[string]uint64),
	}, nil
}

// SetEventSink wires sink to receive every event this OrderBook publishes,
// tagged with topic.
func (ob *OrderBook) SetEventSink(sink EventSink, topic uuid.UUID) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.sink = sink
	ob.topic = topic
}

func (ob *OrderBook) publish(e interface{}) {
	if ob.sink == nil {
		return
	}
	_ = ob.sink.Publish(e, ob.topic)
}

func validateOrderArgs(account string, token currency.Token) error {
	if account == "" {
		return ErrAccountEmpty
	}
	if token.IsEmpty() {
		return ErrTokenEmpty
	}
	return nil
}

// IncreaseOrdersIndex returns account's next-to-be-assigned order index
// minus one, i.e. the count of increase orders account has ever created.
func (ob *OrderBook) IncreaseOrdersIndex(account string) uint64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.increaseOrdersIndex[account]
}

// DecreaseOrdersIndex is IncreaseOrdersIndex's decrease-order counterpart.
func (ob *OrderBook) DecreaseOrdersIndex(account string) uint64 {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.decreaseOrdersIndex[account]
}

// IncreaseOrderAt returns a copy of account's increase order at index, or
// false if none exists there.
func (ob *OrderBook) IncreaseOrderAt(account string, index uint64) (IncreaseOrder, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	order, ok := ob.increaseOrders[account][index]
	if !ok {
		return IncreaseOrder{}, false
	}
	return *order, true
}

// DecreaseOrderAt is IncreaseOrderAt's decrease-order counterpart.
func (ob *OrderBook) DecreaseOrderAt(account string, index uint64) (DecreaseOrder, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	order, ok := ob.decreaseOrders[account][index]
	if !ok {
		return DecreaseOrder{}, false
	}
	return *order, true
}

// OrderRef names one stored order by its (account, index) key, for the
// executor loop to enumerate without reaching into this package's maps.
type OrderRef struct {
	Account string
	Index   uint64
}

// PendingIncreaseOrders returns every currently-stored increase order's
// key, in no particular order. The executor polls this to find orders
// worth a trigger-price check (§2's "off-chain executor").
func (ob *OrderBook) PendingIncreaseOrders() []OrderRef {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	refs := make([]OrderRef, 0)
	for account, orders := range ob.increaseOrders {
		for index := range orders {
			refs = append(refs, OrderRef{Account: account, Index: index})
		}
	}
	return refs
}

// PendingDecreaseOrders is PendingIncreaseOrders' decrease-order counterpart.
func (ob *OrderBook) PendingDecreaseOrders() []OrderRef {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	refs := make([]OrderRef, 0)
	for account, orders := range ob.decreaseOrders {
		for index := range orders {
			refs = append(refs, OrderRef{Account: account, Index: index})
		}
	}
	return refs
}

// validatePositionOrderPrice implements §4.3's trigger-price policy.
// maximise selects which side of the oracle's window to read: the max
// price if true, the min price if false.
func (ob *OrderBook) validatePositionOrderPrice(ctx context.Context, token currency.Token, maximise bool, triggerPrice *uint256.Int, triggerAboveThreshold bool) error {
	current, err := ob.priceFeed.GetPrice(ctx, token, maximise)
	if err != nil {
		return err
	}
	var eligible bool
	if triggerAboveThreshold {
		eligible = fixedpoint.Gte(current, triggerPrice)
	} else {
		eligible = fixedpoint.Lte(current, triggerPrice)
	}
	if !eligible {
		return ErrInvalidPriceForExecution
	}
	return nil
}
