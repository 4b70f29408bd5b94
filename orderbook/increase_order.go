package orderbook

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/currency"
)

// CreateIncreaseOrder escrows amountIn of dollars from account and records
// a conditional request to open/grow a position once the oracle price
// crosses triggerPrice (§4.3). Returns the order's per-account index.
func (ob *OrderBook) CreateIncreaseOrder(ctx context.Context, account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool, triggerPrice *uint256.Int, triggerAboveThreshold bool) (uint64, error) {
	if err := validateOrderArgs(account, token); err != nil {
		return 0, err
	}
	if fixedpoint.IsZero(amountIn) {
		return 0, ErrZeroAmount
	}

	actual, err := ob.ledger.TransferIn(account, amountIn)
	if err != nil {
		return 0, err
	}
	// Escrow moves through the shared held pool and back out under this
	// book's own pluginID balance, so ExecuteIncreaseOrder's forward to the
	// Vault (which pulls from the plugin's own balance) has something to
	// pull (§4.3).
	if err := ob.ledger.TransferOut(ob.pluginID, actual); err != nil {
		_ = ob.ledger.TransferOut(account, actual)
		return 0, err
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.increaseOrdersIndex[account]++
	index := ob.increaseOrdersIndex[account]
	order := &IncreaseOrder{
		Account:               account,
		Token:                 token,
		Amount:                actual,
		SizeDelta:             new(uint256.Int).Set(sizeDelta),
		IsLong:                isLong,
		TriggerPrice:          new(uint256.Int).Set(triggerPrice),
		TriggerAboveThreshold: triggerAboveThreshold,
	}
	if ob.increaseOrders[account] == nil {
		ob.increaseOrders[account] = make(map[uint64]*IncreaseOrder)
	}
	ob.increaseOrders[account][index] = order
	ob.publish(CreateIncreaseOrderEvent{Account: account, Index: index, Order: *order})
	return index, nil
}

// UpdateIncreaseOrder mutates sizeDelta/triggerPrice/triggerAboveThreshold
// on an existing order. Only the order's own account may call; the
// escrowed amount is immutable (§4.3).
func (ob *OrderBook) UpdateIncreaseOrder(caller string, index uint64, sizeDelta, triggerPrice *uint256.Int, triggerAboveThreshold bool) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.increaseOrders[caller][index]
	if !ok {
		return ErrNonExistentOrder
	}
	order.SizeDelta = new(uint256.Int).Set(sizeDelta)
	order.TriggerPrice = new(uint256.Int).Set(triggerPrice)
	order.TriggerAboveThreshold = triggerAboveThreshold
	ob.publish(UpdateIncreaseOrderEvent{Account: caller, Index: index, Order: *order})
	return nil
}

// CancelIncreaseOrder deletes an order and refunds its escrowed amount to
// caller, the order's own account.
func (ob *OrderBook) CancelIncreaseOrder(caller string, index uint64) error {
	ob.mu.Lock()
	order, ok := ob.increaseOrders[caller][index]
	if !ok {
		ob.mu.Unlock()
		return ErrNonExistentOrder
	}
	delete(ob.increaseOrders[caller], index)
	ob.publish(CancelIncreaseOrderEvent{Account: caller, Index: index})
	ob.mu.Unlock()

	// The escrowed amount lives under this book's own pluginID balance
	// (see CreateIncreaseOrder); pull it back into the held pool before
	// paying it out to its creator.
	if _, err := ob.ledger.TransferIn(ob.pluginID, order.Amount); err != nil {
		return err
	}
	return ob.ledger.TransferOut(caller, order.Amount)
}

// ExecuteIncreaseOrder validates account's order at index against the
// current oracle price (raise = true: an untriggered order is an error,
// not a quiet no-op) and, if eligible, forwards it to the Vault as
// IncreasePosition. Anyone may call this — it is the off-chain executor's
// entry point (§2).
func (ob *OrderBook) ExecuteIncreaseOrder(ctx context.Context, account string, index uint64) error {
	ob.mu.Lock()
	order, ok := ob.increaseOrders[account][index]
	if !ok {
		ob.mu.Unlock()
		return ErrNonExistentOrder
	}
	o := *order
	ob.mu.Unlock()

	// An increase is triggered at the max price if long, the min price if
	// short — the adversarial choice for opening/growing (§4.3).
	if err := ob.validatePositionOrderPrice(ctx, o.Token, o.IsLong, o.TriggerPrice, o.TriggerAboveThreshold); err != nil {
		return err
	}

	// Checks-effects-interactions: delete before forwarding (§5). On
	// failure the order is restored so the operation remains atomic in
	// spirit — this module has no surrounding transaction to revert the
	// whole call for it.
	ob.mu.Lock()
	delete(ob.increaseOrders[account], index)
	ob.mu.Unlock()

	if err := ob.vault.IncreasePosition(ctx, ob.pluginID, account, o.Token, o.Amount, o.SizeDelta, o.IsLong); err != nil {
		ob.mu.Lock()
		if ob.increaseOrders[account] == nil {
			ob.increaseOrders[account] = make(map[uint64]*IncreaseOrder)
		}
		ob.increaseOrders[account][index] = &o
		ob.mu.Unlock()
		return err
	}

	price, _ := ob.priceFeed.GetPrice(ctx, o.Token, o.IsLong)
	ob.mu.Lock()
	ob.publish(ExecuteIncreaseOrderEvent{Account: account, Index: index, Price: price})
	ob.mu.Unlock()
	return nil
}
