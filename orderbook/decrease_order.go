package orderbook

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/currency"
)

// CreateDecreaseOrder records a conditional request to shrink or close a
// position once the oracle price crosses triggerPrice. No escrow: the
// position being shrunk already lives in the Vault (§4.3).
func (ob *OrderBook) CreateDecreaseOrder(account string, token currency.Token, sizeDelta, collateralDelta *uint256.Int, isLong bool, triggerPrice *uint256.Int, triggerAboveThreshold bool) (uint64, error) {
	if err := validateOrderArgs(account, token); err != nil {
		return 0, err
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.decreaseOrdersIndex[account]++
	index := ob.decreaseOrdersIndex[account]
	order := &DecreaseOrder{
		Account:               account,
		Token:                 token,
		CollateralDelta:       new(uint256.Int).Set(collateralDelta),
		SizeDelta:             new(uint256.Int).Set(sizeDelta),
		IsLong:                isLong,
		TriggerPrice:          new(uint256.Int).Set(triggerPrice),
		TriggerAboveThreshold: triggerAboveThreshold,
	}
	if ob.decreaseOrders[account] == nil {
		ob.decreaseOrders[account] = make(map[uint64]*DecreaseOrder)
	}
	ob.decreaseOrders[account][index] = order
	ob.publish(CreateDecreaseOrderEvent{Account: account, Index: index, Order: *order})
	return index, nil
}

// UpdateDecreaseOrder mutates collateralDelta/sizeDelta/triggerPrice/
// triggerAboveThreshold on an existing order. Only the order's own account
// may call.
func (ob *OrderBook) UpdateDecreaseOrder(caller string, index uint64, collateralDelta, sizeDelta *uint256.Int, triggerPrice *uint256.Int, triggerAboveThreshold bool) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.decreaseOrders[caller][index]
	if !ok {
		return ErrNonExistentOrder
	}
	order.CollateralDelta = new(uint256.Int).Set(collateralDelta)
	order.SizeDelta = new(uint256.Int).Set(sizeDelta)
	order.TriggerPrice = new(uint256.Int).Set(triggerPrice)
	order.TriggerAboveThreshold = triggerAboveThreshold
	ob.publish(UpdateDecreaseOrderEvent{Account: caller, Index: index, Order: *order})
	return nil
}

// CancelDecreaseOrder deletes an order. No refund: nothing was escrowed.
func (ob *OrderBook) CancelDecreaseOrder(caller string, index uint64) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, ok := ob.decreaseOrders[caller][index]; !ok {
		return ErrNonExistentOrder
	}
	delete(ob.decreaseOrders[caller], index)
	ob.publish(CancelDecreaseOrderEvent{Account: caller, Index: index})
	return nil
}

// ExecuteDecreaseOrder validates account's order at index and, if
// eligible, forwards it to the Vault as DecreasePosition. Anyone may call
// this (§2's off-chain executor).
//
// The price-validation sense is *inverted* relative to the position's own
// side: closing a long checks the conservative min price, closing a short
// checks the max — maximise = !isLong (§4.3).
func (ob *OrderBook) ExecuteDecreaseOrder(ctx context.Context, account string, index uint64) error {
	ob.mu.Lock()
	order, ok := ob.decreaseOrders[account][index]
	if !ok {
		ob.mu.Unlock()
		return ErrNonExistentOrder
	}
	o := *order
	ob.mu.Unlock()

	if err := ob.validatePositionOrderPrice(ctx, o.Token, !o.IsLong, o.TriggerPrice, o.TriggerAboveThreshold); err != nil {
		return err
	}

	ob.mu.Lock()
	delete(ob.decreaseOrders[account], index)
	ob.mu.Unlock()

	if _, err := ob.vault.DecreasePosition(ctx, ob.pluginID, account, o.Token, o.CollateralDelta, o.SizeDelta, o.IsLong); err != nil {
		ob.mu.Lock()
		if ob.decreaseOrders[account] == nil {
			ob.decreaseOrders[account] = make(map[uint64]*DecreaseOrder)
		}
		ob.decreaseOrders[account][index] = &o
		ob.mu.Unlock()
		return err
	}

	price, _ := ob.priceFeed.GetPrice(ctx, o.Token, !o.IsLong)
	ob.mu.Lock()
	ob.publish(ExecuteDecreaseOrderEvent{Account: account, Index: index, Price: price})
	ob.mu.Unlock()
	return nil
}
