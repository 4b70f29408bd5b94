package orderbook

import "github.com/holiman/uint256"

// CreateIncreaseOrderEvent fires when createIncreaseOrder succeeds.
type CreateIncreaseOrderEvent struct {
	Account string
	Index   uint64
	Order   IncreaseOrder
}

// CreateDecreaseOrderEvent fires when createDecreaseOrder succeeds.
type CreateDecreaseOrderEvent struct {
	Account string
	Index   uint64
	Order   DecreaseOrder
}

// CancelIncreaseOrderEvent / CancelDecreaseOrderEvent fire on cancellation.
type CancelIncreaseOrderEvent struct {
	Account string
	Index   uint64
}
type CancelDecreaseOrderEvent struct {
	Account string
	Index   uint64
}

// ExecuteIncreaseOrderEvent / ExecuteDecreaseOrderEvent fire on successful
// forwarding to the Vault.
type ExecuteIncreaseOrderEvent struct {
	Account string
	Index   uint64
	Price   *uint256.Int
}
type ExecuteDecreaseOrderEvent struct {
	Account string
	Index   uint64
	Price   *uint256.Int
}

// UpdateIncreaseOrderEvent / UpdateDecreaseOrderEvent fire on a user-issued
// mutation of an existing order.
type UpdateIncreaseOrderEvent struct {
	Account string
	Index   uint64
	Order   IncreaseOrder
}
type UpdateDecreaseOrderEvent struct {
	Account string
	Index   uint64
	Order   DecreaseOrder
}
