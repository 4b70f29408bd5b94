package market

import "github.com/thrasher-corp/perpvault/common/key"

// CreateIncreasePositionEvent fires when createIncreasePosition succeeds.
type CreateIncreasePositionEvent struct {
	Key     key.Request
	Account string
	Request IncreaseRequest
}

// CreateDecreasePositionEvent fires when createDecreasePosition succeeds.
type CreateDecreasePositionEvent struct {
	Key     key.Request
	Account string
	Request DecreaseRequest
}

// CancelIncreasePositionEvent / CancelDecreasePositionEvent fire on
// cancellation.
type CancelIncreasePositionEvent struct {
	Key     key.Request
	Account string
}
type CancelDecreasePositionEvent struct {
	Key     key.Request
	Account string
}

// ExecuteIncreasePositionEvent / ExecuteDecreasePositionEvent fire on
// successful forwarding to the Vault.
type ExecuteIncreasePositionEvent struct {
	Key     key.Request
	Account string
}
type ExecuteDecreasePositionEvent struct {
	Key     key.Request
	Account string
}

// SetMaxTimeDelayEvent fires when the owner changes the expiry window.
type SetMaxTimeDelayEvent struct {
	Seconds int64
}
