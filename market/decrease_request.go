package market

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// CreateDecreasePosition queues a delayed request to shrink or close a
// position. No escrow: the position being shrunk already lives in the
// Vault (§4.4).
func (m *Market) CreateDecreasePosition(account string, token currency.Token, collateralDelta, sizeDelta *uint256.Int, isLong bool) error {
	if err := validateRequestArgs(account, token); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.decreaseIndex[account]++
	index := m.decreaseIndex[account]
	k, err := m.RequestKey(account, index)
	if err != nil {
		return err
	}
	req := &DecreaseRequest{
		Account:         account,
		Token:           token,
		CollateralDelta: new(uint256.Int).Set(collateralDelta),
		SizeDelta:       new(uint256.Int).Set(sizeDelta),
		IsLong:          isLong,
		BlockTime:       m.clock(),
	}
	m.decreaseReqs[k] = req
	m.publish(CreateDecreasePositionEvent{Key: k, Account: account, Request: *req})
	return nil
}

// CancelDecreasePosition deletes the request at k, regardless of expiry
// (§4.4). No refund: nothing was escrowed.
func (m *Market) CancelDecreasePosition(k key.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.decreaseReqs[k]
	if !ok {
		return nil
	}
	delete(m.decreaseReqs, k)
	m.publish(CancelDecreasePositionEvent{Key: k, Account: req.Account})
	return nil
}

// ExecuteDecreasePosition forwards the request at k to the Vault, subject
// to the same missing-key no-op and non-expiry rules as
// ExecuteIncreasePosition (§4.4).
func (m *Market) ExecuteDecreasePosition(ctx context.Context, k key.Request) error {
	m.mu.Lock()
	req, ok := m.decreaseReqs[k]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if !m.notExpired(req.BlockTime) {
		m.mu.Unlock()
		return ErrRequestExpired
	}
	r := *req
	delete(m.decreaseReqs, k)
	m.mu.Unlock()

	if _, err := m.vault.DecreasePosition(ctx, m.pluginID, r.Account, r.Token, r.CollateralDelta, r.SizeDelta, r.IsLong); err != nil {
		m.mu.Lock()
		m.decreaseReqs[k] = &r
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.publish(ExecuteDecreasePositionEvent{Key: k, Account: r.Account})
	m.mu.Unlock()
	return nil
}
