package market

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// CreateIncreasePosition escrows amountIn of dollars from account and
// queues a delayed request to open/grow a position, stamped with the
// current block time (§4.4).
func (m *Market) CreateIncreasePosition(account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool) error {
	if err := validateRequestArgs(account, token); err != nil {
		return err
	}
	if fixedpoint.IsZero(amountIn) {
		return ErrZeroAmount
	}

	actual, err := m.ledger.TransferIn(account, amountIn)
	if err != nil {
		return err
	}
	// Escrow moves through the shared held pool and back out under this
	// market's own pluginID balance, so ExecuteIncreasePosition's forward to
	// the Vault (which pulls from the plugin's own balance) has something
	// to pull (§4.4).
	if err := m.ledger.TransferOut(m.pluginID, actual); err != nil {
		_ = m.ledger.TransferOut(account, actual)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.increaseIndex[account]++
	index := m.increaseIndex[account]
	k, err := m.RequestKey(account, index)
	if err != nil {
		return err
	}
	req := &IncreaseRequest{
		Account:   account,
		Token:     token,
		Amount:    actual,
		SizeDelta: new(uint256.Int).Set(sizeDelta),
		IsLong:    isLong,
		BlockTime: m.clock(),
	}
	m.increaseReqs[k] = req
	m.publish(CreateIncreasePositionEvent{Key: k, Account: account, Request: *req})
	return nil
}

// notExpired reports whether a request stamped at blockTime is still
// within maxTimeDelay of now.
func (m *Market) notExpired(blockTime int64) bool {
	return blockTime+m.maxTimeDelay > m.clock()
}

// CancelIncreasePosition deletes the request at k and refunds its escrowed
// amount to its own creator. Unlike ExecuteIncreasePosition, expiry is not
// a bar to cancelling (§4.4): a request past maxTimeDelay can no longer be
// executed by anyone, so the only way its creator gets their escrow back
// is by cancelling it.
func (m *Market) CancelIncreasePosition(k key.Request) error {
	m.mu.Lock()
	req, ok := m.increaseReqs[k]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.increaseReqs, k)
	m.publish(CancelIncreasePositionEvent{Key: k, Account: req.Account})
	m.mu.Unlock()

	// The escrowed amount lives under this market's own pluginID balance
	// (see CreateIncreasePosition); pull it back into the held pool before
	// paying it out to its creator.
	if _, err := m.ledger.TransferIn(m.pluginID, req.Amount); err != nil {
		return err
	}
	return m.ledger.TransferOut(req.Account, req.Amount)
}

// ExecuteIncreasePosition forwards the request at k to the Vault, provided
// it exists and has not expired. A missing key is a silent no-op (§4.4:
// "executors may race and the operation must be idempotent"); an expired
// one is the pinned ErrRequestExpired. On Vault failure the request is
// restored, mirroring orderbook's compensating-rollback discipline since
// this module has no surrounding transaction to revert the whole call.
func (m *Market) ExecuteIncreasePosition(ctx context.Context, k key.Request) error {
	m.mu.Lock()
	req, ok := m.increaseReqs[k]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if !m.notExpired(req.BlockTime) {
		m.mu.Unlock()
		return ErrRequestExpired
	}
	r := *req
	delete(m.increaseReqs, k)
	m.mu.Unlock()

	if err := m.vault.IncreasePosition(ctx, m.pluginID, r.Account, r.Token, r.Amount, r.SizeDelta, r.IsLong); err != nil {
		m.mu.Lock()
		m.increaseReqs[k] = &r
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.publish(ExecuteIncreasePositionEvent{Key: k, Account: r.Account})
	m.mu.Unlock()
	return nil
}
