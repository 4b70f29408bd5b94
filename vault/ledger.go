package vault

import (
	"sync"

	"github.com/holiman/uint256"
)

// Ledger is the Vault's "opaque balance-transferring collaborator" for the
// dollar/USDG tokens (§1 Out of scope: token-contract mechanics are not
// this engine's concern). TransferIn must measure the actual received
// delta so fee-on-transfer tokens are handled correctly (§4.2.8,
// doTransferIn) — the returned actual amount may be less than requested.
type Ledger interface {
	// TransferIn pulls amount from caller's balance into the vault's held
	// balance and returns the amount actually received.
	TransferIn(caller string, amount *uint256.Int) (*uint256.Int, error)
	// TransferOut pays amount from the vault's held balance to account.
	TransferOut(account string, amount *uint256.Int) error
	// Balance reports the vault's currently held balance.
	Balance() *uint256.Int
}

// InMemoryLedger is a Ledger backed by a simple balance map, standing in
// for the dollar token contract this engine never owns. It does not model
// fee-on-transfer behaviour (TransferIn always receives the full amount);
// wrap it to simulate that in tests that need to exercise the actual-delta
// path.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
	held     *uint256.Int
}

// NewInMemoryLedger returns a Ledger with no balances and zero held funds.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		balances: make(map[string]*uint256.Int),
		held:     new(uint256.Int),
	}
}

// Credit gives account amount of spendable balance, for test/bootstrap
// setup (e.g. simulating a prior USDG purchase).
func (l *InMemoryLedger) Credit(account string, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[account]
	if !ok {
		bal = new(uint256.Int)
	}
	l.balances[account] = new(uint256.Int).Add(bal, amount)
}

// AccountBalance reports account's spendable balance (outside the vault).
func (l *InMemoryLedger) AccountBalance(account string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[account]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}

// TransferIn implements Ledger.
func (l *InMemoryLedger) TransferIn(caller string, amount *uint256.Int) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[caller]
	if !ok || bal.Lt(amount) {
		return nil, ErrZeroAmount
	}
	l.balances[caller] = new(uint256.Int).Sub(bal, amount)
	l.held = new(uint256.Int).Add(l.held, amount)
	return new(uint256.Int).Set(amount), nil
}

// TransferOut implements Ledger.
func (l *InMemoryLedger) TransferOut(account string, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held.Lt(amount) {
		return ErrPoolUnderflow
	}
	l.held = new(uint256.Int).Sub(l.held, amount)
	bal, ok := l.balances[account]
	if !ok {
		bal = new(uint256.Int)
	}
	l.balances[account] = new(uint256.Int).Add(bal, amount)
	return nil
}

// Balance implements Ledger.
func (l *InMemoryLedger) Balance() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.held)
}
