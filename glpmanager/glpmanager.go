// Package glpmanager is the minimal, optional LP-onboarding wrapper named
// in §2: a thin pass-through that lets a liquidity provider mint or redeem
// the pool's liquidity token by way of the Vault's BuyUSDG/SellUSDG
// entries, without any of the token-contract mechanics (cooldown, fee
// basis points, GLP price accounting) the spec scopes out of this engine
// (§1 Out of scope).
package glpmanager

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

// ErrAccountEmpty guards the account argument at every entry point.
var ErrAccountEmpty = errors.New("glpmanager: account is empty")

// ErrZeroAmount guards the amount argument at every entry point.
var ErrZeroAmount = errors.New("glpmanager: amount must be greater than zero")

// Vault is the narrow slice of vault.Vault this package calls.
type Vault interface {
	BuyUSDG(caller string, amount *uint256.Int) (*uint256.Int, error)
	SellUSDG(caller, account string, usdgAmount *uint256.Int) (*uint256.Int, error)
}

// Manager onboards a liquidity provider's dollar deposit into the shared
// pool as USDG and tracks its own running total minted, standing in for
// the real GLP token's supply this engine never owns.
type Manager struct {
	mu    sync.Mutex
	vault Vault

	totalMinted *uint256.Int
}

// New constructs a Manager settling deposits/withdrawals against vault.
func New(vault Vault) (*Manager, error) {
	if vault == nil {
		return nil, errors.New("glpmanager: nil vault")
	}
	return &Manager{vault: vault, totalMinted: new(uint256.Int)}, nil
}

// AddLiquidity deposits amount of dollars on behalf of account, minting
// USDG 1:1 via the Vault's BuyUSDG, and returns the USDG amount credited.
func (m *Manager) AddLiquidity(account string, amount *uint256.Int) (*uint256.Int, error) {
	if account == "" {
		return nil, ErrAccountEmpty
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}

	minted, err := m.vault.BuyUSDG(account, amount)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.totalMinted = new(uint256.Int).Add(m.totalMinted, minted)
	m.mu.Unlock()

	return minted, nil
}

// RemoveLiquidity burns usdgAmount on behalf of account, redeeming via the
// Vault's SellUSDG, and returns the dollar amount paid out.
func (m *Manager) RemoveLiquidity(account string, usdgAmount *uint256.Int) (*uint256.Int, error) {
	if account == "" {
		return nil, ErrAccountEmpty
	}
	if usdgAmount == nil || usdgAmount.IsZero() {
		return nil, ErrZeroAmount
	}

	out, err := m.vault.SellUSDG(account, account, usdgAmount)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.totalMinted.Lt(usdgAmount) {
		m.totalMinted = new(uint256.Int)
	} else {
		m.totalMinted = new(uint256.Int).Sub(m.totalMinted, usdgAmount)
	}
	m.mu.Unlock()

	return out, nil
}

// TotalMinted reports the running total of USDG this Manager has minted
// net of redemptions, for operator visibility only — the Vault's own USDG
// accounting remains authoritative.
func (m *Manager) TotalMinted() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(uint256.Int).Set(m.totalMinted)
}
