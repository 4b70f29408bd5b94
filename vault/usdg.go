package vault

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
)

// Usdg is the Vault's other opaque balance-transferring collaborator
// (§1): the dollar-pegged liquidity token minted on BuyUSDG and burned on
// SellUSDG. Its token-contract mechanics are out of scope for this engine
// (§1) — the Vault only needs to move supply, never to define the token
// standard it moves.
type Usdg interface {
	Mint(account string, amount *uint256.Int) error
	Burn(account string, amount *uint256.Int) error
}

// InMemoryUsdg is a Usdg backed by a simple per-account balance map and a
// running total supply, standing in for the real USDG token contract this
// engine never owns.
type InMemoryUsdg struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
	supply   *uint256.Int
}

// NewInMemoryUsdg returns a Usdg with zero total supply.
func NewInMemoryUsdg() *InMemoryUsdg {
	return &InMemoryUsdg{balances: make(map[string]*uint256.Int), supply: fixedpoint.Zero()}
}

// Mint implements Usdg.
func (u *InMemoryUsdg) Mint(account string, amount *uint256.Int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	bal, ok := u.balances[account]
	if !ok {
		bal = fixedpoint.Zero()
	}
	sum, err := fixedpoint.Add(bal, amount)
	if err != nil {
		return err
	}
	supply, err := fixedpoint.Add(u.supply, amount)
	if err != nil {
		return err
	}
	u.balances[account] = sum
	u.supply = supply
	return nil
}

// Burn implements Usdg.
func (u *InMemoryUsdg) Burn(account string, amount *uint256.Int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	bal, ok := u.balances[account]
	if !ok || fixedpoint.Lt(bal, amount) {
		return ErrInvalidUsdgAmount
	}
	diff, err := fixedpoint.Sub(bal, amount)
	if err != nil {
		return err
	}
	supply, err := fixedpoint.Sub(u.supply, amount)
	if err != nil {
		return err
	}
	u.balances[account] = diff
	u.supply = supply
	return nil
}

// BalanceOf reports account's current USDG balance.
func (u *InMemoryUsdg) BalanceOf(account string) *uint256.Int {
	u.mu.Lock()
	defer u.mu.Unlock()
	bal, ok := u.balances[account]
	if !ok {
		return fixedpoint.Zero()
	}
	return new(uint256.Int).Set(bal)
}

// TotalSupply reports the running USDG supply.
func (u *InMemoryUsdg) TotalSupply() *uint256.Int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return new(uint256.Int).Set(u.supply)
}

// usdgOrDefault lazily wires an InMemoryUsdg if New's caller never supplied
// one via WithUsdg.
func (v *Vault) usdgOrDefault() Usdg {
	if v.usdg == nil {
		v.usdg = NewInMemoryUsdg()
	}
	return v.usdg
}

// BuyUSDG implements §4.2.1: any caller pulls amount of dollars, mints USDG
// 1:1 (the dollar and USDG are both PRICE_PRECISION-scaled and pegged at
// parity — this port has no swap-fee basis-point schedule to apply, fee
// distribution being out of scope per §1), and grows the pool by the
// actually-received amount.
func (v *Vault) BuyUSDG(caller string, amount *uint256.Int) (*uint256.Int, error) {
	release, err := v.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	if caller == "" {
		return nil, ErrAccountEmpty
	}
	if fixedpoint.IsZero(amount) {
		return nil, ErrInvalidUsdgAmount
	}

	v.mu.Lock()
	if err := v.refreshCumulativeFundingRate(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.mu.Unlock()

	actualAmount, err := v.ledger.TransferIn(caller, amount)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.increasePoolAmount(actualAmount); err != nil {
		return nil, err
	}
	if err := v.usdgOrDefault().Mint(caller, actualAmount); err != nil {
		return nil, err
	}
	v.publish(BuyUSDGEvent{Account: caller, Amount: actualAmount, UsdgAmount: actualAmount, FeeBasis: fixedpoint.Zero()})
	return new(uint256.Int).Set(actualAmount), nil
}

// SellUSDG implements §4.2.1: burns usdgAmount from caller, shrinks the
// pool and returns the equivalent dollars to account.
func (v *Vault) SellUSDG(caller, account string, usdgAmount *uint256.Int) (*uint256.Int, error) {
	release, err := v.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	if caller == "" || account == "" {
		return nil, ErrAccountEmpty
	}
	if fixedpoint.IsZero(usdgAmount) {
		return nil, ErrInvalidUsdgAmount
	}

	v.mu.Lock()
	if err := v.refreshCumulativeFundingRate(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.mu.Unlock()

	if err := v.usdgOrDefault().Burn(caller, usdgAmount); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.decreasePoolAmount(usdgAmount); err != nil {
		return nil, err
	}
	v.publish(SellUSDGEvent{Account: account, Amount: usdgAmount, UsdgAmount: usdgAmount, FeeBasis: fixedpoint.Zero()})

	if err := v.ledger.TransferOut(account, usdgAmount); err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(usdgAmount), nil
}
