package market

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/perpvault/currency"
)

type fakeVault struct {
	increaseErr error
	increased   int
}

func (f *fakeVault) IncreasePosition(ctx context.Context, caller, account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool) error {
	f.increased++
	return f.increaseErr
}

func (f *fakeVault) DecreasePosition(ctx context.Context, caller, account string, token currency.Token, collateralDelta, sizeDelta *uint256.Int, isLong bool) (*uint256.Int, error) {
	return new(uint256.Int).Set(collateralDelta), nil
}

type fakeLedger struct {
	escrowed map[string]*uint256.Int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{escrowed: make(map[string]*uint256.Int)}
}

func (f *fakeLedger) TransferIn(caller string, amount *uint256.Int) (*uint256.Int, error) {
	bal := f.escrowed[caller]
	if bal == nil {
		bal = new(uint256.Int)
	}
	f.escrowed[caller] = new(uint256.Int).Add(bal, amount)
	return new(uint256.Int).Set(amount), nil
}

func (f *fakeLedger) TransferOut(account string, amount *uint256.Int) error {
	bal := f.escrowed[account]
	if bal == nil {
		bal = new(uint256.Int)
	}
	f.escrowed[account] = new(uint256.Int).Sub(bal, amount)
	return nil
}

// manualClock lets a test advance "now" deterministically instead of
// sleeping past a 300-second expiry window.
type manualClock struct{ now int64 }

func (c *manualClock) Now() int64 { return c.now }

func e6(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), uint256.NewInt(1_000_000))
}

func TestExecuteIncreasePosition_ExpiresAfterMaxTimeDelay(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: 1_000}
	vault := &fakeVault{}
	m, err := New("owner", "market", vault, newFakeLedger(), clock.Now)
	require.NoError(t, err)

	err = m.CreateIncreasePosition("user", currency.Token("BNB"), e6(100), e6(200), true)
	require.NoError(t, err)

	k, err := m.RequestKey("user", 1)
	require.NoError(t, err)

	clock.now += 600
	err = m.ExecuteIncreasePosition(context.Background(), k)
	require.ErrorIs(t, err, ErrRequestExpired)
	require.EqualError(t, err, "Market::executeIncreasePosition Request has expired")
	require.Equal(t, 0, vault.increased)
}

func TestExecuteIncreasePosition_SucceedsBeforeExpiry(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: 1_000}
	vault := &fakeVault{}
	m, err := New("owner", "market", vault, newFakeLedger(), clock.Now)
	require.NoError(t, err)

	err = m.CreateIncreasePosition("user", currency.Token("BNB"), e6(100), e6(200), true)
	require.NoError(t, err)

	k, err := m.RequestKey("user", 1)
	require.NoError(t, err)

	clock.now += 100
	err = m.ExecuteIncreasePosition(context.Background(), k)
	require.NoError(t, err)
	require.Equal(t, 1, vault.increased)

	_, ok := m.IncreaseRequestAt(k)
	require.False(t, ok)
}

func TestExecuteIncreasePosition_MissingKeyIsNoOp(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: 1_000}
	m, err := New("owner", "market", &fakeVault{}, newFakeLedger(), clock.Now)
	require.NoError(t, err)

	k, err := m.RequestKey("ghost", 7)
	require.NoError(t, err)

	err = m.ExecuteIncreasePosition(context.Background(), k)
	require.NoError(t, err)
}

func TestCancelIncreasePosition_RefundsEscrow(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: 1_000}
	ledger := newFakeLedger()
	m, err := New("owner", "market", &fakeVault{}, ledger, clock.Now)
	require.NoError(t, err)

	err = m.CreateIncreasePosition("user", currency.Token("BNB"), e6(100), e6(200), true)
	require.NoError(t, err)

	k, err := m.RequestKey("user", 1)
	require.NoError(t, err)

	require.Equal(t, e6(100), ledger.escrowed["user"])

	err = m.CancelIncreasePosition(k)
	require.NoError(t, err)
	require.True(t, ledger.escrowed["user"].IsZero())

	_, ok := m.IncreaseRequestAt(k)
	require.False(t, ok)
}

func TestSetMaxTimeDelay_OwnerOnly(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: 0}
	m, err := New("owner", "market", &fakeVault{}, newFakeLedger(), clock.Now)
	require.NoError(t, err)

	err = m.SetMaxTimeDelay("not-owner", 60)
	require.ErrorIs(t, err, ErrNotOwner)

	err = m.SetMaxTimeDelay("owner", 60)
	require.NoError(t, err)
}
