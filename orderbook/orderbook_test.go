package orderbook

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/perpvault/currency"
)

type fakeVault struct {
	increaseErr error
	decreaseErr error
	increased   int
	decreased   int
}

func (f *fakeVault) IncreasePosition(ctx context.Context, caller, account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool) error {
	f.increased++
	return f.increaseErr
}

func (f *fakeVault) DecreasePosition(ctx context.Context, caller, account string, token currency.Token, collateralDelta, sizeDelta *uint256.Int, isLong bool) (*uint256.Int, error) {
	f.decreased++
	if f.decreaseErr != nil {
		return nil, f.decreaseErr
	}
	return new(uint256.Int).Set(collateralDelta), nil
}

type fakePriceFeed struct {
	price *uint256.Int
	err   error
}

func (f *fakePriceFeed) GetPrice(ctx context.Context, token currency.Token, maximise bool) (*uint256.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return new(uint256.Int).Set(f.price), nil
}

// fakeLedger stands in for a dollar-token contract: TransferIn always
// succeeds and escrows the full requested amount, with no fee-on-transfer
// behaviour to simulate here.
type fakeLedger struct {
	escrowed map[string]*uint256.Int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{escrowed: make(map[string]*uint256.Int)}
}

func (f *fakeLedger) TransferIn(caller string, amount *uint256.Int) (*uint256.Int, error) {
	bal, ok := f.escrowed[caller]
	if !ok {
		bal = new(uint256.Int)
	}
	f.escrowed[caller] = new(uint256.Int).Add(bal, amount)
	return new(uint256.Int).Set(amount), nil
}

func (f *fakeLedger) TransferOut(account string, amount *uint256.Int) error {
	bal, ok := f.escrowed[account]
	if !ok {
		bal = new(uint256.Int)
	}
	f.escrowed[account] = new(uint256.Int).Sub(bal, amount)
	return nil
}

func e18(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), uint256.NewInt(1_000_000_000_000_000_000))
}

func e6(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), uint256.NewInt(1_000_000))
}

func TestCreateIncreaseOrder_RejectOnUntriggeredPrice(t *testing.T) {
	t.Parallel()

	feed := &fakePriceFeed{price: e18(300)}
	ob, err := New("orderbook", &fakeVault{}, feed, newFakeLedger())
	require.NoError(t, err)

	idx, err := ob.CreateIncreaseOrder(context.Background(), "user", currency.Token("BNB"), e6(200), e6(400), true, e18(180), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, idx)

	err = ob.ExecuteIncreaseOrder(context.Background(), "user", 1)
	require.ErrorIs(t, err, ErrInvalidPriceForExecution)
	require.EqualError(t, err, "OrderBook: invalid price for execution")
}

func TestExecuteIncreaseOrder_SucceedsAfterPriceMoves(t *testing.T) {
	t.Parallel()

	feed := &fakePriceFeed{price: e18(300)}
	vault := &fakeVault{}
	ob, err := New("orderbook", vault, feed, newFakeLedger())
	require.NoError(t, err)

	var published []interface{}
	ob.sink = sinkFunc(func(data interface{}, ids ...uuid.UUID) error {
		published = append(published, data)
		return nil
	})

	idx, err := ob.CreateIncreaseOrder(context.Background(), "user", currency.Token("BNB"), e6(200), e6(400), true, e18(180), false)
	require.NoError(t, err)

	feed.price = e18(180)
	err = ob.ExecuteIncreaseOrder(context.Background(), "user", idx)
	require.NoError(t, err)
	require.Equal(t, 1, vault.increased)

	_, ok := ob.IncreaseOrderAt("user", idx)
	require.False(t, ok)

	found := false
	for _, ev := range published {
		if _, ok := ev.(ExecuteIncreaseOrderEvent); ok {
			found = true
		}
	}
	require.True(t, found, "expected an ExecuteIncreaseOrderEvent to be published")
}

func TestCancelIncreaseOrder_NonExistent(t *testing.T) {
	t.Parallel()

	feed := &fakePriceFeed{price: e18(300)}
	ob, err := New("orderbook", &fakeVault{}, feed, newFakeLedger())
	require.NoError(t, err)

	_, err = ob.CreateIncreaseOrder(context.Background(), "user", currency.Token("BNB"), e6(200), e6(400), true, e18(180), false)
	require.NoError(t, err)

	err = ob.CancelIncreaseOrder("user", 2)
	require.ErrorIs(t, err, ErrNonExistentOrder)
	require.EqualError(t, err, "OrderBook: non-existent order")
}

func TestExecuteIncreaseOrder_RestoresOrderOnVaultFailure(t *testing.T) {
	t.Parallel()

	feed := &fakePriceFeed{price: e18(180)}
	vault := &fakeVault{increaseErr: errors.New("boom")}
	ob, err := New("orderbook", vault, feed, newFakeLedger())
	require.NoError(t, err)

	idx, err := ob.CreateIncreaseOrder(context.Background(), "user", currency.Token("BNB"), e6(200), e6(400), true, e18(180), true)
	require.NoError(t, err)

	err = ob.ExecuteIncreaseOrder(context.Background(), "user", idx)
	require.Error(t, err)

	_, ok := ob.IncreaseOrderAt("user", idx)
	require.True(t, ok, "a failed vault call must restore the order")
}

func TestExecuteDecreaseOrder_InvertedPriceValidation(t *testing.T) {
	t.Parallel()

	feed := &fakePriceFeed{price: e18(200)}
	vault := &fakeVault{}
	ob, err := New("orderbook", vault, feed, newFakeLedger())
	require.NoError(t, err)

	idx, err := ob.CreateDecreaseOrder("user", currency.Token("BNB"), e6(100), e6(50), true, e18(180), false)
	require.NoError(t, err)

	err = ob.ExecuteDecreaseOrder(context.Background(), "user", idx)
	require.ErrorIs(t, err, ErrInvalidPriceForExecution)

	feed.price = e18(170)
	err = ob.ExecuteDecreaseOrder(context.Background(), "user", idx)
	require.NoError(t, err)
	require.Equal(t, 1, vault.decreased)
}

// sinkFunc adapts a plain function to the EventSink interface for tests.
type sinkFunc func(data interface{}, ids ...uuid.UUID) error

func (f sinkFunc) Publish(data interface{}, ids ...uuid.UUID) error { return f(data, ids...) }
