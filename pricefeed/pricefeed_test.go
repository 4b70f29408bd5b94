package pricefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/perpvault/currency"
)

var btc = currency.Token("BTC")

func newConfiguredFeed(t *testing.T) *Feed {
	t.Helper()
	f := New()
	require.NoError(t, f.ConfigToken(btc, "0xfeed", 8, 8))
	return f
}

func TestConfigToken(t *testing.T) {
	t.Parallel()
	f := New()
	assert.ErrorIs(t, f.ConfigToken(currency.Token(""), "0xfeed", 8, 8), ErrTokenNotConfigured)
	assert.ErrorIs(t, f.ConfigToken(btc, "", 8, 8), ErrFeedAddressEmpty)
	require.NoError(t, f.ConfigToken(btc, "0xfeed", 8, 8))
}

func TestGetPriceNoRounds(t *testing.T) {
	t.Parallel()
	f := newConfiguredFeed(t)
	_, err := f.GetPrice(context.Background(), btc, true)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestGetPriceNonpositiveAnswer(t *testing.T) {
	t.Parallel()
	f := newConfiguredFeed(t)
	require.NoError(t, f.PushRound(btc, Round{RoundID: 1, Answer: 0, UpdatedAt: time.Now()}))
	_, err := f.GetPrice(context.Background(), btc, true)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestGetPriceMaxMinOverLookback(t *testing.T) {
	t.Parallel()
	f := newConfiguredFeed(t)
	// Four rounds pushed, only the most recent 3 are in the lookback window.
	for _, answer := range []int64{100000000, 99000000, 105000000, 101000000} {
		require.NoError(t, f.PushRound(btc, Round{RoundID: uint64(answer), Answer: answer, UpdatedAt: time.Now()}))
	}

	maxPrice, err := f.GetPrice(context.Background(), btc, true)
	require.NoError(t, err)
	minPrice, err := f.GetPrice(context.Background(), btc, false)
	require.NoError(t, err)

	// feedDecimals == tokenDecimals == 8, so priceUnit == baseUnit and the
	// scaled result is the raw answer times 10^36/10^8/10^8 = 10^20.
	assert.Equal(t, "10500000000000000000000000000", maxPrice.ToBig().String())
	assert.Equal(t, "9900000000000000000000000000", minPrice.ToBig().String())
	assert.True(t, maxPrice.Gt(minPrice))
}

func TestGetPriceTokenNotConfigured(t *testing.T) {
	t.Parallel()
	f := New()
	_, err := f.GetPrice(context.Background(), btc, true)
	assert.ErrorIs(t, err, ErrTokenNotConfigured)
}

func TestIngestRaw(t *testing.T) {
	t.Parallel()
	f := newConfiguredFeed(t)
	raw := []byte(`{"roundId":1,"answer":100000000,"updatedAt":1700000000}`)
	require.NoError(t, f.IngestRaw(btc, raw))

	price, err := f.GetPrice(context.Background(), btc, true)
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000000000000", price.ToBig().String())
}
