package fixedpoint

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	t.Parallel()

	got, err := MulDiv(New(10), New(3), New(2))
	require.NoError(t, err)
	assert.Equal(t, New(15), got)

	// truncates toward zero, not rounds
	got, err = MulDiv(New(10), New(1), New(3))
	require.NoError(t, err)
	assert.Equal(t, New(3), got)

	_, err = MulDiv(New(1), New(1), New(0))
	assert.ErrorIs(t, err, ErrDivByZero)
}

func TestMulDivOverflow(t *testing.T) {
	t.Parallel()
	maxUint := new(uint256.Int).Not(new(uint256.Int)) // 2^256 - 1
	_, err := MulDiv(maxUint, maxUint, New(1))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAddSub(t *testing.T) {
	t.Parallel()

	sum, err := Add(New(2), New(3))
	require.NoError(t, err)
	assert.Equal(t, New(5), sum)

	_, err = Sub(New(2), New(3))
	assert.ErrorIs(t, err, ErrOverflow)

	diff, err := Sub(New(5), New(3))
	require.NoError(t, err)
	assert.Equal(t, New(2), diff)
}

func TestAbsDiff(t *testing.T) {
	t.Parallel()
	assert.Equal(t, New(4), AbsDiff(New(10), New(6)))
	assert.Equal(t, New(4), AbsDiff(New(6), New(10)))
}

func TestComparisons(t *testing.T) {
	t.Parallel()
	assert.True(t, Gt(New(2), New(1)))
	assert.True(t, Lt(New(1), New(2)))
	assert.True(t, Gte(New(2), New(2)))
	assert.True(t, Lte(New(2), New(2)))
	assert.True(t, Eq(New(2), New(2)))
}

func TestIsZero(t *testing.T) {
	t.Parallel()
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(Zero()))
	assert.False(t, IsZero(New(1)))
}
