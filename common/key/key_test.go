package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePositionKey(t *testing.T) {
	t.Parallel()

	_, err := GeneratePositionKey("", "BNB", true)
	assert.ErrorIs(t, err, ErrAccountEmpty)

	_, err = GeneratePositionKey("0xAccount", "", true)
	assert.ErrorIs(t, err, ErrTokenEmpty)

	k1, err := GeneratePositionKey("0xAccount", "BNB", true)
	require.NoError(t, err)

	k2, err := GeneratePositionKey("0xAccount", "BNB", false)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "long and short must key different positions")

	k3, err := GeneratePositionKey("0xAccount", "BNB", true)
	require.NoError(t, err)
	assert.Equal(t, k1, k3, "key derivation must be deterministic")

	k4, err := GeneratePositionKey("0xOther", "BNB", true)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestGenerateRequestKey(t *testing.T) {
	t.Parallel()

	_, err := GenerateRequestKey("", 1)
	assert.ErrorIs(t, err, ErrAccountEmpty)

	k1, err := GenerateRequestKey("0xAccount", 1)
	require.NoError(t, err)
	k2, err := GenerateRequestKey("0xAccount", 2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	k3, err := GenerateRequestKey("0xAccount", 1)
	require.NoError(t, err)
	assert.Equal(t, k1, k3)
}
