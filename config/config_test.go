package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
vault:
  owner: "owner-1"
  funding_rate_factor: "0.0001"
  margin_fee: "0.001"
  liquidation_fee: "5"
  max_leverage: 50
  min_profit_time_seconds: 300
  whitelisted_tokens:
    - token: "BNB"
      feed_source: "bnb-usd"
      min_profit_basis_points: 0
market:
  max_time_delay_seconds: 300
server:
  rest_listen_address: ":9090"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "owner-1", cfg.Vault.Owner)
	require.Equal(t, int64(300), cfg.Market.MaxTimeDelay)
	require.Equal(t, ":9090", cfg.Server.RESTListenAddress)
	require.Equal(t, ":8081", cfg.Server.WSListenAddress, "unset fields fall back to defaults")

	resolved, err := cfg.Vault.Resolve()
	require.NoError(t, err)
	require.Equal(t, "owner-1", resolved.Owner)
	require.EqualValues(t, 100, resolved.FundingRateFactor.Uint64(), "0.0001 * 10^6 = 100")
	require.EqualValues(t, 1000, resolved.MarginFee.Uint64(), "0.001 * 10^6 = 1000")

	tokens := cfg.Vault.Tokens()
	require.Len(t, tokens, 1)
	require.Equal(t, "BNB", tokens[0].String())
}

func TestLoad_MissingOwner(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, `
vault:
  whitelisted_tokens:
    - token: "BNB"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrNoOwner)
}

func TestLoad_NoWhitelistedTokens(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, `
vault:
  owner: "owner-1"
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrNoTokens)
}

func TestVaultConfig_Resolve_RejectsInvalidDecimal(t *testing.T) {
	t.Parallel()

	vc := VaultConfig{Owner: "owner-1", FundingRateFactor: "not-a-number"}
	_, err := vc.Resolve()
	require.ErrorIs(t, err, ErrInvalidDecimal)
}

func TestVaultConfig_Resolve_RejectsNegativeDecimal(t *testing.T) {
	t.Parallel()

	vc := VaultConfig{Owner: "owner-1", MarginFee: "-0.001"}
	_, err := vc.Resolve()
	require.ErrorIs(t, err, ErrNegativeDecimal)
}
