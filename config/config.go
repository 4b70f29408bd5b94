// Package config loads and persists the engine's startup parameters:
// admin defaults for the Vault (owner, fee factors, max leverage), the
// whitelisted index tokens and their price-feed sources, Market/OrderBook
// tuning (max time delay), and the REST/WebSocket bind addresses. Secrets
// (an owner API token, a TOTP seed) are encrypted at rest with AES-GCM
// under a passphrase-derived key, mirroring the teacher's own
// config-encryption demo.
package config

import (
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/currency"
)

// ErrNegativeDecimal guards against a negative human-authored fee/factor
// literal, which uint256 cannot represent.
var ErrNegativeDecimal = errors.New("config: decimal field must not be negative")

// Sentinel load/validation failures.
var (
	ErrNoOwner          = errors.New("config: owner is not set")
	ErrNoTokens         = errors.New("config: no whitelisted tokens configured")
	ErrInvalidDecimal   = errors.New("config: could not parse a decimal field")
	ErrEncryptedPayload = errors.New("config: secret section is encrypted; call Decrypt first")
)

// TokenConfig whitelists one index market and its minimum profit basis
// points, and names the price feed source key it is configured under in
// pricefeed (§4.1's configToken).
type TokenConfig struct {
	Token                string `mapstructure:"token"`
	FeedSource           string `mapstructure:"feed_source"`
	FeedDecimals         uint8  `mapstructure:"feed_decimals"`
	TokenDecimals        uint8  `mapstructure:"token_decimals"`
	MinProfitBasisPoints uint64 `mapstructure:"min_profit_basis_points"`
}

// VaultConfig carries the admin defaults New's functional options apply at
// startup (§4.5). Human-authored as decimal strings, the config/test
// boundary shopspring/decimal idiom (§10.5) — converted to
// PRECISION/PRICE_PRECISION-scaled uint256 by Resolve.
type VaultConfig struct {
	Owner              string  `mapstructure:"owner"`
	FundingRateFactor  string  `mapstructure:"funding_rate_factor"`
	MarginFee          string  `mapstructure:"margin_fee"`
	LiquidationFee     string  `mapstructure:"liquidation_fee"`
	MaxLeverage        uint64  `mapstructure:"max_leverage"`
	MinProfitTime      int64   `mapstructure:"min_profit_time_seconds"`
	WhitelistedTokens  []TokenConfig `mapstructure:"whitelisted_tokens"`
}

// MarketConfig carries Market's tuning knobs (§4.4).
type MarketConfig struct {
	MaxTimeDelay int64 `mapstructure:"max_time_delay_seconds"`
}

// ExecutorConfig tunes the engine's executor loop (§12 "ticking goroutine").
type ExecutorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ServerConfig carries the REST/WebSocket surface's bind addresses and
// throttling (§11's gorilla/mux, gorilla/websocket, x/time/rate wiring).
type ServerConfig struct {
	RESTListenAddress string  `mapstructure:"rest_listen_address"`
	WSListenAddress   string  `mapstructure:"ws_listen_address"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
}

// SecretsConfig holds the owner API token and TOTP seed, always persisted
// through an EncryptedPayload; Plaintext is populated only after a
// successful Decrypt and never (re)serialized.
type SecretsConfig struct {
	Encrypted EncryptedPayload `mapstructure:"encrypted"`

	OwnerAPIToken string `mapstructure:"-"`
	TOTPSeed      string `mapstructure:"-"`
}

// Config is the engine's full startup configuration.
type Config struct {
	Vault    VaultConfig     `mapstructure:"vault"`
	Market   MarketConfig    `mapstructure:"market"`
	Executor ExecutorConfig  `mapstructure:"executor"`
	Server   ServerConfig    `mapstructure:"server"`
	Secrets  SecretsConfig   `mapstructure:"secrets"`
	Database DatabaseConfig  `mapstructure:"database"`
}

// DatabaseConfig selects the audit-log driver (§11's database/sql +
// mattn/go-sqlite3 wiring, opened by Engine.OpenAuditLog).
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	DataSource string `mapstructure:"data_source"`
}

// Load reads configuration from path (any format viper supports: YAML,
// JSON, TOML) with environment-variable override under the PERPVAULT_
// prefix, exactly the teacher's own config-loading convention.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PERPVAULT")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("market.max_time_delay_seconds", 300)
	v.SetDefault("executor.poll_interval", 5*time.Second)
	v.SetDefault("server.rest_listen_address", ":8080")
	v.SetDefault("server.ws_listen_address", ":8081")
	v.SetDefault("server.rate_limit_per_second", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.data_source", "perpvault.db")
	v.SetDefault("vault.max_leverage", 50)
}

// Validate checks the fields Resolve cannot recover from.
func (c *Config) Validate() error {
	if c.Vault.Owner == "" {
		return ErrNoOwner
	}
	if len(c.Vault.WhitelistedTokens) == 0 {
		return ErrNoTokens
	}
	return nil
}

// ResolvedVault is VaultConfig converted from human-readable decimal
// strings into the PRECISION/PRICE_PRECISION-scaled uint256 values the
// vault package's functional options take directly.
type ResolvedVault struct {
	Owner             string
	FundingRateFactor *uint256.Int
	MarginFee         *uint256.Int
	LiquidationFee    *uint256.Int
	MaxLeverage       *uint256.Int
	MinProfitTime     int64
}

// Resolve converts every decimal.Decimal-shaped field in VaultConfig into
// PRECISION-scaled uint256, except LiquidationFee, which is
// PRICE_PRECISION-scaled (§10.5's config/test decimal boundary).
func (vc VaultConfig) Resolve() (ResolvedVault, error) {
	factor, err := decimalToPrecision(vc.FundingRateFactor)
	if err != nil {
		return ResolvedVault{}, err
	}
	margin, err := decimalToPrecision(vc.MarginFee)
	if err != nil {
		return ResolvedVault{}, err
	}
	liq, err := decimalToPrecision(vc.LiquidationFee)
	if err != nil {
		return ResolvedVault{}, err
	}
	// The liquidation fee is a flat dollar amount the vault compares with
	// 18-decimal collateral, so it is lifted from PRECISION to PRICE_PRECISION.
	liq, err = fixedpoint.Mul(liq, uint256.NewInt(1_000_000_000_000))
	if err != nil {
		return ResolvedVault{}, err
	}
	return ResolvedVault{
		Owner:             vc.Owner,
		FundingRateFactor: factor,
		MarginFee:         margin,
		LiquidationFee:    liq,
		MaxLeverage:       fixedpoint.New(vc.MaxLeverage),
		MinProfitTime:     vc.MinProfitTime,
	}, nil
}

// Tokens returns the configured whitelisted tokens as currency.Token.
func (vc VaultConfig) Tokens() []currency.Token {
	out := make([]currency.Token, 0, len(vc.WhitelistedTokens))
	for _, t := range vc.WhitelistedTokens {
		out = append(out, currency.Token(t.Token))
	}
	return out
}

// decimalToPrecision parses a human-authored decimal string (e.g.
// "0.001") and scales it into a PRECISION (10^6) fixed-point uint256,
// matching the fee/funding-factor fields' scale (§3).
func decimalToPrecision(s string) (*uint256.Int, error) {
	if s == "" {
		return fixedpoint.Zero(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ErrInvalidDecimal
	}
	if d.IsNegative() {
		return nil, ErrNegativeDecimal
	}
	scaled := d.Mul(decimal.New(1, 6)).Truncate(0)
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	return out, nil
}
