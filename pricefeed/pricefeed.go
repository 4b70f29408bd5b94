// Package pricefeed is the Vault's oracle collaborator: it tracks a short
// rolling window of signed round answers per token and reports a
// conservative max or min over that window, scaled to 18-decimal precision.
// The Vault is the only consumer of GetPrice and treats the feed as honest
// within its stated contract — see the package doc on vault.PriceFeed.
package pricefeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/currency"
)

// lookback is K in getPrice's "walk back up to K rounds" rule (§4.1).
const lookback = 3

// pricePrecisionSquared is 10^36, the `(10^36 × rawPrice)` numerator in
// §4.1's scaling formula — PRICE_PRECISION applied twice, once to land the
// oracle answer in 18-decimal terms and once more for the division chain
// below to not lose precision.
var pricePrecisionSquared = new(uint256.Int).Mul(fixedpoint.PricePrecision, fixedpoint.PricePrecision)

var (
	// ErrInvalidPrice is returned when the latest usable round carries a
	// nonpositive answer, or no round has ever been recorded for a token.
	ErrInvalidPrice = errors.New("pricefeed: invalid price")
	// ErrTokenNotConfigured is returned by any call naming a token that was
	// never passed to ConfigToken.
	ErrTokenNotConfigured = errors.New("pricefeed: token not configured")
	// ErrFeedAddressEmpty guards ConfigToken's feed-address argument.
	ErrFeedAddressEmpty = errors.New("pricefeed: feed address is empty")
	// ErrZeroUnit guards ConfigToken's decimal-unit arguments.
	ErrZeroUnit = errors.New("pricefeed: decimal unit is zero")
)

// Round is one oracle observation: a signed answer for roundID, as reported
// by the underlying feed at updatedAt.
type Round struct {
	RoundID   uint64
	Answer    int64
	UpdatedAt time.Time
}

// tokenConfig is a token's static feed registration: the scaling units the
// spec's formula needs, `priceUnit = 10^feedDecimals` and
// `baseUnit = 10^tokenDecimals`.
type tokenConfig struct {
	feedAddress string
	priceUnit   *uint256.Int
	baseUnit    *uint256.Int
	rounds      []Round // most recent last, capped at lookback
}

// Feed is the Vault's PriceFeed collaborator. The zero value is not usable;
// construct with New.
type Feed struct {
	mu     sync.RWMutex
	tokens map[currency.Token]*tokenConfig
}

// New returns an empty Feed ready for ConfigToken calls.
func New() *Feed {
	return &Feed{tokens: make(map[currency.Token]*tokenConfig)}
}

// ConfigToken registers token against feedAddress with the decimal places
// of the feed's own answer (feedDecimals) and of the token itself
// (tokenDecimals), per §4.1's `(chainlinkFeed, priceUnit, baseUnit)` triple.
func (f *Feed) ConfigToken(token currency.Token, feedAddress string, feedDecimals, tokenDecimals uint8) error {
	if token.IsEmpty() {
		return ErrTokenNotConfigured
	}
	if feedAddress == "" {
		return ErrFeedAddressEmpty
	}
	priceUnit := pow10(feedDecimals)
	baseUnit := pow10(tokenDecimals)
	if priceUnit.IsZero() || baseUnit.IsZero() {
		return ErrZeroUnit
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = &tokenConfig{
		feedAddress: feedAddress,
		priceUnit:   priceUnit,
		baseUnit:    baseUnit,
	}
	return nil
}

func pow10(n uint8) *uint256.Int {
	out := fixedpoint.New(1)
	ten := fixedpoint.New(10)
	for i := uint8(0); i < n; i++ {
		out = new(uint256.Int).Mul(out, ten)
	}
	return out
}

// PushRound appends a newly observed oracle round for token, evicting older
// rounds once more than lookback are held.
func (f *Feed) PushRound(token currency.Token, round Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.tokens[token]
	if !ok {
		return ErrTokenNotConfigured
	}
	cfg.rounds = append(cfg.rounds, round)
	if len(cfg.rounds) > lookback {
		cfg.rounds = cfg.rounds[len(cfg.rounds)-lookback:]
	}
	return nil
}

// IngestRaw decodes a raw oracle payload of the shape
// {"roundId":N,"answer":N,"updatedAt":N} without a full struct unmarshal —
// oracle feeds are a high-frequency path and jsonparser avoids reflection
// on the hot path — then records it via PushRound.
func (f *Feed) IngestRaw(token currency.Token, raw []byte) error {
	roundID, err := jsonparser.GetInt(raw, "roundId")
	if err != nil {
		return err
	}
	answer, err := jsonparser.GetInt(raw, "answer")
	if err != nil {
		return err
	}
	updatedAt, err := jsonparser.GetInt(raw, "updatedAt")
	if err != nil {
		return err
	}
	return f.PushRound(token, Round{
		RoundID:   uint64(roundID),
		Answer:    answer,
		UpdatedAt: time.Unix(updatedAt, 0),
	})
}

// GetPrice implements vault.PriceFeed. It walks back up to lookback rounds
// from the latest and returns the maximum observed answer if maximise,
// otherwise the minimum, scaled to 18-decimal precision by
// (10^36 × rawPrice) / priceUnit / baseUnit. Any nonpositive round answer
// within the window fails the whole call with ErrInvalidPrice.
func (f *Feed) GetPrice(_ context.Context, token currency.Token, maximise bool) (*uint256.Int, error) {
	f.mu.RLock()
	cfg, ok := f.tokens[token]
	if !ok {
		f.mu.RUnlock()
		return nil, ErrTokenNotConfigured
	}
	rounds := make([]Round, len(cfg.rounds))
	copy(rounds, cfg.rounds)
	priceUnit, baseUnit := cfg.priceUnit, cfg.baseUnit
	f.mu.RUnlock()

	if len(rounds) == 0 {
		return nil, ErrInvalidPrice
	}

	best := rounds[len(rounds)-1].Answer
	if best <= 0 {
		return nil, ErrInvalidPrice
	}
	for i := len(rounds) - 2; i >= 0; i-- {
		a := rounds[i].Answer
		if a <= 0 {
			return nil, ErrInvalidPrice
		}
		if maximise && a > best {
			best = a
		}
		if !maximise && a < best {
			best = a
		}
	}

	raw := new(uint256.Int).SetUint64(uint64(best))
	scaled, err := fixedpoint.MulDiv(pricePrecisionSquared, raw, priceUnit)
	if err != nil {
		return nil, err
	}
	out, err := fixedpoint.MulDiv(scaled, fixedpoint.New(1), baseUnit)
	if err != nil {
		return nil, err
	}
	return out, nil
}
