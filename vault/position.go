package vault

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/currency"
)

// signedAmount is a signed dollar-unit magnitude, mirroring the Solidity
// original's `(bool hasProfit, uint256 delta)` return idiom rather than a
// native signed big integer — this keeps the sign of zero unambiguous and
// matches exactly what getDelta and realisedPnl accounting need (§10.1).
type signedAmount struct {
	Profit    bool
	Magnitude *uint256.Int
}

func zeroSigned() *signedAmount {
	return &signedAmount{Profit: true, Magnitude: fixedpoint.Zero()}
}

// Position is the Vault's record for one (account, indexToken, isLong)
// triple (§3). The zero value is never stored: a position with Size == 0
// is deleted from the map rather than kept around with zeroed fields.
type Position struct {
	Size              *uint256.Int
	Collateral        *uint256.Int
	EntryPrice        *uint256.Int
	EntryFundingRate  *uint256.Int
	ReserveAmount     *uint256.Int
	RealisedPnl       *signedAmount
	LastIncreasedTime int64
}

func newPosition() *Position {
	return &Position{
		Size:             fixedpoint.Zero(),
		Collateral:       fixedpoint.Zero(),
		EntryPrice:       fixedpoint.Zero(),
		EntryFundingRate: fixedpoint.Zero(),
		ReserveAmount:    fixedpoint.Zero(),
		RealisedPnl:      zeroSigned(),
	}
}

// clone returns a copy safe for the caller to read without holding the
// vault's lock — Position accessor methods return this, never the stored
// pointer.
func (p *Position) clone() *Position {
	if p == nil {
		return newPosition()
	}
	return &Position{
		Size:              new(uint256.Int).Set(p.Size),
		Collateral:        new(uint256.Int).Set(p.Collateral),
		EntryPrice:        new(uint256.Int).Set(p.EntryPrice),
		EntryFundingRate:  new(uint256.Int).Set(p.EntryFundingRate),
		ReserveAmount:     new(uint256.Int).Set(p.ReserveAmount),
		RealisedPnl:       &signedAmount{Profit: p.RealisedPnl.Profit, Magnitude: new(uint256.Int).Set(p.RealisedPnl.Magnitude)},
		LastIncreasedTime: p.LastIncreasedTime,
	}
}

// increaseMarkPrice returns the adversarial price for opening/growing a
// position: max for longs, min for shorts (§4.2.5 step 3).
func (v *Vault) increaseMarkPrice(ctx context.Context, token currency.Token, isLong bool) (*uint256.Int, error) {
	return v.resolvePrice(ctx, token, isLong)
}

// decreaseMarkPrice returns the adversarial price for shrinking/closing a
// position: min for longs, max for shorts (§4.2.6 step 3).
func (v *Vault) decreaseMarkPrice(ctx context.Context, token currency.Token, isLong bool) (*uint256.Int, error) {
	return v.resolvePrice(ctx, token, !isLong)
}

func (v *Vault) resolvePrice(ctx context.Context, token currency.Token, maximise bool) (*uint256.Int, error) {
	price, err := v.priceFeed.GetPrice(ctx, token, maximise)
	if err != nil {
		return nil, ErrInvalidPrice
	}
	if price == nil || price.IsZero() {
		return nil, ErrInvalidPrice
	}
	return price, nil
}

// nextEntryPrice applies §4.2.3's entry-price averaging rule. size is the
// position's size *before* sizeDelta is added. The averaging formula only
// fires "when size > 0 and sizeDelta > 0" (§4.2.3); a bare fee-paying
// increase with sizeDelta == 0 leaves entryPrice untouched.
func nextEntryPrice(size, sizeDelta, entryPrice, markPrice *uint256.Int, isLong bool, pnl *signedAmount) (*uint256.Int, error) {
	if size.IsZero() {
		return new(uint256.Int).Set(markPrice), nil
	}
	if sizeDelta.IsZero() {
		return new(uint256.Int).Set(entryPrice), nil
	}
	nextSize, err := fixedpoint.Add(size, sizeDelta)
	if err != nil {
		return nil, err
	}

	hasProfit := pnl.Profit && !pnl.Magnitude.IsZero()
	wouldSubtract := isLong != hasProfit
	var denom *uint256.Int
	if wouldSubtract {
		denom, err = fixedpoint.Sub(nextSize, pnl.Magnitude)
	} else {
		denom, err = fixedpoint.Add(nextSize, pnl.Magnitude)
	}
	if err != nil {
		return nil, err
	}
	if denom.IsZero() {
		return nil, ErrArithmeticOverflow
	}
	return fixedpoint.MulDiv(markPrice, nextSize, denom)
}

// getDelta implements §4.2.4. mark is the price already resolved by the
// caller on the decrease-side convention (min for long, max for short).
func getDelta(size, entryPrice, mark *uint256.Int, isLong bool, lastIncreasedTime, now int64, minProfitTime int64, minProfitBasisPoints *uint256.Int) (*signedAmount, error) {
	if entryPrice.IsZero() {
		return nil, ErrInvalidPrice
	}
	priceDelta := fixedpoint.AbsDiff(entryPrice, mark)
	delta, err := fixedpoint.MulDiv(size, priceDelta, entryPrice)
	if err != nil {
		return nil, err
	}
	var hasProfit bool
	if isLong {
		hasProfit = fixedpoint.Gt(mark, entryPrice)
	} else {
		hasProfit = fixedpoint.Gt(entryPrice, mark)
	}

	if hasProfit && now <= lastIncreasedTime+minProfitTime {
		lhs, err := fixedpoint.Mul(delta, fixedpoint.Precision)
		if err != nil {
			return nil, err
		}
		rhs, err := fixedpoint.Mul(size, minProfitBasisPoints)
		if err != nil {
			return nil, err
		}
		if fixedpoint.Lte(lhs, rhs) {
			delta = fixedpoint.Zero()
		}
	}
	return &signedAmount{Profit: hasProfit, Magnitude: delta}, nil
}
