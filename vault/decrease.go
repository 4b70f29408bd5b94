package vault

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/kat-co/vala"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// DecreasePosition implements §4.2.6: a registered plugin shrinks or
// closes a position on behalf of account, paying dollars out. Returns
// usdOutAfterFee, the amount actually transferred to account.
func (v *Vault) DecreasePosition(ctx context.Context, caller, account string, token currency.Token, collateralDelta, sizeDelta *uint256.Int, isLong bool) (*uint256.Int, error) {
	release, err := v.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty{account, "account"},
		vala.StringNotEmpty{caller, "caller"},
	).Check(); err != nil {
		return nil, ErrAccountEmpty
	}
	if token.IsEmpty() {
		return nil, ErrTokenEmpty
	}

	v.mu.Lock()
	if err := v.checkPlugin(caller); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	if err := v.checkWhitelisted(token); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	if err := v.checkNotPaused(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	if err := v.refreshCumulativeFundingRate(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.mu.Unlock()

	k, err := key.GeneratePositionKey(account, token.String(), isLong)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	existing := v.positions[k]
	if existing == nil || existing.Size.IsZero() {
		v.mu.Unlock()
		return nil, ErrPositionNotExist
	}
	if fixedpoint.Lt(existing.Size, sizeDelta) {
		v.mu.Unlock()
		return nil, ErrInvalidPositionSize
	}
	if !fixedpoint.Gt(existing.Collateral, collateralDelta) {
		v.mu.Unlock()
		return nil, ErrCollateralExceeded
	}
	p := existing.clone()
	cumulativeFundingRate := new(uint256.Int).Set(v.cumulativeFundingRate)
	marginFee := new(uint256.Int).Set(v.marginFee)
	v.mu.Unlock()

	// Step 2: release the reserved slice proportional to sizeDelta.
	reserveDelta, err := fixedpoint.MulDiv(p.ReserveAmount, sizeDelta, p.Size)
	if err != nil {
		return nil, err
	}
	p.ReserveAmount, err = fixedpoint.Sub(p.ReserveAmount, reserveDelta)
	if err != nil {
		return nil, err
	}

	markPrice, err := v.decreaseMarkPrice(ctx, token, isLong)
	if err != nil {
		return nil, err
	}

	// Step 4: adjustCollateral.
	hasProfit, delta, err := v.GetDelta(ctx, token, p.Size, p.EntryPrice, isLong, p.LastIncreasedTime)
	if err != nil {
		return nil, err
	}
	adjustedDelta, err := fixedpoint.MulDiv(sizeDelta, delta, p.Size)
	if err != nil {
		return nil, err
	}

	var poolDelta *uint256.Int // net pool adjustment from the profit/loss leg, applied only for shorts
	var poolSign bool          // true = add to pool, false = subtract from pool

	usdOut := fixedpoint.Zero()
	if hasProfit {
		usdOut, err = fixedpoint.Add(usdOut, adjustedDelta)
		if err != nil {
			return nil, err
		}
		p.RealisedPnl, err = addSigned(p.RealisedPnl, &signedAmount{Profit: true, Magnitude: adjustedDelta})
		if err != nil {
			return nil, err
		}
		poolDelta, poolSign = adjustedDelta, false
	} else {
		p.Collateral, err = fixedpoint.Sub(p.Collateral, adjustedDelta)
		if err != nil {
			return nil, err
		}
		p.RealisedPnl, err = addSigned(p.RealisedPnl, &signedAmount{Profit: false, Magnitude: adjustedDelta})
		if err != nil {
			return nil, err
		}
		poolDelta, poolSign = adjustedDelta, true
	}

	if !fixedpoint.IsZero(collateralDelta) {
		usdOut, err = fixedpoint.Add(usdOut, collateralDelta)
		if err != nil {
			return nil, err
		}
		p.Collateral, err = fixedpoint.Sub(p.Collateral, collateralDelta)
		if err != nil {
			return nil, err
		}
	}

	fullClose := fixedpoint.Eq(p.Size, sizeDelta)
	if fullClose {
		usdOut, err = fixedpoint.Add(usdOut, p.Collateral)
		if err != nil {
			return nil, err
		}
		p.Collateral = fixedpoint.Zero()
	}

	positionFee, err := fixedpoint.MulPrecision(sizeDelta, marginFee)
	if err != nil {
		return nil, err
	}
	var fundingFeeAmt *uint256.Int
	if fixedpoint.Gte(cumulativeFundingRate, p.EntryFundingRate) {
		rateDelta, err := fixedpoint.Sub(cumulativeFundingRate, p.EntryFundingRate)
		if err != nil {
			return nil, err
		}
		fundingFeeAmt, err = fixedpoint.MulPrecision(p.Size, rateDelta)
		if err != nil {
			return nil, err
		}
	} else {
		fundingFeeAmt = fixedpoint.Zero()
	}
	fee, err := fixedpoint.Add(positionFee, fundingFeeAmt)
	if err != nil {
		return nil, err
	}

	var usdOutAfterFee *uint256.Int
	feeExceedsUsdOut := false
	if fixedpoint.Gt(usdOut, fee) {
		usdOutAfterFee, err = fixedpoint.Sub(usdOut, fee)
		if err != nil {
			return nil, err
		}
	} else {
		usdOutAfterFee = new(uint256.Int).Set(usdOut)
		p.Collateral, err = fixedpoint.Sub(p.Collateral, fee)
		if err != nil {
			return nil, err
		}
		feeExceedsUsdOut = true
	}

	if !fullClose {
		p.EntryFundingRate = cumulativeFundingRate
		p.Size, err = fixedpoint.Sub(p.Size, sizeDelta)
		if err != nil {
			return nil, err
		}
		if fixedpoint.Lt(p.Size, p.Collateral) {
			return nil, ErrSizeLessThanCollateral
		}
		if err := v.liquidatePositionAllowed(ctx, p, token, isLong); err != nil {
			return nil, err
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.decreaseReservedAmount(reserveDelta); err != nil {
		return nil, err
	}
	if !isLong && !fixedpoint.IsZero(poolDelta) {
		if poolSign {
			if err := v.increasePoolAmount(poolDelta); err != nil {
				return nil, err
			}
		} else {
			if err := v.decreasePoolAmount(poolDelta); err != nil {
				return nil, err
			}
		}
	}

	v.feeReserves, err = fixedpoint.Add(v.feeReserves, fee)
	if err != nil {
		return nil, err
	}

	// Step 4's fee-deduct branch (usdOut <= fee) debits the pool for fee on
	// its own, separately from step 7's unconditional poolAmount -= usdOut
	// below (§4.2.6): the two stack for longs rather than one superseding
	// the other.
	if isLong && feeExceedsUsdOut && !fixedpoint.IsZero(fee) {
		if err := v.decreasePoolAmount(fee); err != nil {
			return nil, err
		}
	}

	if isLong && !fixedpoint.IsZero(usdOut) {
		if err := v.decreasePoolAmount(usdOut); err != nil {
			return nil, err
		}
	}

	if fullClose {
		delete(v.positions, k)
		v.publish(ClosePositionEvent{
			Key:              k,
			Size:             p.Size,
			Collateral:       p.Collateral,
			EntryPrice:       p.EntryPrice,
			EntryFundingRate: p.EntryFundingRate,
			ReserveAmount:    p.ReserveAmount,
			RealisedPnl:      p.RealisedPnl,
		})
	} else {
		v.positions[k] = p
		v.publish(UpdatePositionEvent{
			Key:              k,
			Size:             p.Size,
			Collateral:       p.Collateral,
			EntryPrice:       p.EntryPrice,
			EntryFundingRate: p.EntryFundingRate,
			ReserveAmount:    p.ReserveAmount,
			RealisedPnl:      p.RealisedPnl,
			MarkPrice:        markPrice,
		})
	}

	v.publish(DecreasePositionEvent{
		Key:        k,
		Account:    account,
		Token:      token,
		Collateral: collateralDelta,
		Size:       sizeDelta,
		IsLong:     isLong,
		Price:      markPrice,
		Fee:        fee,
	})
	v.publish(UpdatePnlEvent{Key: k, HasProfit: hasProfit, Delta: adjustedDelta})

	if !fixedpoint.IsZero(usdOutAfterFee) {
		if err := v.ledger.TransferOut(account, usdOutAfterFee); err != nil {
			return nil, err
		}
	}
	return usdOutAfterFee, nil
}

// addSigned adds b onto a, both signed dollar magnitudes (§3's realisedPnl
// is "monotone in lifetime (only increases on profit-take, decreases on
// loss-take)" — it is a running signed sum, not a clamped-at-zero one).
func addSigned(a, b *signedAmount) (*signedAmount, error) {
	if a.Profit == b.Profit {
		sum, err := fixedpoint.Add(a.Magnitude, b.Magnitude)
		if err != nil {
			return nil, err
		}
		return &signedAmount{Profit: a.Profit, Magnitude: sum}, nil
	}
	if fixedpoint.Gte(a.Magnitude, b.Magnitude) {
		diff, err := fixedpoint.Sub(a.Magnitude, b.Magnitude)
		if err != nil {
			return nil, err
		}
		return &signedAmount{Profit: a.Profit, Magnitude: diff}, nil
	}
	diff, err := fixedpoint.Sub(b.Magnitude, a.Magnitude)
	if err != nil {
		return nil, err
	}
	return &signedAmount{Profit: b.Profit, Magnitude: diff}, nil
}
