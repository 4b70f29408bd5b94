package vault

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/kat-co/vala"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// IncreasePosition implements §4.2.5: a registered plugin opens or grows a
// position on behalf of account. Every step through fee computation is
// pure; nothing is committed to v's state until the liquidation predicate
// (step 7) has cleared, so a failure after the collateral pull rolls the
// pulled funds back to caller rather than leaving them stranded in the
// ledger's held balance — this module has no surrounding transaction to
// revert the whole call for it.
func (v *Vault) IncreasePosition(ctx context.Context, caller, account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool) error {
	release, err := v.guard()
	if err != nil {
		return err
	}
	defer release()

	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty{account, "account"},
		vala.StringNotEmpty{caller, "caller"},
	).Check(); err != nil {
		return ErrAccountEmpty
	}
	if token.IsEmpty() {
		return ErrTokenEmpty
	}
	if fixedpoint.IsZero(amountIn) && fixedpoint.IsZero(sizeDelta) {
		return ErrZeroAmount
	}

	v.mu.Lock()
	if err := v.checkPlugin(caller); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.checkWhitelisted(token); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.checkNotPaused(); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.refreshCumulativeFundingRate(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	actualAmount, err := v.ledger.TransferIn(caller, amountIn)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed && !fixedpoint.IsZero(actualAmount) {
			_ = v.ledger.TransferOut(caller, actualAmount)
		}
	}()

	markPrice, err := v.increaseMarkPrice(ctx, token, isLong)
	if err != nil {
		return err
	}

	k, err := key.GeneratePositionKey(account, token.String(), isLong)
	if err != nil {
		return err
	}

	v.mu.Lock()
	existing := v.positions[k].clone()
	cumulativeFundingRate := new(uint256.Int).Set(v.cumulativeFundingRate)
	marginFee := new(uint256.Int).Set(v.marginFee)
	v.mu.Unlock()

	pnl := zeroSigned()
	if !existing.Size.IsZero() {
		hasProfit, delta, err := v.GetDelta(ctx, token, existing.Size, existing.EntryPrice, isLong, existing.LastIncreasedTime)
		if err != nil {
			return err
		}
		pnl = &signedAmount{Profit: hasProfit, Magnitude: delta}
	}

	entryPrice, err := nextEntryPrice(existing.Size, sizeDelta, existing.EntryPrice, markPrice, isLong, pnl)
	if err != nil {
		return err
	}

	sizeNew, err := fixedpoint.Add(existing.Size, sizeDelta)
	if err != nil {
		return err
	}

	positionFee, err := fixedpoint.MulPrecision(sizeDelta, marginFee)
	if err != nil {
		return err
	}
	var fundingFeeAmt *uint256.Int
	if fixedpoint.Gte(cumulativeFundingRate, existing.EntryFundingRate) {
		rateDelta, err := fixedpoint.Sub(cumulativeFundingRate, existing.EntryFundingRate)
		if err != nil {
			return err
		}
		fundingFeeAmt, err = fixedpoint.MulPrecision(sizeNew, rateDelta)
		if err != nil {
			return err
		}
	} else {
		fundingFeeAmt = fixedpoint.Zero()
	}
	fee, err := fixedpoint.Add(positionFee, fundingFeeAmt)
	if err != nil {
		return err
	}

	collateralNew, err := fixedpoint.Add(existing.Collateral, actualAmount)
	if err != nil {
		return err
	}
	collateralNew, err = fixedpoint.Sub(collateralNew, fee)
	if err != nil {
		return err
	}
	if fixedpoint.Lt(sizeNew, collateralNew) {
		return ErrSizeLessThanCollateral
	}

	updated := &Position{
		Size:              sizeNew,
		Collateral:        collateralNew,
		EntryPrice:        entryPrice,
		EntryFundingRate:  cumulativeFundingRate,
		ReserveAmount:     existing.ReserveAmount,
		RealisedPnl:       existing.RealisedPnl,
		LastIncreasedTime: v.now(),
	}

	if err := v.liquidatePositionAllowed(ctx, updated, token, isLong); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.increaseReservedAmount(sizeDelta); err != nil {
		return err
	}
	updated.ReserveAmount, err = fixedpoint.Add(existing.ReserveAmount, sizeDelta)
	if err != nil {
		return err
	}

	if isLong {
		if err := v.increasePoolAmount(actualAmount); err != nil {
			return err
		}
		if err := v.decreasePoolAmount(fee); err != nil {
			return err
		}
	}
	v.feeReserves, err = fixedpoint.Add(v.feeReserves, fee)
	if err != nil {
		return err
	}

	v.positions[k] = updated
	committed = true

	v.publish(IncreasePositionEvent{
		Key:        k,
		Account:    account,
		Token:      token,
		Collateral: updated.Collateral,
		Size:       updated.Size,
		IsLong:     isLong,
		Price:      markPrice,
		Fee:        fee,
	})
	v.publish(UpdatePositionEvent{
		Key:              k,
		Size:             updated.Size,
		Collateral:       updated.Collateral,
		EntryPrice:       updated.EntryPrice,
		EntryFundingRate: updated.EntryFundingRate,
		ReserveAmount:    updated.ReserveAmount,
		RealisedPnl:      updated.RealisedPnl,
		MarkPrice:        markPrice,
	})
	return nil
}
