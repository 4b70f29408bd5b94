package vault

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// GetDelta implements §4.2.4: the unrealised PnL of a hypothetical position
// with the given size/entryPrice/isLong, as of lastIncreasedTime, evaluated
// against the current mark price (min for long, max for short).
func (v *Vault) GetDelta(ctx context.Context, token currency.Token, size, entryPrice *uint256.Int, isLong bool, lastIncreasedTime int64) (bool, *uint256.Int, error) {
	mark, err := v.resolvePrice(ctx, token, !isLong)
	if err != nil {
		return false, nil, err
	}

	v.mu.Lock()
	minProfitTime := v.minProfitTime
	bps, ok := v.minProfitBasisPoints[token]
	if !ok {
		bps = fixedpoint.Zero()
	}
	v.mu.Unlock()

	delta, err := getDelta(size, entryPrice, mark, isLong, lastIncreasedTime, v.now(), minProfitTime, bps)
	if err != nil {
		return false, nil, err
	}
	return delta.Profit, delta.Magnitude, nil
}

// LiquidatePositionAllowed implements the liquidation predicate of §4.2.7.
// raise is accepted for interface symmetry with the executor entries that
// want an error rather than a quiet false; this port always returns the
// specific named error so callers can branch either way.
func (v *Vault) LiquidatePositionAllowed(ctx context.Context, k key.Position, token currency.Token, isLong bool, _ bool) error {
	v.mu.Lock()
	pos := v.positions[k]
	if pos == nil || pos.Size.IsZero() {
		v.mu.Unlock()
		return ErrPositionNotExist
	}
	p := pos.clone()
	v.mu.Unlock()

	return v.liquidatePositionAllowed(ctx, p, token, isLong)
}

// liquidatePositionAllowed evaluates the predicate against an
// already-cloned position snapshot p, touching v.mu only for the brief
// reads it needs (fee factors, liquidation fee, max leverage).
func (v *Vault) liquidatePositionAllowed(ctx context.Context, p *Position, token currency.Token, isLong bool) error {
	hasProfit, delta, err := v.GetDelta(ctx, token, p.Size, p.EntryPrice, isLong, p.LastIncreasedTime)
	if err != nil {
		return err
	}

	if !hasProfit && fixedpoint.Lte(p.Collateral, delta) {
		return ErrLossesExceedCollateral
	}

	remainingCollateral := new(uint256.Int).Set(p.Collateral)
	if !hasProfit {
		remainingCollateral, err = fixedpoint.Sub(p.Collateral, delta)
		if err != nil {
			return err
		}
	}

	v.mu.Lock()
	fFee, err := v.fundingFee(p.Size, p.EntryFundingRate)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	pFee, err := v.positionFee(p.Size)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	liquidationFee := new(uint256.Int).Set(v.liquidationFee)
	maxLeverage := new(uint256.Int).Set(v.maxLeverage)
	v.mu.Unlock()

	fees, err := fixedpoint.Add(fFee, pFee)
	if err != nil {
		return err
	}

	if fixedpoint.Lt(remainingCollateral, fees) {
		return ErrFeesExceedCollateral
	}

	feesAndLiquidation, err := fixedpoint.Add(fees, liquidationFee)
	if err != nil {
		return err
	}
	if fixedpoint.Lt(remainingCollateral, feesAndLiquidation) {
		return ErrLiquidationFeesExceedCollateral
	}

	if remainingCollateral.IsZero() {
		return ErrMaxLeverageExceeded
	}
	leverage := new(uint256.Int).Div(p.Size, remainingCollateral)
	if fixedpoint.Gt(leverage, maxLeverage) {
		return ErrMaxLeverageExceeded
	}
	return nil
}

// LiquidatePosition implements §4.2.7's executor entry: any caller may
// close an eligible position. Collateral is retained by the pool; its
// distribution (insurance fund, liquidator reward) is out of scope (§1).
func (v *Vault) LiquidatePosition(ctx context.Context, account string, token currency.Token, isLong bool) error {
	release, err := v.guard()
	if err != nil {
		return err
	}
	defer release()

	v.mu.Lock()
	if err := v.refreshCumulativeFundingRate(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	k, err := key.GeneratePositionKey(account, token.String(), isLong)
	if err != nil {
		return err
	}

	v.mu.Lock()
	pos := v.positions[k]
	if pos == nil || pos.Size.IsZero() {
		v.mu.Unlock()
		return ErrPositionNotExist
	}
	p := pos.clone()
	v.mu.Unlock()

	err = v.liquidatePositionAllowed(ctx, p, token, isLong)
	if err == nil {
		return ErrNotLiquidatable
	}
	if err != ErrLossesExceedCollateral && err != ErrFeesExceedCollateral &&
		err != ErrLiquidationFeesExceedCollateral && err != ErrMaxLeverageExceeded {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.decreaseReservedAmount(p.ReserveAmount); err != nil {
		return err
	}
	delete(v.positions, k)

	v.publish(LiquidatePositionEvent{
		Key:           k,
		Account:       account,
		Token:         token,
		IsLong:        isLong,
		Size:          p.Size,
		Collateral:    p.Collateral,
		ReserveAmount: p.ReserveAmount,
		RealisedPnl:   p.RealisedPnl,
	})
	return nil
}
