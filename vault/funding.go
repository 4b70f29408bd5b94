package vault

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/currency"
)

// RefreshCumulativeFundingRate advances the funding accumulator up to the
// current time, per §4.2.2. token is accepted for interface symmetry with
// the multi-market variant the spec describes; this port's accumulator is
// global, matching the single-market behaviour the spec pins as correct
// (Design Notes: "no change if poolAmount == 0... preserve this").
func (v *Vault) RefreshCumulativeFundingRate(_ context.Context, _ currency.Token) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refreshCumulativeFundingRate()
}

// refreshCumulativeFundingRate is the lock-held implementation every
// mutative operation calls at its start (§4.2.2).
func (v *Vault) refreshCumulativeFundingRate() error {
	now := v.now()
	elapsed := now - v.lastRefreshFundingRateTimestamp
	if elapsed < int64(FundingInterval.Seconds()) {
		return nil
	}
	intervals := elapsed / int64(FundingInterval.Seconds())

	if !v.poolAmount.IsZero() {
		step, err := fixedpoint.Mul(v.fundingRateFactor, fixedpoint.New(uint64(intervals)))
		if err != nil {
			return err
		}
		delta, err := fixedpoint.MulDiv(step, v.reservedAmount, v.poolAmount)
		if err != nil {
			return err
		}
		sum, err := fixedpoint.Add(v.cumulativeFundingRate, delta)
		if err != nil {
			return err
		}
		v.cumulativeFundingRate = sum
	}
	// Advances by the full elapsed wall-clock delta even though intervals
	// truncates (§4.2.2): a partial interval beyond the last whole one is
	// dropped, not carried forward.
	v.lastRefreshFundingRateTimestamp = now
	return nil
}

// fundingFee returns size × (cumulativeFundingRate − entryFundingRate) /
// PRECISION, the per-position funding fee owed since entryFundingRate was
// snapshotted. Must be called with v.mu held.
func (v *Vault) fundingFee(size, entryFundingRate *uint256.Int) (*uint256.Int, error) {
	if !fixedpoint.Gte(v.cumulativeFundingRate, entryFundingRate) {
		return fixedpoint.Zero(), nil
	}
	rateDelta, err := fixedpoint.Sub(v.cumulativeFundingRate, entryFundingRate)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulPrecision(size, rateDelta)
}

// positionFee returns size × marginFee / PRECISION.
func (v *Vault) positionFee(size *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.MulPrecision(size, v.marginFee)
}
