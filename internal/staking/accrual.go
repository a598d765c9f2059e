package staking

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// accruedReward is the linear accrual formula: principal earns
// ratio-numerator/ratio-denominator of itself per yield period, pro rata by
// elapsed seconds, floored.
func accruedReward(staked sdkmath.Int, elapsedSeconds int64, p Params) sdkmath.Int {
	if elapsedSeconds <= 0 || !staked.IsPositive() {
		return sdkmath.ZeroInt()
	}
	numerator := staked.
		MulRaw(elapsedSeconds).
		MulRaw(int64(p.RewardRatioNumerator))
	denominator := int64(p.YieldPeriod/time.Second) * int64(p.RewardRatioDenominator)
	return numerator.QuoRaw(denominator)
}

type settlement struct {
	// accrued is what was added to the stored reward.
	accrued sdkmath.Int
	// fromGuaranteed is the part of accrued taken out of the guaranteed
	// reserve; the remainder is bonus paid from uncommitted pool funds.
	fromGuaranteed sdkmath.Int
	// truncated is accrual dropped because neither the reserve nor the
	// uncommitted pool funds could cover it. Dropped permanently.
	truncated sdkmath.Int
}

// settle folds the reward earned since the last settlement into the
// position. available bounds any accrual beyond the guaranteed reserve and
// must be the pool's uncommitted reward funds at the settlement instant.
//
// Every read or mutation of the position's reward fields must run a settle
// first; accrual is lazy, there is no background job.
func settle(pos *Position, now int64, p Params, available sdkmath.Int) settlement {
	out := settlement{
		accrued:        sdkmath.ZeroInt(),
		fromGuaranteed: sdkmath.ZeroInt(),
		truncated:      sdkmath.ZeroInt(),
	}
	if pos.LastSettledAt == 0 || pos.LastSettledAt == now {
		pos.LastSettledAt = now
		return out
	}

	accrued := accruedReward(pos.AmountStaked, now-pos.LastSettledAt, p)
	if accrued.GT(pos.GuaranteedReward) {
		excess := accrued.Sub(pos.GuaranteedReward)
		if excess.GT(available) {
			out.truncated = excess.Sub(available)
			accrued = pos.GuaranteedReward.Add(available)
		}
	}

	out.accrued = accrued
	out.fromGuaranteed = sdkmath.MinInt(accrued, pos.GuaranteedReward)
	pos.StoredReward = pos.StoredReward.Add(accrued)
	pos.GuaranteedReward = pos.GuaranteedReward.Sub(out.fromGuaranteed)
	pos.LastSettledAt = now
	return out
}
