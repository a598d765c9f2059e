package staking

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

const (
	defaultLockPeriod  = 365 * 24 * time.Hour
	defaultYieldPeriod = 365 * 24 * time.Hour
)

// Params are the fixed staking terms. The reward ratio is a fixed-point
// fraction applied over the yield period: with the default 1/1 a position
// earns its full principal as reward after one yield period (100% APY).
type Params struct {
	LockPeriod             time.Duration
	YieldPeriod            time.Duration
	MinStakeAmount         sdkmath.Int
	DustThreshold          sdkmath.Int
	RewardRatioNumerator   uint64
	RewardRatioDenominator uint64
}

func DefaultParams() Params {
	return Params{
		LockPeriod:             defaultLockPeriod,
		YieldPeriod:            defaultYieldPeriod,
		MinStakeAmount:         sdkmath.NewInt(1),
		DustThreshold:          sdkmath.ZeroInt(),
		RewardRatioNumerator:   1,
		RewardRatioDenominator: 1,
	}
}

func (p Params) Validate() error {
	if p.LockPeriod <= 0 {
		return errors.New("lock period must be positive")
	}
	if p.YieldPeriod < time.Second {
		return errors.New("yield period must be at least one second")
	}
	if p.MinStakeAmount.IsNil() || !p.MinStakeAmount.IsPositive() {
		return errors.New("minimum stake amount must be positive")
	}
	if p.DustThreshold.IsNil() || p.DustThreshold.IsNegative() {
		return errors.New("dust threshold must not be negative")
	}
	if p.RewardRatioNumerator == 0 || p.RewardRatioDenominator == 0 {
		return fmt.Errorf("reward ratio %d/%d must have nonzero terms",
			p.RewardRatioNumerator, p.RewardRatioDenominator)
	}
	return nil
}

// rewardReserve is the reward guaranteed to newly staked principal over a
// full yield period. Equal to the principal at the default 1/1 ratio.
func (p Params) rewardReserve(amount sdkmath.Int) sdkmath.Int {
	return amount.
		MulRaw(int64(p.RewardRatioNumerator)).
		QuoRaw(int64(p.RewardRatioDenominator))
}
