package config

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/staking"
)

const (
	defaultLockPeriod  = 365 * 24 * time.Hour
	defaultYieldPeriod = 365 * 24 * time.Hour
)

// StakingConfig carries the staking terms plus the asset wiring. Amounts
// are decimal strings in base units so very large balances survive YAML.
type StakingConfig struct {
	LockPeriod             time.Duration `mapstructure:"lock-period"`
	YieldPeriod            time.Duration `mapstructure:"yield-period"`
	MinStakeAmount         string        `mapstructure:"min-stake-amount"`
	DustThreshold          string        `mapstructure:"dust-threshold"`
	RewardRatioNumerator   uint64        `mapstructure:"reward-ratio-numerator"`
	RewardRatioDenominator uint64        `mapstructure:"reward-ratio-denominator"`
	StakingAssetID         string        `mapstructure:"staking-asset-id"`
	RewardAssetID          string        `mapstructure:"reward-asset-id"`
	PoolAccount            string        `mapstructure:"pool-account"`
	// RewardPoolFunding seeds the pool's reward balance in local mode.
	RewardPoolFunding string `mapstructure:"reward-pool-funding"`
}

func DefaultStakingConfig() StakingConfig {
	return StakingConfig{
		LockPeriod:             defaultLockPeriod,
		YieldPeriod:            defaultYieldPeriod,
		MinStakeAmount:         "1",
		DustThreshold:          "0",
		RewardRatioNumerator:   1,
		RewardRatioDenominator: 1,
	}
}

func (cfg *StakingConfig) Validate() error {
	if cfg.PoolAccount == "" {
		return errors.New("pool-account is required")
	}
	if cfg.StakingAssetID == "" || cfg.RewardAssetID == "" {
		return errors.New("staking-asset-id and reward-asset-id are required")
	}
	if cfg.RewardPoolFunding != "" {
		if _, err := parseAmount(cfg.RewardPoolFunding); err != nil {
			return fmt.Errorf("invalid reward-pool-funding: %w", err)
		}
	}
	params, err := cfg.ToParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

func (cfg *StakingConfig) ToParams() (staking.Params, error) {
	minStake, err := parseAmount(cfg.MinStakeAmount)
	if err != nil {
		return staking.Params{}, fmt.Errorf("invalid min-stake-amount: %w", err)
	}
	dust, err := parseAmount(cfg.DustThreshold)
	if err != nil {
		return staking.Params{}, fmt.Errorf("invalid dust-threshold: %w", err)
	}

	return staking.Params{
		LockPeriod:             cfg.LockPeriod,
		YieldPeriod:            cfg.YieldPeriod,
		MinStakeAmount:         minStake,
		DustThreshold:          dust,
		RewardRatioNumerator:   cfg.RewardRatioNumerator,
		RewardRatioDenominator: cfg.RewardRatioDenominator,
	}, nil
}

func parseAmount(s string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%q is not a valid integer amount", s)
	}
	return amount, nil
}
