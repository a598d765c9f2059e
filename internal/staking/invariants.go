package staking

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/types"
)

// VerifyPositions re-derives the aggregates from the given positions and
// cross-checks them against the lock-step totals. Pure; shared by the live
// audit and the offline audit command.
func VerifyPositions(positions []*Position, totals Totals) error {
	staked := sdkmath.ZeroInt()
	guaranteed := sdkmath.ZeroInt()
	stored := sdkmath.ZeroInt()

	for _, pos := range positions {
		if pos.AmountStaked.IsNegative() || pos.GuaranteedReward.IsNegative() || pos.StoredReward.IsNegative() {
			return types.NewInvariantViolationError(
				"position %s has a negative field: staked=%s guaranteed=%s stored=%s",
				pos.Account, pos.AmountStaked, pos.GuaranteedReward, pos.StoredReward,
			)
		}

		entrySum := sdkmath.ZeroInt()
		for i, entry := range pos.Entries {
			if i < pos.FirstActive && !entry.Amount.IsZero() {
				return types.NewInvariantViolationError(
					"position %s has a live entry %d behind the first-active cursor %d",
					pos.Account, i, pos.FirstActive,
				)
			}
			if entry.Amount.IsNegative() {
				return types.NewInvariantViolationError(
					"position %s entry %d has negative amount %s", pos.Account, i, entry.Amount,
				)
			}
			entrySum = entrySum.Add(entry.Amount)
		}
		if !entrySum.Equal(pos.AmountStaked) {
			return types.NewInvariantViolationError(
				"position %s entry sum %s does not match staked %s",
				pos.Account, entrySum, pos.AmountStaked,
			)
		}

		staked = staked.Add(pos.AmountStaked)
		guaranteed = guaranteed.Add(pos.GuaranteedReward)
		stored = stored.Add(pos.StoredReward)
	}

	if !staked.Equal(totals.Staked) {
		return types.NewInvariantViolationError(
			"total staked %s does not match per-position sum %s", totals.Staked, staked,
		)
	}
	if !guaranteed.Equal(totals.GuaranteedReward) {
		return types.NewInvariantViolationError(
			"total guaranteed reward %s does not match per-position sum %s",
			totals.GuaranteedReward, guaranteed,
		)
	}
	if !stored.Equal(totals.StoredReward) {
		return types.NewInvariantViolationError(
			"total stored reward %s does not match per-position sum %s",
			totals.StoredReward, stored,
		)
	}

	return nil
}

// Audit runs VerifyPositions over the live state plus the solvency bound
// against the reward pool balance. It iterates all positions, so it belongs
// in tests, the audit command and the background poller, never on the hot
// path.
func (l *Ledger) Audit(ctx context.Context) error {
	balance, err := l.rewardBalance(ctx)
	if err != nil {
		return fmt.Errorf("audit cannot read pool balance: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make([]*Position, 0, len(l.store.positions))
	for _, account := range l.store.accounts() {
		positions = append(positions, l.store.get(account))
	}
	if err := VerifyPositions(positions, l.totals); err != nil {
		return err
	}

	committed := l.totals.LockedReward()
	if l.sharedAsset {
		committed = committed.Add(l.totals.Staked)
	}
	if balance.LT(committed) {
		return types.NewInvariantViolationError(
			"pool balance %s cannot cover committed %s", balance, committed,
		)
	}

	return nil
}
