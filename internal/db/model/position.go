package model

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/staking"
)

const (
	PositionCollection = "positions"
	TotalsCollection   = "totals"

	// TotalsDocID keys the single totals document.
	TotalsDocID = "totals"
)

type StakeEntryDocument struct {
	Amount      string `bson:"amount"`
	DepositedAt int64  `bson:"deposited_at"`
}

// PositionDocument snapshots a staking.Position. Amounts are stored as
// decimal strings; BSON integers cap at 64 bits.
type PositionDocument struct {
	Account          string               `bson:"_id"`
	AmountStaked     string               `bson:"amount_staked"`
	GuaranteedReward string               `bson:"guaranteed_reward"`
	StoredReward     string               `bson:"stored_reward"`
	LastSettledAt    int64                `bson:"last_settled_at"`
	Entries          []StakeEntryDocument `bson:"entries"`
	FirstActive      int                  `bson:"first_active"`
}

func FromPosition(pos *staking.Position) *PositionDocument {
	entries := make([]StakeEntryDocument, len(pos.Entries))
	for i, entry := range pos.Entries {
		entries[i] = StakeEntryDocument{
			Amount:      entry.Amount.String(),
			DepositedAt: entry.DepositedAt,
		}
	}
	return &PositionDocument{
		Account:          pos.Account,
		AmountStaked:     pos.AmountStaked.String(),
		GuaranteedReward: pos.GuaranteedReward.String(),
		StoredReward:     pos.StoredReward.String(),
		LastSettledAt:    pos.LastSettledAt,
		Entries:          entries,
		FirstActive:      pos.FirstActive,
	}
}

func (d *PositionDocument) ToPosition() (*staking.Position, error) {
	amountStaked, err := parseAmount(d.AmountStaked)
	if err != nil {
		return nil, fmt.Errorf("position %s: bad amount_staked: %w", d.Account, err)
	}
	guaranteed, err := parseAmount(d.GuaranteedReward)
	if err != nil {
		return nil, fmt.Errorf("position %s: bad guaranteed_reward: %w", d.Account, err)
	}
	stored, err := parseAmount(d.StoredReward)
	if err != nil {
		return nil, fmt.Errorf("position %s: bad stored_reward: %w", d.Account, err)
	}

	entries := make([]staking.StakeEntry, len(d.Entries))
	for i, entry := range d.Entries {
		amount, err := parseAmount(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("position %s: bad entry %d amount: %w", d.Account, i, err)
		}
		entries[i] = staking.StakeEntry{Amount: amount, DepositedAt: entry.DepositedAt}
	}

	return &staking.Position{
		Account:          d.Account,
		AmountStaked:     amountStaked,
		GuaranteedReward: guaranteed,
		StoredReward:     stored,
		LastSettledAt:    d.LastSettledAt,
		Entries:          entries,
		FirstActive:      d.FirstActive,
	}, nil
}

type TotalsDocument struct {
	ID               string `bson:"_id"`
	Staked           string `bson:"staked"`
	GuaranteedReward string `bson:"guaranteed_reward"`
	StoredReward     string `bson:"stored_reward"`
}

func FromTotals(totals staking.Totals) *TotalsDocument {
	return &TotalsDocument{
		ID:               TotalsDocID,
		Staked:           totals.Staked.String(),
		GuaranteedReward: totals.GuaranteedReward.String(),
		StoredReward:     totals.StoredReward.String(),
	}
}

func (d *TotalsDocument) ToTotals() (staking.Totals, error) {
	staked, err := parseAmount(d.Staked)
	if err != nil {
		return staking.Totals{}, fmt.Errorf("totals: bad staked: %w", err)
	}
	guaranteed, err := parseAmount(d.GuaranteedReward)
	if err != nil {
		return staking.Totals{}, fmt.Errorf("totals: bad guaranteed_reward: %w", err)
	}
	stored, err := parseAmount(d.StoredReward)
	if err != nil {
		return staking.Totals{}, fmt.Errorf("totals: bad stored_reward: %w", err)
	}
	return staking.Totals{
		Staked:           staked,
		GuaranteedReward: guaranteed,
		StoredReward:     stored,
	}, nil
}

func parseAmount(s string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%q is not a valid integer amount", s)
	}
	return amount, nil
}
