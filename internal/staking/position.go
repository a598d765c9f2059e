package staking

import (
	"sort"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/types"
)

// StakeEntry is one deposit. Entries are never merged and never removed;
// an entry consumed by unstake is zeroed in place and skipped afterwards.
type StakeEntry struct {
	Amount      sdkmath.Int
	DepositedAt int64
}

// Position is the per-account state. AmountStaked always equals the sum of
// live entry amounts; everything before FirstActive is zeroed.
type Position struct {
	Account          string
	AmountStaked     sdkmath.Int
	GuaranteedReward sdkmath.Int
	StoredReward     sdkmath.Int
	LastSettledAt    int64
	Entries          []StakeEntry
	FirstActive      int
}

func NewPosition(account string) *Position {
	return &Position{
		Account:          account,
		AmountStaked:     sdkmath.ZeroInt(),
		GuaranteedReward: sdkmath.ZeroInt(),
		StoredReward:     sdkmath.ZeroInt(),
	}
}

func (p *Position) Clone() *Position {
	clone := *p
	clone.Entries = make([]StakeEntry, len(p.Entries))
	copy(clone.Entries, p.Entries)
	return &clone
}

// consume takes amount out of the entry list, oldest first. Any touched
// entry still inside its lock period aborts the whole call; there is no
// partial unstake by per-entry eligibility. The caller is responsible for
// discarding the position on error (consume mutates as it scans).
func (p *Position) consume(amount sdkmath.Int, now, lockSeconds int64) error {
	remaining := amount
	for i := p.FirstActive; i < len(p.Entries) && remaining.IsPositive(); i++ {
		entry := &p.Entries[i]
		if entry.Amount.IsZero() {
			continue
		}
		if now-entry.DepositedAt < lockSeconds {
			return &types.LockedError{
				UnlocksAt: entry.DepositedAt + lockSeconds,
				Message:   "staked entry is still locked",
			}
		}
		take := sdkmath.MinInt(entry.Amount, remaining)
		entry.Amount = entry.Amount.Sub(take)
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return types.NewInsufficientFundsError(
			"staked %s is less than requested %s", p.AmountStaked, amount,
		)
	}
	p.AmountStaked = p.AmountStaked.Sub(amount)
	p.advanceFirstActive()
	return nil
}

func (p *Position) advanceFirstActive() {
	for p.FirstActive < len(p.Entries) && p.Entries[p.FirstActive].Amount.IsZero() {
		p.FirstActive++
	}
}

type positionStore struct {
	positions map[string]*Position
}

func newPositionStore() *positionStore {
	return &positionStore{positions: make(map[string]*Position)}
}

func (s *positionStore) get(account string) *Position {
	return s.positions[account]
}

func (s *positionStore) getOrCreate(account string) *Position {
	if pos, ok := s.positions[account]; ok {
		return pos
	}
	pos := NewPosition(account)
	s.positions[account] = pos
	return pos
}

func (s *positionStore) put(pos *Position) {
	s.positions[pos.Account] = pos
}

func (s *positionStore) delete(account string) {
	delete(s.positions, account)
}

func (s *positionStore) accounts() []string {
	accounts := make([]string, 0, len(s.positions))
	for account := range s.positions {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}
