package staking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lockstake/staking-engine/internal/assetledger"
	"github.com/lockstake/staking-engine/internal/observability/metrics"
	"github.com/lockstake/staking-engine/internal/types"
)

// Totals are the global aggregates, mutated in lock-step with the per-user
// fields they mirror and never re-derived on the hot path.
type Totals struct {
	Staked           sdkmath.Int
	GuaranteedReward sdkmath.Int
	StoredReward     sdkmath.Int
}

func NewTotals() Totals {
	return Totals{
		Staked:           sdkmath.ZeroInt(),
		GuaranteedReward: sdkmath.ZeroInt(),
		StoredReward:     sdkmath.ZeroInt(),
	}
}

// LockedReward is all reward the pool is committed to paying out.
func (t Totals) LockedReward() sdkmath.Int {
	return t.GuaranteedReward.Add(t.StoredReward)
}

// Ledger is the staking accounting engine. It owns every position and the
// global aggregates, settles accrual lazily before any touch, and moves
// funds through the external asset ledgers only after its internal state is
// final for the operation.
//
// Mutating operations run strictly one at a time: a second mutating call
// arriving while one is in flight — a reentrant callback from an asset
// transfer included — is rejected with types.ErrOperationInProgress. Reads
// never mutate and are not guarded.
type Ledger struct {
	params       Params
	clock        Clock
	sink         EventSink
	stakingAsset assetledger.Ledger
	rewardAsset  assetledger.Ledger
	poolAccount  string
	sharedAsset  bool

	// busy is the per-call guard: held for the entire mutating operation,
	// external transfers included.
	busy atomic.Bool

	mu     sync.Mutex
	store  *positionStore
	totals Totals
}

type Option func(*Ledger)

func WithClock(clock Clock) Option {
	return func(l *Ledger) { l.clock = clock }
}

func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) { l.sink = sink }
}

func New(
	params Params,
	stakingAsset assetledger.Ledger,
	rewardAsset assetledger.Ledger,
	poolAccount string,
	opts ...Option,
) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid staking params: %w", err)
	}
	if stakingAsset == nil || rewardAsset == nil {
		return nil, errors.New("both asset ledgers are required")
	}
	if poolAccount == "" {
		return nil, errors.New("pool account is required")
	}

	l := &Ledger{
		params:       params,
		clock:        SystemClock(),
		sink:         noopSink{},
		stakingAsset: stakingAsset,
		rewardAsset:  rewardAsset,
		poolAccount:  poolAccount,
		sharedAsset:  stakingAsset.AssetID() == rewardAsset.AssetID(),
		store:        newPositionStore(),
		totals:       NewTotals(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Stake pulls amount of the staking asset from the account and opens a new
// stake entry. The reward reserve for the new principal must be coverable
// by uncommitted pool funds before the pull happens.
func (l *Ledger) Stake(ctx context.Context, account string, amount sdkmath.Int) (err error) {
	defer l.recordOp("stake", time.Now(), &err)
	if err = l.begin(); err != nil {
		return err
	}
	defer l.end()

	if account == "" {
		return types.NewInputError("account is required")
	}
	if amount.IsNil() || amount.LT(l.params.MinStakeAmount) {
		return types.NewInputError(
			"stake amount %s is below the minimum %s", amount, l.params.MinStakeAmount,
		)
	}

	balance, err := l.rewardBalance(ctx)
	if err != nil {
		return err
	}
	now := l.clock.Now().Unix()
	reserve := l.params.rewardReserve(amount)

	l.mu.Lock()
	if pos := l.store.get(account); pos != nil {
		l.settleLocked(ctx, pos, now, l.availableToRewardLocked(balance))
	}
	available := l.availableToRewardLocked(balance)
	l.mu.Unlock()

	if available.LT(reserve) {
		return types.NewInsufficientFundsError(
			"reward pool has %s uncommitted, cannot reserve %s", available, reserve,
		)
	}

	// Pull the principal before any state is written; a failed pull leaves
	// the engine untouched.
	if err := l.stakingAsset.TransferFrom(ctx, account, l.poolAccount, amount); err != nil {
		return fmt.Errorf("staking asset pull failed: %w", err)
	}

	l.mu.Lock()
	pos := l.store.getOrCreate(account)
	if pos.LastSettledAt == 0 {
		pos.LastSettledAt = now
	}
	pos.Entries = append(pos.Entries, StakeEntry{Amount: amount, DepositedAt: now})
	pos.AmountStaked = pos.AmountStaked.Add(amount)
	pos.GuaranteedReward = pos.GuaranteedReward.Add(reserve)
	l.totals.Staked = l.totals.Staked.Add(amount)
	l.totals.GuaranteedReward = l.totals.GuaranteedReward.Add(reserve)
	l.mu.Unlock()

	l.emit(ctx, types.EventStaked, account, amount, now)
	return nil
}

// Unstake returns amount of the staking asset to the account, consuming the
// oldest unlocked entries first. A single still-locked entry in the scan
// aborts the whole call.
func (l *Ledger) Unstake(ctx context.Context, account string, amount sdkmath.Int) (err error) {
	defer l.recordOp("unstake", time.Now(), &err)
	if err = l.begin(); err != nil {
		return err
	}
	defer l.end()

	return l.unstake(ctx, account, amount)
}

func (l *Ledger) unstake(ctx context.Context, account string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.NewInputError("unstake amount must be positive")
	}

	balance, err := l.rewardBalance(ctx)
	if err != nil {
		return err
	}
	now := l.clock.Now().Unix()
	lockSeconds := int64(l.params.LockPeriod / time.Second)

	l.mu.Lock()
	pos := l.store.get(account)
	if pos == nil {
		l.mu.Unlock()
		return types.NewInsufficientFundsError("account %s has nothing staked", account)
	}
	l.settleLocked(ctx, pos, now, l.availableToRewardLocked(balance))

	// Work on a copy so a locked entry mid-scan or a failed payout leaves
	// the settled position intact.
	work := pos.Clone()
	if err := work.consume(amount, now, lockSeconds); err != nil {
		l.mu.Unlock()
		return err
	}
	totalsBefore := l.totals
	l.totals.Staked = l.totals.Staked.Sub(amount)

	// Principal at or under dust cannot earn its remaining guarantee;
	// convert it to stored reward now instead of stranding it.
	if work.AmountStaked.LTE(l.params.DustThreshold) ||
		work.GuaranteedReward.LTE(l.params.DustThreshold) {
		swept := work.GuaranteedReward
		if swept.IsPositive() {
			work.StoredReward = work.StoredReward.Add(swept)
			work.GuaranteedReward = sdkmath.ZeroInt()
			l.totals.StoredReward = l.totals.StoredReward.Add(swept)
			l.totals.GuaranteedReward = l.totals.GuaranteedReward.Sub(swept)
		}
	}
	l.store.put(work)
	l.mu.Unlock()

	if err := l.stakingAsset.Transfer(ctx, account, amount); err != nil {
		l.mu.Lock()
		l.store.put(pos)
		l.totals = totalsBefore
		l.mu.Unlock()
		return fmt.Errorf("staking asset payout failed: %w", err)
	}

	l.emit(ctx, types.EventUnstaked, account, amount, now)
	return nil
}

// ClaimReward pays out the account's stored reward. A zero claim is a
// silent no-op: no transfer, no event.
func (l *Ledger) ClaimReward(ctx context.Context, account string) (paid sdkmath.Int, err error) {
	defer l.recordOp("claim_reward", time.Now(), &err)
	if err = l.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer l.end()

	return l.claim(ctx, account)
}

// ClaimRewardFor is the privileged variant triggering a claim on behalf of
// another account. Authorization is the caller's concern; the payout still
// goes to the position's owner.
func (l *Ledger) ClaimRewardFor(ctx context.Context, account string) (paid sdkmath.Int, err error) {
	defer l.recordOp("claim_reward_for", time.Now(), &err)
	if err = l.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer l.end()

	return l.claim(ctx, account)
}

func (l *Ledger) claim(ctx context.Context, account string) (sdkmath.Int, error) {
	balance, err := l.rewardBalance(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	now := l.clock.Now().Unix()

	l.mu.Lock()
	pos := l.store.get(account)
	if pos == nil {
		l.mu.Unlock()
		return sdkmath.ZeroInt(), nil
	}
	l.settleLocked(ctx, pos, now, l.availableToRewardLocked(balance))

	amount := pos.StoredReward
	if amount.IsZero() {
		l.mu.Unlock()
		return sdkmath.ZeroInt(), nil
	}
	pos.StoredReward = sdkmath.ZeroInt()
	l.totals.StoredReward = l.totals.StoredReward.Sub(amount)
	l.mu.Unlock()

	if err := l.rewardAsset.Transfer(ctx, account, amount); err != nil {
		l.mu.Lock()
		pos.StoredReward = amount
		l.totals.StoredReward = l.totals.StoredReward.Add(amount)
		l.mu.Unlock()
		return sdkmath.ZeroInt(), fmt.Errorf("reward payout failed: %w", err)
	}

	l.emit(ctx, types.EventRewardPaid, account, amount, now)
	return amount, nil
}

// Exit unstakes the full principal if there is any, claims the reward, and
// clears the position record. Each step is atomic on its own; a failed
// reward payout leaves the completed unstake committed and the reward still
// claimable.
func (l *Ledger) Exit(ctx context.Context, account string) (err error) {
	defer l.recordOp("exit", time.Now(), &err)
	if err = l.begin(); err != nil {
		return err
	}
	defer l.end()

	l.mu.Lock()
	pos := l.store.get(account)
	if pos == nil {
		l.mu.Unlock()
		return nil
	}
	staked := pos.AmountStaked
	l.mu.Unlock()

	if staked.IsPositive() {
		if err := l.unstake(ctx, account, staked); err != nil {
			return err
		}
	}
	if _, err := l.claim(ctx, account); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	pos = l.store.get(account)
	if pos == nil {
		return nil
	}
	if !pos.AmountStaked.IsZero() || !pos.GuaranteedReward.IsZero() || !pos.StoredReward.IsZero() {
		return types.NewInvariantViolationError(
			"position %s not empty after exit: staked=%s guaranteed=%s stored=%s",
			account, pos.AmountStaked, pos.GuaranteedReward, pos.StoredReward,
		)
	}
	l.store.delete(account)
	return nil
}

// Staked returns the account's live principal.
func (l *Ledger) Staked(account string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.store.get(account)
	if pos == nil {
		return sdkmath.ZeroInt()
	}
	return pos.AmountStaked
}

// RewardClaimable returns what a claim at this instant would pay, running
// the settlement math on a copy so reading stays side-effect-free.
func (l *Ledger) RewardClaimable(ctx context.Context, account string) (sdkmath.Int, error) {
	balance, err := l.rewardBalance(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	now := l.clock.Now().Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.store.get(account)
	if pos == nil {
		return sdkmath.ZeroInt(), nil
	}
	work := pos.Clone()
	settle(work, now, l.params, l.availableToRewardLocked(balance))
	return work.StoredReward, nil
}

// AvailableToStakeOrReward returns the pool funds not committed to
// guaranteed or stored reward, nor held as principal when the staking and
// reward assets coincide.
func (l *Ledger) AvailableToStakeOrReward(ctx context.Context) (sdkmath.Int, error) {
	balance, err := l.rewardBalance(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableToRewardLocked(balance), nil
}

// TotalLockedReward is all reward committed to users, guaranteed plus
// stored.
func (l *Ledger) TotalLockedReward() sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals.LockedReward()
}

func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

func (l *Ledger) Params() Params {
	return l.params
}

// Position returns a copy of the account's position, nil when none exists.
func (l *Ledger) Position(account string) *Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.store.get(account)
	if pos == nil {
		return nil
	}
	return pos.Clone()
}

// Snapshot returns deep copies of every position plus the totals, ordered
// by account.
func (l *Ledger) Snapshot() ([]*Position, Totals) {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make([]*Position, 0, len(l.store.positions))
	for _, account := range l.store.accounts() {
		positions = append(positions, l.store.get(account).Clone())
	}
	return positions, l.totals
}

// Restore replaces the ledger state wholesale. Startup rehydration only.
func (l *Ledger) Restore(positions []*Position, totals Totals) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store = newPositionStore()
	for _, pos := range positions {
		l.store.put(pos.Clone())
	}
	l.totals = totals
}

func (l *Ledger) begin() error {
	if !l.busy.CompareAndSwap(false, true) {
		return types.ErrOperationInProgress
	}
	return nil
}

func (l *Ledger) end() {
	l.busy.Store(false)
}

func (l *Ledger) rewardBalance(ctx context.Context) (sdkmath.Int, error) {
	balance, err := l.rewardAsset.BalanceOf(ctx, l.poolAccount)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read reward pool balance: %w", err)
	}
	return balance, nil
}

func (l *Ledger) availableToRewardLocked(balance sdkmath.Int) sdkmath.Int {
	available := balance.Sub(l.totals.LockedReward())
	if l.sharedAsset {
		available = available.Sub(l.totals.Staked)
	}
	if available.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return available
}

func (l *Ledger) settleLocked(ctx context.Context, pos *Position, now int64, available sdkmath.Int) {
	out := settle(pos, now, l.params, available)
	l.totals.StoredReward = l.totals.StoredReward.Add(out.accrued)
	l.totals.GuaranteedReward = l.totals.GuaranteedReward.Sub(out.fromGuaranteed)
	if out.truncated.IsPositive() {
		log.Ctx(ctx).Debug().
			Str("account", pos.Account).
			Stringer("truncated", out.truncated).
			Msg("accrual truncated, reward pool underfunded")
	}
}

func (l *Ledger) emit(ctx context.Context, eventType types.EventType, account string, amount sdkmath.Int, at int64) {
	l.sink.Emit(ctx, types.Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Account: account,
		Amount:  amount,
		At:      time.Unix(at, 0).UTC(),
	})
}

func (l *Ledger) recordOp(op string, start time.Time, err *error) {
	metrics.RecordStakingOpDuration(time.Since(start), op, *err != nil)
}
