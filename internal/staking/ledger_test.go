package staking

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstake/staking-engine/internal/assetledger"
	"github.com/lockstake/staking-engine/internal/types"
	"github.com/lockstake/staking-engine/testutil"
)

const poolAccount = "pool"

type testEngine struct {
	ledger  *Ledger
	staking *assetledger.InMemoryLedger
	reward  *assetledger.InMemoryLedger
	clock   *testutil.ManualClock
	sink    *testutil.RecordingSink
}

func newTestEngine(t *testing.T, params Params, poolFunding int64) *testEngine {
	t.Helper()

	e := &testEngine{
		staking: assetledger.NewInMemoryLedger("STK", poolAccount),
		reward:  assetledger.NewInMemoryLedger("RWD", poolAccount),
		clock:   testutil.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		sink:    &testutil.RecordingSink{},
	}
	e.reward.Mint(poolAccount, sdkmath.NewInt(poolFunding))

	ledger, err := New(params, e.staking, e.reward, poolAccount,
		WithClock(e.clock), WithEventSink(e.sink))
	require.NoError(t, err)
	e.ledger = ledger
	return e
}

func (e *testEngine) fund(account string, amount int64) {
	e.staking.Mint(account, sdkmath.NewInt(amount))
	e.staking.Approve(account, poolAccount, sdkmath.NewInt(amount))
}

func (e *testEngine) audit(t *testing.T) {
	t.Helper()
	require.NoError(t, e.ledger.Audit(t.Context()))
}

func TestStakeAccrueClaim(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)

	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.audit(t)

	assert.Equal(t, sdkmath.NewInt(1000), e.ledger.Staked("alice"))
	assert.Equal(t, sdkmath.NewInt(1000), e.ledger.TotalLockedReward())

	e.clock.Advance(365 * 24 * time.Hour)

	claimable, err := e.ledger.RewardClaimable(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), claimable)
	// reads never settle in place
	assert.Equal(t, sdkmath.NewInt(1000), e.ledger.Totals().GuaranteedReward)

	paid, err := e.ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), paid)
	e.audit(t)

	balance, err := e.reward.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), balance)

	events := e.sink.ByType(types.EventRewardPaid)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Account)
	assert.Equal(t, sdkmath.NewInt(1000), events[0].Amount)
}

func TestStakeValidation(t *testing.T) {
	ctx := t.Context()

	t.Run("empty account", func(t *testing.T) {
		e := newTestEngine(t, DefaultParams(), 1000)
		err := e.ledger.Stake(ctx, "", sdkmath.NewInt(100))
		assert.True(t, types.IsInputError(err))
	})

	t.Run("below minimum", func(t *testing.T) {
		params := DefaultParams()
		params.MinStakeAmount = sdkmath.NewInt(50)
		e := newTestEngine(t, params, 1000)
		e.fund("alice", 100)

		err := e.ledger.Stake(ctx, "alice", sdkmath.NewInt(49))
		assert.True(t, types.IsInputError(err))
	})

	t.Run("pool cannot reserve the reward", func(t *testing.T) {
		e := newTestEngine(t, DefaultParams(), 100)
		e.fund("alice", 200)

		err := e.ledger.Stake(ctx, "alice", sdkmath.NewInt(200))
		assert.True(t, types.IsInsufficientFundsError(err))
		assert.True(t, e.ledger.Staked("alice").IsZero())
		e.audit(t)
	})

	t.Run("failed principal pull leaves the engine untouched", func(t *testing.T) {
		e := newTestEngine(t, DefaultParams(), 1000)
		// minted but never approved, so the pull fails
		e.staking.Mint("alice", sdkmath.NewInt(500))

		err := e.ledger.Stake(ctx, "alice", sdkmath.NewInt(500))
		require.Error(t, err)
		assert.True(t, e.ledger.Staked("alice").IsZero())
		assert.Empty(t, e.sink.Events())
		e.audit(t)
	})
}

func TestUnstakeLockPeriod(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)
	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))

	e.clock.Advance(364 * 24 * time.Hour)
	err := e.ledger.Unstake(ctx, "alice", sdkmath.NewInt(1000))
	assert.True(t, types.IsLockedError(err))
	assert.Equal(t, sdkmath.NewInt(1000), e.ledger.Staked("alice"))
	e.audit(t)

	e.clock.Advance(24 * time.Hour)
	require.NoError(t, e.ledger.Unstake(ctx, "alice", sdkmath.NewInt(1000)))
	assert.True(t, e.ledger.Staked("alice").IsZero())
	e.audit(t)

	balance, err := e.staking.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), balance)
}

func TestUnstakeUnknownAccount(t *testing.T) {
	e := newTestEngine(t, DefaultParams(), 1000)
	err := e.ledger.Unstake(t.Context(), "nobody", sdkmath.NewInt(1))
	assert.True(t, types.IsInsufficientFundsError(err))
}

func TestMultiStakerProportionalAccrual(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 25000)
	e.fund("alice", 10000)
	e.fund("bob", 15000)

	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(10000)))
	require.NoError(t, e.ledger.Stake(ctx, "bob", sdkmath.NewInt(15000)))
	e.audit(t)

	// 146/365 of the yield period
	e.clock.Advance(146 * 24 * time.Hour)

	alicePaid, err := e.ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	bobPaid, err := e.ledger.ClaimReward(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(4000), alicePaid)
	assert.Equal(t, sdkmath.NewInt(6000), bobPaid)
	e.audit(t)
}

func TestClaimZeroIsSilent(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)
	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))

	paid, err := e.ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, paid.IsZero())
	assert.Empty(t, e.sink.ByType(types.EventRewardPaid))

	// unknown accounts claim zero the same way
	paid, err = e.ledger.ClaimReward(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, paid.IsZero())
}

func TestReentrantCallIsRejected(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)

	hooked := &testutil.HookedLedger{Inner: e.staking}
	ledger, err := New(DefaultParams(), hooked, e.reward, poolAccount,
		WithClock(e.clock), WithEventSink(e.sink))
	require.NoError(t, err)

	require.NoError(t, ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.clock.Advance(365 * 24 * time.Hour)

	hooked.OnTransfer = func(hookCtx context.Context, to string, amount sdkmath.Int) error {
		_, claimErr := ledger.ClaimReward(hookCtx, "alice")
		return claimErr
	}

	err = ledger.Unstake(ctx, "alice", sdkmath.NewInt(1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOperationInProgress)

	// the rejected call rolled everything back
	assert.Equal(t, sdkmath.NewInt(1000), ledger.Staked("alice"))
	require.NoError(t, ledger.Audit(ctx))

	hooked.OnTransfer = nil
	require.NoError(t, ledger.Unstake(ctx, "alice", sdkmath.NewInt(1000)))
}

func TestUnstakeRollbackOnPayoutFailure(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)

	hooked := &testutil.HookedLedger{Inner: e.staking}
	ledger, err := New(DefaultParams(), hooked, e.reward, poolAccount,
		WithClock(e.clock), WithEventSink(e.sink))
	require.NoError(t, err)

	require.NoError(t, ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.clock.Advance(365 * 24 * time.Hour)

	boom := errors.New("asset ledger is down")
	hooked.OnTransfer = func(context.Context, string, sdkmath.Int) error { return boom }

	err = ledger.Unstake(ctx, "alice", sdkmath.NewInt(1000))
	require.ErrorIs(t, err, boom)

	assert.Equal(t, sdkmath.NewInt(1000), ledger.Staked("alice"))
	assert.Empty(t, e.sink.ByType(types.EventUnstaked))
	require.NoError(t, ledger.Audit(ctx))

	hooked.OnTransfer = nil
	require.NoError(t, ledger.Unstake(ctx, "alice", sdkmath.NewInt(1000)))
	require.NoError(t, ledger.Audit(ctx))
}

func TestClaimRollbackOnPayoutFailure(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)

	hooked := &testutil.HookedLedger{Inner: e.reward}
	ledger, err := New(DefaultParams(), e.staking, hooked, poolAccount,
		WithClock(e.clock), WithEventSink(e.sink))
	require.NoError(t, err)

	require.NoError(t, ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.clock.Advance(365 * 24 * time.Hour)

	boom := errors.New("asset ledger is down")
	hooked.OnTransfer = func(context.Context, string, sdkmath.Int) error { return boom }

	_, err = ledger.ClaimReward(ctx, "alice")
	require.ErrorIs(t, err, boom)
	require.NoError(t, ledger.Audit(ctx))

	hooked.OnTransfer = nil
	paid, err := ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), paid)
}

func TestExit(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 1000)
	e.fund("alice", 1000)

	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.clock.Advance(365 * 24 * time.Hour)

	require.NoError(t, e.ledger.Exit(ctx, "alice"))
	e.audit(t)

	assert.Nil(t, e.ledger.Position("alice"))
	assert.True(t, e.ledger.Staked("alice").IsZero())
	assert.True(t, e.ledger.TotalLockedReward().IsZero())

	stk, err := e.staking.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), stk)
	rwd, err := e.reward.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), rwd)

	events := e.sink.Events()
	require.Len(t, events, 3)
	assert.Equal(t, types.EventStaked, events[0].Type)
	assert.Equal(t, types.EventUnstaked, events[1].Type)
	assert.Equal(t, types.EventRewardPaid, events[2].Type)

	// exiting an unknown account is a no-op
	require.NoError(t, e.ledger.Exit(ctx, "nobody"))
}

func TestDustSweep(t *testing.T) {
	ctx := t.Context()
	params := DefaultParams()
	params.LockPeriod = 24 * time.Hour
	params.DustThreshold = sdkmath.NewInt(10)
	e := newTestEngine(t, params, 2000)
	e.fund("alice", 1000)

	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.clock.Advance(48 * time.Hour)

	// floor(1000*2/365) = 5 accrued; the rest of the guarantee is swept to
	// stored once the remaining principal drops to dust
	require.NoError(t, e.ledger.Unstake(ctx, "alice", sdkmath.NewInt(995)))
	e.audit(t)

	assert.Equal(t, sdkmath.NewInt(5), e.ledger.Staked("alice"))
	assert.True(t, e.ledger.Totals().GuaranteedReward.IsZero())

	paid, err := e.ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1000), paid)
	e.audit(t)
}

func TestSharedAssetAvailability(t *testing.T) {
	ctx := t.Context()
	shared := assetledger.NewInMemoryLedger("TKN", poolAccount)
	shared.Mint(poolAccount, sdkmath.NewInt(1000))
	clock := testutil.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ledger, err := New(DefaultParams(), shared, shared, poolAccount, WithClock(clock))
	require.NoError(t, err)

	shared.Mint("alice", sdkmath.NewInt(600))
	shared.Approve("alice", poolAccount, sdkmath.NewInt(600))
	require.NoError(t, ledger.Stake(ctx, "alice", sdkmath.NewInt(600)))

	// pool now holds 1600, of which 600 is principal and 600 is reserved
	available, err := ledger.AvailableToStakeOrReward(ctx)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(400), available)

	shared.Mint("bob", sdkmath.NewInt(500))
	shared.Approve("bob", poolAccount, sdkmath.NewInt(500))
	err = ledger.Stake(ctx, "bob", sdkmath.NewInt(500))
	assert.True(t, types.IsInsufficientFundsError(err))

	require.NoError(t, ledger.Audit(ctx))
}

func TestAccrualTruncatedByPool(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 100)
	e.fund("alice", 100)

	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(100)))

	// two full yield periods earn 200, but the pool only ever held 100
	e.clock.Advance(2 * 365 * 24 * time.Hour)

	paid, err := e.ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), paid)
	e.audit(t)

	// the truncated part is gone, not deferred
	claimable, err := e.ledger.RewardClaimable(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, claimable.IsZero())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 25000)
	e.fund("alice", 10000)
	e.fund("bob", 15000)
	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(10000)))
	require.NoError(t, e.ledger.Stake(ctx, "bob", sdkmath.NewInt(15000)))
	e.clock.Advance(100 * 24 * time.Hour)
	_, err := e.ledger.ClaimReward(ctx, "alice")
	require.NoError(t, err)

	positions, totals := e.ledger.Snapshot()

	restored, err := New(DefaultParams(), e.staking, e.reward, poolAccount, WithClock(e.clock))
	require.NoError(t, err)
	restored.Restore(positions, totals)

	assert.Equal(t, e.ledger.Staked("alice"), restored.Staked("alice"))
	assert.Equal(t, e.ledger.Staked("bob"), restored.Staked("bob"))
	assert.Equal(t, e.ledger.Totals(), restored.Totals())
	require.NoError(t, restored.Audit(ctx))

	// mutating the restored ledger must not leak into the snapshot source
	e.clock.Advance(365 * 24 * time.Hour)
	require.NoError(t, restored.Unstake(ctx, "bob", sdkmath.NewInt(15000)))
	assert.Equal(t, sdkmath.NewInt(15000), e.ledger.Staked("bob"))
}

func TestStakeSettlesExistingPosition(t *testing.T) {
	ctx := t.Context()
	e := newTestEngine(t, DefaultParams(), 2000)
	e.fund("alice", 2000)

	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.clock.Advance(365 * 24 * time.Hour)

	// the second stake settles the first entry's accrual before reserving
	// for the new principal
	require.NoError(t, e.ledger.Stake(ctx, "alice", sdkmath.NewInt(1000)))
	e.audit(t)

	totals := e.ledger.Totals()
	assert.Equal(t, sdkmath.NewInt(1000), totals.StoredReward)
	assert.Equal(t, sdkmath.NewInt(1000), totals.GuaranteedReward)
	assert.Equal(t, sdkmath.NewInt(2000), totals.Staked)
}
