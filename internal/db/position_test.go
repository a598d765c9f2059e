//go:build integration

package db

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstake/staking-engine/internal/db/model"
	"github.com/lockstake/staking-engine/internal/staking"
	"github.com/lockstake/staking-engine/internal/types"
	"github.com/lockstake/staking-engine/testutil"
)

func samplePosition(account string) *staking.Position {
	return &staking.Position{
		Account:          account,
		AmountStaked:     sdkmath.NewInt(1000),
		GuaranteedReward: sdkmath.NewInt(1000),
		StoredReward:     sdkmath.NewInt(25),
		LastSettledAt:    1767225600,
		Entries: []staking.StakeEntry{
			{Amount: sdkmath.ZeroInt(), DepositedAt: 1767139200},
			{Amount: sdkmath.NewInt(1000), DepositedAt: 1767225600},
		},
		FirstActive: 1,
	}
}

func TestPositionRoundTrip(t *testing.T) {
	t.Cleanup(func() { resetDatabase(t) })
	ctx := t.Context()

	account := testutil.RandomAccount()
	pos := samplePosition(account)

	require.NoError(t, testDB.UpsertPosition(ctx, model.FromPosition(pos)))

	doc, err := testDB.GetPosition(ctx, account)
	require.NoError(t, err)
	got, err := doc.ToPosition()
	require.NoError(t, err)
	assert.Equal(t, pos.Account, got.Account)
	assert.True(t, got.AmountStaked.Equal(pos.AmountStaked))
	assert.True(t, got.GuaranteedReward.Equal(pos.GuaranteedReward))
	assert.True(t, got.StoredReward.Equal(pos.StoredReward))
	assert.Equal(t, pos.LastSettledAt, got.LastSettledAt)
	assert.Equal(t, pos.FirstActive, got.FirstActive)
	require.Len(t, got.Entries, len(pos.Entries))
	for i := range pos.Entries {
		assert.True(t, got.Entries[i].Amount.Equal(pos.Entries[i].Amount))
		assert.Equal(t, pos.Entries[i].DepositedAt, got.Entries[i].DepositedAt)
	}

	// upsert replaces in place
	pos.StoredReward = sdkmath.NewInt(50)
	require.NoError(t, testDB.UpsertPosition(ctx, model.FromPosition(pos)))

	all, err := testDB.GetAllPositions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "50", all[0].StoredReward)
}

func TestGetPositionNotFound(t *testing.T) {
	ctx := t.Context()

	_, err := testDB.GetPosition(ctx, testutil.RandomAccount())
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestDeletePosition(t *testing.T) {
	t.Cleanup(func() { resetDatabase(t) })
	ctx := t.Context()

	account := testutil.RandomAccount()
	require.NoError(t, testDB.UpsertPosition(ctx, model.FromPosition(samplePosition(account))))
	require.NoError(t, testDB.DeletePosition(ctx, account))

	_, err := testDB.GetPosition(ctx, account)
	assert.True(t, IsNotFoundError(err))
}

func TestTotalsRoundTrip(t *testing.T) {
	t.Cleanup(func() { resetDatabase(t) })
	ctx := t.Context()

	_, err := testDB.GetTotals(ctx)
	assert.True(t, IsNotFoundError(err))

	totals := staking.Totals{
		Staked:           sdkmath.NewInt(1000),
		GuaranteedReward: sdkmath.NewInt(975),
		StoredReward:     sdkmath.NewInt(25),
	}
	require.NoError(t, testDB.SaveTotals(ctx, model.FromTotals(totals)))

	doc, err := testDB.GetTotals(ctx)
	require.NoError(t, err)
	got, err := doc.ToTotals()
	require.NoError(t, err)
	assert.True(t, got.Staked.Equal(totals.Staked))
	assert.True(t, got.GuaranteedReward.Equal(totals.GuaranteedReward))
	assert.True(t, got.StoredReward.Equal(totals.StoredReward))
}

func TestEventLog(t *testing.T) {
	t.Cleanup(func() { resetDatabase(t) })
	ctx := t.Context()

	account := testutil.RandomAccount()
	event := types.Event{
		ID:      "evt-1",
		Type:    types.EventStaked,
		Account: account,
		Amount:  sdkmath.NewInt(1000),
		At:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, testDB.InsertEvent(ctx, model.FromEvent(event)))

	// the _id index makes redelivery idempotent
	err := testDB.InsertEvent(ctx, model.FromEvent(event))
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyError(err))

	later := event
	later.ID = "evt-2"
	later.Type = types.EventUnstaked
	later.At = event.At.Add(time.Hour)
	require.NoError(t, testDB.InsertEvent(ctx, model.FromEvent(later)))

	docs, err := testDB.GetEventsByAccount(ctx, account, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "evt-1", docs[0].ID)
	assert.Equal(t, "evt-2", docs[1].ID)
}
