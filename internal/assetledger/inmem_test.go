package assetledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstake/staking-engine/internal/types"
)

func TestInMemoryLedgerTransfer(t *testing.T) {
	ctx := t.Context()
	ledger := NewInMemoryLedger("TKN", "pool")
	ledger.Mint("pool", sdkmath.NewInt(100))

	require.NoError(t, ledger.Transfer(ctx, "alice", sdkmath.NewInt(60)))

	balance, err := ledger.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(60), balance)

	err = ledger.Transfer(ctx, "alice", sdkmath.NewInt(41))
	assert.True(t, types.IsInsufficientFundsError(err))

	err = ledger.Transfer(ctx, "alice", sdkmath.NewInt(-1))
	assert.True(t, types.IsInputError(err))
}

func TestInMemoryLedgerTransferFrom(t *testing.T) {
	ctx := t.Context()
	ledger := NewInMemoryLedger("TKN", "pool")
	ledger.Mint("alice", sdkmath.NewInt(100))

	t.Run("requires an allowance for the holder", func(t *testing.T) {
		err := ledger.TransferFrom(ctx, "alice", "pool", sdkmath.NewInt(10))
		assert.True(t, types.IsInsufficientFundsError(err))
	})

	t.Run("consumes the allowance", func(t *testing.T) {
		ledger.Approve("alice", "pool", sdkmath.NewInt(50))

		require.NoError(t, ledger.TransferFrom(ctx, "alice", "pool", sdkmath.NewInt(30)))

		err := ledger.TransferFrom(ctx, "alice", "pool", sdkmath.NewInt(30))
		assert.True(t, types.IsInsufficientFundsError(err))

		require.NoError(t, ledger.TransferFrom(ctx, "alice", "pool", sdkmath.NewInt(20)))

		balance, err := ledger.BalanceOf(ctx, "pool")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewInt(50), balance)
	})

	t.Run("allowance does not cover missing balance", func(t *testing.T) {
		ledger.Approve("alice", "pool", sdkmath.NewInt(1000))
		err := ledger.TransferFrom(ctx, "alice", "pool", sdkmath.NewInt(51))
		assert.True(t, types.IsInsufficientFundsError(err))
	})
}
