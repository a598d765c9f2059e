package testutil

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/assetledger"
)

// HookedLedger wraps an asset ledger with per-method hooks. A hook returning
// a non-nil error short-circuits the call, which makes it a failure injector;
// a hook calling back into the engine makes it a reentrancy probe.
type HookedLedger struct {
	Inner assetledger.Ledger

	OnBalanceOf    func(ctx context.Context, account string) error
	OnTransfer     func(ctx context.Context, to string, amount sdkmath.Int) error
	OnTransferFrom func(ctx context.Context, from, to string, amount sdkmath.Int) error
}

func (l *HookedLedger) AssetID() string {
	return l.Inner.AssetID()
}

func (l *HookedLedger) BalanceOf(ctx context.Context, account string) (sdkmath.Int, error) {
	if l.OnBalanceOf != nil {
		if err := l.OnBalanceOf(ctx, account); err != nil {
			return sdkmath.ZeroInt(), err
		}
	}
	return l.Inner.BalanceOf(ctx, account)
}

func (l *HookedLedger) Transfer(ctx context.Context, to string, amount sdkmath.Int) error {
	if l.OnTransfer != nil {
		if err := l.OnTransfer(ctx, to, amount); err != nil {
			return err
		}
	}
	return l.Inner.Transfer(ctx, to, amount)
}

func (l *HookedLedger) TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error {
	if l.OnTransferFrom != nil {
		if err := l.OnTransferFrom(ctx, from, to, amount); err != nil {
			return err
		}
	}
	return l.Inner.TransferFrom(ctx, from, to, amount)
}
