package assetledger

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// Ledger is the external asset ledger the engine moves funds through. The
// engine treats a returned error from Transfer/TransferFrom as a failed
// transfer and aborts the whole calling operation; there are no retries.
//
// Transfer moves funds out of the engine's pool account. TransferFrom pulls
// funds from a third account using an allowance previously granted to the
// pool account.
type Ledger interface {
	AssetID() string
	BalanceOf(ctx context.Context, account string) (sdkmath.Int, error)
	Transfer(ctx context.Context, to string, amount sdkmath.Int) error
	TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error
}
