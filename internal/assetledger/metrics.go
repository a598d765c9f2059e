package assetledger

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/observability/metrics"
)

// LedgerWithMetrics decorates a Ledger recording per-method latency and
// outcome.
type LedgerWithMetrics struct {
	ledger Ledger
}

func NewLedgerWithMetrics(ledger Ledger) *LedgerWithMetrics {
	return &LedgerWithMetrics{ledger: ledger}
}

func (l *LedgerWithMetrics) AssetID() string {
	return l.ledger.AssetID()
}

func (l *LedgerWithMetrics) BalanceOf(ctx context.Context, account string) (result sdkmath.Int, err error) {
	//nolint:errcheck
	l.run("BalanceOf", func() error {
		result, err = l.ledger.BalanceOf(ctx, account)
		return err
	})

	return
}

func (l *LedgerWithMetrics) Transfer(ctx context.Context, to string, amount sdkmath.Int) error {
	return l.run("Transfer", func() error {
		return l.ledger.Transfer(ctx, to, amount)
	})
}

func (l *LedgerWithMetrics) TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) error {
	return l.run("TransferFrom", func() error {
		return l.ledger.TransferFrom(ctx, from, to, amount)
	})
}

func (l *LedgerWithMetrics) run(method string, f func() error) error {
	start := time.Now()
	err := f()
	metrics.RecordAssetLedgerLatency(time.Since(start), l.ledger.AssetID(), method, err != nil)

	return err
}
