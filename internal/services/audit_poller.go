package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/observability/metrics"
	"github.com/lockstake/staking-engine/internal/utils/poller"
)

// StartAuditPoller runs the invariant audit on an interval and exports the
// result plus the global aggregates. Blocks until ctx is done.
func (s *Service) StartAuditPoller(ctx context.Context) {
	auditPoller := poller.NewPoller(
		s.cfg.Audit.PollingInterval,
		s.runAudit,
	)
	auditPoller.Start(ctx)
}

func (s *Service) runAudit(ctx context.Context) error {
	start := time.Now()
	err := s.ledger.Audit(ctx)
	metrics.RecordAuditPass(time.Since(start), err != nil)

	totals := s.ledger.Totals()
	metrics.RecordTotals(
		intToFloat(totals.Staked),
		intToFloat(totals.GuaranteedReward),
		intToFloat(totals.StoredReward),
	)

	if err != nil {
		return fmt.Errorf("invariant audit failed: %w", err)
	}
	return nil
}

func intToFloat(i sdkmath.Int) float64 {
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}
