package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lockstake/staking-engine/internal/db"
	"github.com/lockstake/staking-engine/internal/staking"
)

// Rehydrate loads persisted positions and totals into the ledger, then runs
// a full invariant audit so a corrupted snapshot never serves traffic.
func (s *Service) Rehydrate(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	log := log.Ctx(ctx)

	docs, err := s.db.GetAllPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load position snapshots: %w", err)
	}

	positions := make([]*staking.Position, 0, len(docs))
	for _, doc := range docs {
		pos, err := doc.ToPosition()
		if err != nil {
			return fmt.Errorf("failed to decode position snapshot: %w", err)
		}
		positions = append(positions, pos)
	}

	totals := staking.NewTotals()
	totalsDoc, err := s.db.GetTotals(ctx)
	switch {
	case db.IsNotFoundError(err):
		// First boot after positions were written without a totals
		// snapshot; re-derive once, the audit below confirms it.
		for _, pos := range positions {
			totals.Staked = totals.Staked.Add(pos.AmountStaked)
			totals.GuaranteedReward = totals.GuaranteedReward.Add(pos.GuaranteedReward)
			totals.StoredReward = totals.StoredReward.Add(pos.StoredReward)
		}
	case err != nil:
		return fmt.Errorf("failed to load totals snapshot: %w", err)
	default:
		totals, err = totalsDoc.ToTotals()
		if err != nil {
			return fmt.Errorf("failed to decode totals snapshot: %w", err)
		}
	}

	s.ledger.Restore(positions, totals)

	if err := s.ledger.Audit(ctx); err != nil {
		return fmt.Errorf("rehydrated state failed the invariant audit: %w", err)
	}

	log.Info().
		Int("positions", len(positions)).
		Stringer("total_staked", totals.Staked).
		Msg("ledger state rehydrated")
	return nil
}
