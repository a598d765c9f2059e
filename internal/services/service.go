package services

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/lockstake/staking-engine/internal/assetledger"
	"github.com/lockstake/staking-engine/internal/config"
	"github.com/lockstake/staking-engine/internal/db"
	"github.com/lockstake/staking-engine/internal/db/model"
	"github.com/lockstake/staking-engine/internal/events"
	"github.com/lockstake/staking-engine/internal/observability/metrics"
	"github.com/lockstake/staking-engine/internal/staking"
	"github.com/lockstake/staking-engine/internal/types"
)

// Service wires the accounting ledger to persistence and event delivery.
// The ledger state is authoritative; snapshots and the event log follow it
// and their failures never unwind committed accounting.
type Service struct {
	cfg       *config.Config
	db        db.DbInterface
	publisher events.Publisher
	ledger    *staking.Ledger
}

func NewService(
	cfg *config.Config,
	dbClient db.DbInterface,
	publisher events.Publisher,
	stakingAsset assetledger.Ledger,
	rewardAsset assetledger.Ledger,
	opts ...staking.Option,
) (*Service, error) {
	params, err := cfg.Staking.ToParams()
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		db:        dbClient,
		publisher: publisher,
	}
	ledger, err := staking.New(
		params,
		stakingAsset,
		rewardAsset,
		cfg.Staking.PoolAccount,
		append(opts, staking.WithEventSink(s))...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create staking ledger: %w", err)
	}
	s.ledger = ledger
	return s, nil
}

func (s *Service) Ledger() *staking.Ledger {
	return s.ledger
}

func (s *Service) Stake(ctx context.Context, account string, amount sdkmath.Int) error {
	if err := s.ledger.Stake(ctx, account, amount); err != nil {
		return err
	}
	s.persistPosition(ctx, account)
	return nil
}

func (s *Service) Unstake(ctx context.Context, account string, amount sdkmath.Int) error {
	if err := s.ledger.Unstake(ctx, account, amount); err != nil {
		return err
	}
	s.persistPosition(ctx, account)
	return nil
}

func (s *Service) ClaimReward(ctx context.Context, account string) (sdkmath.Int, error) {
	paid, err := s.ledger.ClaimReward(ctx, account)
	if err != nil {
		return paid, err
	}
	s.persistPosition(ctx, account)
	return paid, nil
}

func (s *Service) ClaimRewardFor(ctx context.Context, account string) (sdkmath.Int, error) {
	paid, err := s.ledger.ClaimRewardFor(ctx, account)
	if err != nil {
		return paid, err
	}
	s.persistPosition(ctx, account)
	return paid, nil
}

func (s *Service) Exit(ctx context.Context, account string) error {
	if err := s.ledger.Exit(ctx, account); err != nil {
		return err
	}
	s.persistPosition(ctx, account)
	return nil
}

func (s *Service) Staked(account string) sdkmath.Int {
	return s.ledger.Staked(account)
}

func (s *Service) RewardClaimable(ctx context.Context, account string) (sdkmath.Int, error) {
	return s.ledger.RewardClaimable(ctx, account)
}

func (s *Service) AvailableToStakeOrReward(ctx context.Context) (sdkmath.Int, error) {
	return s.ledger.AvailableToStakeOrReward(ctx)
}

func (s *Service) TotalLockedReward() sdkmath.Int {
	return s.ledger.TotalLockedReward()
}

func (s *Service) Totals() staking.Totals {
	return s.ledger.Totals()
}

// Emit implements staking.EventSink: append to the event log and publish to
// the queue. Best effort on both, the accounting state is already final.
func (s *Service) Emit(ctx context.Context, event types.Event) {
	log := log.Ctx(ctx)

	if s.db != nil {
		if err := s.db.InsertEvent(ctx, model.FromEvent(event)); err != nil && !db.IsDuplicateKeyError(err) {
			log.Error().Err(err).
				Str("event_id", event.ID).
				Stringer("event_type", event.Type).
				Msg("failed to append event to log")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			metrics.IncEventPublishFailures()
			log.Error().Err(err).
				Str("event_id", event.ID).
				Stringer("event_type", event.Type).
				Msg("failed to publish event")
		}
	}
}

// persistPosition snapshots one position plus the totals after a committed
// mutation. An exited position is deleted.
func (s *Service) persistPosition(ctx context.Context, account string) {
	if s.db == nil {
		return
	}
	log := log.Ctx(ctx)

	pos := s.ledger.Position(account)
	if pos == nil {
		if err := s.db.DeletePosition(ctx, account); err != nil && !db.IsNotFoundError(err) {
			log.Error().Err(err).Str("account", account).Msg("failed to delete position snapshot")
		}
	} else {
		if err := s.db.UpsertPosition(ctx, model.FromPosition(pos)); err != nil {
			log.Error().Err(err).Str("account", account).Msg("failed to save position snapshot")
		}
	}

	if err := s.db.SaveTotals(ctx, model.FromTotals(s.ledger.Totals())); err != nil {
		log.Error().Err(err).Msg("failed to save totals snapshot")
	}
}
