package staking

import (
	"context"

	"github.com/lockstake/staking-engine/internal/types"
)

// EventSink receives the Staked/Unstaked/RewardPaid events. Sinks run after
// the operation's state is final; they must not call back into the ledger's
// mutating operations.
type EventSink interface {
	Emit(ctx context.Context, event types.Event)
}

type noopSink struct{}

func (noopSink) Emit(context.Context, types.Event) {}
