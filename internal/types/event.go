package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventStaked     EventType = "staking.staked"
	EventUnstaked   EventType = "staking.unstaked"
	EventRewardPaid EventType = "staking.reward_paid"
)

// Event is emitted exactly once per successful state change, never on no-op
// paths (a zero claim emits nothing).
type Event struct {
	ID      string      `json:"id"`
	Type    EventType   `json:"type"`
	Account string      `json:"account"`
	Amount  sdkmath.Int `json:"amount"`
	At      time.Time   `json:"at"`
}
