package model

import (
	"time"

	"github.com/lockstake/staking-engine/internal/types"
)

const EventCollection = "staking_events"

// EventDocument is one row of the append-only event log consumed by
// external indexers that cannot listen on the queue.
type EventDocument struct {
	ID      string    `bson:"_id"`
	Type    string    `bson:"type"`
	Account string    `bson:"account"`
	Amount  string    `bson:"amount"`
	At      time.Time `bson:"at"`
}

func FromEvent(event types.Event) *EventDocument {
	return &EventDocument{
		ID:      event.ID,
		Type:    event.Type.String(),
		Account: event.Account,
		Amount:  event.Amount.String(),
		At:      event.At,
	}
}
