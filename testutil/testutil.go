package testutil

import (
	"context"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"

	"github.com/lockstake/staking-engine/internal/types"
)

// RandomAccount generates a plausible account identifier.
func RandomAccount() string {
	return "acct-" + gofakeit.LetterN(12)
}

// RandomAmount generates an amount in [min, max].
func RandomAmount(min, max int64) sdkmath.Int {
	return sdkmath.NewInt(int64(gofakeit.Number(int(min), int(max))))
}

// ManualClock is a settable clock for deterministic accrual tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// RecordingSink captures emitted events in order.
type RecordingSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *RecordingSink) Emit(_ context.Context, event types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *RecordingSink) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *RecordingSink) ByType(t types.EventType) []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Event
	for _, event := range s.events {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}
