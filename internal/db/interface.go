package db

import (
	"context"

	"github.com/lockstake/staking-engine/internal/db/model"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	UpsertPosition(ctx context.Context, doc *model.PositionDocument) error
	GetPosition(ctx context.Context, account string) (*model.PositionDocument, error)
	DeletePosition(ctx context.Context, account string) error
	GetAllPositions(ctx context.Context) ([]*model.PositionDocument, error)
	SaveTotals(ctx context.Context, doc *model.TotalsDocument) error
	GetTotals(ctx context.Context) (*model.TotalsDocument, error)
	InsertEvent(ctx context.Context, doc *model.EventDocument) error
	GetEventsByAccount(ctx context.Context, account string, limit int64) ([]*model.EventDocument, error)
}
