package db

import (
	"context"
	"time"

	"github.com/lockstake/staking-engine/internal/db/model"
	"github.com/lockstake/staking-engine/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) UpsertPosition(ctx context.Context, doc *model.PositionDocument) error {
	return d.run("UpsertPosition", func() error {
		return d.db.UpsertPosition(ctx, doc)
	})
}

func (d *DbWithMetrics) GetPosition(ctx context.Context, account string) (result *model.PositionDocument, err error) {
	//nolint:errcheck
	d.run("GetPosition", func() error {
		result, err = d.db.GetPosition(ctx, account)
		return err
	})

	return
}

func (d *DbWithMetrics) DeletePosition(ctx context.Context, account string) error {
	return d.run("DeletePosition", func() error {
		return d.db.DeletePosition(ctx, account)
	})
}

func (d *DbWithMetrics) GetAllPositions(ctx context.Context) (result []*model.PositionDocument, err error) {
	//nolint:errcheck
	d.run("GetAllPositions", func() error {
		result, err = d.db.GetAllPositions(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) SaveTotals(ctx context.Context, doc *model.TotalsDocument) error {
	return d.run("SaveTotals", func() error {
		return d.db.SaveTotals(ctx, doc)
	})
}

func (d *DbWithMetrics) GetTotals(ctx context.Context) (result *model.TotalsDocument, err error) {
	//nolint:errcheck
	d.run("GetTotals", func() error {
		result, err = d.db.GetTotals(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) InsertEvent(ctx context.Context, doc *model.EventDocument) error {
	return d.run("InsertEvent", func() error {
		return d.db.InsertEvent(ctx, doc)
	})
}

func (d *DbWithMetrics) GetEventsByAccount(ctx context.Context, account string, limit int64) (result []*model.EventDocument, err error) {
	//nolint:errcheck
	d.run("GetEventsByAccount", func() error {
		result, err = d.db.GetEventsByAccount(ctx, account, limit)
		return err
	})

	return
}

func (d *DbWithMetrics) run(method string, f func() error) error {
	start := time.Now()
	err := f()
	metrics.RecordDbLatency(time.Since(start), method, err != nil)

	return err
}
