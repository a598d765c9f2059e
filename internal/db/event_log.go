package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lockstake/staking-engine/internal/db/model"
)

func (db *Database) InsertEvent(ctx context.Context, doc *model.EventDocument) error {
	_, err := db.collection(model.EventCollection).InsertOne(ctx, doc)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     doc.ID,
						Message: "event already recorded",
					}
				}
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetEventsByAccount(ctx context.Context, account string, limit int64) ([]*model.EventDocument, error) {
	filter := bson.M{"account": account}
	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: 1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.EventCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*model.EventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
