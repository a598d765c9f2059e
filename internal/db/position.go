package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lockstake/staking-engine/internal/db/model"
)

func (db *Database) UpsertPosition(ctx context.Context, doc *model.PositionDocument) error {
	filter := bson.M{"_id": doc.Account}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.PositionCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetPosition(ctx context.Context, account string) (*model.PositionDocument, error) {
	filter := bson.M{"_id": account}

	res := db.collection(model.PositionCollection).FindOne(ctx, filter)

	var doc model.PositionDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     account,
				Message: "position not found",
			}
		}
		return nil, err
	}
	return &doc, nil
}

func (db *Database) DeletePosition(ctx context.Context, account string) error {
	filter := bson.M{"_id": account}

	result, err := db.collection(model.PositionCollection).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return &NotFoundError{
			Key:     account,
			Message: "position not found when deleting",
		}
	}
	return nil
}

func (db *Database) GetAllPositions(ctx context.Context) ([]*model.PositionDocument, error) {
	cursor, err := db.collection(model.PositionCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*model.PositionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (db *Database) SaveTotals(ctx context.Context, doc *model.TotalsDocument) error {
	filter := bson.M{"_id": model.TotalsDocID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.TotalsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetTotals(ctx context.Context) (*model.TotalsDocument, error) {
	filter := bson.M{"_id": model.TotalsDocID}

	res := db.collection(model.TotalsCollection).FindOne(ctx, filter)

	var doc model.TotalsDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.TotalsDocID,
				Message: "totals snapshot not found",
			}
		}
		return nil, err
	}
	return &doc, nil
}
