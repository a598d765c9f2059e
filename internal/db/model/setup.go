package model

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lockstake/staking-engine/internal/config"
)

// Setup creates the collections and indexes. Safe to call on every startup.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	database := client.Database(cfg.DbName)
	collections := []string{PositionCollection, TotalsCollection, EventCollection}
	for _, name := range collections {
		if err := createCollectionIfNotExists(ctx, database, name); err != nil {
			return err
		}
	}

	eventIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "account", Value: 1}, {Key: "at", Value: 1}},
	}
	if _, err := database.Collection(EventCollection).Indexes().CreateOne(ctx, eventIndex); err != nil {
		return err
	}

	return client.Disconnect(ctx)
}

func createCollectionIfNotExists(ctx context.Context, database *mongo.Database, name string) error {
	existing, err := database.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return database.CreateCollection(ctx, name)
}
