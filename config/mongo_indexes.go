package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "luronvoice"
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// call_turns indexes
	turns := db.Collection("call_turns")
	_, err := turns.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// Transcript fallback reads turns in order per call
		{
			Keys: bson.D{{Key: "call_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().
				SetName("by_call_seq").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "call_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_call_ts"),
		},
	})
	return err
}
