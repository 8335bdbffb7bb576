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

// EnsureMongoIndexes creates the indexes the telemetry read paths
// depend on. Safe to call on every start; index creation is
// idempotent.
func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "plantcare"
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	plants := db.Collection("plants")
	_, err := plants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "plant_id", Value: 1}},
		Options: options.Index().
			SetName("uniq_plant_id").
			SetUnique(true),
	})
	if err != nil {
		return err
	}

	// latest-reading and recent-waterings queries sort by timestamp
	// descending within one plant
	readings := db.Collection("sensor_readings")
	_, err = readings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "plant_id", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("by_plant_ts"),
	})
	if err != nil {
		return err
	}

	waterings := db.Collection("watering_history")
	_, err = waterings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "plant_id", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("by_plant_ts"),
	})
	return err
}
