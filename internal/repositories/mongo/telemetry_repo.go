package mongo

import (
	"context"
	"errors"

	"github.com/greenmate/plantcare/internal/models"
	"github.com/greenmate/plantcare/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TelemetryRepo reads the plant and sensor data produced by the
// ingestion pipeline. Write paths live in that pipeline, not here.
type TelemetryRepo interface {
	PlantInfo(ctx context.Context, plantID int) (*models.Plant, error)
	LatestReading(ctx context.Context, plantID int) (*models.SensorSnapshot, error)
	WateringHistory(ctx context.Context, plantID, limit int) ([]models.WateringEvent, error)
}

type telemetryRepo struct {
	plants    *mongo.Collection
	readings  *mongo.Collection
	waterings *mongo.Collection
}

func NewTelemetryRepo(db *mongo.Database) TelemetryRepo {
	return &telemetryRepo{
		plants:    db.Collection("plants"),
		readings:  db.Collection("sensor_readings"),
		waterings: db.Collection("watering_history"),
	}
}

func (r *telemetryRepo) PlantInfo(ctx context.Context, plantID int) (*models.Plant, error) {
	var p models.Plant
	err := r.plants.FindOne(ctx, bson.M{"plant_id": plantID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *telemetryRepo) LatestReading(ctx context.Context, plantID int) (*models.SensorSnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var s models.SensorSnapshot
	err := r.readings.FindOne(ctx, bson.M{"plant_id": plantID}, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *telemetryRepo) WateringHistory(ctx context.Context, plantID, limit int) ([]models.WateringEvent, error) {
	if limit <= 0 {
		limit = 3
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.waterings.Find(ctx, bson.M{"plant_id": plantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.WateringEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
