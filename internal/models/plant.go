package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plant is the metadata record kept by the plant-management side of the
// system. Only the read contract is used here.
type Plant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PlantID     int                `bson:"plant_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Type        string             `bson:"type" json:"type"`
	AgeMonths   int                `bson:"age_months,omitempty" json:"age_months,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CareNotes   string             `bson:"care_notes,omitempty" json:"care_notes,omitempty"`
}

// SensorSnapshot is the latest reading produced by the telemetry
// ingestion pipeline for one plant.
type SensorSnapshot struct {
	PlantID      int       `bson:"plant_id" json:"plant_id"`
	SoilMoisture float64   `bson:"soil_moisture" json:"soil_moisture"`
	Temperature  float64   `bson:"temperature" json:"temperature"`
	Humidity     float64   `bson:"humidity" json:"humidity"`
	LightLevel   int       `bson:"light_level,omitempty" json:"light_level,omitempty"`
	SoilPH       float64   `bson:"soil_ph,omitempty" json:"soil_ph,omitempty"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
}

// WateringEvent is one recorded watering, manual or automatic.
type WateringEvent struct {
	PlantID    int       `bson:"plant_id" json:"plant_id"`
	AmountML   int       `bson:"amount_ml" json:"amount_ml"`
	DurationS  int       `bson:"duration_s" json:"duration_s"`
	Method     string    `bson:"method" json:"method"` // manual|scheduled|auto
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// PlantContext is the best-effort bundle the aggregator hands to the
// inference prompt builder. Any field may be nil/empty when its source
// read failed; a fully empty context is still valid input.
type PlantContext struct {
	PlantInfo       *Plant             `json:"plantInfo"`
	SensorData      *SensorSnapshot    `json:"sensorData"`
	WateringHistory []WateringEvent    `json:"wateringHistory,omitempty"`
	ChatHistory     []ConversationTurn `json:"-"`
}

// Empty reports whether every sub-read came back with nothing.
func (c *PlantContext) Empty() bool {
	if c == nil {
		return true
	}
	return c.PlantInfo == nil && c.SensorData == nil &&
		len(c.WateringHistory) == 0 && len(c.ChatHistory) == 0
}
