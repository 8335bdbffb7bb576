package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/greenmate/plantcare/internal/cache"
	"github.com/greenmate/plantcare/internal/health"
	"github.com/greenmate/plantcare/internal/models"
	mongorepo "github.com/greenmate/plantcare/internal/repositories/mongo"
	pgrepo "github.com/greenmate/plantcare/internal/repositories/postgres"
)

// Read depths for the context bundle.
const (
	wateringDepth    = 3
	chatHistoryDepth = 5
	sensorCacheTTL   = 30 * time.Second
)

// ContextService assembles the best-effort plant context used to
// enrich the inference prompt.
type ContextService interface {
	Gather(ctx context.Context, plantID int, sessionID string) *models.PlantContext
}

type contextService struct {
	telemetry mongorepo.TelemetryRepo
	turns     pgrepo.TurnRepo
	cache     cache.Cache
	registry  *health.Registry
	log       *logrus.Logger
}

func NewContextService(telemetry mongorepo.TelemetryRepo, turns pgrepo.TurnRepo, c cache.Cache, registry *health.Registry, log *logrus.Logger) ContextService {
	return &contextService{
		telemetry: telemetry,
		turns:     turns,
		cache:     c,
		registry:  registry,
		log:       log,
	}
}

// Gather performs the four context reads, each behind its own error
// boundary. A failed read leaves its field nil/empty and records a
// degradation signal; it never aborts the other reads. The fully-empty
// context is a valid result the caller must accept.
func (s *contextService) Gather(ctx context.Context, plantID int, sessionID string) *models.PlantContext {
	pc := &models.PlantContext{}

	if info, err := s.telemetry.PlantInfo(ctx, plantID); err != nil {
		s.degrade(health.DepTelemetry, "plant info read failed", plantID, err)
	} else {
		pc.PlantInfo = info
	}

	if snap, err := s.latestReading(ctx, plantID); err != nil {
		s.degrade(health.DepTelemetry, "sensor read failed", plantID, err)
	} else {
		pc.SensorData = snap
	}

	if events, err := s.telemetry.WateringHistory(ctx, plantID, wateringDepth); err != nil {
		s.degrade(health.DepTelemetry, "watering history read failed", plantID, err)
	} else {
		pc.WateringHistory = events
	}

	if sessionID != "" {
		if turns, err := s.turns.ListBySession(ctx, sessionID, chatHistoryDepth); err != nil {
			s.degrade(health.DepPersistence, "chat history read failed", plantID, err)
		} else {
			pc.ChatHistory = turns
		}
	}

	s.log.WithFields(logrus.Fields{
		"plant_id":          plantID,
		"has_plant_info":    pc.PlantInfo != nil,
		"has_sensor_data":   pc.SensorData != nil,
		"watering_events":   len(pc.WateringHistory),
		"chat_history_size": len(pc.ChatHistory),
	}).Info("context gathered")

	return pc
}

// latestReading serves the sensor snapshot through the redis cache;
// the 30s TTL keeps chat bursts from hammering the telemetry store.
func (s *contextService) latestReading(ctx context.Context, plantID int) (*models.SensorSnapshot, error) {
	key := fmt.Sprintf("sensor:latest:%d", plantID)

	var cached models.SensorSnapshot
	if s.cache != nil {
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	snap, err := s.telemetry.LatestReading(ctx, plantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, snap, sensorCacheTTL); err != nil {
			s.log.WithError(err).Debug("sensor snapshot cache write failed")
		}
	}
	return snap, nil
}

func (s *contextService) degrade(dep, msg string, plantID int, err error) {
	s.log.WithError(err).WithField("plant_id", plantID).Warn(msg + ", continuing with partial context")
	s.registry.Degraded(dep, err)
}
