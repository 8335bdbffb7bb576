package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/greenmate/plantcare/config"
	"github.com/greenmate/plantcare/internal/api/handlers"
	"github.com/greenmate/plantcare/internal/api/middleware"
	"github.com/greenmate/plantcare/internal/api/routes"
	"github.com/greenmate/plantcare/internal/cache"
	"github.com/greenmate/plantcare/internal/health"
	"github.com/greenmate/plantcare/internal/logger"
	"github.com/greenmate/plantcare/internal/notify"
	"github.com/greenmate/plantcare/internal/providers/llm"
	mongorepo "github.com/greenmate/plantcare/internal/repositories/mongo"
	pgrepo "github.com/greenmate/plantcare/internal/repositories/postgres"
	"github.com/greenmate/plantcare/internal/services"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Core stores are required at boot; everything else degrades.
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	log.Info("postgres connected")

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("mongo init failed")
	}
	log.Info("mongo connected")
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Warn("mongo index creation failed")
	}

	var sensorCache cache.Cache
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Warn("redis unavailable, sensor snapshots will not be cached")
	} else {
		sensorCache = cache.NewRedisCache(config.RedisClient)
		log.Info("redis connected")
	}

	registry := health.NewRegistry(log)

	provider := buildProvider(ctx, log)
	defer provider.Close()
	client := llm.NewClient(provider, registry, log)

	bridge := buildBridge(ctx, log)
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = bridge.Disconnect(shutCtx)
	}()

	mongoDBName := os.Getenv("MONGO_DB")
	if mongoDBName == "" {
		mongoDBName = "plantcare"
	}
	telemetry := mongorepo.NewTelemetryRepo(config.MongoClient.Database(mongoDBName))
	turns := pgrepo.NewTurnRepo(config.PostgresDB)

	contexts := services.NewContextService(telemetry, turns, sensorCache, registry, log)
	chat := services.NewChatService(client, contexts, turns, bridge, registry, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Chat: handlers.NewChatHandler(chat, log),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.WithField("port", port).Info("chatbot api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	_ = config.MongoClient.Disconnect(shutCtx)
}

// buildProvider selects the inference backend from the environment.
// A missing configuration still yields a working process: the disabled
// provider fails every call and the degradation path answers instead.
func buildProvider(ctx context.Context, log *logrus.Logger) llm.Provider {
	switch os.Getenv("LLM_PROVIDER") {
	case "vertex":
		p, err := llm.NewVertexGemini(ctx,
			os.Getenv("GCP_PROJECT_ID"),
			os.Getenv("GCP_LOCATION"),
			os.Getenv("VERTEX_MODEL"))
		if err != nil {
			log.WithError(err).Warn("vertex provider init failed, inference disabled")
			return llm.NewDisabled()
		}
		return p
	default:
		p, err := llm.NewOpenRouter(os.Getenv("OPENROUTER_API_KEY"),
			llm.WithOpenRouterModel(os.Getenv("OPENROUTER_MODEL")),
			llm.WithOpenRouterReferer(os.Getenv("APP_URL")))
		if err != nil {
			log.WithError(err).Warn("openrouter provider init failed, inference disabled")
			return llm.NewDisabled()
		}
		return p
	}
}

func buildBridge(ctx context.Context, log *logrus.Logger) notify.Bridge {
	brokerURL := os.Getenv("MQTT_URL")
	if brokerURL == "" {
		log.Info("no mqtt broker configured, notifications disabled")
		return notify.NullBridge{}
	}

	bridge, err := notify.NewMQTTBridge(ctx, notify.MQTTConfig{
		BrokerURL: brokerURL,
		Username:  os.Getenv("MQTT_USERNAME"),
		Password:  os.Getenv("MQTT_PASSWORD"),
	}, log)
	if err != nil {
		log.WithError(err).Warn("mqtt bridge init failed, notifications disabled")
		return notify.NullBridge{}
	}
	return bridge
}
