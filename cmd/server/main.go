package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/collab-playlist-system/internal/api"
	"github.com/collab-playlist-system/internal/roomstore"
	"github.com/collab-playlist-system/internal/session"
	"github.com/collab-playlist-system/internal/ws"
	"github.com/collab-playlist-system/pkg/database"
	"github.com/collab-playlist-system/pkg/events"
)

const snapshotTTL = 5 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Event sinks are optional side-channels; the server runs fine with
	// neither Kafka nor MySQL configured.
	var sinks session.MultiSink

	var kafkaPublisher *events.KafkaPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "playlist-room-events"
		}
		kafkaPublisher = events.NewKafkaPublisher(strings.Split(brokers, ","), topic)
		sinks = append(sinks, kafkaPublisher)
		log.Info().Str("topic", topic).Msg("kafka event publishing enabled")
	}

	if host := os.Getenv("MYSQL_HOST"); host != "" {
		auditDB, err := database.NewAuditDB(
			host,
			os.Getenv("MYSQL_PORT"),
			os.Getenv("MYSQL_USER"),
			os.Getenv("MYSQL_PASSWORD"),
			os.Getenv("MYSQL_DATABASE"),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to audit database")
		}
		sinks = append(sinks, auditDB)
		log.Info().Msg("mysql audit trail enabled")
	}

	var sink session.EventSink = session.NopSink{}
	if len(sinks) > 0 {
		sink = sinks
	}

	// Snapshot cache for the REST surface, enabled when Redis is around.
	var cache *api.SnapshotCache
	if host := os.Getenv("REDIS_HOST"); host != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     host + ":" + os.Getenv("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		})
		cache = api.NewSnapshotCache(redisClient, snapshotTTL)
		log.Info().Msg("redis snapshot cache enabled")
	}

	store := roomstore.New()
	hub := ws.NewHub(log.With().Str("component", "hub").Logger())
	coordinator := session.NewCoordinator(store, hub, sink, log.With().Str("component", "session").Logger())

	apiHandler := api.NewHandler(store, coordinator, cache, log.With().Str("component", "api").Logger())
	wsHandler := ws.NewHandler(hub, coordinator, log.With().Str("component", "ws").Logger())

	router := gin.Default()

	allowedOrigins := []string{"http://localhost:5173"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	apiHandler.RegisterRoutes(v1)
	router.GET("/ws", wsHandler.HandleWebSocket)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if kafkaPublisher != nil {
			if err := kafkaPublisher.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka publisher")
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
