package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"hub-service/internal/config"
	"hub-service/internal/db"
	"hub-service/internal/handlers"
	"hub-service/internal/hub"
	"hub-service/internal/observability"
	"hub-service/internal/presence"
	"hub-service/internal/queue"
	"hub-service/internal/rabbitmq"
	"hub-service/internal/repositories"
	"hub-service/internal/rooms"
	"hub-service/internal/telemetry"
	"hub-service/internal/ws"
)

const serviceName = "hub-service"

func main() {
	ctx := context.Background()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	if eventsPub, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventsPub)
		defer eventsPub.Close()
	}

	auditPub := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPub.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPub, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	roomMgr := rooms.NewManager(repositories.NewRoomRepo(database))
	if err := roomMgr.Load(ctx); err != nil {
		log.Fatalf("failed to load rooms: %v", err)
	}

	tracker := presence.NewTracker(repositories.NewPresenceRepo(database))
	if err := tracker.Load(ctx); err != nil {
		log.Fatalf("failed to load presence: %v", err)
	}

	backlog := queue.New(repositories.NewQueueRepo(database), cfg.MaxQueueLength)
	if err := backlog.Load(ctx); err != nil {
		log.Fatalf("failed to load offline queue: %v", err)
	}

	registry := hub.NewRegistry(cfg.MaxConnectionsPerUser)
	commHub := hub.New(registry, roomMgr, tracker, backlog)

	// the queue keeps no timer of its own; ttl purging is driven from here
	go func() {
		ticker := time.NewTicker(cfg.PurgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			if purged := backlog.PurgeOlderThan(cfg.QueueTTL); purged > 0 {
				log.Printf("purged %d expired queued messages", purged)
			}
		}
	}()

	wsHandler := ws.NewHandler(commHub)
	roomHandler := handlers.NewRoomHandler(roomMgr, auditEmitter, cfg.DefaultRoomCapacity)
	presenceHandler := handlers.NewPresenceHandler(tracker)
	messageHandler := handlers.NewMessageHandler(commHub)
	statsHandler := handlers.NewStatsHandler(commHub)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/", statsHandler.Index)
	router.GET("/health", statsHandler.Health)
	router.GET("/api/stats", statsHandler.Stats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/api/rooms", roomHandler.ListRooms)
	router.POST("/api/rooms", roomHandler.CreateRoom)
	router.GET("/api/rooms/:room_id", roomHandler.GetRoom)
	router.DELETE("/api/rooms/:room_id", roomHandler.DeleteRoom)
	router.GET("/api/rooms/:room_id/members", roomHandler.GetMembers)
	router.POST("/api/rooms/:room_id/join", roomHandler.JoinRoom)
	router.POST("/api/rooms/:room_id/leave", roomHandler.LeaveRoom)

	router.GET("/api/users/:user_id/rooms", roomHandler.GetUserRooms)
	router.GET("/api/users/:user_id/presence", presenceHandler.GetPresence)
	router.PUT("/api/users/:user_id/presence", presenceHandler.SetPresence)
	router.GET("/api/users/:user_id/queue", messageHandler.GetQueueSize)
	router.POST("/api/presence/batch", presenceHandler.BatchPresence)

	router.POST("/api/messages", messageHandler.PostMessage)

	router.GET("/ws/:user_id", wsHandler.Handle)

	log.Printf("hub service listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
