package main

// @title           Social Gateway API
// @version         1.0
// @description     Realtime presence, room membership and call signaling gateway
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-service/internal/api/handlers"
	"social-service/internal/api/routes"
	"social-service/internal/config"
	"social-service/internal/database"
	"social-service/internal/repositories/postgres"
	"social-service/internal/services"
	"social-service/internal/websocket"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := config.NewLogger(cfg.Log)
	logger.Info("Starting gateway")

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	conversationRepo := postgres.NewConversationRepository(db)

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	memberService := services.NewMemberService(conversationRepo, userRepo, cfg.Gateway.MemberCacheSize, cfg.Gateway.MemberCacheTTL)
	redisService := services.NewRedisService(redisClient)

	// Presence lives in this process only; whatever the mirror holds is stale.
	if err := redisService.ResetOnlineUsers(context.Background()); err != nil {
		slog.Error("Failed to reset online users", "error", err)
	}

	observers := []websocket.PresenceObserver{redisService}
	publisher, err := services.NewActivityPublisher(cfg.Kafka.Brokers, cfg.Kafka.PresenceTopic)
	if err != nil {
		slog.Error("Failed to connect to Kafka, presence activity disabled", "brokers", cfg.Kafka.Brokers, "error", err)
	} else if publisher != nil {
		observers = append(observers, publisher)
		defer publisher.Close()
	}

	hub := websocket.NewHub(memberService, websocket.Options{
		CallCapacity: cfg.Gateway.CallCapacity,
		Observers:    observers,
		Logger:       logger,
	})

	router := routes.NewRouter(routes.Dependencies{
		Hub:         hub,
		Auth:        authService,
		RateLimiter: redisService,
		HealthChecks: map[string]handlers.HealthCheck{
			"redis":    redisClient.Ping,
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		},
		Gateway: cfg.Gateway,
	})
	router.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run()
		return nil
	})

	g.Go(func() error {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		hub.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
