package main

import (
	"fmt"
	"os"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/api/handlers"
	"facetrack-go/internal/api/middleware"
	"facetrack-go/internal/cleanup"
	"facetrack-go/internal/core/engine"
	"facetrack-go/internal/core/session"
	"facetrack-go/internal/core/stats"
	"facetrack-go/internal/db"
	"facetrack-go/internal/db/repository"
	"facetrack-go/internal/integrations/recognizer"
	"facetrack-go/internal/logger"
	"facetrack-go/internal/mqtt"
	"facetrack-go/internal/server/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	configPath := defaultConfigPath
	if env := os.Getenv("FACETRACK_CONFIG"); env != "" {
		configPath = env
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	log.Info("Initializing database...")
	if err := db.Init(cfg.DB); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	repo := repository.NewGormRepository(db.DB)
	sessions := session.NewStore()
	decisionEngine := engine.New(sessions, repo)
	aggregator := stats.NewAggregator(repo, repo)
	recognizerClient := recognizer.NewClient(cfg.Recognizer)

	// SSE hub for live dashboard updates
	hub := sse.NewHub()
	go hub.Run()

	// Optional MQTT publisher for home-automation consumers
	publisher, err := mqtt.NewPublisher(cfg.MQTT)
	if err != nil {
		log.Warnf("Failed to initialize MQTT publisher: %v. Continuing without MQTT.", err)
		publisher = nil
	}
	if publisher != nil {
		go func() {
			if err := publisher.Start(); err != nil {
				log.Errorf("MQTT publisher error: %v", err)
			}
		}()
		defer publisher.Stop()
	}

	// Background eviction of idle recognition sessions
	cleanupService := cleanup.NewService(
		sessions,
		time.Duration(cfg.Session.IdleTTLMinutes)*time.Minute,
		time.Hour,
	)
	cleanupService.StartBackgroundCleanup()
	defer cleanupService.StopBackgroundCleanup()

	// --- Router setup ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	recognitionHandler := handlers.NewRecognitionHandler(
		cfg, decisionEngine, sessions, repo, repo, aggregator,
		recognizerClient, hub, publisher,
	)
	identityHandler := handlers.NewIdentityHandler(repo)
	systemHandler := handlers.NewSystemHandler(sessions, recognizerClient)

	api := router.Group("/api")
	api.Use(middleware.SessionStore(cfg.Session.CookieSecret))
	api.Use(middleware.EnsureSessionToken())

	recognitionHandler.RegisterRoutes(api)
	identityHandler.RegisterRoutes(api)
	systemHandler.RegisterRoutes(api)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Starting server on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
