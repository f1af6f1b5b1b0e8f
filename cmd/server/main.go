package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/auth"
	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/handler"
	"github.com/mthorne/provincia/api/internal/logger"
	"github.com/mthorne/provincia/api/internal/middleware"
	"github.com/mthorne/provincia/api/internal/repository/postgres"
	redisrepo "github.com/mthorne/provincia/api/internal/repository/redis"
	"github.com/mthorne/provincia/api/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	provinceRepo := postgres.NewProvinceRepo(db)
	missionRepo := postgres.NewMissionRepo(db)
	espionageRepo := postgres.NewEspionageRepo(db)
	unitRepo := postgres.NewUnitRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	protectionSvc := service.NewProtectionService(provinceRepo, missionRepo, redisClient, cfg.Combat)
	retaliationSvc := service.NewRetaliationService(redisClient, cfg.Combat)
	missionSvc := service.NewMissionService(provinceRepo, missionRepo, unitRepo, redisClient,
		protectionSvc, retaliationSvc, wsHub, cfg.Combat)
	targetSvc := service.NewTargetService(provinceRepo, retaliationSvc, cfg.Combat)
	espionageSvc := service.NewEspionageService(provinceRepo, espionageRepo, retaliationSvc, wsHub, cfg.Combat)
	provinceSvc := service.NewProvinceService(provinceRepo, missionRepo, espionageRepo,
		protectionSvc, retaliationSvc, cfg.Combat)
	turnSvc := service.NewTurnService(missionRepo, wsHub)

	// Warm the unit catalog so a bad deployment fails at startup, not on the
	// first submission.
	if _, err := missionSvc.Catalog(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Unit catalog load failed")
	}

	// Handlers
	missionHandler := handler.NewMissionHandler(missionSvc, provinceSvc)
	provinceHandler := handler.NewProvinceHandler(provinceSvc, targetSvc)
	espionageHandler := handler.NewEspionageHandler(espionageSvc)
	turnHandler := handler.NewTurnHandler(turnSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("POST /provinces", provinceHandler.CreateProvince)
	api.HandleFunc("GET /provinces/{id}", provinceHandler.GetProvince)
	api.HandleFunc("GET /provinces/{id}/targets", provinceHandler.ListTargets)
	api.HandleFunc("GET /provinces/{id}/reports", provinceHandler.ListReports)
	api.HandleFunc("GET /provinces/{id}/espionage", provinceHandler.ListEspionageReports)
	api.HandleFunc("GET /provinces/{id}/retaliation", provinceHandler.ListRetaliation)
	api.HandleFunc("POST /missions", missionHandler.SubmitMission)
	api.HandleFunc("GET /reports/{missionID}", missionHandler.GetReport)
	api.HandleFunc("POST /espionage", espionageHandler.SubmitEspionage)
	api.HandleFunc("POST /turns/advance", turnHandler.AdvanceTurn)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
