package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/reviewpulse/reviewpulse/internal/alerts"
	"github.com/reviewpulse/reviewpulse/internal/analytics"
	"github.com/reviewpulse/reviewpulse/internal/api"
	"github.com/reviewpulse/reviewpulse/internal/archive"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/notifications"
	"github.com/reviewpulse/reviewpulse/internal/reputation"
	"github.com/reviewpulse/reviewpulse/internal/reviews"
	"github.com/reviewpulse/reviewpulse/internal/scheduler"
	"github.com/reviewpulse/reviewpulse/internal/sentiment"
	"github.com/reviewpulse/reviewpulse/internal/sources"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting ReviewPulse")

	// Initialize stores: Postgres when a DSN is configured, in-memory otherwise
	var (
		reviewStore store.ReviewStore
		scoreStore  store.ScoreStore
		alertStore  store.AlertStore
	)
	if cfg.DatabaseURL != "" {
		db, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logrus.Fatalf("Failed to open database: %v", err)
		}
		reviewStore = store.NewGormReviews(db)
		scoreStore = store.NewGormScores(db)
		alertStore = store.NewGormAlerts(db)
		logrus.Info("Using Postgres stores")
	} else {
		reviewStore = store.NewMemoryReviews()
		scoreStore = store.NewMemoryScores()
		alertStore = store.NewMemoryAlerts()
		logrus.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Initialize notification service
	notificationService := notifications.NewService(cfg)

	// Initialize snapshot archive
	var archiver archive.Archiver = archive.Noop{}
	if cfg.StorageAccount != "" {
		azureArchive, err := archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize snapshot archive: %v", err)
		}
		archiver = azureArchive
	}

	// Initialize pipeline services
	analyzer := sentiment.NewAnalyzer(reviewStore)
	detector := alerts.NewDetector(reviewStore, alertStore, notificationService)
	scorer := reputation.NewScorer(reviewStore, scoreStore)
	aggregator := analytics.NewAggregator(reviewStore)
	reviewService := reviews.NewService(reviewStore, analyzer, detector)

	// Platform connectors for scheduled ingestion
	srcs := []sources.Source{
		sources.NewGoogleSource(cfg.GooglePlacesAPIKey, cfg.GooglePlaceID, cfg.DefaultWorkspace),
		sources.NewYelpSource(cfg.YelpAPIKey, cfg.YelpBusinessID, cfg.DefaultWorkspace),
	}

	// Initialize and start scheduler
	schedulerService := scheduler.NewService(cfg, scorer, detector, reviewService, notificationService, archiver, srcs)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(cfg, reviewService)).Methods("GET")

	// Manual trigger endpoints (for testing)
	router.HandleFunc("/trigger/snapshots", triggerHandler("snapshot run", schedulerService.RunDailySnapshots)).Methods("POST")
	router.HandleFunc("/trigger/alerts", triggerHandler("alert sweep", schedulerService.RunAlertSweep)).Methods("POST")
	router.HandleFunc("/trigger/ingestion", triggerHandler("ingestion", schedulerService.RunIngestion)).Methods("POST")

	// API routes
	api.NewHandler(reviewService, scorer, detector, aggregator).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(cfg *config.Config, reviewService *reviews.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := make(map[string]reviews.Statistics, len(cfg.Workspaces))
		for _, workspaceID := range cfg.Workspaces {
			stats, err := reviewService.Statistics(r.Context(), models.ReviewFilter{WorkspaceID: workspaceID})
			if err != nil {
				logrus.Errorf("Failed to compute metrics for workspace %s: %v", workspaceID, err)
				continue
			}
			metrics[workspaceID] = stats
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(metrics); err != nil {
			logrus.Errorf("Failed to encode metrics: %v", err)
		}
	}
}

func triggerHandler(name string, run func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := run(context.Background()); err != nil {
				logrus.Errorf("Manual %s trigger failed: %v", name, err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(fmt.Sprintf(`{"message":"%s triggered"}`, name)))
	}
}
