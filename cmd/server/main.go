package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batch-size-optimizer/api/rest/routes"
	"batch-size-optimizer/config"
	"batch-size-optimizer/core/optimizer"
	"batch-size-optimizer/core/repository"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logrus.Info("Database connected successfully")

	// Initialize the optimization engine over the Postgres store.
	// All derived statistics are recomputed from the trial log, so the
	// engine needs no warm-up after a restart.
	store := repository.NewStore(db)
	engine := optimizer.NewEngine(store, optimizer.Config{
		Exploration:       cfg.Optimizer.Exploration,
		ZScore:            cfg.Optimizer.ZScore,
		MinArmSamples:     cfg.Optimizer.MinArmSamples,
		NoiseFloor:        cfg.Optimizer.NoiseFloor,
		DecisionCacheSize: cfg.Optimizer.DecisionCacheSize,
		DefaultEtaKnob:    cfg.Optimizer.DefaultEtaKnob,
		DefaultMaxTrials:  cfg.Optimizer.DefaultMaxTrials,
		DefaultMaxPower:   cfg.Optimizer.DefaultMaxPower,
	}, logrus.StandardLogger())

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, engine, db)

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logrus.Infof("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}
	logrus.Info("Server exited")
}
