package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/osintlab/socialscope/internal/archive"
	"github.com/osintlab/socialscope/internal/config"
	"github.com/osintlab/socialscope/internal/enrichment"
	"github.com/osintlab/socialscope/internal/imagematch"
	"github.com/osintlab/socialscope/internal/notifications"
	"github.com/osintlab/socialscope/internal/pipeline"
	"github.com/osintlab/socialscope/internal/scheduler"
	"github.com/osintlab/socialscope/internal/storage"
	"github.com/osintlab/socialscope/internal/web"
	"github.com/sirupsen/logrus"
)

func main() {
	runOnce := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting socialscope aggregator")

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		logrus.Fatalf("Failed to migrate store: %v", err)
	}

	// The blob archiver is optional; without a storage account the
	// pipeline runs with the relational store only.
	var archiver pipeline.Archiver
	if cfg.StorageAccount != "" {
		blobArchiver, err := archive.NewBlobArchiver(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize batch archive: %v", err)
		}
		archiver = blobArchiver
	}

	resolver := enrichment.NewResolver(cfg)
	notifier := notifications.NewService(cfg)
	detector := pipeline.NewLinguaDetector()

	pipelineService := pipeline.NewService(cfg, store, resolver, archiver, notifier,
		detector, pipeline.VaderScorer{})

	if *runOnce {
		if err := pipelineService.Run(context.Background()); err != nil {
			logrus.Fatalf("Pipeline run failed: %v", err)
		}
		fmt.Println(pipelineService.Metrics())
		return
	}

	schedulerService := scheduler.NewService(cfg, pipelineService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	matcher := imagematch.NewMatcher(cfg)
	webServer, err := web.NewServer(store, matcher, pipelineService)
	if err != nil {
		logrus.Fatalf("Failed to initialize web server: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      webServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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
