package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/breakthrough-cafe/cafe-cms/internal/api"
	"github.com/breakthrough-cafe/cafe-cms/internal/config"
	"github.com/breakthrough-cafe/cafe-cms/internal/database"
	"github.com/breakthrough-cafe/cafe-cms/internal/metrics"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
	"github.com/breakthrough-cafe/cafe-cms/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("driver", cfg.Store.Driver).Msg("Starting Breakthrough Cafe CMS API server...")

	// Initialize document store
	repos, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to initialize store")
	}
	defer closeStore()

	// Initialize services
	services := service.NewServices(repos, log)

	if count, err := services.Article.Count(context.Background()); err == nil {
		metrics.UpdateArticlesTotal(count)
	} else {
		log.Warn().Err(err).Msg("Failed to count articles")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("auth", cfg.Server.APIToken != "").Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}

// openStore connects the configured driver and returns its repositories
func openStore(cfg *config.Config, log zerolog.Logger) (*repository.Repositories, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
		defer cancel()

		m, err := database.NewMongo(ctx, &cfg.Mongo, log)
		if err != nil {
			return nil, nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			m.Close(context.Background())
			return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		return repository.NewMongo(m), func() { m.Close(context.Background()) }, nil

	case config.DriverPostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return repository.NewPostgres(db), func() { db.Close() }, nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		return repository.NewMemory(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
