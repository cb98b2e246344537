package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/soundwave/tracker/api"
	"github.com/soundwave/tracker/clock"
	"github.com/soundwave/tracker/config"
	"github.com/soundwave/tracker/policy"
	"github.com/soundwave/tracker/store"
	"github.com/soundwave/tracker/tracker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting tracker...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Display timezone: %s", cfg.DisplayTimeZone)

	ctx := context.Background()

	// Initialize store
	db, err := newStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize clock and display formatter
	formatter, err := clock.NewFormatter(cfg.DisplayTimeZone)
	if err != nil {
		log.Fatalf("Failed to load display timezone: %v", err)
	}
	clk := clock.SystemClock{}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize services
	processor := tracker.NewProcessor(db, clk, formatter, cfg.StoreTimeout)
	query := tracker.NewQuery(db, formatter, cfg.StoreTimeout)

	// Initialize handler
	h := api.NewHandler(processor, query, policyEngine)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Tracker started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down tracker...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Tracker stopped")
}

// newStore selects the store implementation from the DSN scheme.
func newStore(ctx context.Context, dsn string) (store.Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return store.NewPostgresStore(ctx, dsn)
	}
	return store.NewSQLiteStore(dsn)
}
