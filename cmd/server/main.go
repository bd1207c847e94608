package main

import (
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"connectdeck/internal/auth"
	"connectdeck/internal/cache"
	"connectdeck/internal/client"
	"connectdeck/internal/config"
	"connectdeck/internal/game"
	"connectdeck/internal/handlers"
	"connectdeck/internal/security"
	"connectdeck/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize the offline snapshot cache (supports sqlite, postgres, mysql)
	db, err := cache.Open(cfg.CacheDialect, cache.DialectConfig{
		Path: cfg.CachePath,
		URL:  cfg.CacheURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize snapshot cache: %v", err)
	}
	defer db.Close()

	log.Printf("Snapshot cache ready (dialect: %s)", cfg.CacheDialect)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Backend API client with auth, retries, and circuit breakers. Without a
	// configured token the client runs unauthenticated (local backends).
	var tokens client.TokenProvider
	if access := os.Getenv("BACKEND_ACCESS_TOKEN"); access != "" {
		manager := auth.NewTokenManager(cfg.TokenEndpoint, &http.Client{Timeout: cfg.RequestTimeout})
		manager.SetToken(access, os.Getenv("BACKEND_REFRESH_TOKEN"))
		tokens = manager
	}

	breakers := client.NewBreakerRegistry(client.BreakerConfig{})
	api := client.New(cfg.BackendBaseURL, &http.Client{Timeout: cfg.RequestTimeout}, breakers, tokens)

	// Initialize services
	snapshots := cache.NewSnapshotStore(db)
	deckService := service.NewDeckService(api)
	selector := game.NewSelector(rand.NewSource(time.Now().UnixNano()))
	sessionService := service.NewSessionService(api, deckService, selector, snapshots, cfg.CardsPerLevel)

	// Initialize handlers
	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()

	middleware := handlers.NewMiddleware(limiter, cfg.APIToken)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	deckHandler := handlers.NewDeckHandler(deckService)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthz", handlers.Health)
	mux.HandleFunc("GET /api/decks", deckHandler.List)

	mux.HandleFunc("POST /api/sessions", middleware.RequireAuth(middleware.RateLimit(sessionHandler.Create)))
	mux.HandleFunc("GET /api/sessions/{id}", middleware.RequireAuth(sessionHandler.Get))
	mux.HandleFunc("POST /api/sessions/{id}/draw", middleware.RequireAuth(middleware.RateLimit(sessionHandler.Draw)))
	mux.HandleFunc("POST /api/sessions/{id}/cards/{cardId}/complete", middleware.RequireAuth(middleware.RateLimit(sessionHandler.Complete)))
	mux.HandleFunc("POST /api/sessions/{id}/cards/{cardId}/skip", middleware.RequireAuth(middleware.RateLimit(sessionHandler.Skip)))
	mux.HandleFunc("POST /api/sessions/{id}/pause", middleware.RequireAuth(sessionHandler.Pause))
	mux.HandleFunc("POST /api/sessions/{id}/resume", middleware.RequireAuth(sessionHandler.Resume))
	mux.HandleFunc("POST /api/sessions/{id}/end", middleware.RequireAuth(sessionHandler.End))

	// Wrap with CORS and logging middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	handler := middleware.Logging(corsHandler.Handler(mux))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background snapshot pruning
	go pruneCompletedSnapshots(snapshots, cfg.SnapshotTTL)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// pruneCompletedSnapshots periodically drops completed sessions older than ttl
// from the offline cache
func pruneCompletedSnapshots(snapshots *cache.SnapshotStore, ttl time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		pruned, err := snapshots.PruneCompleted(time.Now().Add(-ttl))
		if err != nil {
			log.Printf("Warning: Failed to prune snapshots: %v", err)
			continue
		}
		if pruned > 0 {
			log.Printf("Pruned %d completed session snapshots", pruned)
		}
	}
}
