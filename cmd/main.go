// @title Todo List Backend API
// @version 1.0
// @description Multi-user to-do list backend: register, log in, manage your own todos.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5001
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	_ "TODOLIST_BACK-END/docs" // This is required for swagger
	"TODOLIST_BACK-END/internal/config"
	"TODOLIST_BACK-END/internal/handlers"
	"TODOLIST_BACK-END/internal/middleware"
	"TODOLIST_BACK-END/internal/password"
	"TODOLIST_BACK-END/internal/routes"
	"TODOLIST_BACK-END/internal/store"
	"TODOLIST_BACK-END/internal/store/memory"
	"TODOLIST_BACK-END/internal/store/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Wait for SIGINT/SIGTERM to shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	// Create tables on startup
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// --- HTTP Handlers ---

	tokens := middleware.NewTokenService(&cfg.JWT)
	hasher := password.NewBcryptHasher(cfg.Password.BcryptCost)

	router := routes.NewRouter(routes.Dependencies{
		Auth:         handlers.NewAuthHandler(db, hasher, tokens),
		Todos:        handlers.NewTodosHandler(db),
		Health:       handlers.NewHealthHandler(db, cfg.Store.Driver),
		Tokens:       tokens,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	})

	// --- HTTP Server + Graceful Shutdown ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	log.Printf("HTTP server listening on :%s (store=%s)", cfg.Server.Port, cfg.Store.Driver)
	return serve(ctx, srv, cfg.Server.ShutdownTimeout)
}

// serve runs srv until ctx is cancelled or the listener fails. A listener
// error is returned so the caller's deferred cleanup still runs.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("Server stopped.")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		return memory.New(), nil
	}

	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return postgres.New(pool), nil
}
