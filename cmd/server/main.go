package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ccna-trainer/backend/internal/auth"
	"github.com/ccna-trainer/backend/internal/catalog"
	"github.com/ccna-trainer/backend/internal/config"
	"github.com/ccna-trainer/backend/internal/database"
	"github.com/ccna-trainer/backend/internal/explainer"
	"github.com/ccna-trainer/backend/internal/loader"
	"github.com/ccna-trainer/backend/internal/sessions"
)

const keepSnapshots = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		store   catalog.Store
		results sessions.ResultStore = sessions.NewMemoryResults(0)
		pgStore *catalog.PostgresStore
	)
	if cfg.CatalogStore == config.StorePostgres {
		db, err := database.Connect()
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		pgStore = catalog.NewPostgresStore(db)
		store = pgStore
		results = sessions.NewPostgresResults(db)
	}

	// Catalog
	fetcher := loader.NewFetcher(cfg.SourceURL, cfg.SourceFormat, cfg.DefaultCategory)
	questions := catalog.New(cfg.Profile.Categories(), fetcher, store)
	if err := questions.Init(ctx); err != nil {
		log.Fatalf("Failed to load questions: %v", err)
	}
	if pgStore != nil {
		if n, err := pgStore.PruneSnapshots(ctx, keepSnapshots); err != nil {
			log.Printf("WARN: pruning catalog snapshots: %v", err)
		} else if n > 0 {
			log.Printf("Pruned %d old catalog snapshots", n)
		}
	}

	expl, err := explainer.New(cfg.ExplainerMode, cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.ClaudeCLIPath)
	if err != nil {
		log.Fatalf("Failed to set up explainer: %v", err)
	}

	// Sessions
	manager := sessions.NewManager(questions, cfg.Profile, cfg.SessionTTL, results)
	go manager.Start(ctx)

	// Initialize handlers
	tokens := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(tokens, cfg.AdminUser, cfg.AdminPassHash)
	catalogHandler := catalog.NewHandler(questions, cfg.DefaultCategory, expl)
	sessionHandler := sessions.NewHandler(manager, tokens, expl, cfg.SessionTTL)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/admin/login", authHandler.AdminLogin).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(tokens.Require(auth.RoleAdmin))

	// Session routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(tokens.Require(auth.RoleSession))

	catalogHandler.RegisterRoutes(api, admin)
	sessionHandler.RegisterRoutes(api, protected, admin)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on :%s (%d questions, explainer %s)", cfg.Port, questions.Len(), expl.ModelName())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
