package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/preppro/backend/internal/analytics"
	"github.com/preppro/backend/internal/auth"
	"github.com/preppro/backend/internal/config"
	"github.com/preppro/backend/internal/database"
	"github.com/preppro/backend/internal/feedback"
	"github.com/preppro/backend/internal/generator"
	"github.com/preppro/backend/internal/logger"
	"github.com/preppro/backend/internal/mail"
	"github.com/preppro/backend/internal/mcq"
	"github.com/preppro/backend/internal/middleware"
	"github.com/preppro/backend/internal/practice"
	"github.com/preppro/backend/internal/questions"
	"github.com/preppro/backend/internal/tests"
	"github.com/preppro/backend/internal/users"
	"github.com/rs/cors"
)

const practiceQueueSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.Options{Token: cfg.RollbarToken, Environment: cfg.Env, Version: cfg.Version})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	gen, err := generator.New(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	practiceStore := practice.NewStore(db)
	pool := practice.NewPool(practiceStore, gen, cfg.PracticeWorkers, practiceQueueSize)
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("Failed to start practice workers: %v", err)
	}

	mcqService, closeMCQ, err := newMCQService(ctx, cfg, db, gen)
	if err != nil {
		log.Fatalf("Failed to initialize question generation: %v", err)
	}
	defer closeMCQ()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	resets := auth.NewResetTokens(cfg.JWTSecret, cfg.PasswordResetTimeout)
	authHandler := auth.NewHandler(auth.NewStore(db), tokens, resets, mail.New(cfg), cfg.FrontendBaseURL)

	questionStore := questions.NewStore(db)

	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware, middleware.Logging)
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes are matched before the authenticated subrouter.
	public := api.PathPrefix("").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(tokens))

	authHandler.RegisterRoutes(public, protected)
	users.NewHandler(users.NewStore(db)).RegisterRoutes(protected)
	questions.NewHandler(questions.NewService(questionStore)).RegisterRoutes(protected)
	tests.NewHandler(tests.NewService(tests.NewStore(db, questionStore))).RegisterRoutes(protected)
	feedback.NewHandler(feedback.NewService(feedback.NewStore(db))).RegisterRoutes(protected)
	analytics.NewHandler(analytics.NewService(analytics.NewStore(db))).RegisterRoutes(protected)
	practice.NewHandler(practice.NewService(practiceStore, pool)).RegisterRoutes(protected)
	mcq.NewHandler(mcqService).RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
	pool.Wait()
}

// newMCQService picks the bank index and cache backends from config. The
// returned func releases their connections.
func newMCQService(ctx context.Context, cfg *config.Config, db *sql.DB, gen *generator.Generator) (*mcq.Service, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	embedder, err := mcq.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, closeAll, err
	}

	var index mcq.Index
	switch {
	case embedder == nil:
	case cfg.Pinecone.APIKey != "" && cfg.Pinecone.Index != "":
		pc, err := mcq.NewPineconeIndex(ctx, cfg.Pinecone)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, pc.Close)
		index = pc
	default:
		mem, err := mcq.LoadMemoryIndex(ctx, mcq.NewStore(db))
		if err != nil {
			return nil, closeAll, err
		}
		log.Printf("[mcq] loaded %d bank questions into memory", mem.Len())
		index = mem
	}

	var cache mcq.Cache = mcq.NewMemoryCache(cfg.MCQCacheTTL)
	if cfg.RedisURL != "" {
		rc, err := mcq.NewRedisCache(ctx, cfg.RedisURL, cfg.MCQCacheTTL)
		if err != nil {
			logger.Warnf("[mcq] redis unavailable, using in-memory cache: %v", err)
		} else {
			closers = append(closers, rc.Close)
			cache = rc
		}
	}

	return mcq.NewService(embedder, index, gen, cache, cfg.MCQThreshold), closeAll, nil
}
