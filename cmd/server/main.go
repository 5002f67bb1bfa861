package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mercado/internal/audit"
	"mercado/internal/auth"
	"mercado/internal/governance"
	"mercado/internal/handler"
	"mercado/internal/middleware"
	"mercado/internal/repository/postgres"
	"mercado/internal/ticket"
	"mercado/pkg/cache"
	"mercado/pkg/config"
	"mercado/pkg/logger"
	"mercado/pkg/metrics"
	"mercado/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("governance-api")

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is required", nil)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Redis is optional: without it snapshots are read straight from
	// Postgres.
	var snapshots governance.SnapshotCache
	if redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn("Redis unavailable, seller snapshot cache disabled", map[string]interface{}{
			"addr":  cfg.Redis.Addr,
			"error": err.Error(),
		})
	} else {
		defer redisCache.Close()
		snapshots = governance.NewRedisSnapshotCache(redisCache, cfg.Redis.SellerCacheTTL)
	}

	userRepo := postgres.NewUserRepository(db)
	sellerRepo := postgres.NewSellerRepository(db)
	ticketRepo := postgres.NewTicketRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	store := postgres.NewStore(db)

	m := metrics.New()
	gate := auth.NewRoleGate(userRepo)
	clock := governance.SystemClock()

	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	governanceService := governance.NewService(store, sellerRepo, gate, snapshots, clock, log, m)
	ticketService := ticket.NewService(store, ticketRepo, ticketRepo, gate, clock, log)
	auditService := audit.NewService(auditRepo, log)

	v := validator.New()
	authHandler := handler.NewAuthHandler(authService, v, log)
	governanceHandler := handler.NewGovernanceHandler(governanceService, auditService, v, log)
	ticketHandler := handler.NewTicketHandler(ticketService, v, log)

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	logMW := middleware.NewLoggingMiddleware(log)

	r := mux.NewRouter()
	r.Use(logMW.Log)

	r.HandleFunc("/health", handler.Health(log)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Authenticated seller surface.
	sellerAPI := api.NewRoute().Subrouter()
	sellerAPI.Use(authMW.Authenticate)
	sellerAPI.HandleFunc("/tickets", ticketHandler.Open).Methods("POST")
	sellerAPI.HandleFunc("/tickets", ticketHandler.List).Methods("GET")
	sellerAPI.HandleFunc("/tickets/{ticketID}", ticketHandler.Get).Methods("GET")
	sellerAPI.HandleFunc("/tickets/{ticketID}/messages", ticketHandler.Reply).Methods("POST")

	// Admin governance surface. The services re-check the admin role, so a
	// forged token stops here and a stale one stops there.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.Authenticate, authMW.RequireAdmin)
	admin.HandleFunc("/sellers", governanceHandler.ListSellers).Methods("GET")
	admin.HandleFunc("/sellers/{userID}", governanceHandler.GetSeller).Methods("GET")
	admin.HandleFunc("/sellers/{userID}/kyc/review", governanceHandler.ReviewKYC).Methods("POST")
	admin.HandleFunc("/sellers/{userID}/approve", governanceHandler.Approve).Methods("POST")
	admin.HandleFunc("/sellers/{userID}/reject", governanceHandler.Reject).Methods("POST")
	admin.HandleFunc("/sellers/{userID}/suspend", governanceHandler.Suspend).Methods("POST")
	admin.HandleFunc("/sellers/{userID}/reactivate", governanceHandler.Reactivate).Methods("POST")
	admin.HandleFunc("/sellers/{userID}/request-documents", governanceHandler.RequestDocuments).Methods("POST")
	admin.HandleFunc("/audit/{entityType}/{entityID}", governanceHandler.AuditHistory).Methods("GET")
	admin.HandleFunc("/tickets/escalations", ticketHandler.CreateEscalation).Methods("POST")
	admin.HandleFunc("/tickets/{ticketID}/close", ticketHandler.Close).Methods("POST")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Governance API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Stopped gracefully", nil)
}
