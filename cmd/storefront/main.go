package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront-service/internal/api"
	"storefront-service/internal/auth"
	"storefront-service/internal/cache"
	"storefront-service/internal/catalog"
	"storefront-service/internal/config"
	"storefront-service/internal/domain"
	"storefront-service/internal/imaging"
	"storefront-service/internal/store"
	"storefront-service/internal/telemetry"
)

const (
	defaultAppName = "StorefrontService"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile|log.Lmicroseconds)
	logger.Println("INFO: Starting service...")

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger.Printf("INFO: Configuration loaded for APP_ENV: %s, LogLevel: %s", cfg.AppEnv, cfg.LogLevel)

	shutdownTracing, err := telemetry.SetupTracing(cfg.Tracing, os.Stdout, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to set up tracing: %v", err)
	}

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize database connection: %v", err)
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)

	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatalf("FATAL: Failed to ping database: %v", err)
	}
	if err := store.RunMigrations(db, cfg.Postgres.MigrationsTable); err != nil {
		logger.Fatalf("FATAL: Failed to apply migrations: %v", err)
	}
	logger.Println("INFO: Database connection established and schema is up to date.")
	dbStore := store.NewPostgresStore(db)

	// --- Catalog Services ---
	services, redisClient := buildServices(cfg, dbStore, logger)

	httpAPIHandler := api.NewHTTPHandler(services)
	grpcAPIHandler := api.NewGRPCHandler(services)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, cfg.Tracing.ServiceName)
	registerHealthCheck(httpRouter, logger, db, redisClient)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server ListenAndServe error: %v", err)
		}
		logger.Println("INFO: HTTP server has stopped.")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(logger, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Fatalf("FATAL: Failed to listen for gRPC on port %s: %v", cfg.GrpcServer.Port, err)
	}

	go func() {
		logger.Printf("INFO: gRPC server listening on port %s", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatalf("FATAL: gRPC server Serve error: %v", err)
		}
		logger.Println("INFO: gRPC server has stopped.")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, dbStore, redisClient, shutdownTracing, shutdownComplete)

	<-shutdownComplete
	logger.Println("INFO: Service shutdown sequence finished.")
}

// buildServices wires the catalog, cart, image and auth components. The
// returned redis client is nil when caching is disabled.
func buildServices(cfg *config.Config, dbStore *store.PostgresStore, logger *log.Logger) (api.Services, *redis.Client) {
	registry := catalog.NewRegistry(cfg.Catalog.CategoryTypes)
	for _, slug := range registry.UnknownBindings() {
		logger.Printf("WARN: Category %q is bound to an unregistered product type and will be hidden", slug)
	}

	var sidebarCache cache.Cache
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sidebarCache = cache.NewRedisCache(redisClient, cfg.Redis.TTL)
		logger.Printf("INFO: Sidebar cache enabled at %s (ttl %s)", cfg.Redis.Addr, cfg.Redis.TTL)
	}
	sidebar := catalog.NewSidebar(registry, dbStore, dbStore, sidebarCache, logger)

	media, err := imaging.NewDirStorage(cfg.Image.MediaRoot, "products")
	if err != nil {
		logger.Fatalf("FATAL: Failed to prepare media directory: %v", err)
	}

	prioritize, err := registry.ParseType(cfg.Catalog.Prioritize)
	if err != nil && cfg.Catalog.Prioritize != "" {
		logger.Printf("WARN: CATALOG_PRIORITIZE %q is not a registered type, prioritization disabled", cfg.Catalog.Prioritize)
	}

	return api.Services{
		Registry:    registry,
		Categories:  dbStore,
		Products:    dbStore,
		Customers:   dbStore,
		Carts:       dbStore,
		Sidebar:     sidebar,
		Images:      imaging.NewNormalizer(cfg.Image),
		Media:       media,
		Auth:        auth.NewAuthenticator(cfg.Auth, logger),
		LatestLimit: cfg.Catalog.LatestLimit,
		Prioritize:  domain.TypeTag(prioritize),
		Logger:      logger,
	}, redisClient
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger, serviceName string) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(telemetry.HTTPMiddleware(serviceName))
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	logger.Println("INFO: Base HTTP middleware registered.")
}

func registerHealthCheck(router *chi.Mux, logger *log.Logger, db *sql.DB, redisClient *redis.Client) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			logger.Printf("WARN: Health check DB ping failed: %v", err)
		}
		cacheStatus := "disabled"
		if redisClient != nil {
			cacheStatus = "healthy"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				cacheStatus = "unhealthy"
				logger.Printf("WARN: Health check cache ping failed: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		// Always 200; the payload carries the dependency status.
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
			"cache":       cacheStatus,
		})
	})
	logger.Printf("INFO: HTTP health check registered at %s", healthPath)
}

func setupGRPCServer(logger *log.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))

	api.RegisterCatalogServer(s, grpcAPIHandler)
	logger.Println("INFO: Catalog gRPC service registered.")

	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	logger.Println("INFO: gRPC health check service registered.")

	reflection.Register(s)
	logger.Println("INFO: gRPC reflection service registered.")

	return s
}

func loggingInterceptor(logger *log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Printf("WARN: gRPC %s failed after %s: %v", info.FullMethod, time.Since(start), err)
		}
		return resp, err
	}
}

func waitForShutdown(
	logger *log.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dbStore *store.PostgresStore,
	redisClient *redis.Client,
	shutdownTracing telemetry.ShutdownFunc,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Printf("INFO: Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	logger.Println("INFO: Attempting to gracefully shut down gRPC server...")
	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	logger.Println("INFO: Attempting to gracefully shut down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP server graceful shutdown failed: %v", err)
	} else {
		logger.Println("INFO: HTTP server gracefully shut down.")
	}

	select {
	case <-stoppedGrpc:
		logger.Println("INFO: gRPC server gracefully shut down.")
	case <-shutdownCtx.Done():
		logger.Printf("WARN: gRPC server graceful shutdown timed out: %v", shutdownCtx.Err())
		grpcServer.Stop()
		logger.Println("INFO: gRPC server forced stop.")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Printf("WARN: Error closing redis client: %v", err)
		}
	}
	if err := dbStore.Close(); err != nil {
		logger.Printf("WARN: Error closing database connection: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("WARN: Error flushing traces: %v", err)
	}

	logger.Println("INFO: Graceful shutdown sequence completed.")
}
