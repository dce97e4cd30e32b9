package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"storefront-service/internal/cache"
	"storefront-service/internal/catalog"
	"storefront-service/internal/config"
	"storefront-service/internal/imaging"
	"storefront-service/internal/seed"
	"storefront-service/internal/store"
)

func main() {
	fixturePath := flag.String("file", "catalog.yaml", "YAML fixture describing categories and products")
	assetsDir := flag.String("media", "./fixtures", "directory the fixture's image paths are relative to")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, "[StorefrontSeed] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}

	f, err := os.Open(*fixturePath)
	if err != nil {
		logger.Fatalf("FATAL: Failed to open fixture: %v", err)
	}
	fixtures, err := seed.Load(f)
	f.Close()
	if err != nil {
		logger.Fatalf("FATAL: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize database connection: %v", err)
	}
	dbStore := store.NewPostgresStore(db)

	if err := store.RunMigrations(db, cfg.Postgres.MigrationsTable); err != nil {
		logger.Fatalf("FATAL: Failed to apply migrations: %v", err)
	}

	media, err := imaging.NewDirStorage(cfg.Image.MediaRoot, "products")
	if err != nil {
		logger.Fatalf("FATAL: Failed to prepare media directory: %v", err)
	}
	// The running server caches sidebar counts in Redis; a seed run must drop them.
	var sidebarCache cache.Cache
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sidebarCache = cache.NewRedisCache(redisClient, cfg.Redis.TTL)
	}

	registry := catalog.NewRegistry(cfg.Catalog.CategoryTypes)
	seeder := seed.NewSeeder(
		registry,
		dbStore, dbStore,
		imaging.NewNormalizer(cfg.Image),
		media,
		catalog.NewSidebar(registry, dbStore, dbStore, sidebarCache, logger),
		logger,
	)

	res, err := seeder.Run(context.Background(), fixtures, os.DirFS(*assetsDir))
	if redisClient != nil {
		redisClient.Close()
	}
	dbStore.Close()
	if err != nil {
		logger.Printf("ERROR: Seeding stopped: %v", err)
	}
	fmt.Printf("categories created: %d, products created: %d, products skipped: %d\n", res.Categories, res.Products, res.Skipped)
	if err != nil {
		os.Exit(1)
	}
}
