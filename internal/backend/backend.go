// Package backend opens the configured store and lock backends and builds
// the service graph shared by the server and the admin CLI.
package backend

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/credence/internal/config"
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/extract"
	"github.com/Harshitk-cp/credence/internal/graph"
	"github.com/Harshitk-cp/credence/internal/llm"
	"github.com/Harshitk-cp/credence/internal/lock"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StorePostgres = "postgres"
	StoreNeo4j    = "neo4j"

	LockMemory = "memory"
	LockRedis  = "redis"
)

// Backend owns the open connections.
type Backend struct {
	Name   string
	Stores domain.Stores
	Locker service.Locker

	pool   *pgxpool.Pool
	graph  *graph.Client
	redis  *redis.Client
	logger *zap.Logger
}

// Open connects to the store selected by STORE_BACKEND and the lock
// selected by LOCK_BACKEND.
func Open(ctx context.Context, logger *zap.Logger) (*Backend, error) {
	b := &Backend{Name: config.StoreBackend(), logger: logger}

	switch b.Name {
	case StorePostgres:
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		b.pool = pool
		b.Stores = store.NewStores(pool)
		logger.Info("connected to database")

	case StoreNeo4j:
		client, err := graph.New(ctx, graph.Config{
			URI:      config.Neo4jURI(),
			User:     config.Neo4jUser(),
			Password: config.Neo4jPassword(),
			Database: config.Neo4jDatabase(),
		}, logger)
		if err != nil {
			return nil, err
		}
		b.graph = client
		b.Stores = graph.NewStores(client)
		logger.Info("connected to neo4j", zap.String("uri", config.Neo4jURI()))

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (valid options: postgres, neo4j)", b.Name)
	}

	switch config.LockBackend() {
	case LockMemory:
		b.Locker = lock.NewKeyedMutex()
	case LockRedis:
		b.redis = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr(),
			Password: config.RedisPassword(),
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.Locker = lock.NewRedisLocker(b.redis, logger)
		logger.Info("using redis locks", zap.String("addr", config.RedisAddr()))
	default:
		b.Close(ctx)
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q (valid options: memory, redis)", config.LockBackend())
	}

	return b, nil
}

// Migrate applies the schema: SQL migrations for postgres, constraints for
// neo4j.
func (b *Backend) Migrate(ctx context.Context) ([]string, error) {
	if b.pool != nil {
		return store.Migrate(ctx, b.pool, config.MigrationsPath(), b.logger)
	}
	if b.graph != nil {
		return nil, b.graph.EnsureConstraints(ctx)
	}
	return nil, nil
}

// Ping checks the store connection, for health checks.
func (b *Backend) Ping(ctx context.Context) error {
	switch {
	case b.pool != nil:
		return b.pool.Ping(ctx)
	case b.graph != nil:
		return b.graph.Ping(ctx)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.graph != nil {
		if err := b.graph.Close(ctx); err != nil {
			b.logger.Warn("closing neo4j driver", zap.Error(err))
		}
	}
}

// Services is every service wired over one set of stores.
type Services struct {
	Engine        *service.Engine
	Backfill      *service.Backfiller
	Hypotheses    *service.HypothesisService
	Evidence      *service.EvidenceService
	Links         *service.LinkService
	Verifications *service.VerificationService
	Analytics     *service.AnalyticsService
	Propagation   *service.PropagationService
	Updates       *service.UpdateService
	Assist        *service.AssistService
}

// NewServices builds the services. llmClient and extractor may be nil.
func NewServices(stores domain.Stores, locker service.Locker, llmClient domain.LLMClient, extractor domain.TextExtractor, logger *zap.Logger) *Services {
	engine := service.NewEngine(stores.Hypotheses, stores.Links, locker, logger)
	engine.SetLockTimeout(config.LockTimeout())
	backfill := service.NewBackfiller(stores.Hypotheses, stores.Links, engine, logger)
	propagation := service.NewPropagationService(stores.Hypotheses, stores.Relations, engine, logger)

	return &Services{
		Engine:        engine,
		Backfill:      backfill,
		Hypotheses:    service.NewHypothesisService(stores, engine, logger),
		Evidence:      service.NewEvidenceService(stores, engine, backfill, logger),
		Links:         service.NewLinkService(stores, engine, backfill, logger),
		Verifications: service.NewVerificationService(stores, engine, logger),
		Analytics:     service.NewAnalyticsService(stores.Hypotheses, stores.Verifications, logger),
		Propagation:   propagation,
		Updates:       service.NewUpdateService(stores, engine, backfill, propagation, logger),
		Assist:        service.NewAssistService(llmClient, extractor, logger),
	}
}

// NewLLMClient builds the configured provider. A provider of "none" or a
// misconfigured one yields nil, which makes suggestions fall back.
func NewLLMClient(logger *zap.Logger) domain.LLMClient {
	provider := config.LLMProvider()
	if provider == "none" {
		return nil
	}
	client, err := llm.NewClient(llm.Config{
		Provider:    provider,
		APIKey:      config.LLMAPIKey(),
		GeminiModel: config.GeminiModel(),
		Timeout:     config.LLMTimeout(),
	})
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", provider), zap.Error(err))
		return nil
	}
	logger.Info("LLM client initialized", zap.String("provider", provider))
	return client
}

func NewExtractor(logger *zap.Logger) domain.TextExtractor {
	return extract.NewXClient(logger)
}

// NewLogger builds the production JSON logger at LOG_LEVEL.
func NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(config.LogLevel())
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
