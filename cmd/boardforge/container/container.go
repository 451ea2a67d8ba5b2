package container

import (
	"github.com/redis/go-redis/v9"

	"github.com/boardforge/boardforge/cmd/boardforge/repository"
	"github.com/boardforge/boardforge/cmd/boardforge/service"
	"github.com/boardforge/boardforge/common/bootstrap"
	"github.com/boardforge/boardforge/common/cache"
	"github.com/boardforge/boardforge/common/queue"
	"github.com/boardforge/boardforge/common/ratelimit"
	rediscommon "github.com/boardforge/boardforge/common/redis"
	"github.com/boardforge/boardforge/common/validation"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components  *bootstrap.Components
	Redis       *rediscommon.Client
	RedisRaw    *redis.Client
	RateLimiter *ratelimit.RateLimiter
	Limits      ratelimit.Limits

	// Repositories
	Store    *repository.GraphStore
	TxRunner *repository.TxRunner

	// Services
	Notifier         *service.Notifier
	AuthzEngine      *service.AuthzEngine
	Replication      *service.ReplicationEngine
	PrototypeService *service.PrototypeService
	PartService      *service.PartService
	AccessService    *service.AccessService
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Create Redis client (raw) and wrap it for instrumentation
	redisRaw := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisClient := rediscommon.NewClient(redisRaw, components.Logger)

	// Rate limiter shares the redis connection
	rateLimiter := ratelimit.NewRateLimiter(redisRaw, components.Logger)
	limits := ratelimit.Limits{
		UserLimit:     cfg.RateLimit.UserLimit,
		GlobalLimit:   cfg.RateLimit.GlobalLimit,
		WindowSeconds: cfg.RateLimit.WindowSeconds,
	}.Normalize()

	// Post-commit event channel. Falls back to an in-memory publisher
	// when realtime is disabled so services never nil-check.
	var publisher queue.Publisher
	if cfg.Realtime.Enabled {
		publisher = queue.NewRedisPublisher(redisClient, components.Logger)
	} else {
		publisher = queue.NewMemoryPublisher(components.Logger)
	}
	notifier := service.NewNotifier(publisher, cfg.Realtime.ChannelPrefix, components.Logger)

	// Graph reads always go through a cache value; when the bootstrap
	// skipped it, a fresh in-memory one serves the same purpose.
	graphCache := components.Cache
	if graphCache == nil {
		graphCache = cache.NewMemoryCache(components.Logger)
	}

	// Initialize repositories
	store := repository.NewGraphStore(components.DB)
	txRunner := repository.NewTxRunner(components.DB)

	// Initialize services (bottom-up: dependencies first)
	validator := validation.NewRuleValidator()
	authzEngine := service.NewAuthzEngine(store, store, components.Logger)
	replication := service.NewReplicationEngine(txRunner, components.Logger)

	prototypeService := service.NewPrototypeService(&service.PrototypeServiceOpts{
		Store:      store,
		Engine:     replication,
		Authz:      authzEngine,
		Validator:  validator,
		GraphCache: graphCache,
		GraphTTL:   cfg.Cache.DefaultTTL,
		Notifier:   notifier,
		Logger:     components.Logger,
	})

	partService := service.NewPartService(&service.PartServiceOpts{
		Store:      store,
		Authz:      authzEngine,
		Validator:  validator,
		GraphCache: graphCache,
		Notifier:   notifier,
		Logger:     components.Logger,
	})

	accessService := service.NewAccessService(authzEngine, store, components.Logger)

	return &Container{
		Components:       components,
		Redis:            redisClient,
		RedisRaw:         redisRaw,
		RateLimiter:      rateLimiter,
		Limits:           limits,
		Store:            store,
		TxRunner:         txRunner,
		Notifier:         notifier,
		AuthzEngine:      authzEngine,
		Replication:      replication,
		PrototypeService: prototypeService,
		PartService:      partService,
		AccessService:    accessService,
	}, nil
}
