package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mdm-platform/feedhub/internal/archive"
	"mdm-platform/feedhub/internal/auth"
	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/metrics"
	"mdm-platform/feedhub/internal/scheduler"
	"mdm-platform/feedhub/internal/services"
)

type Repositories struct {
	Connections *repositories.ConnectionRepo
	DataSources *repositories.DataSourceRepo
	Imports     *repositories.ImportRepo
	Schedules   *repositories.ScheduleRepo
	Catalog     *repositories.CatalogRepo
}

type Services struct {
	Configs     *services.CachedConfigStore
	Suppliers   *services.SupplierService
	Connections *services.ConnectionService
	DataSources *services.DataSourceService
	Templates   *services.MappingTemplateService
	Schedules   *services.ScheduleService
	TestPulls   *services.TestPullService
	Imports     *services.ImportService
	Uploads     *services.UploadService
}

type Dependencies struct {
	Repo      *Repositories
	Services  *Services
	Engine    *ingestion.Engine
	Scheduler *scheduler.Scheduler
	Signer    *auth.TokenSigner
	Metrics   *metrics.MetricsRegistry
	Cache     common.CacheInterface
	Events    *common.StreamPublisher
	DB        *gorm.DB
	Redis     *redis.Client
	UpSince   time.Time
}

// InitDependencies wires repositories, services, the engine and the
// scheduler. Redis is only dialed when the cache or the event stream needs it;
// the archive is only built when configured.
func InitDependencies(ctx context.Context, cfg *config.Config, gdb *gorm.DB, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	log := logging.Component("dependencies")

	vault, err := credentials.NewStore(cfg.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}
	signer, err := auth.NewTokenSigner([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	repos := &Repositories{
		Connections: repositories.NewConnectionRepo(gdb),
		DataSources: repositories.NewDataSourceRepo(gdb),
		Imports:     repositories.NewImportRepo(gdb),
		Schedules:   repositories.NewScheduleRepo(gdb),
		Catalog:     repositories.NewCatalogRepo(gdb),
	}

	deps := &Dependencies{
		Repo:    repos,
		Signer:  signer,
		Metrics: metricsReg,
		DB:      gdb,
		UpSince: time.Now(),
	}

	if cfg.CacheBackend == "redis" || cfg.Redis.EventsStream != "" {
		deps.Redis = common.NewRedisClient(cfg.Redis)
		if err := common.Ping(ctx, deps.Redis); err != nil {
			log.Warnw("Redis is not reachable yet", "addr", cfg.Redis.Addr(), "error", err)
		}
	}

	var redisCmd common.RedisCmdable
	if deps.Redis != nil {
		redisCmd = deps.Redis
	}
	deps.Cache = common.NewCache(cfg.CacheBackend, redisCmd, 10*time.Minute)

	engineDeps := ingestion.Deps{
		Imports:   repos.Imports,
		Catalog:   repos.Catalog,
		Inventory: repos.Catalog,
		Vault:     vault,
		Metrics:   metricsReg,
	}
	if cfg.Redis.EventsStream != "" && deps.Redis != nil {
		deps.Events = common.NewStreamPublisher(deps.Redis, cfg.Redis.EventsStream)
		engineDeps.Events = deps.Events
	}
	if cfg.Archive.Enabled() {
		archiver, err := archive.NewMinioArchiver(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive: %w", err)
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			log.Warnw("Archive bucket is not ready", "bucket", cfg.Archive.Bucket, "error", err)
		}
		engineDeps.Archive = archiver
	}

	configs := services.NewCachedConfigStore(repos.DataSources, repos.Connections, deps.Cache, metricsReg)
	engineDeps.Configs = configs
	deps.Engine = ingestion.NewEngine(engineDeps, cfg.Ingestion)

	sampler := ingestion.NewSampler(nil, cfg.Ingestion)
	connections := services.NewConnectionService(repos.Connections, vault, sampler, metricsReg, cfg.Ingestion.ProbeTimeout)
	templates := services.NewMappingTemplateService(repos.DataSources, configs)

	deps.Scheduler = scheduler.New(repos.Schedules, scheduler.Options{
		PollInterval: cfg.Scheduler.PollInterval,
		Location:     cfg.Location(),
		Defaults:     cfg.Scheduler.DefaultJobs,
		Metrics:      metricsReg,
	})
	deps.Scheduler.Register(constants.JobIngestion, scheduler.IngestionHandler{Runner: deps.Engine})
	deps.Scheduler.Register(constants.JobConnectionHealth, scheduler.ConnectionHealthHandler{Checker: connections})

	deps.Services = &Services{
		Configs:     configs,
		Suppliers:   services.NewSupplierService(repos.Connections),
		Connections: connections,
		DataSources: services.NewDataSourceService(repos.DataSources, repos.Connections, configs),
		Templates:   templates,
		Schedules:   services.NewScheduleService(repos.Schedules, repos.DataSources, deps.Scheduler),
		TestPulls:   services.NewTestPullService(connections, templates, repos.Schedules),
		Imports:     services.NewImportService(repos.Imports, deps.Engine),
		Uploads:     services.NewUploadService(repos.Connections, configs, vault, deps.Engine, cfg.Ingestion.MaxUploadBytes),
	}

	return deps, nil
}

// Close releases the cache and the Redis client
func (d *Dependencies) Close() error {
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && err != redis.ErrClosed {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}
