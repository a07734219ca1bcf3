package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/cricket-ingest/external/cricinfo"
	"github.com/riskibarqy/cricket-ingest/internal/config"
	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	repocache "github.com/riskibarqy/cricket-ingest/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/cricket-ingest/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/cricket-ingest/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/cricket-ingest/internal/platform/cache"
	idgen "github.com/riskibarqy/cricket-ingest/internal/platform/id"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/platform/resilience"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const fetchRetryJitter = 0.2

// MatchLister produces the matches a run should ingest.
type MatchLister interface {
	ListMatches(ctx context.Context) ([]match.Ref, error)
}

type staticLister struct {
	urls    []string
	path    string
	baseURL string
}

func (l staticLister) ListMatches(context.Context) ([]match.Ref, error) {
	return cricinfo.StaticRefs(l.urls, l.path, l.baseURL)
}

// App holds the wired services of one ingestion process.
type App struct {
	RunID     string
	Tracker   *usecase.Tracker
	Ingestion *usecase.IngestionService
	Players   *usecase.PlayerService
	Lister    MatchLister

	logger  *logging.Logger
	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	runID, err := idgen.NewUUIDGenerator().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With("run_id", runID)

	a := &App{RunID: runID, logger: logger}

	matchRepo, trackerRepo, err := a.openStore(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	fetcher, err := a.newFetcher(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	parser := cricinfo.NewParser()

	paginator := usecase.NewPaginator(fetcher, parser, usecase.PaginatorConfig{
		MaxPages: cfg.MaxPagesPerMatch,
		Retries:  cfg.FetchRetries,
		Backoff: resilience.BackoffConfig{
			Base:   cfg.FetchRetryBaseDelay,
			Max:    cfg.FetchRetryMaxDelay,
			Jitter: fetchRetryJitter,
		},
		Logger: logger.Named("paginator"),
	})
	a.Tracker = usecase.NewTracker(trackerRepo, usecase.TrackerConfig{
		RunID:              runID,
		Force:              cfg.ForceReingest,
		StaleAfter:         cfg.ClaimStaleAfter,
		PrefilterThreshold: cfg.TrackerCacheThreshold,
		NewCompletedSet: func(expected uint) usecase.CompletedSet {
			return repocache.NewCompletedSet(expected)
		},
		Logger: logger.Named("tracker"),
	})
	persister := usecase.NewPersister(matchRepo, usecase.PersisterConfig{
		MaxFailureRatio: cfg.MaxRowFailureRatio,
		Logger:          logger.Named("persister"),
	})
	a.Ingestion = usecase.NewIngestionService(a.Tracker, paginator, parser, persister, usecase.IngestionConfig{
		Workers:         cfg.Workers,
		MatchDelay:      cfg.MatchDelay,
		MaxAttempts:     cfg.MatchMaxAttempts,
		MatchRetryDelay: cfg.MatchRetryDelay,
		Logger:          logger.Named("ingestion"),
	})

	a.Players = usecase.NewPlayerService(matchRepo, logger.Named("players"))

	if len(cfg.MatchURLs) > 0 || cfg.MatchURLsFile != "" {
		a.Lister = staticLister{urls: cfg.MatchURLs, path: cfg.MatchURLsFile, baseURL: cfg.SourceBaseURL}
	} else {
		a.Lister = cricinfo.NewScheduleClient(fetcher, cricinfo.ScheduleConfig{
			BaseURL:     cfg.SourceBaseURL,
			ScheduleURL: cfg.ScheduleURL,
			Logger:      logger.Named("schedule"),
		})
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (match.Repository, tracker.Repository, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		a.logger.Warn("using in-memory store, nothing outlives this process")
		return memory.NewMatchRepository(), memory.NewTrackerRepository(), nil
	}

	db, err := OpenDB(ctx, cfg, a.RunID, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, db.Close)
	return postgres.NewMatchRepository(db), postgres.NewTrackerRepository(db), nil
}

func (a *App) newFetcher(ctx context.Context, cfg config.Config) (usecase.Fetcher, error) {
	client := cricinfo.NewClient(cricinfo.ClientConfig{
		Timeout:      cfg.FetchTimeout,
		UserAgent:    cfg.FetchUserAgent,
		MaxBodyBytes: cfg.FetchMaxBodyBytes,
		Logger:       a.logger.Named("cricinfo"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FetchCircuitEnabled,
			FailureThreshold: cfg.FetchCircuitFailureCount,
			OpenTimeout:      cfg.FetchCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FetchCircuitHalfOpenMaxReq,
		},
	})
	if !cfg.PageCacheEnabled {
		return client, nil
	}

	var store cache.Store
	switch cfg.PageCacheBackend {
	case config.PageCacheRedis:
		redisStore, err := cache.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.PageCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("open page cache: %w", err)
		}
		a.closers = append(a.closers, redisStore.Close)
		store = redisStore
	default:
		store = cache.NewMemoryStore(cfg.PageCacheTTL)
	}
	a.logger.Info("page cache enabled", "backend", store.Name(), "ttl", cfg.PageCacheTTL)

	return cricinfo.NewCachedFetcher(client, cache.NewPages(store, a.logger.Named("page_cache"))), nil
}

// Close releases store connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
