package cache

import (
	"context"
	"fmt"

	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/platform/metrics"
	"github.com/riskibarqy/cricket-ingest/internal/platform/resilience"
)

// Pages fronts page downloads with a Store. Concurrent loads of one key
// collapse into a single download. Store errors degrade to a miss.
type Pages struct {
	store  Store
	flight resilience.SingleFlight[[]byte]
	logger *logging.Logger
}

func NewPages(store Store, logger *logging.Logger) *Pages {
	if logger == nil {
		logger = logging.Default()
	}
	return &Pages{store: store, logger: logger}
}

func (p *Pages) GetOrLoad(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if p == nil || p.store == nil || key == "" {
		return loader(ctx)
	}

	if body, ok := p.lookup(ctx, key); ok {
		return body, nil
	}

	body, err, _ := p.flight.Do(key, func() ([]byte, error) {
		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := p.store.Set(ctx, key, loaded); setErr != nil {
			p.logger.WarnContext(ctx, "page cache write failed", "key", key, "error", setErr)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Pages) lookup(ctx context.Context, key string) ([]byte, bool) {
	backend := p.store.Name()
	body, ok, err := p.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.PageCache.WithLabelValues(backend, "error").Inc()
		p.logger.WarnContext(ctx, "page cache read failed", "key", key, "error", err)
		return nil, false
	case !ok:
		metrics.PageCache.WithLabelValues(backend, "miss").Inc()
		return nil, false
	default:
		metrics.PageCache.WithLabelValues(backend, "hit").Inc()
		return body, true
	}
}
