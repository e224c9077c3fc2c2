// Package resolve turns the bootstrap document and latency probes into a
// per-service endpoint map and keeps it fresh.
package resolve

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/metrics"
	"github.com/hamed0406/endpointresolver/internal/publish"
	"github.com/hamed0406/endpointresolver/internal/repo"
)

const DefaultInterval = 6 * time.Hour

type State int32

const (
	StateIdle State = iota
	StateBootstrapping
	StateResolving
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

type ConfigFetcher interface {
	Fetch(ctx context.Context, urls []string) (*domain.GlobalConfig, error)
}

type DomainSelector interface {
	Select(ctx context.Context, candidates []domain.DomainCandidate) []domain.ProbeResult
}

// CallStarter receives the call-service slice of every resolved map.
type CallStarter interface {
	Start(initial []string)
}

type Options struct {
	BootstrapURLs   []string
	KnownServices   []string
	CallServiceName string
	Interval        time.Duration
	Clock           clock.Clock
}

type Resolver struct {
	fetcher   ConfigFetcher
	selector  DomainSelector
	cache     *repo.ConfigCache
	publisher publish.Publisher
	calls     CallStarter
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Metrics

	cycleMu sync.Mutex

	mu        sync.RWMutex
	global    *domain.GlobalConfig
	published bool

	state atomic.Int32
}

// New wires a resolver. calls may be nil.
func New(
	fetcher ConfigFetcher,
	selector DomainSelector,
	cache *repo.ConfigCache,
	publisher publish.Publisher,
	calls CallStarter,
	opts Options,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Resolver {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Resolver{
		fetcher:   fetcher,
		selector:  selector,
		cache:     cache,
		publisher: publisher,
		calls:     calls,
		opts:      opts,
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

func (r *Resolver) State() State { return State(r.state.Load()) }

func (r *Resolver) setState(s State) { r.state.Store(int32(s)) }

// Run publishes whatever is cached, runs a cycle immediately and then one
// per interval until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	t := r.opts.Clock.Ticker(r.opts.Interval)
	defer t.Stop()

	r.Bootstrap(ctx)
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("resolver_stopped")
			return
		case <-t.C:
			r.RunOnce(ctx)
		}
	}
}

// Bootstrap reads both caches. The cached global config becomes the
// in-memory fallback. While nothing has been published in this process it
// publishes the cached service map, or, when only the global config is
// cached, an unprobed map built from it. It reports whether it published.
func (r *Resolver) Bootstrap(ctx context.Context) bool {
	if cfg, ok := r.cache.GlobalConfig(ctx); ok {
		r.mu.Lock()
		if r.global == nil {
			r.global = cfg
		}
		r.mu.Unlock()
	}

	r.mu.RLock()
	published, global := r.published, r.global
	r.mu.RUnlock()
	if published {
		return false
	}
	r.setState(StateBootstrapping)

	if m, ok := r.cache.ServiceConfig(ctx); ok {
		r.logger.Info("cached_config_published", zap.Int("services", len(m)))
		r.publish(ctx, m)
		return true
	}
	if global != nil {
		m := Combine(Unprobed(global.Domains), global.Services, r.opts.KnownServices)
		r.logger.Info("unprobed_config_published", zap.Int("services", len(m)))
		r.publish(ctx, m)
		return true
	}
	return false
}

// RunOnce performs one resolution cycle and returns the published map, or
// nil when nothing was published: no global config is available from any
// source, or ctx ended before probing finished. It never fails.
func (r *Resolver) RunOnce(ctx context.Context) domain.ServiceConfigMap {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	log := r.logger.With(zap.String("cycle", uuid.NewString()))
	r.Bootstrap(ctx)

	cfg, source := r.globalConfig(ctx, log)
	if cfg == nil {
		r.metrics.Cycle("none")
		log.Warn("resolve_skipped_no_config")
		return nil
	}

	prev := r.State()
	if prev != StateReady {
		r.setState(StateResolving)
	}
	probed := r.selector.Select(ctx, cfg.Domains)
	if err := ctx.Err(); err != nil {
		// ctx ended mid-probe; the published map stays
		if prev != StateReady {
			r.setState(StateBootstrapping)
		}
		r.metrics.Cycle("interrupted")
		log.Warn("resolve_interrupted", zap.Error(err))
		return nil
	}
	m := Combine(probed, cfg.Services, r.opts.KnownServices)

	r.cache.SaveServiceConfig(ctx, m)
	r.publish(ctx, m)
	r.setState(StateReady)

	if r.calls != nil && r.opts.CallServiceName != "" {
		r.calls.Start(m.URLs(r.opts.CallServiceName))
	}

	r.metrics.Cycle(source)
	r.metrics.CycleCompleted(r.opts.Clock.Now())
	log.Info("resolve_done",
		zap.String("source", source),
		zap.Int("candidates", len(cfg.Domains)),
		zap.Int("usable", len(probed)),
		zap.Int("services", len(m)),
	)
	return m
}

// globalConfig fetches a fresh document, falling back to memory and then to
// the persisted copy.
func (r *Resolver) globalConfig(ctx context.Context, log *zap.Logger) (*domain.GlobalConfig, string) {
	fresh, err := r.fetcher.Fetch(ctx, r.opts.BootstrapURLs)
	if err == nil {
		r.cache.SaveGlobalConfig(ctx, fresh)
		r.mu.Lock()
		r.global = fresh
		r.mu.Unlock()
		return fresh, "fresh"
	}
	log.Warn("global_config_fetch_failed", zap.Error(err))

	r.mu.RLock()
	mem := r.global
	r.mu.RUnlock()
	if mem != nil {
		return mem, "memory"
	}
	if cached, ok := r.cache.GlobalConfig(ctx); ok {
		r.mu.Lock()
		r.global = cached
		r.mu.Unlock()
		return cached, "cache"
	}
	return nil, "none"
}

func (r *Resolver) publish(ctx context.Context, m domain.ServiceConfigMap) {
	if err := r.publisher.Publish(ctx, m); err != nil {
		r.logger.Warn("publish_failed", zap.Error(err))
	}
	r.mu.Lock()
	r.published = true
	r.mu.Unlock()
	for name, eps := range m {
		r.metrics.Endpoints(name, len(eps))
	}
}
