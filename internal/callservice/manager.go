// Package callservice keeps the endpoint list of the call-service family
// fresh on its own schedule.
package callservice

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/metrics"
)

const DefaultInterval = 30 * time.Minute

// Manager serves call-service URLs. The list is seeded by Start, refreshed
// from the CallAPI immediately and then every interval. A failed refresh
// keeps the previous list.
type Manager struct {
	api      CallAPI
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics

	lifecycle sync.Mutex // serializes Start/Stop
	cancel    context.CancelFunc
	done      chan struct{}

	mu   sync.RWMutex
	urls []string

	flight singleflight.Group
}

func NewManager(api CallAPI, interval time.Duration, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		api:      api,
		interval: interval,
		clock:    clk,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

// Start seeds the list synchronously and (re)arms the refresh loop. A loop
// armed by a previous Start is stopped first.
func (m *Manager) Start(initial []string) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopLocked()

	m.mu.Lock()
	m.urls = append([]string(nil), initial...)
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	go m.loop(ctx, done)
}

// Stop cancels the refresh loop and waits for it to exit.
func (m *Manager) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel, m.done = nil, nil
}

// URLs returns the current list. When it is empty one on-demand fetch is
// made; its result is returned and kept. Errors yield an empty list.
func (m *Manager) URLs(ctx context.Context) []string {
	m.mu.RLock()
	if len(m.urls) > 0 {
		out := append([]string(nil), m.urls...)
		m.mu.RUnlock()
		return out
	}
	m.mu.RUnlock()

	urls, err := m.fetch(ctx)
	if err != nil {
		m.logger.Warn("callservice_fetch_failed", zap.Error(err))
		return nil
	}
	m.set(urls)
	return append([]string(nil), urls...)
}

func (m *Manager) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := m.clock.Ticker(m.interval)
	defer t.Stop()

	m.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.refresh(ctx)
		}
	}
}

func (m *Manager) refresh(ctx context.Context) {
	urls, err := m.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.metrics.CallRefresh("failed")
		m.logger.Warn("callservice_refresh_failed", zap.Error(err))
		return
	}
	m.metrics.CallRefresh("ok")
	m.set(urls)
	m.logger.Debug("callservice_refreshed", zap.Strings("urls", urls))
}

func (m *Manager) fetch(ctx context.Context) ([]string, error) {
	v, err, _ := m.flight.Do("service-urls", func() (any, error) {
		return m.api.ServiceURLs(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (m *Manager) set(urls []string) {
	m.mu.Lock()
	m.urls = append([]string(nil), urls...)
	m.mu.Unlock()
}
