// Package bootstrap retrieves the global configuration document.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/metrics"
)

// ErrNoConfig is returned when no bootstrap URL produced a usable document.
var ErrNoConfig = errors.New("bootstrap: no usable global config")

// envelope is the bootstrap RPC response: code 0 means success.
type envelope struct {
	Code int                  `json:"code"`
	Data *domain.GlobalConfig `json:"data"`
}

type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewFetcher builds a fetcher; timeout bounds each URL attempt separately.
func NewFetcher(client *http.Client, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{client: client, timeout: timeout, logger: logging.OrNop(logger), metrics: m}
}

// Fetch tries urls in order and returns the first successful document.
// Attempts are sequential; the next URL is only tried after the previous one
// failed. When all fail it returns ErrNoConfig wrapping every attempt error.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) (*domain.GlobalConfig, error) {
	var errs error
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		cfg, err := f.fetchOne(ctx, u)
		if err == nil {
			f.metrics.BootstrapFetch("ok")
			f.logger.Debug("bootstrap_fetched",
				zap.String("url", u),
				zap.Int("domains", len(cfg.Domains)),
				zap.Int("services", len(cfg.Services)),
			)
			return cfg, nil
		}
		f.metrics.BootstrapFetch("failed")
		f.logger.Warn("bootstrap_fetch_failed", zap.String("url", u), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", u, err))
	}
	if errs == nil {
		return nil, ErrNoConfig
	}
	return nil, fmt.Errorf("%w: %w", ErrNoConfig, errs)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (*domain.GlobalConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("response code %d", env.Code)
	}
	if env.Data == nil {
		return nil, errors.New("response has no data")
	}
	return env.Data, nil
}
