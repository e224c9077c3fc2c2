package repo

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/logging"
)

// ConfigCache stores the last-known-good global config and the derived
// service map. Read failures of any kind are a miss; write failures are
// logged and dropped.
type ConfigCache struct {
	store  Store
	logger *zap.Logger
}

func NewConfigCache(store Store, logger *zap.Logger) *ConfigCache {
	return &ConfigCache{store: store, logger: logging.OrNop(logger)}
}

func (c *ConfigCache) GlobalConfig(ctx context.Context) (*domain.GlobalConfig, bool) {
	var cfg domain.GlobalConfig
	if !c.load(ctx, KeyGlobalConfig, &cfg) {
		return nil, false
	}
	return &cfg, true
}

func (c *ConfigCache) SaveGlobalConfig(ctx context.Context, cfg *domain.GlobalConfig) {
	if cfg == nil {
		return
	}
	c.save(ctx, KeyGlobalConfig, cfg)
}

func (c *ConfigCache) ServiceConfig(ctx context.Context) (domain.ServiceConfigMap, bool) {
	var m domain.ServiceConfigMap
	if !c.load(ctx, KeyServiceConfig, &m) || m == nil {
		return nil, false
	}
	return m, true
}

func (c *ConfigCache) SaveServiceConfig(ctx context.Context, m domain.ServiceConfigMap) {
	c.save(ctx, KeyServiceConfig, m)
}

func (c *ConfigCache) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache_read_failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache_corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *ConfigCache) save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache_encode_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		c.logger.Warn("cache_write_failed", zap.String("key", key), zap.Error(err))
	}
}
