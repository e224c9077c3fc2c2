package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string `yaml:"addr"`         // status API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	LogDir      string `yaml:"log_dir"`      // logs directory
	LogLevel    string `yaml:"log_level"`    // debug|info|warn|error
	DatabaseURL string `yaml:"database_url"` // postgres cache; empty means not used
	RedisURL    string `yaml:"redis_url"`    // redis cache; empty means not used

	BootstrapURLs   []string `yaml:"bootstrap_urls"`    // tried in order
	KnownServices   []string `yaml:"known_services"`    // static registry
	CallServiceName string   `yaml:"call_service_name"` // slice of the map seeded into the call-service manager
	CallAPIURL      string   `yaml:"call_api_url"`      // authoritative call-service URL list
	HostPublishURL  string   `yaml:"host_publish_url"`  // cross-process publish target; empty disables it

	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	BootstrapTimeout    time.Duration `yaml:"bootstrap_timeout"` // per URL
	SelectThreshold     time.Duration `yaml:"select_threshold"`
	RefreshInterval     time.Duration `yaml:"refresh_interval"`
	CallRefreshInterval time.Duration `yaml:"call_refresh_interval"`
	MaxConcurrentProbes int           `yaml:"max_concurrent_probes"`

	PublicAPIKeys []string `yaml:"public_api_keys"`
	AdminAPIKeys  []string `yaml:"admin_api_keys"`
	PublicRPM     int      `yaml:"public_rpm"` // 0 disables the limiter
	PublicBurst   int      `yaml:"public_burst"`
}

// Load reads an optional YAML file, fills defaults and applies env overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	c := unset()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	c.SetDefaults()
	c.ApplyEnvOverrides()
	return c, nil
}

// FromEnv returns defaults overridden by the environment only.
func FromEnv() Config {
	c := unset()
	c.SetDefaults()
	c.ApplyEnvOverrides()
	return c
}

// unsetRPM marks PublicRPM as absent so an explicit 0 survives SetDefaults.
const unsetRPM = -1

func unset() Config {
	return Config{PublicRPM: unsetRPM}
}

func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CallServiceName == "" {
		c.CallServiceName = "call"
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.BootstrapTimeout <= 0 {
		c.BootstrapTimeout = 10 * time.Second
	}
	if c.SelectThreshold <= 0 {
		c.SelectThreshold = 60 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 6 * time.Hour
	}
	if c.CallRefreshInterval <= 0 {
		c.CallRefreshInterval = 30 * time.Minute
	}
	if c.MaxConcurrentProbes <= 0 {
		c.MaxConcurrentProbes = 16
	}
	if c.PublicRPM < 0 {
		c.PublicRPM = 120
	}
	if c.PublicBurst == 0 {
		c.PublicBurst = 60
	}
}

func (c *Config) ApplyEnvOverrides() {
	setString(&c.Addr, "API_ADDR")
	setString(&c.LogDir, "LOG_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.CallServiceName, "CALL_SERVICE_NAME")
	setString(&c.CallAPIURL, "CALL_API_URL")
	setString(&c.HostPublishURL, "HOST_PUBLISH_URL")

	setList(&c.BootstrapURLs, "BOOTSTRAP_URLS")
	setList(&c.KnownServices, "KNOWN_SERVICES")
	setList(&c.PublicAPIKeys, "PUBLIC_API_KEYS")
	setList(&c.AdminAPIKeys, "ADMIN_API_KEYS")

	setMillis(&c.ProbeTimeout, "PROBE_TIMEOUT_MS")
	setMillis(&c.BootstrapTimeout, "BOOTSTRAP_TIMEOUT_MS")
	setMillis(&c.SelectThreshold, "SELECT_THRESHOLD_MS")
	setMillis(&c.RefreshInterval, "REFRESH_INTERVAL_MS")
	setMillis(&c.CallRefreshInterval, "CALL_REFRESH_INTERVAL_MS")

	setPositiveInt(&c.MaxConcurrentProbes, "MAX_CONCURRENT_PROBES")
	// 0 disables the limiter, so accept it here
	if v := os.Getenv("PUBLIC_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.PublicRPM = n
		}
	}
	setPositiveInt(&c.PublicBurst, "PUBLIC_BURST")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitList(v)
	}
}

func setMillis(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}

func setPositiveInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
