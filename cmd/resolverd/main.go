package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hamed0406/endpointresolver/internal/bootstrap"
	"github.com/hamed0406/endpointresolver/internal/callservice"
	"github.com/hamed0406/endpointresolver/internal/config"
	"github.com/hamed0406/endpointresolver/internal/httpapi"
	apimw "github.com/hamed0406/endpointresolver/internal/httpapi/middleware"
	"github.com/hamed0406/endpointresolver/internal/logging"
	"github.com/hamed0406/endpointresolver/internal/metrics"
	"github.com/hamed0406/endpointresolver/internal/probe"
	"github.com/hamed0406/endpointresolver/internal/publish"
	"github.com/hamed0406/endpointresolver/internal/repo"
	"github.com/hamed0406/endpointresolver/internal/repo/memory"
	"github.com/hamed0406/endpointresolver/internal/repo/postgres"
	"github.com/hamed0406/endpointresolver/internal/repo/redis"
	"github.com/hamed0406/endpointresolver/internal/resolve"
)

var (
	configFile    = kingpin.Flag("config.file", "Path to configuration file.").Default("resolver.yaml").String()
	listenAddress = kingpin.Flag("web.listen-address", "Address of the status API. Overrides the config file.").String()
	logStderr     = kingpin.Flag("log.stderr", "Also write logs to stderr.").Bool()
)

func main() {
	kingpin.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *listenAddress != "" {
		cfg.Addr = *listenAddress
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, *logStderr)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := runDaemon(cfg, logger); err != nil {
		logger.Error("resolverd_exit", zap.Error(err))
		os.Exit(1)
	}
}

func runDaemon(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	cache := repo.NewConfigCache(store, logger)

	transport := probe.NewHTTPTransport(cfg.ProbeTimeout)
	prober := probe.NewProber(logger, transport, m, cfg.MaxConcurrentProbes)
	prober.Diagnose = probe.CheckDNS
	selector := probe.NewSelector(prober, cfg.SelectThreshold, clock.New())

	fetcher := bootstrap.NewFetcher(&http.Client{}, cfg.BootstrapTimeout, logger, m)

	local := publish.NewLocalCache()
	sinks := publish.Multi{local}
	if host := publish.NewHostSink(cfg.HostPublishURL); host != nil {
		sinks = append(sinks, host)
	}

	var (
		calls   resolve.CallStarter
		callAPI httpapi.CallURLs
	)
	if cfg.CallAPIURL != "" {
		mgr := callservice.NewManager(
			callservice.NewHTTPClient(cfg.CallAPIURL, nil),
			cfg.CallRefreshInterval, clock.New(), logger, m,
		)
		defer mgr.Stop()
		calls, callAPI = mgr, mgr
	} else {
		logger.Warn("callservice_disabled", zap.String("reason", "CALL_API_URL empty"))
	}

	resolver := resolve.New(fetcher, selector, cache, sinks, calls, resolve.Options{
		BootstrapURLs:   cfg.BootstrapURLs,
		KnownServices:   cfg.KnownServices,
		CallServiceName: cfg.CallServiceName,
		Interval:        cfg.RefreshInterval,
	}, logger, m)

	api := httpapi.NewServer(logger, local, resolver, callAPI, cfg.KnownServices, reg)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group
	{
		g.Add(func() error {
			resolver.Run(ctx)
			return nil
		}, func(error) {
			cancel()
		})
	}
	{
		g.Add(func() error {
			logger.Info("api_listen", zap.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		})
	}
	{
		term := make(chan os.Signal, 1)
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		stop := make(chan struct{})
		g.Add(func() error {
			select {
			case sig := <-term:
				logger.Info("shutdown_signal", zap.String("signal", sig.String()))
			case <-stop:
			}
			return nil
		}, func(error) {
			signal.Stop(term)
			close(stop)
		})
	}
	return g.Run()
}

// openStore picks the cache backend: Postgres, then Redis, then process memory.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("cache_store", zap.String("backend", "postgres"))
		return pg, pg.Close, nil
	case cfg.RedisURL != "":
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rs := redis.New(client, "endpointresolver")
		logger.Info("cache_store", zap.String("backend", "redis"))
		return rs, func() { _ = rs.Close() }, nil
	default:
		logger.Warn("cache_store", zap.String("backend", "memory"))
		return memory.New(), func() {}, nil
	}
}
