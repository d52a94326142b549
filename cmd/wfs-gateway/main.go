package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/geoportal-wfs/internal/cache/redisstore"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/config"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/health"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/observability"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/server"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/transport"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/wfsclient"
	"github.com/mohammed-shakir/geoportal-wfs/internal/logger"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "wfs-gateway",
		Component: "main",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting wfs gateway",
		"addr", cfg.Addr,
		"version", Version,
		"wfs_base_url", cfg.WFSBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr := transport.NewHTTP(appLog, transport.Config{
		Timeout:      cfg.Transport.Timeout,
		RetryMax:     cfg.Transport.Retries,
		RetryWaitMin: cfg.Transport.RetryWaitMin,
		RetryWaitMax: cfg.Transport.RetryWaitMax,
	})

	opts := []wfsclient.Option{
		wfsclient.WithBaseURL(cfg.WFSBaseURL),
		wfsclient.WithLogger(appLog),
		wfsclient.WithTypeNamesCache(cfg.TypeNamesCacheSize, cfg.TypeNamesCacheTTL),
	}
	deps := map[string]health.Pinger{}
	if cfg.RedisAddr != "" {
		rctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rc, err := redisstore.New(rctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		opts = append(opts, wfsclient.WithFeatureCache(rc, cfg.FeatureCacheTTL))
		deps["redis"] = rc
	}

	client, err := wfsclient.New(cfg.APIKey, cfg.Headers, tr, opts...)
	if err != nil {
		appLog.Error("wfs client setup failed", "err", err)
		return 1
	}

	handler := server.NewHandler(cfg, appLog, client, deps)
	if err := server.Run(ctx, cfg, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
