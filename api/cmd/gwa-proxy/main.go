package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gwa-helper/api/internal/config"
	"gwa-helper/api/internal/handle"
	"gwa-helper/api/internal/httpserver"
	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/setup"
	"gwa-helper/api/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gwa-proxy:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Server.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines, err := setup.BuildEngines(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engines.Close()

	var cache *store.ExtractCache
	if ttl := cfg.Server.ExtractCacheTTL.Duration; ttl > 0 {
		cache = store.NewExtractCache(ttl, 0)
	}

	h := handle.New(engines, handle.Options{
		Cache:   cache,
		Limiter: setup.NewLimiter(cfg),
		Logger:  log,
	})
	mux := http.NewServeMux()
	h.Routes(mux)
	srv := httpserver.New(":"+cfg.Server.Port, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(gctx, srv, log) })
	if cache != nil {
		g.Go(func() error {
			t := time.NewTicker(cfg.Server.ExtractCacheTTL.Duration)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					if n := cache.Prune(); n > 0 {
						log.Debug("extract cache pruned", "rows", n, "left", cache.Len())
					}
				}
			}
		})
	}
	return g.Wait()
}
