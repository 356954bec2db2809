package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bodega/internal/catalog"
	"bodega/internal/config"
	"bodega/internal/connectors"
	"bodega/internal/connectors/github"
	"bodega/internal/listener"
	"bodega/internal/metrics"
	"bodega/internal/relay"
	"bodega/internal/storage"
)

// Run wires the catalog, the upload relay and the reload listener around one
// database and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, db *storage.DB, log *zap.Logger) error {
	m := metrics.New(cfg.MetricsName)
	syncSvc := catalog.NewSyncService(db, cfg, nil, log.Named("catalog"), m)

	var relaySvc *relay.Service
	var sweeper listener.Sweeper
	if cfg.GitHubToken != "" {
		publisher, err := github.NewConnector(cfg)
		if err != nil {
			return err
		}
		relaySvc = relay.NewService(publisher, connectors.NewChunkStore(db, cfg.UploadDir), relay.OptionsFromConfig(cfg), log.Named("relay"), m)
		sweeper = relaySvc
	} else {
		log.Warn("GITHUB_TOKEN not set, upload relay disabled")
	}

	watcher := listener.NewService(syncSvc, sweeper, cfg, log.Named("listener"))
	srv := NewServer(cfg, syncSvc, relaySvc, m, log.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
