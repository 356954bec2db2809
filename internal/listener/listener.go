package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bodega/internal"
	"bodega/internal/catalog"
	"bodega/internal/config"
	"bodega/internal/pipeline"
)

type Loader interface {
	Load(ctx context.Context) (internal.LoadRun, error)
	Current() *catalog.Index
}

type Sweeper interface {
	SweepStale(maxAge time.Duration) (int, error)
}

// Service keeps the catalog fresh. It reloads on a cron schedule and, when
// the data comes from a local directory, whenever a snapshot file changes.
// It also drops upload sessions that were abandoned before their final chunk.
type Service struct {
	loader  Loader
	sweeper Sweeper
	cfg     config.Config
	log     *zap.Logger
}

func NewService(loader Loader, sweeper Sweeper, cfg config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{loader: loader, sweeper: sweeper, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.runCycle(ctx, "startup"); err != nil {
		s.log.Warn("listener cycle error", zap.String("trigger", "startup"), zap.Error(err))
	}

	scheduler := cron.New()
	if s.cfg.ReloadCron != "" {
		if _, err := scheduler.AddFunc(s.cfg.ReloadCron, func() {
			if err := s.runCycle(ctx, "cron"); err != nil {
				s.log.Warn("listener cycle error", zap.String("trigger", "cron"), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("reload schedule %q: %w", s.cfg.ReloadCron, err)
		}
	}
	if s.sweeper != nil && s.cfg.SweepCron != "" {
		if _, err := scheduler.AddFunc(s.cfg.SweepCron, s.sweep); err != nil {
			return fmt.Errorf("sweep schedule %q: %w", s.cfg.SweepCron, err)
		}
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.WatchData && s.cfg.DataBaseURL == "" {
		g.Go(func() error { return s.watch(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func (s *Service) runCycle(ctx context.Context, trigger string) error {
	run, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}

	if s.cfg.ListenerAutoExport {
		if err := s.exportCatalog(run); err != nil {
			return err
		}
	}

	s.log.Info("listener cycle done",
		zap.String("trigger", trigger),
		zap.String("trace_id", run.TraceID),
		zap.Int("items", run.Items),
		zap.Int("failed", run.Failed),
	)
	return nil
}

func (s *Service) exportCatalog(run internal.LoadRun) error {
	idx := s.loader.Current()
	if idx == nil || len(idx.Items) == 0 {
		return nil
	}
	filename := fmt.Sprintf("catalog_%s.xlsx", sanitizeStamp(run.StartedAt))
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
	return pipeline.ExportItemsToXLSX(idx.Items, outputPath)
}

func (s *Service) sweep() {
	ttl := time.Duration(s.cfg.UploadSessionTTLMin) * time.Minute
	n, err := s.sweeper.SweepStale(ttl)
	if err != nil {
		s.log.Warn("upload session sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("upload sessions swept", zap.Int("sessions", n))
	}
}

// watch reloads once the data directory has been quiet for the debounce
// window after a snapshot file changed.
func (s *Service) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.cfg.DataDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.cfg.DataDir, err)
	}

	debounce := time.Duration(s.cfg.WatchDebMs) * time.Millisecond
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			s.log.Debug("data file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			pending = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("data watch error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := s.runCycle(ctx, "watch"); err != nil {
				s.log.Warn("listener cycle error", zap.String("trigger", "watch"), zap.Error(err))
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func sanitizeStamp(input string) string {
	repl := strings.NewReplacer(":", "", "-", "", " ", "_", "/", "_")
	out := repl.Replace(input)
	if out == "" {
		out = "latest"
	}
	return out
}
