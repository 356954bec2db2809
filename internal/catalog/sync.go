package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bodega/internal"
	"bodega/internal/config"
	"bodega/internal/metrics"
	"bodega/internal/pipeline"
	"bodega/internal/storage"
)

var ErrNoSnapshots = errors.New("no snapshot could be loaded")

// MetaLastLoad is the metadata key holding the start time of the last good load.
const MetaLastLoad = "catalog.last_load"

// SyncService owns the published catalog. A load builds a complete Index off
// to the side and swaps it in; readers only ever see whole indexes.
type SyncService struct {
	db      *storage.DB
	source  Source
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics

	current atomic.Pointer[Index]
	loadMu  sync.Mutex
	now     func() time.Time
}

func NewSyncService(db *storage.DB, cfg config.Config, source Source, log *zap.Logger, m *metrics.Metrics) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	if source == nil {
		source = NewSource(cfg)
	}
	s := &SyncService{db: db, source: source, cfg: cfg, log: log, metrics: m, now: time.Now}
	s.current.Store(Build(nil, nil, BuildOptions{Log: log}))
	return s
}

// Current returns the last successfully built index, or an empty one.
func (s *SyncService) Current() *Index {
	return s.current.Load()
}

type fetched struct {
	snapshots []*internal.Snapshot
	removed   internal.RemovedFile
	mapping   map[string]internal.ShopLocation
}

// Load fetches every configured file, rebuilds the index and publishes it.
// Individual files that fail are logged and skipped; the load only fails when
// none of the snapshots could be read.
func (s *SyncService) Load(ctx context.Context) (internal.LoadRun, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := s.now()
	run := internal.LoadRun{TraceID: uuid.NewString(), StartedAt: start.UTC().Format(time.RFC3339)}
	log := s.log.With(zap.String("trace_id", run.TraceID))

	data, err := s.fetchAll(ctx, log)
	if err != nil {
		s.metrics.RecordLoad(run, err)
		return run, err
	}
	if len(data.snapshots) == 0 && len(s.cfg.DataFiles) > 0 {
		s.metrics.RecordLoad(run, ErrNoSnapshots)
		return run, ErrNoSnapshots
	}

	idx := Build(data.snapshots, data.removed, BuildOptions{
		Now:         start,
		AddedWindow: time.Duration(s.cfg.AddedWindowDays) * 24 * time.Hour,
		Mapping:     data.mapping,
		Log:         log,
	})
	s.current.Store(idx)

	run.Towns = len(idx.loadedTowns)
	run.Items = len(idx.Items)
	run.Added = len(idx.Added)
	run.Removed = len(idx.Removed)
	run.Failed = idx.Failed
	run.TotalMs = float64(s.now().Sub(start).Milliseconds())

	s.metrics.RecordLoad(run, nil)
	if s.db != nil {
		if err := s.db.InsertLoadRun(run); err != nil {
			log.Warn("record load run", zap.Error(err))
		}
		if err := s.db.SetMetadata(MetaLastLoad, run.StartedAt); err != nil {
			log.Warn("record last load", zap.Error(err))
		}
	}

	log.Info("catalog loaded",
		zap.Int("towns", run.Towns),
		zap.Int("items", run.Items),
		zap.Int("added", run.Added),
		zap.Int("removed", run.Removed),
		zap.Int("failed", run.Failed),
		zap.Float64("total_ms", run.TotalMs),
	)
	return run, nil
}

func (s *SyncService) fetchAll(ctx context.Context, log *zap.Logger) (fetched, error) {
	slots := make([]*internal.Snapshot, len(s.cfg.DataFiles))
	var out fetched

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range s.cfg.DataFiles {
		i, name := i, name
		g.Go(func() error {
			blob, err := s.source.Fetch(gctx, name)
			if err != nil {
				log.Warn("snapshot unavailable", zap.String("file", name), zap.Error(err))
				return nil
			}
			snap, err := pipeline.ParseSnapshot(blob)
			if err != nil {
				log.Warn("snapshot skipped", zap.String("file", name), zap.Error(err))
				return nil
			}
			slots[i] = snap
			return nil
		})
	}

	if s.cfg.RemovedItemsFile != "" {
		g.Go(func() error {
			blob, ok := s.fetchOptional(gctx, log, s.cfg.RemovedItemsFile)
			if !ok {
				return nil
			}
			removed, skipped, err := pipeline.ParseRemovedFile(blob)
			if err != nil {
				log.Warn("removed items file ignored", zap.Error(err))
				return nil
			}
			if len(skipped) > 0 {
				log.Warn("removed items keys skipped", zap.Strings("keys", skipped))
			}
			out.removed = removed
			return nil
		})
	}

	if s.cfg.ShopMappingFile != "" {
		g.Go(func() error {
			blob, ok := s.fetchOptional(gctx, log, s.cfg.ShopMappingFile)
			if !ok {
				return nil
			}
			mapping, err := pipeline.ParseShopMapping(blob)
			if err != nil {
				log.Warn("shop mapping ignored", zap.Error(err))
				return nil
			}
			out.mapping = mapping
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fetched{}, err
	}
	if err := ctx.Err(); err != nil {
		return fetched{}, fmt.Errorf("load cancelled: %w", err)
	}

	for _, snap := range slots {
		if snap != nil {
			out.snapshots = append(out.snapshots, snap)
		}
	}
	return out, nil
}

// fetchOptional treats a missing file as absent without logging a warning.
func (s *SyncService) fetchOptional(ctx context.Context, log *zap.Logger, name string) ([]byte, bool) {
	blob, err := s.source.Fetch(ctx, name)
	if errors.Is(err, ErrNotFound) {
		log.Debug("optional file absent", zap.String("file", name))
		return nil, false
	}
	if err != nil {
		log.Warn("optional file unavailable", zap.String("file", name), zap.Error(err))
		return nil, false
	}
	return blob, true
}
