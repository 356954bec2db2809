package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"bodega/internal"
)

func ReadSnapshotFile(path string) (*internal.Snapshot, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := ParseSnapshot(blob)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}

// NormalizeFile loads one snapshot file and returns its live items and the
// items from its embedded removed block.
func NormalizeFile(path string, now time.Time, log *zap.Logger) (items, removed []*internal.NormalizedItem, err error) {
	snap, err := ReadSnapshotFile(path)
	if err != nil {
		return nil, nil, err
	}
	proc := NewProcessor(log)
	items = []*internal.NormalizedItem{}
	proc.Snapshot(snap, func(item *internal.NormalizedItem, _ internal.RawItem) {
		items = append(items, item)
	})
	return items, proc.EmbeddedRemoved(snap, now), nil
}
