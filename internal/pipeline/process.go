package pipeline

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"bodega/internal"
	"bodega/internal/util"
)

// Processor normalizes item records in batches. A record that fails is logged
// and skipped; its siblings are unaffected.
type Processor struct {
	log    *zap.Logger
	failed int
}

func NewProcessor(log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{log: log}
}

// Failed reports how many records were dropped since the processor was created.
func (p *Processor) Failed() int { return p.failed }

// Snapshot walks every shop/room/item of snap in order and hands each
// normalized item to fn together with its decoded source record.
func (p *Processor) Snapshot(snap *internal.Snapshot, fn func(item *internal.NormalizedItem, raw internal.RawItem)) {
	for _, shop := range snap.Shops {
		for _, room := range shop.Rooms {
			for _, record := range room.Items {
				item, raw, err := p.normalizeRecord(record, shop, room, snap.Town)
				if err != nil {
					continue
				}
				fn(item, raw)
			}
		}
	}
}

// EmbeddedRemoved normalizes the legacy removed_items block of a snapshot.
func (p *Processor) EmbeddedRemoved(snap *internal.Snapshot, now time.Time) []*internal.NormalizedItem {
	town := util.CleanTown(snap.Town)
	out := make([]*internal.NormalizedItem, 0, len(snap.RemovedItems))
	for _, record := range snap.RemovedItems {
		item, raw, err := p.normalizeRecord(record, internal.Shop{}, internal.Room{}, town)
		if err != nil {
			continue
		}
		markRemoved(item, raw, now)
		item.LastSeenTown = town
		out = append(out, item)
	}
	return out
}

// SeparateRemoved normalizes the standalone removed-items payload. Towns are
// visited in sorted order so the result is deterministic.
func (p *Processor) SeparateRemoved(file internal.RemovedFile, now time.Time) []*internal.NormalizedItem {
	out := []*internal.NormalizedItem{}
	for _, townName := range sortedKeys(file) {
		town := util.CleanTown(townName)
		for _, record := range file[townName] {
			item, raw, err := p.normalizeRecord(record, internal.Shop{}, internal.Room{}, town)
			if err != nil {
				continue
			}
			markRemoved(item, raw, now)
			item.LastSeenTown = util.FirstNonEmpty(raw.Town, town)
			out = append(out, item)
		}
	}
	return out
}

func markRemoved(item *internal.NormalizedItem, raw internal.RawItem, now time.Time) {
	item.RemovedDate = util.FirstNonEmpty(raw.RemovedDate, now.UTC().Format(time.RFC3339))
	item.LastSeenShop = raw.LastSeenShop
}

func (p *Processor) normalizeRecord(entry any, shop internal.Shop, room internal.Room, town string) (item *internal.NormalizedItem, raw internal.RawItem, err error) {
	record, ok := entry.(map[string]any)
	if !ok {
		p.failed++
		err = fmt.Errorf("item record is %T, not an object", entry)
		p.log.Warn("item skipped", zap.String("town", town), zap.Error(err))
		return nil, raw, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("normalize panic: %v", r)
			item = nil
			p.failed++
			p.log.Warn("item dropped", zap.String("town", town), zap.String("item", raw.Name), zap.Error(err))
		}
	}()

	raw, err = DecodeRawItem(record)
	if err != nil {
		p.failed++
		p.log.Warn("item skipped", zap.String("town", town), zap.Any("id", record["id"]), zap.Error(err))
		return nil, raw, err
	}
	item, err = Normalize(raw, shop, room, town)
	if err != nil {
		p.failed++
		p.log.Warn("item skipped", zap.String("town", town), zap.String("item", raw.Name), zap.Error(err))
		return nil, raw, err
	}
	return item, raw, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
