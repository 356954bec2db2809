package catalog

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"bodega/internal"
	"bodega/internal/pipeline"
	"bodega/internal/search"
	"bodega/internal/util"
)

const (
	FallbackTown     = "Icemule Trace"
	unknownTown      = "Unknown Town"
	mainRoom         = "Main Room"
	DefaultAddedDays = 7
)

// ShopMeta is recorded from the first item seen for a shop and never updated
// afterwards, even when later items of the same shop carry different values.
type ShopMeta struct {
	Preamble string
	ID       string
	Sign     string
}

type shopNode struct {
	meta  ShopMeta
	rooms map[string][]*internal.NormalizedItem
	count int
}

type townNode struct {
	shops map[string]*shopNode
}

// Index is an immutable view over one full data load.
type Index struct {
	Items   []*internal.NormalizedItem
	Added   []*internal.NormalizedItem
	Removed []*internal.NormalizedItem

	BuiltAt time.Time
	Failed  int

	towns       map[string]*townNode
	loadedTowns []string
	totalShops  int
	townUpdated map[string]time.Time
	oldest      time.Time
	mapping     map[string]internal.ShopLocation
}

type BuildOptions struct {
	Now         time.Time
	AddedWindow time.Duration
	Mapping     map[string]internal.ShopLocation
	Log         *zap.Logger
}

// Build normalizes every snapshot into a fresh index. When removed is non-nil
// it is the only source of removed items and the snapshots' embedded
// removed_items blocks are ignored.
func Build(snapshots []*internal.Snapshot, removed internal.RemovedFile, opts BuildOptions) *Index {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.AddedWindow <= 0 {
		opts.AddedWindow = DefaultAddedDays * 24 * time.Hour
	}
	if opts.Mapping == nil {
		opts.Mapping = map[string]internal.ShopLocation{}
	}

	proc := pipeline.NewProcessor(opts.Log)
	idx := &Index{
		Items:       []*internal.NormalizedItem{},
		Added:       []*internal.NormalizedItem{},
		Removed:     []*internal.NormalizedItem{},
		BuiltAt:     opts.Now,
		towns:       map[string]*townNode{},
		townUpdated: map[string]time.Time{},
		mapping:     opts.Mapping,
	}
	addedCutoff := opts.Now.Add(-opts.AddedWindow)
	seenTowns := map[string]struct{}{}

	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		town := util.CleanTown(snap.Town)
		if _, ok := seenTowns[town]; !ok {
			seenTowns[town] = struct{}{}
			idx.loadedTowns = append(idx.loadedTowns, town)
		}
		idx.totalShops += len(snap.Shops)

		if ts, ok := search.ParseDate(snap.CreatedAt); ok {
			idx.townUpdated[town] = ts
			if idx.oldest.IsZero() || ts.Before(idx.oldest) {
				idx.oldest = ts
			}
		}

		proc.Snapshot(snap, func(item *internal.NormalizedItem, raw internal.RawItem) {
			idx.Items = append(idx.Items, item)
			idx.place(item)
			if raw.AddedDate == "" {
				return
			}
			if ts, ok := search.ParseDate(raw.AddedDate); ok && !ts.Before(addedCutoff) {
				added := *item
				added.AddedDate = raw.AddedDate
				idx.Added = append(idx.Added, &added)
			}
		})

		if removed == nil {
			idx.Removed = append(idx.Removed, proc.EmbeddedRemoved(snap, opts.Now)...)
		}
	}

	if removed != nil {
		idx.Removed = proc.SeparateRemoved(removed, opts.Now)
	}

	sort.Strings(idx.loadedTowns)
	idx.Failed = proc.Failed()
	return idx
}

func (x *Index) place(item *internal.NormalizedItem) {
	town := util.FirstNonEmpty(item.Town, unknownTown)
	shopName := util.FirstNonEmpty(item.ShopName, pipeline.UnknownShop)
	room := util.FirstNonEmpty(item.Room, mainRoom)

	t, ok := x.towns[town]
	if !ok {
		t = &townNode{shops: map[string]*shopNode{}}
		x.towns[town] = t
	}
	s, ok := t.shops[shopName]
	if !ok {
		s = &shopNode{
			meta:  ShopMeta{Preamble: item.ShopLocation, ID: item.ShopID, Sign: item.ShopSign},
			rooms: map[string][]*internal.NormalizedItem{},
		}
		t.shops[shopName] = s
	}
	s.rooms[room] = append(s.rooms[room], item)
	s.count++
}

type ShopSummary struct {
	Town      string `json:"town"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	Preamble  string `json:"preamble,omitempty"`
	Location  string `json:"location,omitempty"`
	Sign      string `json:"sign,omitempty"`
	MapID     string `json:"mapId,omitempty"`
	Exterior  string `json:"exterior,omitempty"`
	ItemCount int    `json:"itemCount"`
	RoomCount int    `json:"roomCount"`
}

type RoomView struct {
	Title string                     `json:"title"`
	Sign  string                     `json:"sign,omitempty"`
	Items []*internal.NormalizedItem `json:"items"`
}

type Stats struct {
	Towns        []string             `json:"towns"`
	TotalItems   int                  `json:"totalItems"`
	TotalShops   int                  `json:"totalShops"`
	AddedItems   int                  `json:"addedItems"`
	RemovedItems int                  `json:"removedItems"`
	FailedItems  int                  `json:"failedItems"`
	TownUpdated  map[string]time.Time `json:"townUpdated"`
	LastUpdated  *time.Time           `json:"lastUpdated,omitempty"`
	BuiltAt      time.Time            `json:"builtAt"`
}

func (x *Index) Stats() Stats {
	st := Stats{
		Towns:        append([]string(nil), x.loadedTowns...),
		TotalItems:   len(x.Items),
		TotalShops:   x.totalShops,
		AddedItems:   len(x.Added),
		RemovedItems: len(x.Removed),
		FailedItems:  x.Failed,
		TownUpdated:  make(map[string]time.Time, len(x.townUpdated)),
		BuiltAt:      x.BuiltAt,
	}
	for k, v := range x.townUpdated {
		st.TownUpdated[k] = v
	}
	if !x.oldest.IsZero() {
		oldest := x.oldest
		st.LastUpdated = &oldest
	}
	return st
}

// Towns lists the towns that have at least one item, sorted.
func (x *Index) Towns() []string {
	out := make([]string, 0, len(x.towns))
	for t := range x.towns {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DefaultTown picks the browse start town: preferred when present, else
// Icemule Trace, else the first town alphabetically.
func (x *Index) DefaultTown(preferred string) string {
	if _, ok := x.towns[preferred]; ok && preferred != "" {
		return preferred
	}
	if _, ok := x.towns[FallbackTown]; ok {
		return FallbackTown
	}
	towns := x.Towns()
	if len(towns) == 0 {
		return ""
	}
	return towns[0]
}

func (x *Index) Shops(town string) []ShopSummary {
	t, ok := x.towns[town]
	if !ok {
		return []ShopSummary{}
	}
	names := make([]string, 0, len(t.shops))
	for name := range t.shops {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ShopSummary, 0, len(names))
	for _, name := range names {
		out = append(out, x.summary(town, name, t.shops[name]))
	}
	return out
}

// Shop returns one shop with its rooms sorted by title.
func (x *Index) Shop(town, shop string) (ShopSummary, []RoomView, bool) {
	t, ok := x.towns[town]
	if !ok {
		return ShopSummary{}, nil, false
	}
	s, ok := t.shops[shop]
	if !ok {
		return ShopSummary{}, nil, false
	}

	titles := make([]string, 0, len(s.rooms))
	for title := range s.rooms {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	rooms := make([]RoomView, 0, len(titles))
	for _, title := range titles {
		items := s.rooms[title]
		view := RoomView{Title: title, Items: append([]*internal.NormalizedItem(nil), items...)}
		if len(items) > 0 {
			view.Sign = items[0].RoomSign
		}
		rooms = append(rooms, view)
	}
	return x.summary(town, shop, s), rooms, true
}

// SearchShopSigns finds shops whose sign contains query, case-insensitively.
// An empty town searches every town. Results are sorted by town, then shop.
func (x *Index) SearchShopSigns(query, town string) []ShopSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []ShopSummary{}
	if query == "" {
		return out
	}

	towns := x.Towns()
	if town != "" {
		towns = []string{town}
	}
	for _, tn := range towns {
		t, ok := x.towns[tn]
		if !ok {
			continue
		}
		for name, s := range t.shops {
			if s.meta.Sign == "" || !strings.Contains(strings.ToLower(s.meta.Sign), query) {
				continue
			}
			out = append(out, x.summary(tn, name, s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Town != out[j].Town {
			return out[i].Town < out[j].Town
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup resolves a shared item link.
func (x *Index) Lookup(itemID, shopID, town string) (*internal.NormalizedItem, bool) {
	for _, item := range x.Items {
		if item.ID == itemID && item.ShopID == shopID && item.Town == town {
			return item, true
		}
	}
	return nil, false
}

func (x *Index) summary(town, name string, s *shopNode) ShopSummary {
	sum := ShopSummary{
		Town:      town,
		Name:      name,
		ID:        s.meta.ID,
		Preamble:  s.meta.Preamble,
		Location:  util.LocatedIn(s.meta.Preamble),
		Sign:      s.meta.Sign,
		ItemCount: s.count,
		RoomCount: len(s.rooms),
	}
	if loc, ok := x.mapping[name]; ok {
		sum.MapID = loc.MapID
		sum.Exterior = loc.Exterior
	}
	return sum
}
