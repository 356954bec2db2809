package search

import (
	"strings"
	"time"

	"bodega/internal"
	"bodega/internal/util"
)

const (
	PropEnhancive = "enhancive"
	PropPersists  = "persists"
	PropCrumbly   = "crumbly"
	PropFlares    = "flares"
	PropHoly      = "holy"
	PropMaxLight  = "max_light"
	PropMaxDeep   = "max_deep"

	TypeGemstone = "gemstone"
)

// Criteria selects items. Every set-valued dimension is ignored when empty,
// matches when any of its values matches, and combines with the other
// dimensions by AND. SpecialProperties is the exception: all listed
// properties must hold.
type Criteria struct {
	Query string
	// SearchShopSigns extends the query corpus with the shop preamble and sign.
	SearchShopSigns bool

	Towns                  []string
	PriceRanges            []string
	EnchantLevels          []int
	ItemTypes              []string
	CapacityLevels         []string
	ArmorTypes             []string
	ShieldTypes            []string
	WearLocations          []string
	Skills                 []string
	SpecialProperties      []string
	GemstoneRarities       []string
	GemstonePropertyCounts []int

	AddedWithin   time.Duration
	RemovedWithin time.Duration
	Now           time.Time
}

type priceRange struct {
	min, max  int
	unbounded bool
}

func (r priceRange) contains(price int) bool {
	if price < r.min {
		return false
	}
	return r.unbounded || price <= r.max
}

// Matcher evaluates one Criteria against many items with the query and price
// bands parsed once.
type Matcher struct {
	c      Criteria
	query  Query
	ranges []priceRange
	towns  map[string]struct{}
}

func NewMatcher(c Criteria) *Matcher {
	m := &Matcher{c: c, query: ParseQuery(c.Query)}
	for _, r := range c.PriceRanges {
		lo, hi, open := util.ParseRange(r)
		m.ranges = append(m.ranges, priceRange{min: lo, max: hi, unbounded: open})
	}
	if len(c.Towns) > 0 {
		m.towns = make(map[string]struct{}, len(c.Towns))
		for _, t := range c.Towns {
			m.towns[t] = struct{}{}
		}
	}
	if m.c.Now.IsZero() {
		m.c.Now = time.Now()
	}
	return m
}

func Matches(item *internal.NormalizedItem, c Criteria) bool {
	return NewMatcher(c).Match(item)
}

func (m *Matcher) Match(item *internal.NormalizedItem) bool {
	c := m.c

	if !m.query.IsZero() {
		corpus := item.SearchTextNoSign
		if c.SearchShopSigns {
			corpus = item.SearchText
		}
		if !m.query.Match(corpus) {
			return false
		}
	}

	if m.towns != nil {
		if _, ok := m.towns[item.Town]; !ok {
			return false
		}
	}

	if len(m.ranges) > 0 && item.Price != nil && !m.matchPrice(*item.Price) {
		return false
	}

	if len(c.EnchantLevels) > 0 && !matchEnchant(item.Enchant, c.EnchantLevels) {
		return false
	}

	if len(c.ItemTypes) > 0 && !matchItemType(item, c.ItemTypes) {
		return false
	}

	if len(c.CapacityLevels) > 0 && !containsExact(c.CapacityLevels, item.CapacityLevel) {
		return false
	}

	if len(c.ArmorTypes) > 0 && !containsExact(c.ArmorTypes, item.ArmorType) {
		return false
	}

	if len(c.ShieldTypes) > 0 && !anySubstring(item.ShieldType, c.ShieldTypes, false) {
		return false
	}

	if len(c.WearLocations) > 0 && !anySubstring(item.WearLocation, c.WearLocations, true) {
		return false
	}

	if len(c.Skills) > 0 && !anySubstring(item.Skill, c.Skills, true) {
		return false
	}

	for _, prop := range c.SpecialProperties {
		if !hasSpecialProperty(item, prop) {
			return false
		}
	}

	if len(c.GemstoneRarities) > 0 && !matchRarity(item.GemstoneProperties, c.GemstoneRarities) {
		return false
	}

	if len(c.GemstonePropertyCounts) > 0 && !containsInt(c.GemstonePropertyCounts, len(item.GemstoneProperties)) {
		return false
	}

	if c.AddedWithin > 0 && !withinWindow(item.AddedDate, c.Now, c.AddedWithin) {
		return false
	}

	if c.RemovedWithin > 0 && !withinWindow(item.RemovedDate, c.Now, c.RemovedWithin) {
		return false
	}

	return true
}

// Filter keeps the matching items in their original order.
func Filter(items []*internal.NormalizedItem, c Criteria) []*internal.NormalizedItem {
	m := NewMatcher(c)
	out := make([]*internal.NormalizedItem, 0, len(items))
	for _, item := range items {
		if m.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

func (m *Matcher) matchPrice(price int) bool {
	for _, r := range m.ranges {
		if r.contains(price) {
			return true
		}
	}
	return false
}

func matchEnchant(enchant *int, levels []int) bool {
	if enchant == nil || *enchant == 0 {
		return false
	}
	for _, min := range levels {
		if *enchant >= min {
			return true
		}
	}
	return false
}

func matchItemType(item *internal.NormalizedItem, types []string) bool {
	for _, t := range types {
		if t == TypeGemstone {
			if len(item.GemstoneProperties) > 0 {
				return true
			}
			continue
		}
		if item.ItemType != internal.ItemNone && string(item.ItemType) == t {
			return true
		}
	}
	return false
}

func hasSpecialProperty(item *internal.NormalizedItem, prop string) bool {
	switch prop {
	case PropEnhancive:
		return len(item.Enhancives) > 0
	case PropFlares:
		return len(item.Flares) > 0
	case PropHoly:
		return item.Blessing != ""
	case PropPersists, PropCrumbly, PropMaxLight, PropMaxDeep:
		return item.HasTag(prop)
	default:
		return true
	}
}

func matchRarity(props []internal.GemstoneProperty, rarities []string) bool {
	for _, p := range props {
		if p.Rarity == "" {
			continue
		}
		for _, r := range rarities {
			if strings.EqualFold(p.Rarity, r) {
				return true
			}
		}
	}
	return false
}

// withinWindow keeps items whose date cannot be parsed.
func withinWindow(date string, now time.Time, window time.Duration) bool {
	ts, ok := ParseDate(date)
	if !ok {
		return true
	}
	return !ts.Before(now.Add(-window))
}

func containsExact(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func anySubstring(value string, needles []string, fold bool) bool {
	if value == "" {
		return false
	}
	for _, n := range needles {
		if fold {
			if util.ContainsFold(value, n) {
				return true
			}
			continue
		}
		if strings.Contains(value, n) {
			return true
		}
	}
	return false
}
