package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodega/internal"
	"bodega/internal/util"
)

func item(name, town string, typ internal.ItemType) *internal.NormalizedItem {
	text := name + " " + town
	return &internal.NormalizedItem{
		Name:               name,
		Town:               town,
		ItemType:           typ,
		Enhancives:         []internal.Enhancive{},
		GemstoneProperties: []internal.GemstoneProperty{},
		Tags:               []string{},
		Flares:             []string{},
		SearchText:         text,
		SearchTextNoSign:   text,
	}
}

func names(items []*internal.NormalizedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestFilterTownsAndTypes(t *testing.T) {
	items := []*internal.NormalizedItem{
		item("sword a", "A", internal.ItemWeapon),
		item("sword c", "C", internal.ItemWeapon),
		item("bag b", "B", internal.ItemContainer),
		item("axe b", "B", internal.ItemWeapon),
		item("rock a", "A", internal.ItemNone),
	}
	got := Filter(items, Criteria{Towns: []string{"A", "B"}, ItemTypes: []string{"weapon"}})
	assert.Equal(t, []string{"sword a", "axe b"}, names(got))

	assert.Len(t, Filter(items, Criteria{}), len(items))
}

func TestFilterPriceRanges(t *testing.T) {
	cheap := item("cheap", "A", internal.ItemNone)
	cheap.Price = util.IntPtr(500)
	pricey := item("pricey", "A", internal.ItemNone)
	pricey.Price = util.IntPtr(250000)
	unpriced := item("unpriced", "A", internal.ItemNone)
	items := []*internal.NormalizedItem{cheap, pricey, unpriced}

	assert.Equal(t, []string{"cheap", "unpriced"}, names(Filter(items, Criteria{PriceRanges: []string{"0-1000"}})))
	assert.Equal(t, []string{"pricey", "unpriced"}, names(Filter(items, Criteria{PriceRanges: []string{"100000-"}})))
	assert.Equal(t, []string{"cheap", "pricey", "unpriced"}, names(Filter(items, Criteria{PriceRanges: []string{"0-1000", "200000-300000"}})))
}

func TestFilterEnchant(t *testing.T) {
	plus5 := item("plus5", "A", internal.ItemWeapon)
	plus5.Enchant = util.IntPtr(5)
	plus1 := item("plus1", "A", internal.ItemWeapon)
	plus1.Enchant = util.IntPtr(1)
	none := item("none", "A", internal.ItemWeapon)
	items := []*internal.NormalizedItem{plus5, plus1, none}

	assert.Equal(t, []string{"plus5"}, names(Filter(items, Criteria{EnchantLevels: []int{3}})))
	assert.Equal(t, []string{"plus5", "plus1"}, names(Filter(items, Criteria{EnchantLevels: []int{7, 1}})))
}

func TestFilterGemstonePseudoType(t *testing.T) {
	gem := item("gem", "A", internal.ItemJewelry)
	gem.GemstoneProperties = []internal.GemstoneProperty{{Name: "Arcane", Rarity: "Legendary"}, {Name: "Frost", Rarity: "Common"}}
	ring := item("ring", "A", internal.ItemJewelry)
	items := []*internal.NormalizedItem{gem, ring}

	assert.Equal(t, []string{"gem"}, names(Filter(items, Criteria{ItemTypes: []string{"gemstone"}})))
	assert.Equal(t, []string{"gem"}, names(Filter(items, Criteria{GemstoneRarities: []string{"legendary"}})))
	assert.Empty(t, Filter(items, Criteria{GemstoneRarities: []string{"rare"}}))
	assert.Equal(t, []string{"gem"}, names(Filter(items, Criteria{GemstonePropertyCounts: []int{1, 2}})))
	assert.Equal(t, []string{"ring"}, names(Filter(items, Criteria{GemstonePropertyCounts: []int{0}})))
}

func TestFilterSubstringDimensions(t *testing.T) {
	kite := item("kite", "A", internal.ItemShield)
	kite.ShieldType = "large kite"
	kite.WearLocation = "On the Arm"
	kite.Skill = "shield use"
	plain := item("plain", "A", internal.ItemNone)
	items := []*internal.NormalizedItem{kite, plain}

	assert.Equal(t, []string{"kite"}, names(Filter(items, Criteria{ShieldTypes: []string{"kite"}})))
	assert.Empty(t, Filter(items, Criteria{ShieldTypes: []string{"Kite"}}))
	assert.Equal(t, []string{"kite"}, names(Filter(items, Criteria{WearLocations: []string{"arm"}})))
	assert.Equal(t, []string{"kite"}, names(Filter(items, Criteria{Skills: []string{"SHIELD"}})))
}

func TestFilterSpecialPropertiesAreAnded(t *testing.T) {
	both := item("both", "A", internal.ItemNone)
	both.Tags = []string{"persists"}
	both.Flares = []string{"It flares."}
	onlyTag := item("onlyTag", "A", internal.ItemNone)
	onlyTag.Tags = []string{"persists"}
	holy := item("holy", "A", internal.ItemNone)
	holy.Blessing = "holy"
	items := []*internal.NormalizedItem{both, onlyTag, holy}

	assert.Equal(t, []string{"both"}, names(Filter(items, Criteria{SpecialProperties: []string{PropPersists, PropFlares}})))
	assert.Equal(t, []string{"both", "onlyTag"}, names(Filter(items, Criteria{SpecialProperties: []string{PropPersists}})))
	assert.Equal(t, []string{"holy"}, names(Filter(items, Criteria{SpecialProperties: []string{PropHoly}})))
}

func TestFilterQueryCorpusChoice(t *testing.T) {
	it := item("a dagger", "A", internal.ItemWeapon)
	it.SearchText = "a dagger a blades and more"
	it.SearchTextNoSign = "a dagger a"

	assert.False(t, Matches(it, Criteria{Query: "blades"}))
	assert.True(t, Matches(it, Criteria{Query: "blades", SearchShopSigns: true}))
}

func TestFilterEnhanciveQuery(t *testing.T) {
	nine := item("nine", "A", internal.ItemNone)
	nine.SearchTextNoSign = "nine 9 to armor use bonus 9 armor use bonus armor use bonus 9"
	eight := item("eight", "A", internal.ItemNone)
	eight.SearchTextNoSign = "eight 8 to armor use bonus 8 armor use bonus armor use bonus 8"

	got := Filter([]*internal.NormalizedItem{nine, eight}, Criteria{Query: "9 armor use bonus"})
	assert.Equal(t, []string{"nine"}, names(got))
}

func TestFilterRecency(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	fresh := item("fresh", "A", internal.ItemNone)
	fresh.AddedDate = "2026-10-19T01:00:00Z"
	stale := item("stale", "A", internal.ItemNone)
	stale.AddedDate = "2026-10-15T01:00:00Z"
	odd := item("odd", "A", internal.ItemNone)
	odd.AddedDate = "sometime"
	items := []*internal.NormalizedItem{fresh, stale, odd}

	got := Filter(items, Criteria{AddedWithin: 24 * time.Hour, Now: now})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"fresh", "odd"}, names(got))

	gone := item("gone", "A", internal.ItemNone)
	gone.RemovedDate = "2026-09-01T00:00:00Z"
	assert.Empty(t, Filter([]*internal.NormalizedItem{gone}, Criteria{RemovedWithin: 7 * 24 * time.Hour, Now: now}))
}
