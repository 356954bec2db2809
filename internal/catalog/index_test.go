package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodega/internal"
	"bodega/internal/pipeline"
)

var buildNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func rec(id, name string, extra map[string]any) map[string]any {
	m := map[string]any{"id": id, "name": name, "details": map[string]any{}}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func snapshotFixture() *internal.Snapshot {
	return &internal.Snapshot{
		Town:      "Solhaven,",
		CreatedAt: "2026-10-18T06:00:00Z",
		Shops: []internal.Shop{
			{
				ID:       "10",
				Preamble: "Glimmer is located in [Solhaven, Harbor Row].",
				Rooms: []internal.Room{
					{Title: "Glimmer", Sign: []string{"Written on the sign:", "Gems and trinkets"}, Items: []any{
						rec("1", "an opal", map[string]any{"added_date": buildNow.Add(-6 * 24 * time.Hour).Format(time.RFC3339)}),
						rec("2", "a ruby", map[string]any{"added_date": buildNow.Add(-8 * 24 * time.Hour).Format(time.RFC3339)}),
					}},
					{Title: "Glimmer, Vault", Sign: []string{"Rare stock"}, Items: []any{
						rec("3", "a diamond", nil),
					}},
				},
			},
			{
				ID:       "11",
				Preamble: "The Anvil is located in [Solhaven, Smith Lane].",
				Rooms: []internal.Room{
					{Title: "The Anvil", Sign: []string{"Weapons forged daily"}, Items: []any{
						rec("4", "a mace", nil),
					}},
				},
			},
		},
		RemovedItems: []any{
			rec("90", "an embedded leftover", map[string]any{"removed_date": "2026-10-10T00:00:00Z", "last_seen_shop": "Glimmer"}),
		},
	}
}

func TestBuildAddedWindow(t *testing.T) {
	idx := Build([]*internal.Snapshot{snapshotFixture()}, nil, BuildOptions{Now: buildNow})

	require.Len(t, idx.Items, 4)
	require.Len(t, idx.Added, 1)
	assert.Equal(t, "an opal", idx.Added[0].Name)
	assert.NotEmpty(t, idx.Added[0].AddedDate)
	// the live item itself carries no added date
	assert.Empty(t, idx.Items[0].AddedDate)
}

func TestBuildRemovedPrecedence(t *testing.T) {
	idx := Build([]*internal.Snapshot{snapshotFixture()}, nil, BuildOptions{Now: buildNow})
	require.Len(t, idx.Removed, 1)
	assert.Equal(t, "an embedded leftover", idx.Removed[0].Name)
	assert.Equal(t, "Solhaven", idx.Removed[0].LastSeenTown)

	separate := internal.RemovedFile{
		"Solhaven": {rec("91", "a separate record", map[string]any{"removedDate": "2026-10-12T00:00:00Z"})},
	}
	idx = Build([]*internal.Snapshot{snapshotFixture()}, separate, BuildOptions{Now: buildNow})
	require.Len(t, idx.Removed, 1)
	assert.Equal(t, "a separate record", idx.Removed[0].Name)

	// an empty but present file still wins over embedded blocks
	idx = Build([]*internal.Snapshot{snapshotFixture()}, internal.RemovedFile{}, BuildOptions{Now: buildNow})
	assert.Empty(t, idx.Removed)
}

func TestShopMetadataFirstWriteWins(t *testing.T) {
	snap := snapshotFixture()
	// a second shop whose first room title collides with Glimmer
	snap.Shops = append(snap.Shops, internal.Shop{
		ID:       "99",
		Preamble: "Elsewhere.",
		Rooms: []internal.Room{{Title: "Glimmer", Sign: []string{"Different sign"}, Items: []any{rec("5", "a pearl", nil)}}},
	})
	idx := Build([]*internal.Snapshot{snap}, nil, BuildOptions{Now: buildNow})

	shops := idx.Shops("Solhaven")
	require.Len(t, shops, 2)
	glimmer := shops[0]
	assert.Equal(t, "Glimmer", glimmer.Name)
	assert.Equal(t, "10", glimmer.ID)
	assert.Equal(t, "Gems and trinkets", glimmer.Sign)
	assert.Equal(t, "Solhaven, Harbor Row", glimmer.Location)
	assert.Equal(t, 4, glimmer.ItemCount)
	assert.Equal(t, 2, glimmer.RoomCount)
}

func TestShopRooms(t *testing.T) {
	idx := Build([]*internal.Snapshot{snapshotFixture()}, nil, BuildOptions{Now: buildNow})
	sum, rooms, ok := idx.Shop("Solhaven", "Glimmer")
	require.True(t, ok)
	assert.Equal(t, "Glimmer", sum.Name)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Glimmer", rooms[0].Title)
	assert.Equal(t, "Glimmer, Vault", rooms[1].Title)
	assert.Equal(t, "Rare stock", rooms[1].Sign)

	_, _, ok = idx.Shop("Solhaven", "Nope")
	assert.False(t, ok)
}

func TestSearchShopSigns(t *testing.T) {
	other := &internal.Snapshot{
		Town: "Ta'Vaalor",
		Shops: []internal.Shop{{ID: "20", Rooms: []internal.Room{
			{Title: "Blades of Vaalor", Sign: []string{"Weapons and more"}, Items: []any{rec("7", "a sword", nil)}},
		}}},
	}
	idx := Build([]*internal.Snapshot{snapshotFixture(), other}, nil, BuildOptions{Now: buildNow})

	all := idx.SearchShopSigns("WEAPONS", "")
	require.Len(t, all, 2)
	assert.Equal(t, "Solhaven", all[0].Town)
	assert.Equal(t, "The Anvil", all[0].Name)
	assert.Equal(t, "Ta'Vaalor", all[1].Town)

	one := idx.SearchShopSigns("weapons", "Ta'Vaalor")
	require.Len(t, one, 1)
	assert.Equal(t, "Blades of Vaalor", one[0].Name)

	assert.Empty(t, idx.SearchShopSigns("  ", ""))
}

func TestLookupAndDefaultTown(t *testing.T) {
	idx := Build([]*internal.Snapshot{snapshotFixture()}, nil, BuildOptions{Now: buildNow})

	item, ok := idx.Lookup("4", "11", "Solhaven")
	require.True(t, ok)
	assert.Equal(t, "a mace", item.Name)
	_, ok = idx.Lookup("4", "10", "Solhaven")
	assert.False(t, ok)

	assert.Equal(t, "Solhaven", idx.DefaultTown("Teras Isle"))
	assert.Equal(t, "Solhaven", idx.DefaultTown(""))

	icemule := &internal.Snapshot{Town: "Icemule Trace", Shops: []internal.Shop{{Rooms: []internal.Room{{Title: "Stall", Items: []any{rec("8", "a fur", nil)}}}}}}
	idx = Build([]*internal.Snapshot{snapshotFixture(), icemule}, nil, BuildOptions{Now: buildNow})
	assert.Equal(t, "Icemule Trace", idx.DefaultTown("Teras Isle"))
	assert.Equal(t, "Solhaven", idx.DefaultTown("Solhaven"))
}

func TestStatsAndMapping(t *testing.T) {
	mapping := map[string]internal.ShopLocation{"The Anvil": {MapID: "u4042", Exterior: "Smith Lane"}}
	idx := Build([]*internal.Snapshot{snapshotFixture()}, nil, BuildOptions{Now: buildNow, Mapping: mapping})

	st := idx.Stats()
	assert.Equal(t, []string{"Solhaven"}, st.Towns)
	assert.Equal(t, 2, st.TotalShops)
	assert.Equal(t, 4, st.TotalItems)
	require.NotNil(t, st.LastUpdated)
	assert.Equal(t, "2026-10-18T06:00:00Z", st.LastUpdated.Format(time.RFC3339))

	shops := idx.Shops("Solhaven")
	require.Len(t, shops, 2)
	assert.Equal(t, "u4042", shops[1].MapID)
	assert.Empty(t, shops[0].MapID)
}

func TestBuildRemovedFileIgnoresNonArrayKeys(t *testing.T) {
	file, skipped, err := pipeline.ParseRemovedFile([]byte(`{"Solhaven":[{"id":"91","name":"a separate record"}],"last_updated":"2026-10-18"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"last_updated"}, skipped)

	idx := Build([]*internal.Snapshot{snapshotFixture()}, file, BuildOptions{Now: buildNow})
	require.Len(t, idx.Removed, 1)
	assert.Equal(t, "a separate record", idx.Removed[0].Name)
}
