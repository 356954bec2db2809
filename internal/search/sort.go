package search

import (
	"sort"
	"strings"
	"time"

	"bodega/internal"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const (
	FieldName          = "name"
	FieldPrice         = "price"
	FieldEnchant       = "enchant"
	FieldTown          = "town"
	FieldShopName      = "shopName"
	FieldRoom          = "room"
	FieldItemType      = "itemType"
	FieldWeight        = "weight"
	FieldPropertyCount = "propertyCount"
	FieldAddedDate     = "addedDate"
	FieldRemovedDate   = "removedDate"
	FieldLastSeenShop  = "lastSeenShop"
	FieldLastSeenTown  = "lastSeenTown"
)

// column headers in the views use short names
var fieldAliases = map[string]string{
	"shop":       FieldShopName,
	"properties": FieldPropertyCount,
	"added":      FieldAddedDate,
	"removed":    FieldRemovedDate,
}

// View names a listing. The removed listing has no live shop or town, so its
// shop and town headers sort by where the item was last seen.
type View string

const (
	ViewItems   View = "items"
	ViewAdded   View = "added"
	ViewRemoved View = "removed"
)

var viewAliases = map[View]map[string]string{
	ViewRemoved: {
		"shop":        FieldLastSeenShop,
		FieldShopName: FieldLastSeenShop,
		FieldTown:     FieldLastSeenTown,
	},
}

type SortSpec struct {
	Field     string
	Direction Direction
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindCount
	kindDate
)

type accessor struct {
	kind fieldKind
	str  func(*internal.NormalizedItem) string
	num  func(*internal.NormalizedItem) *int
}

var accessors = map[string]accessor{
	FieldName:          {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.Name }},
	FieldTown:          {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.Town }},
	FieldShopName:      {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.ShopName }},
	FieldRoom:          {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.Room }},
	FieldItemType:      {kind: kindString, str: func(i *internal.NormalizedItem) string { return string(i.ItemType) }},
	FieldWeight:        {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.Weight }},
	FieldLastSeenShop:  {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.LastSeenShop }},
	FieldLastSeenTown:  {kind: kindString, str: func(i *internal.NormalizedItem) string { return i.LastSeenTown }},
	FieldPrice:         {kind: kindNumber, num: func(i *internal.NormalizedItem) *int { return i.Price }},
	FieldEnchant:       {kind: kindNumber, num: func(i *internal.NormalizedItem) *int { return i.Enchant }},
	FieldPropertyCount: {kind: kindCount},
	FieldAddedDate:     {kind: kindDate, str: func(i *internal.NormalizedItem) string { return i.AddedDate }},
	FieldRemovedDate:   {kind: kindDate, str: func(i *internal.NormalizedItem) string { return i.RemovedDate }},
}

// CanonicalField resolves header aliases; unknown fields fall back to name.
func CanonicalField(field string) string {
	if alias, ok := fieldAliases[field]; ok {
		return alias
	}
	if _, ok := accessors[field]; ok {
		return field
	}
	return FieldName
}

// ViewField is CanonicalField with the view's own header names applied first.
func ViewField(view View, field string) string {
	if alias, ok := viewAliases[view][field]; ok {
		return alias
	}
	return CanonicalField(field)
}

// DefaultDirection is the direction a field gets when first selected.
func DefaultDirection(field string) Direction {
	switch CanonicalField(field) {
	case FieldPropertyCount, FieldAddedDate, FieldRemovedDate:
		return Desc
	default:
		return Asc
	}
}

// Toggle returns the sort after a header click on field: the same field flips
// direction, a new field starts at its default direction.
func (s SortSpec) Toggle(field string) SortSpec {
	field = CanonicalField(field)
	if CanonicalField(s.Field) == field {
		if s.Direction == Asc {
			return SortSpec{Field: field, Direction: Desc}
		}
		return SortSpec{Field: field, Direction: Asc}
	}
	return SortSpec{Field: field, Direction: DefaultDirection(field)}
}

func ParseDirection(v string, field string) Direction {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "asc":
		return Asc
	case "desc":
		return Desc
	default:
		return DefaultDirection(field)
	}
}

// Compare orders a before b under the sort and returns -1, 0 or 1. Missing
// numbers (price, enchant) go after present ones in either direction.
func Compare(a, b *internal.NormalizedItem, spec SortSpec) int {
	acc := accessors[CanonicalField(spec.Field)]

	var result int
	switch acc.kind {
	case kindNumber:
		av, bv := acc.num(a), acc.num(b)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return 1
		case bv == nil:
			return -1
		}
		result = cmpInt(*av, *bv)
	case kindCount:
		result = cmpInt(a.PropertyCount(), b.PropertyCount())
	case kindDate:
		at, _ := ParseDate(acc.str(a))
		bt, _ := ParseDate(acc.str(b))
		result = at.Compare(bt)
	default:
		result = strings.Compare(strings.ToLower(acc.str(a)), strings.ToLower(acc.str(b)))
	}

	if spec.Direction == Desc {
		return -result
	}
	return result
}

// Sort orders items in place. Ties keep their prior relative order.
func Sort(items []*internal.NormalizedItem, spec SortSpec) {
	sort.SliceStable(items, func(i, j int) bool {
		return Compare(items[i], items[j], spec) < 0
	})
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts the ISO-ish timestamps found in snapshot files.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
