package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bodega/internal"
	"bodega/internal/util"
)

var ErrMissingName = errors.New("raw item has no name")

func ParseSnapshot(blob []byte) (*internal.Snapshot, error) {
	var snap internal.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(snap.Town) == "" {
		return nil, errors.New("snapshot has no town")
	}
	return &snap, nil
}

// ParseRemovedFile keeps every town whose value is an array. Other keys, such
// as a last_updated stamp, are reported in skipped. Once the blob is a JSON
// object the result is non-nil.
func ParseRemovedFile(blob []byte) (file internal.RemovedFile, skipped []string, err error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, nil, err
	}
	file = make(internal.RemovedFile, len(entries))
	for town, raw := range entries {
		var records []any
		if err := json.Unmarshal(raw, &records); err != nil || records == nil {
			skipped = append(skipped, town)
			continue
		}
		file[town] = records
	}
	return file, skipped, nil
}

// ParseShopMapping accepts both {"shops": {...}} and the flat {...} layout.
func ParseShopMapping(blob []byte) (map[string]internal.ShopLocation, error) {
	var wrapped struct {
		Shops map[string]json.RawMessage `json:"shops"`
	}
	if err := json.Unmarshal(blob, &wrapped); err != nil {
		return nil, err
	}
	entries := wrapped.Shops
	if entries == nil {
		if err := json.Unmarshal(blob, &entries); err != nil {
			return nil, err
		}
	}

	out := make(map[string]internal.ShopLocation, len(entries))
	for name, raw := range entries {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out[name] = internal.ShopLocation{
			MapID:    toString(m["map_id"]),
			Exterior: toString(m["exterior"]),
		}
	}
	return out, nil
}

// DecodeRawItem converts one loosely typed item record. Only a missing name is
// fatal; every other field degrades to its zero value.
func DecodeRawItem(raw map[string]any) (internal.RawItem, error) {
	name := strings.TrimSpace(toString(raw["name"]))
	if name == "" {
		return internal.RawItem{}, ErrMissingName
	}

	item := internal.RawItem{
		ID:           toString(raw["id"]),
		Name:         toString(raw["name"]),
		AddedDate:    toString(raw["added_date"]),
		RemovedDate:  util.FirstNonEmpty(toString(raw["removed_date"]), toString(raw["removedDate"])),
		LastSeenShop: util.FirstNonEmpty(toString(raw["last_seen_shop"]), toString(raw["lastSeenShop"])),
		Town:         toString(raw["town"]),
	}

	details, _ := raw["details"].(map[string]any)
	if details == nil {
		item.Details = internal.RawDetails{Raw: []string{}, Tags: []string{}, Enhancives: []internal.Enhancive{}, GemstoneProperties: []internal.GemstoneProperty{}}
		return item, nil
	}

	d := internal.RawDetails{
		Material:        toString(details["material"]),
		Weight:          toString(details["weight"]),
		Raw:             toStringSlice(details["raw"]),
		Tags:            toStringSlice(details["tags"]),
		GemstoneBoundTo: util.FirstNonEmpty(toString(details["gemstone_bound_to"]), toString(details["jewel_bound_to"])),
		Worn:            toString(details["worn"]),
		Skill:           toString(details["skill"]),
	}

	switch cost := details["cost"].(type) {
	case string:
		if n, ok := util.ParseLooseInt(cost); ok && n != 0 {
			d.Cost = util.IntPtr(n)
		}
	default:
		if n, ok := toInt(cost); ok && n != 0 {
			d.Cost = util.IntPtr(n)
		}
	}
	if n, ok := toInt(details["enchant"]); ok && n != 0 {
		d.Enchant = util.IntPtr(n)
	}

	d.Enhancives = toEnhancives(details["enhancives"])
	props := details["gemstone_properties"]
	if props == nil {
		props = details["jewel_properties"]
	}
	d.GemstoneProperties = toGemstoneProperties(props)

	item.Details = d
	return item, nil
}

func toEnhancives(v any) []internal.Enhancive {
	arr, _ := v.([]any)
	out := make([]internal.Enhancive, 0, len(arr))
	for _, entry := range arr {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		boost, _ := toInt(m["boost"])
		out = append(out, internal.Enhancive{
			Ability: toString(m["ability"]),
			Boost:   boost,
			Level:   toString(m["level"]),
		})
	}
	return out
}

func toGemstoneProperties(v any) []internal.GemstoneProperty {
	arr, _ := v.([]any)
	out := make([]internal.GemstoneProperty, 0, len(arr))
	for _, entry := range arr {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		activated, _ := m["activated"].(bool)
		out = append(out, internal.GemstoneProperty{
			Name:        toString(m["name"]),
			Rarity:      toString(m["rarity"]),
			Mnemonic:    toString(m["mnemonic"]),
			Description: toString(m["description"]),
			Activated:   activated,
		})
	}
	return out
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	case string:
		return util.ParseLooseInt(t)
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case int:
		return fmt.Sprintf("%d", t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
