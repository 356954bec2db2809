package pipeline

import (
	"fmt"
	"strings"

	"bodega/internal"
	"bodega/internal/util"
)

const UnknownShop = "Unknown Shop"

// ShopName is the title of the shop's first room.
func ShopName(shop internal.Shop) string {
	if len(shop.Rooms) == 0 {
		return UnknownShop
	}
	return shop.Rooms[0].Title
}

func ShopSign(shop internal.Shop) string {
	if len(shop.Rooms) == 0 {
		return ""
	}
	return util.SignText(shop.Rooms[0].Sign)
}

// Normalize builds the canonical item for one raw record in its shop/room
// context. The only structural failure is a missing name.
func Normalize(raw internal.RawItem, shop internal.Shop, room internal.Room, town string) (*internal.NormalizedItem, error) {
	if strings.TrimSpace(raw.Name) == "" {
		return nil, ErrMissingName
	}

	town = util.CleanTown(town)
	props := InferProperties(raw)

	item := &internal.NormalizedItem{
		ID:           raw.ID,
		Name:         raw.Name,
		Town:         town,
		ShopID:       shop.ID.String(),
		ShopName:     ShopName(shop),
		ShopLocation: shop.Preamble,
		ShopSign:     ShopSign(shop),
		Room:         room.Title,
		RoomSign:     util.SignText(room.Sign),
		Branch:       room.Branch,

		Price:   resolvePrice(raw.Details),
		Enchant: raw.Details.Enchant,

		Material: raw.Details.Material,
		Weight:   raw.Details.Weight,

		ItemType:      props.ItemType,
		WeaponType:    props.WeaponType,
		ArmorType:     props.ArmorType,
		ShieldType:    props.ShieldType,
		Capacity:      props.Capacity,
		CapacityLevel: props.CapacityLevel,
		WearLocation:  props.WearLocation,
		Skill:         props.Skill,

		Enhancives:         nonNilEnhancives(raw.Details.Enhancives),
		GemstoneProperties: nonNilGemstones(raw.Details.GemstoneProperties),
		GemstoneBoundTo:    raw.Details.GemstoneBoundTo,
		Tags:               nonNilStrings(raw.Details.Tags),
		Flares:             nonNilStrings(props.Flares),
		Spell:              props.Spell,
		Blessing:           props.Blessing,
		Charges:            props.Charges,
		Raw:                nonNilStrings(raw.Details.Raw),
	}

	item.SearchText = BuildSearchText(item, true)
	item.SearchTextNoSign = BuildSearchText(item, false)
	return item, nil
}

func resolvePrice(d internal.RawDetails) *int {
	if d.Cost != nil {
		n := *d.Cost
		return &n
	}
	for _, line := range d.Raw {
		if n, ok := util.ParseCoins(line); ok {
			return util.IntPtr(n)
		}
	}
	return nil
}

// BuildSearchText returns the lowercase corpus for free-text queries. With
// withSign false the shop preamble and shop sign are left out.
func BuildSearchText(item *internal.NormalizedItem, withSign bool) string {
	parts := make([]string, 0, 8+len(item.Raw)+len(item.Tags)+3*len(item.Enhancives)+len(item.GemstoneProperties))
	parts = append(parts, item.Name, item.Town)
	if withSign {
		parts = append(parts, item.ShopLocation, item.ShopSign)
	}
	parts = append(parts, item.Room)
	parts = append(parts, item.Raw...)
	parts = append(parts, item.Tags...)
	parts = append(parts, item.Material)
	for _, e := range item.Enhancives {
		parts = append(parts,
			fmt.Sprintf("%d to %s", e.Boost, e.Ability),
			fmt.Sprintf("%d %s", e.Boost, e.Ability),
			fmt.Sprintf("%s %d", e.Ability, e.Boost),
		)
	}
	for _, g := range item.GemstoneProperties {
		parts = append(parts, strings.Join([]string{g.Name, g.Rarity, g.Mnemonic, g.Description}, " "))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilEnhancives(in []internal.Enhancive) []internal.Enhancive {
	if in == nil {
		return []internal.Enhancive{}
	}
	return in
}

func nonNilGemstones(in []internal.GemstoneProperty) []internal.GemstoneProperty {
	if in == nil {
		return []internal.GemstoneProperty{}
	}
	return in
}
