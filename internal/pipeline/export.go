package pipeline

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"bodega/internal"
)

func ExportItemsToXLSX(items []*internal.NormalizedItem, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"id", "name", "town", "shop_id", "shop_name", "room", "price", "enchant",
		"item_type", "weapon_type", "armor_type", "shield_type", "capacity_level", "wear_location", "skill",
		"material", "weight", "enhancives", "property_count", "gemstone_properties", "flares", "spell", "blessing", "charges",
		"added_date", "removed_date", "last_seen_shop", "last_seen_town",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, item.ID)
		set(2, item.Name)
		set(3, item.Town)
		set(4, item.ShopID)
		set(5, item.ShopName)
		set(6, item.Room)
		set(7, derefInt(item.Price))
		set(8, derefInt(item.Enchant))
		set(9, string(item.ItemType))
		set(10, item.WeaponType)
		set(11, item.ArmorType)
		set(12, item.ShieldType)
		set(13, item.CapacityLevel)
		set(14, item.WearLocation)
		set(15, item.Skill)
		set(16, item.Material)
		set(17, item.Weight)
		set(18, enhanciveSummary(item.Enhancives))
		set(19, item.PropertyCount())
		set(20, gemstoneSummary(item.GemstoneProperties))
		set(21, strings.Join(item.Flares, "; "))
		set(22, item.Spell)
		set(23, item.Blessing)
		set(24, item.Charges)
		set(25, item.AddedDate)
		set(26, item.RemovedDate)
		set(27, item.LastSeenShop)
		set(28, item.LastSeenTown)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func enhanciveSummary(list []internal.Enhancive) string {
	parts := make([]string, 0, len(list))
	for _, e := range list {
		parts = append(parts, e.Ability+" "+strconv.Itoa(e.Boost))
	}
	return strings.Join(parts, "; ")
}

func gemstoneSummary(list []internal.GemstoneProperty) string {
	parts := make([]string, 0, len(list))
	for _, g := range list {
		if g.Rarity == "" {
			parts = append(parts, g.Name)
			continue
		}
		parts = append(parts, g.Name+" ("+g.Rarity+")")
	}
	return strings.Join(parts, "; ")
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
