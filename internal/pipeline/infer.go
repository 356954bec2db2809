package pipeline

import (
	"regexp"
	"strings"

	"bodega/internal"
)

type PropertyBag struct {
	Capacity      string
	CapacityLevel string
	ArmorType     string
	WeaponType    string
	ShieldType    string
	WearLocation  string
	Skill         string
	Spell         string
	Blessing      string
	Charges       string
	Flares        []string

	IsWeapon    bool
	IsArmor     bool
	IsShield    bool
	IsContainer bool
	IsJewelry   bool

	ItemType internal.ItemType
}

type pattern struct {
	re *regexp.Regexp
	// value replaces the effect's default result; "$1" expands to the first
	// capture group.
	value string
}

// lineRule fires on the first of its patterns that matches a line. Rules are
// independent of each other: one line may fire several rules.
type lineRule struct {
	name     string
	patterns []pattern
	guard    func(bag *PropertyBag, line string) bool
	effect   func(bag *PropertyBag, line string, m []string, value string)
}

func p(expr string) pattern { return pattern{re: regexp.MustCompile(`(?i)` + expr)} }

func pv(expr, value string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)` + expr), value: value}
}

var (
	reArmorFabric  = regexp.MustCompile(`(?i)robe|armor|mail|scale|chain|plate|leather|hide|skin`)
	reShieldTypeOf = regexp.MustCompile(`(?i)is a (.*?) shield`)
)

var weaponSkills = map[string]struct{}{
	"edged weapons":      {},
	"blunt weapons":      {},
	"two handed weapons": {},
	"twohanded weapons":  {},
	"polearms":           {},
	"ranged weapons":     {},
	"thrown weapons":     {},
	"brawling":           {},
}

var lineRules = []lineRule{
	{
		name:     "capacity",
		patterns: []pattern{p(`can store a (.*?) amount`)},
		effect: func(bag *PropertyBag, line string, m []string, _ string) {
			bag.Capacity = strings.TrimSpace(line)
			bag.CapacityLevel = strings.ToLower(m[1])
			bag.IsContainer = true
		},
	},
	{
		name: "armor",
		patterns: []pattern{
			p(`is (.*?) armor that`),
			p(`The .* is (.*?) armor`),
			p(`covers.*torso`),
			p(`covers.*chest`),
			p(`covers.*body`),
			p(`protects.*body`),
			p(`armor.*covers`),
			p(`robe.*covers`),
			p(`robes.*cover`),
		},
		effect: func(bag *PropertyBag, _ string, m []string, _ string) {
			bag.ArmorType = "armor"
			if len(m) > 1 && m[1] != "" {
				bag.ArmorType = strings.ToLower(m[1])
			}
			bag.IsArmor = true
		},
	},
	{
		name:     "shield",
		patterns: []pattern{p(`shield that protects`), p(`is a.*shield`)},
		effect: func(bag *PropertyBag, line string, _ []string, _ string) {
			bag.IsShield = true
			if sm := reShieldTypeOf.FindStringSubmatch(line); len(sm) > 1 {
				bag.ShieldType = strings.ToLower(sm[1])
			}
		},
	},
	{
		name: "wear",
		patterns: []pattern{
			pv(`covers the (.*?)[\.,]`, "$1"),
			pv(`worn (.*?)[\.,]`, "$1"),
			pv(`around the (.*?)[\.,]`, "$1"),
			pv(`over the (.*?)[\.,]`, "$1"),
			pv(`put on.*as a (helm|hat|cap|crown)`, "head"),
			pv(`put on.*as (boots|shoes|sandals)`, "feet"),
			pv(`put on.*as (gloves|gauntlets)`, "hands"),
			pv(`put on.*as a (belt)`, "waist"),
			pv(`hung around.*as (necklace|pendant)`, "neck"),
			pv(`slid onto.*as a (ring)`, "finger"),
			pv(`attached to.*as a (bracelet)`, "wrist"),
			pv(`attached to.*as an (anklet)`, "ankle"),
			pv(`hung from.*as.*earring`, "earlobe"),
			pv(`draped from.*as a (cloak|cape)`, "shoulders"),
			pv(`slung over.*as a (shield)`, "shoulder"),
			pv(`worked into.*as (armor)`, "torso"),
			pv(`put over.*as an (apron)`, "front"),
			pv(`put in.*as.*barrette`, "hair"),
			pv(`attached to.*as.*pouch`, "belt"),
		},
		effect: func(bag *PropertyBag, _ string, m []string, value string) {
			if value == "$1" {
				value = ""
				if len(m) > 1 {
					value = strings.TrimSpace(m[1])
				}
			}
			bag.WearLocation = value
		},
	},
	{
		name:     "flare",
		patterns: []pattern{p(`infused.*power`), p(`flare`), p(`holy.*fire`), p(`blessed.*undead`)},
		effect: func(bag *PropertyBag, line string, _ []string, _ string) {
			bag.Flares = append(bag.Flares, strings.TrimSpace(line))
		},
	},
	{
		name:     "spell",
		patterns: []pattern{p(`imbedded with the (.*?) spell`)},
		effect: func(bag *PropertyBag, _ string, m []string, _ string) {
			bag.Spell = m[1]
		},
	},
	{
		name:     "charges",
		patterns: []pattern{p(`(\d+) charges? remaining`), p(`looks to have (.*?) charges`)},
		effect: func(bag *PropertyBag, _ string, m []string, _ string) {
			bag.Charges = m[1]
		},
	},
	{
		name:     "jewelry",
		patterns: []pattern{p(`is.*jewelry`), p(`\b(ring|necklace|bracelet|earring|pendant|amulet|brooch|pin)\b`)},
		effect: func(bag *PropertyBag, _ string, _ []string, _ string) {
			bag.IsJewelry = true
		},
	},
	{
		name:     "container-capacity",
		patterns: []pattern{p(`can store.*amount`), p(`container.*capacity`), p(`holds.*amount`), p(`storage.*capacity`)},
		effect: func(bag *PropertyBag, _ string, _ []string, _ string) {
			bag.IsContainer = true
		},
	},
	{
		name:     "container-name",
		patterns: []pattern{p(`\b(bag|sack|backpack|pouch|satchel|chest|strongbox|trunk|basket|belt|sheath|scabbard|harness|bandolier)\b`)},
		guard: func(bag *PropertyBag, line string) bool {
			if bag.IsWeapon || bag.IsArmor || bag.IsShield {
				return false
			}
			return !reArmorFabric.MatchString(line)
		},
		effect: func(bag *PropertyBag, _ string, _ []string, _ string) {
			bag.IsContainer = true
		},
	},
	{
		name:     "blessing",
		patterns: []pattern{p(`blessed`), p(`holy`)},
		effect: func(bag *PropertyBag, _ string, _ []string, _ string) {
			bag.Blessing = "holy"
		},
	},
}

// apply runs the rule against one line and reports whether it fired.
func (r lineRule) apply(bag *PropertyBag, line string) bool {
	if r.guard != nil && !r.guard(bag, line) {
		return false
	}
	for _, pt := range r.patterns {
		m := pt.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r.effect(bag, line, m, pt.value)
		return true
	}
	return false
}

// InferProperties derives classification fields from an item's free-text lines
// and its explicit skill/worn details.
func InferProperties(item internal.RawItem) PropertyBag {
	bag := PropertyBag{Flares: []string{}}

	for _, line := range item.Details.Raw {
		for _, rule := range lineRules {
			rule.apply(&bag, line)
		}
	}

	if skill := strings.TrimSpace(item.Details.Skill); skill != "" {
		bag.Skill = strings.ToLower(skill)
		if _, ok := weaponSkills[bag.Skill]; ok {
			bag.IsWeapon = true
			bag.WeaponType = bag.Skill
		}
		switch bag.Skill {
		case "shield use":
			bag.IsShield = true
			bag.ShieldType = "shield"
		case "armor use":
			bag.IsArmor = true
			bag.ArmorType = "armor"
		}
	}

	if item.Details.Worn != "" {
		bag.WearLocation = item.Details.Worn
	}

	bag.ItemType = resolveItemType(bag)
	return bag
}

func resolveItemType(bag PropertyBag) internal.ItemType {
	switch {
	case bag.IsWeapon:
		return internal.ItemWeapon
	case bag.IsArmor:
		return internal.ItemArmor
	case bag.IsShield:
		return internal.ItemShield
	case bag.IsContainer:
		return internal.ItemContainer
	case bag.IsJewelry:
		return internal.ItemJewelry
	default:
		return internal.ItemNone
	}
}
