package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bodega/internal/search"
)

// listParam accepts both repeated keys (?town=a&town=b) and comma lists
// (?town=a,b). Price bands keep their commas since they may contain
// thousands separators, so they are only ever repeated.
func listParam(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func rawListParam(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		if p := strings.TrimSpace(v); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intListParam(c *gin.Context, key string) []int {
	var out []int
	for _, v := range listParam(c, key) {
		if n, err := strconv.Atoi(v); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func intParam(c *gin.Context, key string, fallback int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func boolParam(c *gin.Context, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func (s *Server) criteriaFromQuery(c *gin.Context) search.Criteria {
	return search.Criteria{
		Query:                  c.Query("q"),
		SearchShopSigns:        boolParam(c, "signs"),
		Towns:                  listParam(c, "town"),
		PriceRanges:            rawListParam(c, "price"),
		EnchantLevels:          intListParam(c, "enchant"),
		ItemTypes:              listParam(c, "type"),
		CapacityLevels:         listParam(c, "capacity"),
		ArmorTypes:             listParam(c, "armor"),
		ShieldTypes:            listParam(c, "shield"),
		WearLocations:          listParam(c, "wear"),
		Skills:                 listParam(c, "skill"),
		SpecialProperties:      listParam(c, "prop"),
		GemstoneRarities:       listParam(c, "rarity"),
		GemstonePropertyCounts: intListParam(c, "gem_props"),
		AddedWithin:            days(intParam(c, "added_days", 0)),
		RemovedWithin:          days(intParam(c, "removed_days", 0)),
		Now:                    s.now(),
	}
}

func sortFromQuery(c *gin.Context, view search.View, defaultField string) search.SortSpec {
	field := search.ViewField(view, c.DefaultQuery("sort", defaultField))
	return search.SortSpec{Field: field, Direction: search.ParseDirection(c.Query("dir"), field)}
}
