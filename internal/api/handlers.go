package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bodega/internal"
	"bodega/internal/search"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Bodega Upload API is running",
		"endpoints": []string{"/upload"},
		"timestamp": s.now().UTC().Format(isoMillis),
	})
}

func (s *Server) SearchItems(c *gin.Context) {
	idx := s.catalog.Current()
	s.respondItems(c, idx.Items, s.criteriaFromQuery(c), search.ViewItems, search.FieldName)
}

func (s *Server) AddedItems(c *gin.Context) {
	idx := s.catalog.Current()
	crit := search.Criteria{
		Query:       c.Query("q"),
		Towns:       listParam(c, "town"),
		PriceRanges: rawListParam(c, "price"),
		AddedWithin: days(intParam(c, "days", s.cfg.AddedDefaultDays)),
		Now:         s.now(),
	}
	s.respondItems(c, idx.Added, crit, search.ViewAdded, search.FieldAddedDate)
}

func (s *Server) RemovedItems(c *gin.Context) {
	idx := s.catalog.Current()
	crit := search.Criteria{
		Query:         c.Query("q"),
		Towns:         listParam(c, "town"),
		PriceRanges:   rawListParam(c, "price"),
		RemovedWithin: days(intParam(c, "days", 0)),
		Now:           s.now(),
	}
	s.respondItems(c, idx.Removed, crit, search.ViewRemoved, search.FieldRemovedDate)
}

func (s *Server) respondItems(c *gin.Context, items []*internal.NormalizedItem, crit search.Criteria, view search.View, defaultSort string) {
	matched := search.Filter(items, crit)
	spec := sortFromQuery(c, view, defaultSort)
	search.Sort(matched, spec)

	perPage := intParam(c, "per_page", s.cfg.ItemsPerPage)
	page := search.Paginate(len(matched), intParam(c, "page", 1), perPage)

	c.JSON(http.StatusOK, gin.H{
		"items":      matched[page.Start:page.End],
		"page":       page.Page,
		"perPage":    page.PerPage,
		"totalPages": page.TotalPages,
		"total":      page.Total,
		"sort":       spec.Field,
		"dir":        spec.Direction,
	})
}

func (s *Server) LookupItem(c *gin.Context) {
	idx := s.catalog.Current()
	item, ok := idx.Lookup(c.Query("item"), c.Query("shop"), c.Query("town"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) Towns(c *gin.Context) {
	idx := s.catalog.Current()
	c.JSON(http.StatusOK, gin.H{
		"towns":   idx.Towns(),
		"default": idx.DefaultTown(s.cfg.DefaultTown),
	})
}

func (s *Server) Shops(c *gin.Context) {
	idx := s.catalog.Current()
	town := c.Param("town")
	c.JSON(http.StatusOK, gin.H{"town": town, "shops": idx.Shops(town)})
}

func (s *Server) Shop(c *gin.Context) {
	idx := s.catalog.Current()
	summary, rooms, ok := idx.Shop(c.Param("town"), c.Param("shop"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": summary, "rooms": rooms})
}

func (s *Server) SearchSigns(c *gin.Context) {
	idx := s.catalog.Current()
	c.JSON(http.StatusOK, gin.H{"shops": idx.SearchShopSigns(c.Query("q"), c.Query("town"))})
}

func (s *Server) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Current().Stats())
}
