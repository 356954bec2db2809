package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bodega/internal/catalog"
	"bodega/internal/config"
	"bodega/internal/metrics"
	"bodega/internal/relay"
)

type CatalogSource interface {
	Current() *catalog.Index
}

// Server serves the catalog views and the upload relay over HTTP.
type Server struct {
	catalog CatalogSource
	relay   *relay.Service
	metrics *metrics.Metrics
	log     *zap.Logger
	cfg     config.Config
	now     func() time.Time
}

func NewServer(cfg config.Config, source CatalogSource, relaySvc *relay.Service, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{catalog: source, relay: relaySvc, metrics: m, log: log, cfg: cfg, now: time.Now}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), s.requestLogger(), s.metricsMiddleware(), corsMiddleware())

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	r.GET("/", s.Health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.POST("/upload", s.Upload)
	r.OPTIONS("/upload", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	{
		api.GET("/items", s.SearchItems)
		api.GET("/items/lookup", s.LookupItem)
		api.GET("/added", s.AddedItems)
		api.GET("/removed", s.RemovedItems)
		api.GET("/stats", s.Stats)

		towns := api.Group("/towns")
		{
			towns.GET("", s.Towns)
			towns.GET("/:town/shops", s.Shops)
			towns.GET("/:town/shops/:shop", s.Shop)
		}

		api.GET("/shops/signs", s.SearchSigns)
	}

	return r
}
