package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodega/internal"
	"bodega/internal/catalog"
	"bodega/internal/config"
	"bodega/internal/connectors"
	"bodega/internal/metrics"
	"bodega/internal/relay"
	"bodega/internal/storage"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type staticCatalog struct{ idx *catalog.Index }

func (s staticCatalog) Current() *catalog.Index { return s.idx }

type stubPublisher struct{ dispatched int }

func (p *stubPublisher) CreateGist(context.Context, string, map[string]string) (connectors.Gist, error) {
	return connectors.Gist{ID: "beef", HTMLURL: "https://gist.github.com/x/beef"}, nil
}

func (p *stubPublisher) Dispatch(context.Context, string, map[string]any) error {
	p.dispatched++
	return nil
}

func item(id, name string, details map[string]any, extra map[string]any) map[string]any {
	m := map[string]any{"id": id, "name": name, "details": details}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func fixtureIndex() *catalog.Index {
	recent := testNow.Add(-12 * time.Hour).Format(time.RFC3339)
	older := testNow.Add(-3 * 24 * time.Hour).Format(time.RFC3339)
	snap := &internal.Snapshot{
		Town:      "Wehnimer's Landing,",
		CreatedAt: "2026-10-19T06:00:00Z",
		Shops: []internal.Shop{
			{ID: "1", Preamble: "Steel is located in [Wehnimer's Landing, Town Square].", Rooms: []internal.Room{
				{Title: "Steel", Sign: []string{"Written on the sign:", "Blades sharpened"}, Items: []any{
					item("a", "a vultite broadsword", map[string]any{"cost": 50000, "enchant": 7, "skill": "Edged Weapons"}, map[string]any{"added_date": recent}),
					item("b", "a steel dagger", map[string]any{"cost": 900, "enchant": 1, "skill": "Edged Weapons"}, map[string]any{"added_date": older}),
					item("c", "some full leather", map[string]any{"cost": 3000, "raw": []any{"The leather is full leather armor that covers the torso."}}, nil),
				}},
			}},
		},
		RemovedItems: []any{
			item("r", "a mithril ring", map[string]any{"cost": 10}, map[string]any{"removed_date": recent, "last_seen_shop": "Steel"}),
		},
	}
	return catalog.Build([]*internal.Snapshot{snap}, nil, catalog.BuildOptions{Now: testNow})
}

func newTestServer(t *testing.T, pub *stubPublisher) (*Server, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
	relaySvc := relay.NewService(pub, connectors.NewChunkStore(db, t.TempDir()), relay.Options{}, nil, m)
	cfg := config.Config{AddedDefaultDays: 1, ItemsPerPage: 100, DefaultTown: "Icemule Trace"}
	srv := NewServer(cfg, staticCatalog{idx: fixtureIndex()}, relaySvc, m, nil)
	srv.now = func() time.Time { return testNow }
	return srv, m
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

type itemsPage struct {
	Items []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		ItemType string `json:"itemType"`
	} `json:"items"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalPages int    `json:"totalPages"`
	Total      int    `json:"total"`
	Sort       string `json:"sort"`
	Dir        string `json:"dir"`
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) itemsPage {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page itemsPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubPublisher{})
	rec := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"message":"Bodega Upload API is running","endpoints":["/upload"],"timestamp":"2026-10-19T12:00:00.000Z"}`, rec.Body.String())
}

func TestSearchItems(t *testing.T) {
	srv, m := newTestServer(t, &stubPublisher{})

	page := decodePage(t, do(t, srv, http.MethodGet, "/api/items?sort=price&dir=desc", ""))
	require.Len(t, page.Items, 3)
	assert.Equal(t, "a vultite broadsword", page.Items[0].Name)
	assert.Equal(t, "price", page.Sort)
	assert.Equal(t, "desc", page.Dir)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/items?q=dagger", ""))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b", page.Items[0].ID)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/items?enchant=7,1&price=1000-100000", ""))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].ID)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/items?type=armor", ""))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "armor", page.Items[0].ItemType)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/items?per_page=2&page=2", ""))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.Total)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/items", "GET", "200")))
}

func TestSearchSignsScope(t *testing.T) {
	srv, _ := newTestServer(t, &stubPublisher{})

	page := decodePage(t, do(t, srv, http.MethodGet, "/api/items?q=sharpened", ""))
	assert.Empty(t, page.Items)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/items?q=sharpened&signs=true", ""))
	assert.Len(t, page.Items, 3)

	rec := do(t, srv, http.MethodGet, "/api/shops/signs?q=BLADES", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Steel"`)
}

func TestRecencyViews(t *testing.T) {
	srv, _ := newTestServer(t, &stubPublisher{})

	page := decodePage(t, do(t, srv, http.MethodGet, "/api/added", ""))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].ID)
	assert.Equal(t, "addedDate", page.Sort)
	assert.Equal(t, "desc", page.Dir)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/added?days=7", ""))
	assert.Len(t, page.Items, 2)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/removed", ""))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a mithril ring", page.Items[0].Name)

	page = decodePage(t, do(t, srv, http.MethodGet, "/api/removed?sort=shop", ""))
	assert.Equal(t, "lastSeenShop", page.Sort)
	assert.Equal(t, "asc", page.Dir)
	page = decodePage(t, do(t, srv, http.MethodGet, "/api/items?sort=shop", ""))
	assert.Equal(t, "shopName", page.Sort)
}

func TestBrowse(t *testing.T) {
	srv, _ := newTestServer(t, &stubPublisher{})

	rec := do(t, srv, http.MethodGet, "/api/towns", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"towns":["Wehnimer's Landing"],"default":"Wehnimer's Landing"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/towns/Wehnimer's%20Landing/shops/Steel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var shop struct {
		Shop  catalog.ShopSummary `json:"shop"`
		Rooms []catalog.RoomView  `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shop))
	assert.Equal(t, "Wehnimer's Landing, Town Square", shop.Shop.Location)
	require.Len(t, shop.Rooms, 1)
	assert.Equal(t, "Blades sharpened", shop.Rooms[0].Sign)
	assert.Len(t, shop.Rooms[0].Items, 3)

	rec = do(t, srv, http.MethodGet, "/api/towns/Nowhere/shops/Steel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/items/lookup?item=c&shop=1&town=Wehnimer's%20Landing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"some full leather"`)

	rec = do(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalItems":3`)
}

func TestUploadRoutes(t *testing.T) {
	pub := &stubPublisher{}
	srv, _ := newTestServer(t, pub)

	rec := do(t, srv, http.MethodOptions, "/upload", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = do(t, srv, http.MethodGet, "/upload", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, srv, http.MethodPost, "/upload", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required data (neither gist_url nor files provided)"}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/upload", `{"files":`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")

	rec = do(t, srv, http.MethodPost, "/upload", `{"files":{"a.json":{"town":"A"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload successful via gist")
	assert.Equal(t, 1, pub.dispatched)
}
