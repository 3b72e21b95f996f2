package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/burgecon/internal/economy"
	"github.com/talgya/burgecon/internal/persistence"
	"github.com/talgya/burgecon/internal/trade"
	"github.com/talgya/burgecon/internal/world"
)

func testServer() *Server {
	settlements := []economy.Settlement{
		{
			Settlement: world.Settlement{ID: 1, Name: "Aldmoor", Type: world.TypeNaval, X: 0, Y: 0},
			Population: 12000, Tier: "City", TotalQuartiers: 14,
			Net: economy.Balance{Food: 100, Gold: -20},
		},
		{
			Settlement: world.Settlement{ID: 2, Name: "Brenn", X: 10, Y: 0},
			Population: 400, Tier: "Hamlet",
			Net: economy.Balance{Food: -40, Gold: 30},
		},
	}
	flows := trade.Route(settlements)
	return &Server{
		Name:    "Eldmark",
		Result:  economy.Result{Settlements: settlements, Skipped: []economy.Skipped{{Index: 2, ID: 3, Name: "Ghost"}}},
		Flows:   flows,
		Summary: trade.Summarize(settlements, flows),
		RunID:   "run-1",
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestStatus(t *testing.T) {
	rec := get(t, testServer().Handler(), "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Eldmark", body["name"])
	assert.Equal(t, 2.0, body["settlements"])
	assert.Equal(t, 1.0, body["skipped"])
	assert.Equal(t, 12400.0, body["population"])
	assert.Equal(t, 60.0, body["net_food"])
	assert.Equal(t, 2.0, body["flows"])
}

func TestSettlementsFilterByTier(t *testing.T) {
	h := testServer().Handler()

	all := decode[[]map[string]any](t, get(t, h, "/api/v1/settlements"))
	assert.Len(t, all, 2)

	cities := decode[[]map[string]any](t, get(t, h, "/api/v1/settlements?tier=city"))
	require.Len(t, cities, 1)
	assert.Equal(t, "Aldmoor", cities[0]["name"])
	assert.Equal(t, 14.0, cities[0]["nr_quartiers"])

	none := decode[[]map[string]any](t, get(t, h, "/api/v1/settlements?tier=Metropolis"))
	assert.Empty(t, none)
}

func TestSettlementDetail(t *testing.T) {
	h := testServer().Handler()

	rec := get(t, h, "/api/v1/settlement/2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Settlement map[string]any   `json:"settlement"`
		Positions  []trade.Position `json:"positions"`
		Exports    []trade.Flow     `json:"exports"`
		Imports    []trade.Flow     `json:"imports"`
	}](t, rec)

	assert.Equal(t, "Brenn", body.Settlement["name"])
	assert.Len(t, body.Positions, 2)
	require.Len(t, body.Imports, 1)
	assert.Equal(t, economy.Food, body.Imports[0].Commodity)
	assert.Equal(t, 40.0, body.Imports[0].Amount)
	require.Len(t, body.Exports, 1)
	assert.Equal(t, economy.Gold, body.Exports[0].Commodity)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/settlement/99").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/settlement/abc").Code)
}

func TestTradesByCommodity(t *testing.T) {
	h := testServer().Handler()

	all := decode[[]trade.Flow](t, get(t, h, "/api/v1/trades"))
	assert.Len(t, all, 2)

	gold := decode[[]trade.Flow](t, get(t, h, "/api/v1/trades?commodity=GOLD"))
	require.Len(t, gold, 1)
	assert.Equal(t, 2, gold[0].From)
	assert.Equal(t, 20.0, gold[0].Amount)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/trades?commodity=iron").Code)
}

func TestSummary(t *testing.T) {
	body := decode[map[string]any](t, get(t, testServer().Handler(), "/api/v1/summary"))
	assert.Equal(t, map[string]any{"food": 40.0, "gold": 20.0}, body["volumes"])
	assert.Equal(t, map[string]any{"food": 0.0, "gold": 0.0}, body["unmet"])
	assert.Len(t, body["skipped"], 1)
}

func TestRunsNeedDatabase(t *testing.T) {
	s := testServer()
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/v1/runs").Code)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()
	id, err := db.SaveRun(persistence.RunMeta{Source: "generated", Seed: 3}, s.Result, s.Flows)
	require.NoError(t, err)

	s.DB = db
	h := s.Handler()
	runs := decode[[]persistence.Run](t, get(t, h, "/api/v1/runs"))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, 2, runs[0].Flows)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/runs?limit=0").Code)
}

func TestStoredRunEndpoints(t *testing.T) {
	s := testServer()
	s.Result.Settlements[0].Quartiers = map[string]int{"Farmer": 10, "Fisher": 4}
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/v1/runs/any").Code)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()
	id, err := db.SaveRun(persistence.RunMeta{Source: "generated", Seed: 9}, s.Result, s.Flows)
	require.NoError(t, err)

	s.DB = db
	h := s.Handler()

	rec := get(t, h, "/api/v1/runs/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		Run         persistence.Run  `json:"run"`
		Settlements []map[string]any `json:"settlements"`
	}](t, rec)
	assert.Equal(t, id, detail.Run.ID)
	assert.Equal(t, int64(9), detail.Run.Seed)
	require.Len(t, detail.Settlements, 2)
	assert.Equal(t, "Aldmoor", detail.Settlements[0]["name"])
	assert.Equal(t, map[string]any{"Farmer": 10.0, "Fisher": 4.0}, detail.Settlements[0]["quartiers"])
	assert.NotContains(t, detail.Settlements[0], "quartiers_json")

	flows := decode[[]trade.Flow](t, get(t, h, "/api/v1/runs/"+id+"/trades"))
	assert.Equal(t, s.Flows, flows)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs/missing/trades").Code)
}

func TestSettlementWithoutTradeHasEmptyPositions(t *testing.T) {
	s := testServer()
	s.Result.Settlements = append(s.Result.Settlements, economy.Settlement{
		Settlement: world.Settlement{ID: 7, Name: "Stillwater", X: 50, Y: 50},
	})

	rec := get(t, s.Handler(), "/api/v1/settlement/7")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, []any{}, body["positions"])
	assert.Equal(t, []any{}, body["exports"])
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://maps.example.com")
	h := testServer().Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://maps.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://maps.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "clients are independent")
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"), "window reset")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:5123"
	assert.Equal(t, "10.0.0.5", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
