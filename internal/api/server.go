// Package api serves a processed world over HTTP. All endpoints are GET and
// read-only.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/talgya/burgecon/internal/economy"
	"github.com/talgya/burgecon/internal/persistence"
	"github.com/talgya/burgecon/internal/trade"
)

// Server serves one processing run.
type Server struct {
	Name    string
	Result  economy.Result
	Flows   []trade.Flow
	Summary trade.Summary
	DB      *persistence.DB // Optional; enables /api/v1/runs
	RunID   string
	Port    int

	index map[int]int // Settlement id -> position in Result.Settlements
}

// Handler builds the route table wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	s.index = make(map[int]int, len(s.Result.Settlements))
	for i, st := range s.Result.Settlements {
		s.index[st.ID] = i
	}

	runsLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/settlements", s.handleSettlements)
	mux.HandleFunc("GET /api/v1/settlement/{id}", s.handleSettlementDetail)
	mux.HandleFunc("GET /api/v1/trades", s.handleTrades)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/runs", RateLimitMiddleware(runsLimiter, s.handleRuns))
	mux.HandleFunc("GET /api/v1/runs/{id}", RateLimitMiddleware(runsLimiter, s.handleRunDetail))
	mux.HandleFunc("GET /api/v1/runs/{id}/trades", RateLimitMiddleware(runsLimiter, s.handleRunTrades))

	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "settlements", len(s.Result.Settlements), "run", s.RunID)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	totals := s.Result.Totals()
	writeJSON(w, map[string]any{
		"name":        s.Name,
		"run":         s.RunID,
		"settlements": len(s.Result.Settlements),
		"skipped":     len(s.Result.Skipped),
		"population":  s.Result.Population(),
		"net_food":    totals.Food,
		"net_gold":    totals.Gold,
		"flows":       len(s.Flows),
	})
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	type settlementSummary struct {
		ID         int     `json:"id"`
		Name       string  `json:"name"`
		Type       string  `json:"type"`
		State      int     `json:"state"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Population int     `json:"population"`
		Tier       string  `json:"tier,omitempty"`
		Quartiers  int     `json:"nr_quartiers"`
		NetFood    float64 `json:"net_food"`
		NetGold    float64 `json:"net_gold"`
	}

	tier := r.URL.Query().Get("tier")
	result := make([]settlementSummary, 0, len(s.Result.Settlements))
	for _, st := range s.Result.Settlements {
		if tier != "" && !strings.EqualFold(st.Tier, tier) {
			continue
		}
		result = append(result, settlementSummary{
			ID:         st.ID,
			Name:       st.Name,
			Type:       st.Type,
			State:      st.State,
			X:          st.X,
			Y:          st.Y,
			Population: st.Population,
			Tier:       st.Tier,
			Quartiers:  st.TotalQuartiers,
			NetFood:    st.Net.Food,
			NetGold:    st.Net.Gold,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleSettlementDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid settlement id", http.StatusBadRequest)
		return
	}
	i, ok := s.index[id]
	if !ok {
		http.Error(w, "settlement not found", http.StatusNotFound)
		return
	}

	positions := s.Summary.For(id)
	if positions == nil {
		positions = []trade.Position{}
	}
	writeJSON(w, map[string]any{
		"settlement": s.Result.Settlements[i],
		"positions":  positions,
		"exports":    lo.Filter(s.Flows, func(f trade.Flow, _ int) bool { return f.From == id }),
		"imports":    lo.Filter(s.Flows, func(f trade.Flow, _ int) bool { return f.To == id }),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	c := r.URL.Query().Get("commodity")
	if c == "" {
		writeJSON(w, lo.Ternary(s.Flows == nil, []trade.Flow{}, s.Flows))
		return
	}
	if !lo.Contains(economy.Commodities, economy.Commodity(strings.ToLower(c))) {
		http.Error(w, "unknown commodity", http.StatusBadRequest)
		return
	}
	commodity := economy.Commodity(strings.ToLower(c))
	writeJSON(w, lo.Filter(s.Flows, func(f trade.Flow, _ int) bool { return f.Commodity == commodity }))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"volumes": s.Summary.Volumes,
		"unmet":   s.Summary.Unmet,
		"totals":  s.Result.Totals(),
		"skipped": lo.Ternary(s.Result.Skipped == nil, []economy.Skipped{}, s.Result.Skipped),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 200)
	}
	runs, err := s.DB.Runs(limit)
	if err != nil {
		slog.Error("list runs", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, lo.Ternary(runs == nil, []persistence.Run{}, runs))
}

// storedRun loads the run named in the path, writing the error response
// itself when it cannot.
func (s *Server) storedRun(w http.ResponseWriter, r *http.Request) (persistence.Run, bool) {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusNotFound)
		return persistence.Run{}, false
	}
	run, err := s.DB.GetRun(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return persistence.Run{}, false
	}
	if err != nil {
		slog.Error("get run", "run", r.PathValue("id"), "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return persistence.Run{}, false
	}
	return run, true
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	type storedSettlement struct {
		persistence.SettlementRow
		Quartiers map[string]int `json:"quartiers"`
	}

	run, ok := s.storedRun(w, r)
	if !ok {
		return
	}
	rows, err := s.DB.LoadSettlements(run.ID)
	if err != nil {
		slog.Error("load run settlements", "run", run.ID, "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	settlements := make([]storedSettlement, 0, len(rows))
	for _, row := range rows {
		q, err := row.Quartiers()
		if err != nil {
			slog.Error("decode stored quartiers", "run", run.ID, "settlement", row.ID, "error", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		settlements = append(settlements, storedSettlement{SettlementRow: row, Quartiers: q})
	}

	writeJSON(w, map[string]any{
		"run":         run,
		"settlements": settlements,
	})
}

func (s *Server) handleRunTrades(w http.ResponseWriter, r *http.Request) {
	run, ok := s.storedRun(w, r)
	if !ok {
		return
	}
	flows, err := s.DB.LoadFlows(run.ID)
	if err != nil {
		slog.Error("load run flows", "run", run.ID, "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, flows)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
