// Package api provides the HTTP API for querying city state.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/engine"
	"github.com/talgya/citygrid/internal/grid"
	"github.com/talgya/citygrid/internal/persistence"
	"github.com/talgya/citygrid/internal/roads"
)

// Server serves the city state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	limiter := NewRateLimiter(10, 20)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/economy", s.handleEconomy)
	mux.HandleFunc("/api/v1/buildings", s.handleBuildings)
	mux.HandleFunc("/api/v1/parcel/", s.handleParcel)
	mux.HandleFunc("/api/v1/connectivity", s.handleConnectivity)
	mux.HandleFunc("/api/v1/accessibility", s.handleAccessibility)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/road", s.adminOnly(s.handleRoad))
	mux.HandleFunc("/api/v1/building", s.adminOnly(s.handleBuilding))
	mux.HandleFunc("/api/v1/route", s.adminOnly(s.handleRoute))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(RateLimitMiddleware(limiter, mux.ServeHTTP))
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
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
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return auth == "Bearer "+s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CITYGRID_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// ── Public handlers ───────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tick := s.Sim.CurrentTick()
	writeJSON(w, map[string]any{
		"name":       "citygrid",
		"tick":       tick,
		"sim_time":   engine.SimTime(tick, s.Sim.Tuning().TicksPerDay),
		"speed":      s.Eng.Speed,
		"running":    s.Eng.Running,
		"grid_n":     s.Sim.Grid.N,
		"population": s.Sim.Population(),
		"buildings":  len(s.Sim.Buildings()),
		"segments":   len(s.Sim.Net.Segments()),
		"digest":     s.Sim.StateDigest(),
	})
}

func (s *Server) handleEconomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"totals":             s.Sim.Totals(),
		"multipliers":        s.Sim.Multipliers(),
		"density_multiplier": s.Sim.DensityMultiplier(),
	})
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshots())
}

// handleParcel serves GET /api/v1/parcel/:row/:col — parcel info, the
// building snapshot if any, and the road accessibility score.
func (s *Server) handleParcel(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/parcel/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		http.Error(w, "expected /api/v1/parcel/:row/:col", http.StatusBadRequest)
		return
	}
	row, err1 := strconv.Atoi(parts[0])
	col, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		http.Error(w, "row and col must be integers", http.StatusBadRequest)
		return
	}

	loc := grid.Location{Row: row, Col: col}
	parcel, err := s.Sim.Grid.Parcel(loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"parcel":              parcel,
		"snapshot":            s.Sim.Snapshot(loc),
		"accessibility_score": s.Sim.Net.AccessibilityScore(loc),
		"road_access":         s.Sim.Net.HasRoadAccess(loc),
	})
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := grid.Location{Row: atoiq(q.Get("from_row")), Col: atoiq(q.Get("from_col"))}
	to := grid.Location{Row: atoiq(q.Get("to_row")), Col: atoiq(q.Get("to_col"))}

	res := s.Sim.QueryConnectivity(from, to)
	out := map[string]any{
		"connected": res.Connected,
		"hops":      res.Hops,
	}
	if res.Connected {
		out["bottleneck"] = res.Bottleneck.Name()
	}
	writeJSON(w, out)
}

func (s *Server) handleAccessibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := grid.Location{Row: atoiq(q.Get("row")), Col: atoiq(q.Get("col"))}
	cat := catalog.ResourceCategory(q.Get("resource"))
	maxDist := atoiq(q.Get("max"))

	writeJSON(w, s.Sim.QueryAccessibility(loc, cat, maxDist))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := atoiq(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	events := s.Sim.Events
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, events)
}

// ── Admin handlers ────────────────────────────────────────────────────

type roadRequest struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Orient string `json:"orient"` // "h" or "v"
	Type   string `json:"type"`   // local | arterial | highway
	Op     string `json:"op"`     // add | remove
}

func (s *Server) handleRoad(w http.ResponseWriter, r *http.Request) {
	var req roadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	orient := roads.Horizontal
	if req.Orient == "v" {
		orient = roads.Vertical
	}
	key := roads.EdgeKey{Row: req.Row, Col: req.Col, Orient: orient}

	op := engine.RoadAdd
	if req.Op == "remove" {
		op = engine.RoadRemove
	}
	roadType := roads.RoadLocal
	if req.Type != "" {
		t, err := roads.ParseRoadType(req.Type)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		roadType = t
	}

	if err := s.Sim.ApplyRoadChange(key, roadType, op); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "version": s.Sim.Net.Version()})
}

type buildingRequest struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Op      string `json:"op"` // place | demolish | complete | repair
	TypeID  string `json:"type_id,omitempty"`
	OwnerID string `json:"owner_id,omitempty"`
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	var req buildingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var op engine.BuildingOp
	switch req.Op {
	case "place":
		op = engine.BuildingPlace
	case "demolish":
		op = engine.BuildingDemolish
	case "complete":
		op = engine.BuildingComplete
	case "repair":
		op = engine.BuildingRepair
	default:
		http.Error(w, "op must be place|demolish|complete|repair", http.StatusBadRequest)
		return
	}

	loc := grid.Location{Row: req.Row, Col: req.Col}
	if err := s.Sim.ApplyBuilding(loc, op, req.TypeID, req.OwnerID); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "snapshot": s.Sim.Snapshot(loc)})
}

type routeRequest struct {
	ID           string          `json:"id"`
	Op           string          `json:"op"`   // add | remove
	Mode         string          `json:"mode"` // bus | subway
	Stops        []grid.Location `json:"stops,omitempty"`
	ServiceLevel int             `json:"service_level,omitempty"`
	TicketPrice  float64         `json:"ticket_price,omitempty"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Op == "remove" {
		s.Sim.RemoveTransitRoute(req.ID)
		writeJSON(w, map[string]any{"ok": true})
		return
	}

	mode := roads.ModeBus
	if req.Mode == "subway" {
		mode = roads.ModeSubway
	}
	s.Sim.AddTransitRoute(&roads.TransitRoute{
		ID:           req.ID,
		Stops:        req.Stops,
		Mode:         mode,
		ServiceLevel: req.ServiceLevel,
		TicketPrice:  req.TicketPrice,
	})
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be in [0, 100]", http.StatusBadRequest)
		return
	}
	s.Eng.Speed = req.Speed
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.SaveCityState(s.Sim); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	data, digest, err := persistence.ExportState(s.Sim)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"ok":               true,
		"digest":           digest,
		"compressed_bytes": len(data),
	})
}

func atoiq(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
