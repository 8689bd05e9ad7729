// Package web provides the HTTP monitoring API for EmberDB.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/emberdb/emberdb/internal/server"
	"github.com/emberdb/emberdb/internal/store"
	"github.com/emberdb/emberdb/internal/version"
)

const apiVersionPath = "/api/v1"

// Server exposes read-mostly inspection endpoints over HTTP. It sits
// beside the RESP listener and shares its store and counters.
type Server struct {
	addr   string
	db     *store.Store
	resp   *server.Server
	server *http.Server
}

// New creates a monitoring server over the given store and RESP server.
func New(addr string, db *store.Store, resp *server.Server) *Server {
	return &Server{
		addr: addr,
		db:   db,
		resp: resp,
	}
}

// StatsResponse represents server statistics.
type StatsResponse struct {
	Version          string  `json:"version"`
	Uptime           int64   `json:"uptime"`
	UptimeHuman      string  `json:"uptime_human"`
	Keys             int     `json:"keys"`
	MemoryUsed       uint64  `json:"memory_used"`
	MemoryUsedMB     float64 `json:"memory_used_mb"`
	GoRoutines       int     `json:"goroutines"`
	CPUs             int     `json:"cpus"`
	TotalCommands    int64   `json:"total_commands"`
	TotalConnections int64   `json:"total_connections"`
	ConnectedClients int     `json:"connected_clients"`
}

// KeyInfo represents information about a key.
type KeyInfo struct {
	Key    string   `json:"key"`
	Type   string   `json:"type"`
	TTL    int64    `json:"ttl"`
	Value  string   `json:"value,omitempty"`
	Items  []string `json:"items,omitempty"`
	Length int64    `json:"length,omitempty"`
}

// HotKey is one entry of the hot-key report.
type HotKey struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Start starts the web server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: corsMiddleware(s.routes()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(apiVersionPath+"/stats", s.handleStats)
	mux.HandleFunc(apiVersionPath+"/keys", s.handleKeys)
	mux.HandleFunc(apiVersionPath+"/key/", s.handleKey)
	mux.HandleFunc(apiVersionPath+"/hotkeys", s.handleHotKeys)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	return mux
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := s.resp.Stats()
	writeJSON(w, StatsResponse{
		Version:          version.Version,
		Uptime:           int64(st.Uptime.Seconds()),
		UptimeHuman:      formatDuration(st.Uptime),
		Keys:             s.db.Len(),
		MemoryUsed:       m.Alloc,
		MemoryUsedMB:     float64(m.Alloc) / 1024 / 1024,
		GoRoutines:       runtime.NumGoroutine(),
		CPUs:             runtime.NumCPU(),
		TotalCommands:    st.TotalCommands,
		TotalConnections: st.TotalConnections,
		ConnectedClients: st.ConnectedClients,
	})
}

// handleKeys returns all keys with optional pattern filtering.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	keys := filterKeys(s.db.Keys(), pattern)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	keyInfos := make([]KeyInfo, len(keys))
	for i, key := range keys {
		keyInfos[i] = KeyInfo{
			Key:  key,
			Type: s.db.Type(key),
			TTL:  ttlSeconds(s.db.TTL(key)),
		}
	}

	writeJSON(w, map[string]interface{}{
		"keys":  keyInfos,
		"total": s.db.Len(),
	})
}

// handleKey handles individual key inspection and deletion.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, apiVersionPath+"/key/")
	if key == "" {
		http.Error(w, "Key required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, ok := s.keyInfo(key)
		if !ok {
			http.Error(w, "Key not found", http.StatusNotFound)
			return
		}
		writeJSON(w, info)

	case http.MethodDelete:
		if !s.db.Delete(key) {
			http.Error(w, "Key not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// keyInfo renders a key according to its kind.
func (s *Server) keyInfo(key string) (KeyInfo, bool) {
	kind := s.db.Type(key)
	info := KeyInfo{
		Key:  key,
		Type: kind,
		TTL:  ttlSeconds(s.db.TTL(key)),
	}

	switch kind {
	case store.KindString:
		val, ok, err := s.db.Get(key)
		if err != nil || !ok {
			return KeyInfo{}, false
		}
		info.Value = string(val)
	case store.KindList:
		items, err := s.db.LRange(key, 0, -1)
		if err != nil {
			return KeyInfo{}, false
		}
		info.Length = int64(len(items))
		for _, it := range items {
			info.Items = append(info.Items, string(it))
		}
	case store.KindStream:
		n, err := s.db.XLen(key)
		if err != nil {
			return KeyInfo{}, false
		}
		info.Length = n
	default:
		return KeyInfo{}, false
	}
	return info, true
}

func (s *Server) handleHotKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	top := s.resp.HotKeys(n)
	hot := make([]HotKey, len(top))
	for i, e := range top {
		hot[i] = HotKey{Key: e.Key, Count: e.Count}
	}
	writeJSON(w, map[string]interface{}{"hot_keys": hot})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ready := s.db != nil && s.resp != nil
	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}
	writeJSONWithStatus(w, statusCode, map[string]interface{}{
		"status": status,
		"ready":  ready,
	})
}

// filterKeys filters keys by glob pattern.
func filterKeys(keys []string, pattern string) []string {
	if pattern == "*" {
		return keys
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			out = append(out, k)
		}
	}
	return out
}

// ttlSeconds converts a store TTL to the reply convention: -2 missing,
// -1 no expiry, otherwise whole seconds remaining.
func ttlSeconds(ttl time.Duration) int64 {
	if ttl == time.Duration(-2) || ttl == time.Duration(-1) {
		return int64(ttl)
	}
	return int64(ttl.Seconds())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONWithStatus(w, http.StatusOK, data)
}

func writeJSONWithStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	day := 24 * time.Hour
	if d >= day {
		return fmt.Sprintf("%dd %s", d/day, (d % day).String())
	}
	return d.String()
}
