package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"
)

type component struct {
	ID        int       `json:"id"`
	Status    int       `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type statusUpdate struct {
	Status *int `json:"status"`
}

type store struct {
	mu         sync.Mutex
	components map[int]component
}

func newStore() *store {
	return &store{components: make(map[int]component)}
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	logger := log.New(log.Writer(), "cachet-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, newMux(newStore(), os.Getenv("MOCK_CACHET_TOKEN"))),
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// newMux serves the subset of the Cachet v1 component API the bridge talks to. When token
// is non-empty, writes must present it in X-Cachet-Token.
func newMux(s *store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": "Pong!"})
	})

	mux.HandleFunc("GET /api/v1/components", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		list := make([]component, 0, len(s.components))
		for _, c := range s.components {
			list = append(list, c)
		}
		s.mu.Unlock()
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		writeJSON(w, http.StatusOK, map[string]any{"data": list})
	})

	mux.HandleFunc("GET /api/v1/components/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := componentID(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		c, found := s.components[id]
		s.mu.Unlock()
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{"component not found"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": c})
	})

	mux.HandleFunc("PUT /api/v1/components/{id}", func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("X-Cachet-Token") != token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"errors": []string{"invalid token"}})
			return
		}
		id, ok := componentID(w, r)
		if !ok {
			return
		}
		var update statusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.Status == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"status is required"}})
			return
		}
		if *update.Status < 0 || *update.Status > 4 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"status must be between 0 and 4"}})
			return
		}

		c := component{ID: id, Status: *update.Status, UpdatedAt: time.Now().UTC()}
		s.mu.Lock()
		s.components[id] = c
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": c})
	})
	return mux
}

func componentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid component id"}})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
