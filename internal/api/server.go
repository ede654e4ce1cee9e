// Package api serves the compile service over HTTP: compile requests,
// the node catalog, health and readiness, the event log and a live event
// websocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/ScriptGraph/internal/catalog"
	"github.com/AaronLay10/ScriptGraph/internal/config"
	"github.com/AaronLay10/ScriptGraph/internal/events"
	"github.com/AaronLay10/ScriptGraph/internal/service"
	"github.com/AaronLay10/ScriptGraph/internal/storage/postgres"
	"github.com/AaronLay10/ScriptGraph/internal/version"
)

const shutdownTimeout = 10 * time.Second

// EventQuerier reads persisted events. *postgres.Client implements it.
type EventQuerier interface {
	Query(ctx context.Context, limit int) ([]postgres.EventRow, error)
}

// Server routes HTTP requests to the compile service.
type Server struct {
	svc      *service.Service
	store    EventQuerier
	maxBytes int64
	tls      TLSFiles
}

// NewServer returns a server for svc. store may be nil when events are
// not persisted.
func NewServer(svc *service.Service, store EventQuerier, maxBytes int64) *Server {
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxDocumentBytes
	}
	return &Server{svc: svc, store: store, maxBytes: maxBytes}
}

// SetTLS makes ListenAndServe serve HTTPS with the given files.
func (s *Server) SetTLS(files TLSFiles) {
	s.tls = files
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/catalog", s.catalogHandler)
	mux.HandleFunc("/compile", s.compileHandler)
	mux.HandleFunc("/ws/events", wsEventsHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	return mux
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "scriptgraphd",
		Version:   version.Version,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	writeJSON(w, http.StatusOK, resp)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// eventsHandler returns the in-memory event buffer. With ?source=db it
// reads the persisted log instead, newest first, limited by ?limit=.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	if r.URL.Query().Get("source") != "db" {
		writeJSON(w, http.StatusOK, events.Snapshot())
		return
	}

	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "event store not configured"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	rows, err := s.store.Query(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "event query failed"})
		return
	}
	if rows == nil {
		rows = []postgres.EventRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type CatalogResponse struct {
	Version string                `json:"version"`
	Nodes   []*catalog.Definition `json:"nodes"`
}

func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{
		Version: version.Version,
		Nodes:   s.svc.Catalog().Definitions(),
	})
}

// compileHandler answers 200 with code and diagnostics even when the
// diagnostics contain errors. Only undecodable or rejected documents get
// an error status.
func (s *Server) compileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	var req service.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}

	resp := s.svc.Compile(r.Context(), service.TransportHTTP, req)
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves s on port until ctx is cancelled, then shuts down
// gracefully. TLS is used when SetTLS named a certificate and key.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	tlsCfg, err := s.tls.Load()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if tlsCfg != nil {
			log.Printf("API listening on %s (TLS)\n", srv.Addr)
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			log.Printf("API listening on %s\n", srv.Addr)
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	events.CloseAllSubscribers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}
