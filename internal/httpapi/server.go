// Package httpapi exposes the fulfillment pipeline over HTTP: the raw
// Lex event endpoint used as a webhook target, a plain-text chat surface
// for local testing, reservation lookups and the usual operational
// endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/lexkit/internal/config"
	"github.com/antoniostano/lexkit/internal/observability"
	"github.com/antoniostano/lexkit/internal/reservations"
)

// TurnHandler processes one raw Lex event and returns the raw response.
type TurnHandler interface {
	HandleTurn(ctx context.Context, raw []byte) ([]byte, error)
}

type Server struct {
	cfg     config.Config
	turns   TurnHandler
	store   reservations.Store
	metrics *observability.Metrics
	stages  *observability.StageWindow
	chats   *chatState
}

func New(cfg config.Config, turns TurnHandler, store reservations.Store, metrics *observability.Metrics, stages *observability.StageWindow) *Server {
	return &Server{
		cfg:     cfg,
		turns:   turns,
		store:   store,
		metrics: metrics,
		stages:  stages,
		chats:   newChatState(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/turn", s.handleTurn)
	r.Post("/v1/chat", s.handleChat)

	r.Get("/v1/reservations", s.handleListReservations)
	r.Get("/v1/reservations/{confirmation}", s.handleGetReservation)
	r.Get("/v1/sessions/{id}/reservations", s.handleSessionReservations)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.stages == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.stages.Snapshot())
}

// handleTurn is the webhook surface: the body is a verbatim Lex event and
// the reply is the verbatim Lex response. Malformed events still produce
// a well-formed fallback response, so the only error path here is an
// internal one.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	out, err := s.turns.HandleTurn(r.Context(), raw)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reservations": emptyIfNil(items)})
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	confirmation := strings.TrimSpace(chi.URLParam(r, "confirmation"))
	if confirmation == "" {
		respondError(w, http.StatusBadRequest, "invalid_confirmation", "missing confirmation code")
		return
	}

	item, err := s.store.Get(r.Context(), confirmation)
	if errors.Is(err, reservations.ErrNotFound) {
		respondError(w, http.StatusNotFound, "reservation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleSessionReservations(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	items, err := s.store.BySession(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reservations": emptyIfNil(items)})
}

func (s *Server) storeMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) != "" {
		return "postgres"
	}
	return "in-memory"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errEmptyBody
	}
	return raw, nil
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func emptyIfNil(items []reservations.Reservation) []reservations.Reservation {
	if items == nil {
		return []reservations.Reservation{}
	}
	return items
}
