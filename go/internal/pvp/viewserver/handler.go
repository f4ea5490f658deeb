package viewserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/olympiad/go/internal/pvp"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/render"
)

// Engine is the client core driven over HTTP. *pvp.Service implements it.
type Engine interface {
	Overview() pvp.Overview
	Subscribe() (<-chan render.View, func())
	Login(ctx context.Context, username, password string) error
	Logout()
	CreateMatch(ctx context.Context) (match.ID, error)
	JoinMatch(ctx context.Context, id match.ID) error
	OpenMatch(ctx context.Context, id match.ID) error
	SubmitAnswer(ctx context.Context, answer string) error
	LeaveMatch(ctx context.Context) error
	Refresh(ctx context.Context) error
	ShowPanel(ctx context.Context, panel pvp.Panel) error
}

// Handler exposes the engine's view and actions as JSON.
type Handler struct {
	engine Engine
	config Config
}

func NewHandler(engine Engine, config Config) *Handler {
	return &Handler{engine: engine, config: config}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type matchRequest struct {
	MatchID match.ID `json:"match_id"`
}

type submitRequest struct {
	Answer string `json:"answer"`
}

type panelRequest struct {
	Panel pvp.Panel `json:"panel"`
}

type response struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	MatchID match.ID `json:"match_id,omitempty"`
}

// RegisterRoutes registers every view and action route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", h.HandleGetView)
	mux.HandleFunc("/ws/view", h.HandleViewStream)
	mux.HandleFunc("/api/login", h.HandleLogin)
	mux.HandleFunc("/api/logout", h.HandleLogout)
	mux.HandleFunc("/api/panel", h.HandlePanel)
	mux.HandleFunc("/api/match/create", h.HandleCreate)
	mux.HandleFunc("/api/match/join", h.HandleJoin)
	mux.HandleFunc("/api/match/open", h.HandleOpen)
	mux.HandleFunc("/api/match/submit", h.HandleSubmit)
	mux.HandleFunc("/api/match/leave", h.HandleLeave)
	mux.HandleFunc("/api/match/refresh", h.HandleRefresh)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// HandleGetView returns the current overview, including the projected view.
func (h *Handler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Overview())
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.respond(w, r, h.engine.Login(r.Context(), req.Username, req.Password))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !decodePost(w, r, nil) {
		return
	}
	h.engine.Logout()
	h.respond(w, r, nil)
}

func (h *Handler) HandlePanel(w http.ResponseWriter, r *http.Request) {
	var req panelRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.respond(w, r, h.engine.ShowPanel(r.Context(), req.Panel))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !decodePost(w, r, nil) {
		return
	}
	id, err := h.engine.CreateMatch(r.Context())
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, MatchID: id})
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.respond(w, r, h.engine.JoinMatch(r.Context(), req.MatchID))
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.respond(w, r, h.engine.OpenMatch(r.Context(), req.MatchID))
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.respond(w, r, h.engine.SubmitAnswer(r.Context(), req.Answer))
}

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	if !decodePost(w, r, nil) {
		return
	}
	h.respond(w, r, h.engine.LeaveMatch(r.Context()))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !decodePost(w, r, nil) {
		return
	}
	h.respond(w, r, h.engine.Refresh(r.Context()))
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, response{Success: true})
		return
	}

	status := statusFor(err)
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("action failed")

	writeJSON(w, status, response{Success: false, Error: userMessage(err)})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch match.Kind(err) {
	case match.ErrValidation:
		return http.StatusBadRequest
	case match.ErrForbidden:
		return http.StatusForbidden
	case match.ErrNotFound:
		return http.StatusNotFound
	case match.ErrConflict:
		return http.StatusConflict
	case match.ErrRejected:
		return http.StatusUnprocessableEntity
	case match.ErrTransport:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// userMessage prefers the backend's own wording when there is one.
func userMessage(err error) string {
	var apiErr *match.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// decodePost enforces POST and decodes an optional JSON body into dst.
func decodePost(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if dst == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
