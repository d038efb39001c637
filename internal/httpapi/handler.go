// Package httpapi serves the tracker over JSON HTTP routes.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carbonlog/carbonlog/internal/advisor"
	"github.com/carbonlog/carbonlog/internal/dashboard"
	"github.com/carbonlog/carbonlog/internal/usecase"
)

//go:generate mockgen -source=handler.go -destination=mocks/tracker.go -package=mocks Tracker

// Tracker is the set of operations the routes delegate to.
type Tracker interface {
	Register(ctx context.Context, username, sector string) (usecase.User, error)
	Login(ctx context.Context, username string) (usecase.User, error)
	Append(ctx context.Context, username string, raw []byte) error
	Dashboard(ctx context.Context, username string) (dashboard.Data, error)
	Advise(ctx context.Context, username, message string) (advisor.Reply, error)
}

// Handler wires the JSON routes to a Tracker.
type Handler struct {
	tracker Tracker
	logger  *slog.Logger
}

func New(tracker Tracker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{tracker: tracker, logger: logger}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(api chi.Router) {
		api.Post("/register", h.HandleRegister)
		api.Post("/login", h.HandleLogin)
		api.Post("/dashboard", h.HandleDashboard)
		api.Post("/data", h.HandleData)
		api.Post("/chat", h.HandleChat)
	})
}

// NewRouter builds the full server mux: API routes, metrics and a health check.
// gatherer may be nil to omit /metrics.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	h.Register(r)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type registerRequest struct {
	Username string `json:"username"`
	Sector   string `json:"sector"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type dataRequest struct {
	Username string          `json:"username"`
	Entry    json.RawMessage `json:"entry"`
}

type chatRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// HandleRegister handles POST /api/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Sector) == "" {
		writeMessage(w, http.StatusBadRequest, "Username and sector required")
		return
	}

	user, err := h.tracker.Register(r.Context(), req.Username, req.Sector)
	if err != nil {
		h.fail(w, r, "register failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Status: "success", User: user})
}

// HandleLogin handles POST /api/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeMessage(w, http.StatusBadRequest, "Username required")
		return
	}

	user, err := h.tracker.Login(r.Context(), req.Username)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Status: "success", User: user})
}

// HandleDashboard handles POST /api/dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeMessage(w, http.StatusBadRequest, "Username required")
		return
	}

	data, err := h.tracker.Dashboard(r.Context(), req.Username)
	if err != nil {
		h.fail(w, r, "dashboard failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Status: "success", Data: FromDashboard(data)})
}

// HandleData handles POST /api/data.
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || len(req.Entry) == 0 || string(req.Entry) == "null" {
		writeMessage(w, http.StatusBadRequest, "Invalid data")
		return
	}

	if err := h.tracker.Append(r.Context(), req.Username, req.Entry); err != nil {
		h.fail(w, r, "append failed", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "Data saved"})
}

// HandleChat handles POST /api/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Message) == "" {
		writeMessage(w, http.StatusBadRequest, "Username and message required")
		return
	}

	reply, err := h.tracker.Advise(r.Context(), req.Username, req.Message)
	if err != nil {
		h.fail(w, r, "advise failed", err)
		return
	}
	writeJSON(w, http.StatusOK, FromReply(reply))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, msg,
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, err)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request handled",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
