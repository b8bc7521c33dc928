package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"case-reasons-training/internal/app"
	"case-reasons-training/internal/auth"
	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/quiz"
	"go.uber.org/zap"
)

// APIHandler exposes the quiz use cases as JSON over HTTP. The session ID
// returned by login is the bearer token for every quiz call.
type APIHandler struct {
	service *app.QuizService
	logger  *zap.Logger
}

func NewAPIHandler(service *app.QuizService, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{service: service, logger: logger}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/logout", h.logout)
	mux.HandleFunc("GET /api/quiz", h.current)
	mux.HandleFunc("POST /api/quiz/answer", h.answer)
	mux.HandleFunc("POST /api/quiz/next", h.next)
	mux.HandleFunc("POST /api/quiz/restart", h.restart)
	mux.HandleFunc("GET /api/taxonomy", h.taxonomy)
	mux.HandleFunc("GET /api/taxonomy/options", h.options)
	mux.HandleFunc("GET /api/taxonomy/search", h.search)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/admin/audit", h.audit)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type advanceResponse struct {
	Scenario   domain.ScenarioView `json:"scenario"`
	Completion *domain.Completion  `json:"completion,omitempty"`
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.fail(w, r, domain.ErrInvalidInput)
		return
	}
	view, err := h.service.Login(r.Context(), creds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) current(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	view, err := h.service.Current(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) answer(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	var choice domain.Choice
	if err := json.NewDecoder(r.Body).Decode(&choice); err != nil {
		h.fail(w, r, domain.ErrInvalidInput)
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), token, choice)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) next(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	view, done, err := h.service.Advance(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{Scenario: view, Completion: done})
}

func (h *APIHandler) restart(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	view, err := h.service.Restart(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) taxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Taxonomy())
}

func (h *APIHandler) options(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.service.Options(domain.Choice{
		Reason1: q.Get("reason1"),
		Reason2: q.Get("reason2"),
		Reason3: q.Get("reason3"),
	}))
}

func (h *APIHandler) search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Search(r.URL.Query().Get("q"), limit))
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) audit(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Audit(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) token(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		h.fail(w, r, domain.ErrUnauthorized)
		return "", false
	}
	return token, true
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrentUpdate),
		errors.Is(err, quiz.ErrNotAwaitingAnswer),
		errors.Is(err, quiz.ErrNotSolved),
		errors.Is(err, quiz.ErrSessionComplete):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidInput
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
