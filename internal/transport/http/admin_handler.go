package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/app"
	"wedding-quiz-service/internal/domain"
)

// AdminHandler exposes the host controls over plain HTTP. The quiz is
// host-driven: every transition here fans out to guests through the session
// channel.
type AdminHandler struct {
	service *app.QuizService
	logger  zerolog.Logger
}

func NewAdminHandler(service *app.QuizService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/sessions", h.createSession)
	mux.HandleFunc("GET /admin/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /admin/sessions/{id}/start", h.action((*app.QuizService).StartSession))
	mux.HandleFunc("POST /admin/sessions/{id}/next", h.action((*app.QuizService).NextQuestion))
	mux.HandleFunc("POST /admin/sessions/{id}/reveal", h.action((*app.QuizService).Reveal))
	mux.HandleFunc("POST /admin/sessions/{id}/leaderboard", h.action((*app.QuizService).ShowLeaderboard))
	mux.HandleFunc("POST /admin/sessions/{id}/end", h.action((*app.QuizService).EndSession))
}

type createSessionRequest struct {
	SessionID     string `json:"sessionId"`
	QuestionSetID string `json:"questionSetId"`
}

type sessionView struct {
	SessionID        string                `json:"sessionId"`
	State            app.HostState         `json:"state"`
	Status           domain.SessionStatus  `json:"status"`
	ParticipantCount int                   `json:"participantCount"`
	HasMoreQuestions bool                  `json:"hasMoreQuestions"`
	Rankings         []domain.RankingEntry `json:"rankings"`
}

func (h *AdminHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.QuestionSetID == "" {
		writeError(w, http.StatusBadRequest, "sessionId and questionSetId are required")
		return
	}
	host, err := h.service.CreateSession(r.Context(), req.SessionID, req.QuestionSetID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(host))
}

func (h *AdminHandler) getSession(w http.ResponseWriter, r *http.Request) {
	host, err := h.service.Session(r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(host))
}

func (h *AdminHandler) action(fn func(*app.QuizService, context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := fn(h.service, r.Context(), id); err != nil {
			h.writeDomainError(w, err)
			return
		}
		host, err := h.service.Session(id)
		if err != nil {
			// End drops the session; report success without a view.
			writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "ok"})
			return
		}
		writeJSON(w, http.StatusOK, viewOf(host))
	}
}

func viewOf(host *app.HostSession) sessionView {
	return sessionView{
		SessionID:        host.ID(),
		State:            host.State(),
		Status:           host.Status(),
		ParticipantCount: host.ParticipantCount(),
		HasMoreQuestions: host.HasMoreQuestions(),
		Rankings:         host.Rankings(),
	}
}

func (h *AdminHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionSetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSessionExhausted),
		errors.Is(err, domain.ErrNoActiveQuestion),
		errors.Is(err, domain.ErrNoQuestions):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
