package handlers

import (
	"encoding/json"
	"net/http"

	"connectdeck/internal/models"
	"connectdeck/internal/service"
)

// SessionHandler serves the session lifecycle endpoints
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cfg models.SessionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), cfg)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	progress := models.Progress{
		TotalCount:     len(session.AvailableCardPool),
		RemainingCount: len(session.AvailableCardPool),
	}
	respondWithJSON(w, http.StatusCreated, newSessionView(session, progress))
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, progress, err := h.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newSessionView(session, progress))
}

// Draw handles POST /api/sessions/{id}/draw
func (h *SessionHandler) Draw(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.sessions.DrawNext(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	lang := outcome.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}

	respondWithJSON(w, http.StatusOK, drawView{
		Card:     newCardView(&outcome.Card, lang),
		Progress: outcome.Progress,
	})
}

// Complete handles POST /api/sessions/{id}/cards/{cardId}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, service.OutcomeComplete)
}

// Skip handles POST /api/sessions/{id}/cards/{cardId}/skip
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, service.OutcomeSkip)
}

func (h *SessionHandler) resolve(w http.ResponseWriter, r *http.Request, outcome service.Outcome) {
	progress, decision, err := h.sessions.ResolveCard(r.Context(), r.PathValue("id"), r.PathValue("cardId"), outcome)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resolveView{Progress: progress, Level: decision})
}

// Pause handles POST /api/sessions/{id}/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.PauseSession(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.Get(w, r)
}

// Resume handles POST /api/sessions/{id}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ResumeSession(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.Get(w, r)
}

// End handles POST /api/sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.EndSession(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, struct {
		Statistics models.SessionStatistics `json:"statistics"`
	}{Statistics: stats})
}
