package handlers

import (
	"net/http"

	"connectdeck/internal/models"
	"connectdeck/internal/service"
)

// DeckHandler serves the deck catalog
type DeckHandler struct {
	decks *service.DeckService
}

// NewDeckHandler creates a new deck handler
func NewDeckHandler(decks *service.DeckService) *DeckHandler {
	return &DeckHandler{decks: decks}
}

// List handles GET /api/decks
func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	relationshipType := r.URL.Query().Get("relationshipType")
	if relationshipType != "" && !models.RelationshipType(relationshipType).Valid() {
		respondWithError(w, http.StatusBadRequest, "invalid_relationship_type", "unknown relationship type")
		return
	}

	decks, err := h.decks.ListDecks(r.Context(), relationshipType)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		Decks []models.Deck `json:"decks"`
	}{Decks: decks})
}

// Health handles GET /api/healthz
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
