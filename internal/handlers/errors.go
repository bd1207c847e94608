package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"connectdeck/internal/client"
	"connectdeck/internal/game"
	"connectdeck/internal/service"
	"connectdeck/internal/validation"
)

// errorBody is the JSON error envelope every endpoint uses
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Fields  []validation.ValidationError `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// respondWithServiceError maps service and client errors to HTTP responses.
// Game-rule violations are conflicts, backend availability problems are 503s,
// and backend rejections pass through with their own status.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErrs validation.ValidationErrors
	if errors.As(err, &validationErrs) {
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "invalid_config",
			Message: "session configuration is invalid",
			Fields:  validationErrs,
		}})
		return
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.Is(err, game.ErrNoAvailableCards):
		respondWithError(w, http.StatusUnprocessableEntity, "no_available_cards", "selected decks contain no accessible cards")
	case errors.Is(err, game.ErrPoolExhausted):
		respondWithError(w, http.StatusConflict, "pool_exhausted", "every card in this session has been drawn")
	case errors.Is(err, game.ErrSessionNotActive):
		respondWithError(w, http.StatusConflict, "session_not_active", "session is not active")
	case errors.Is(err, game.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, "invalid_transition", "session cannot change to that state")
	case errors.Is(err, game.ErrDuplicateDraw):
		respondWithError(w, http.StatusConflict, "duplicate_draw", "card was already drawn this session")
	case errors.Is(err, game.ErrNotDrawn):
		respondWithError(w, http.StatusConflict, "card_not_drawn", "card has not been drawn this session")
	case errors.Is(err, game.ErrAlreadyResolved):
		respondWithError(w, http.StatusConflict, "card_already_resolved", "card was already completed or skipped")
	default:
		respondWithBackendError(w, err)
	}
}

func respondWithBackendError(w http.ResponseWriter, err error) {
	var openErr *client.CircuitOpenError
	if errors.As(err, &openErr) {
		respondWithError(w, http.StatusServiceUnavailable, "backend_unavailable", "backend is temporarily unavailable, try again shortly")
		return
	}

	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		respondWithError(w, http.StatusServiceUnavailable, "backend_unreachable", "could not reach the backend")
		return
	}

	var rateErr *client.RateLimitedError
	if errors.As(err, &rateErr) {
		respondWithError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
		return
	}

	var clientErr *client.ClientError
	if errors.As(err, &clientErr) {
		respondWithError(w, clientErr.Status, "backend_rejected", clientErr.Message)
		return
	}

	log.Printf("unhandled error: %v", err)
	respondWithError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
}
