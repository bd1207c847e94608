package client

import (
	"context"
	"net/http"
	"net/url"

	"connectdeck/internal/models"
)

// CreateSessionRequest is the body for the create-session endpoint
type CreateSessionRequest struct {
	RelationshipType string   `json:"relationshipType"`
	SelectedDeckIDs  []string `json:"selectedDeckIds"`
	Language         string   `json:"language,omitempty"`
}

// SessionSnapshot is the backend's view of a session
type SessionSnapshot struct {
	ID               string                    `json:"id"`
	RelationshipType string                    `json:"relationshipType"`
	Status           string                    `json:"status"`
	CurrentLevel     int                       `json:"currentLevel"`
	Language         string                    `json:"language"`
	DrawnCards       []string                  `json:"drawnCards"`
	CompletedCards   []string                  `json:"completedCards"`
	SkippedCards     []string                  `json:"skippedCards"`
	CardsRemaining   *int                      `json:"cardsRemaining,omitempty"`
	Statistics       *models.SessionStatistics `json:"statistics,omitempty"`
}

// DrawResult is the server-authoritative outcome of a draw
type DrawResult struct {
	Card           models.Card `json:"card"`
	CurrentLevel   int         `json:"currentLevel"`
	CardsRemaining *int        `json:"cardsRemaining,omitempty"`
}

// ResolveResult is the updated counters after completing or skipping a card
type ResolveResult struct {
	CompletedCount int  `json:"completedCount"`
	SkippedCount   int  `json:"skippedCount"`
	CurrentLevel   int  `json:"currentLevel"`
	CardsRemaining *int `json:"cardsRemaining,omitempty"`
}

// CreateSession creates a session on the backend
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionSnapshot, error) {
	var out struct {
		Session SessionSnapshot `json:"session"`
	}
	if err := c.do(ctx, "createSession", false, http.MethodPost, "/sessions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// GetSession fetches a session snapshot
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	var out struct {
		Session SessionSnapshot `json:"session"`
	}
	if err := c.do(ctx, "getSession", true, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// DrawCard asks the backend for the session's next card
func (c *Client) DrawCard(ctx context.Context, sessionID string) (*DrawResult, error) {
	var out DrawResult
	if err := c.do(ctx, "drawCard", true, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/draw-card", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteCard reports a card as completed
func (c *Client) CompleteCard(ctx context.Context, sessionID, cardID string) (*ResolveResult, error) {
	return c.resolveCard(ctx, "completeCard", sessionID, "complete-card", cardID)
}

// SkipCard reports a card as skipped
func (c *Client) SkipCard(ctx context.Context, sessionID, cardID string) (*ResolveResult, error) {
	return c.resolveCard(ctx, "skipCard", sessionID, "skip-card", cardID)
}

func (c *Client) resolveCard(ctx context.Context, op, sessionID, action, cardID string) (*ResolveResult, error) {
	body := struct {
		CardID string `json:"cardId"`
	}{CardID: cardID}

	var out ResolveResult
	path := "/sessions/" + url.PathEscape(sessionID) + "/" + action
	if err := c.do(ctx, op, false, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession ends a session and returns the backend's final statistics
func (c *Client) EndSession(ctx context.Context, sessionID string) (*models.SessionStatistics, error) {
	var out struct {
		Statistics models.SessionStatistics `json:"statistics"`
	}
	path := "/sessions/" + url.PathEscape(sessionID) + "/end"
	if err := c.do(ctx, "endSession", false, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Statistics, nil
}

// ListDecks fetches the deck catalog, optionally filtered by relationship
// type and tier
func (c *Client) ListDecks(ctx context.Context, relationshipType, tier string) ([]models.Deck, error) {
	query := url.Values{}
	if relationshipType != "" {
		query.Set("relationshipType", relationshipType)
	}
	if tier != "" {
		query.Set("tier", tier)
	}

	var out struct {
		Decks []models.Deck `json:"decks"`
	}
	if err := c.do(ctx, "listDecks", true, http.MethodGet, "/decks", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Decks, nil
}

// GetDeckCards fetches the full card list of one deck
func (c *Client) GetDeckCards(ctx context.Context, deckID string) ([]models.Card, error) {
	var out struct {
		Cards []models.Card `json:"cards"`
	}
	path := "/decks/" + url.PathEscape(deckID) + "/cards"
	if err := c.do(ctx, "getDeckCards", true, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Cards, nil
}
