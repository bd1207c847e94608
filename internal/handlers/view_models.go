package handlers

import (
	"connectdeck/internal/models"
)

// sessionView is the API representation of a session plus derived progress
type sessionView struct {
	ID               string                    `json:"id"`
	RelationshipType models.RelationshipType   `json:"relationshipType"`
	Status           models.SessionStatus      `json:"status"`
	CurrentLevel     int                       `json:"currentLevel"`
	Language         models.Language           `json:"language,omitempty"`
	SelectedDeckIDs  []string                  `json:"selectedDeckIds,omitempty"`
	Progress         models.Progress           `json:"progress"`
	Statistics       *models.SessionStatistics `json:"statistics,omitempty"`
}

func newSessionView(session *models.Session, progress models.Progress) sessionView {
	return sessionView{
		ID:               session.ID,
		RelationshipType: session.RelationshipType,
		Status:           session.Status,
		CurrentLevel:     session.CurrentLevel,
		Language:         session.Language,
		SelectedDeckIDs:  session.SelectedDeckIDs,
		Progress:         progress,
		Statistics:       session.Statistics,
	}
}

// cardView renders a card with its content resolved to the session language
type cardView struct {
	ID              string          `json:"id"`
	ConnectionLevel int             `json:"connectionLevel"`
	Type            models.CardType `json:"type"`
	Text            string          `json:"text"`
}

func newCardView(card *models.Card, lang models.Language) cardView {
	return cardView{
		ID:              card.ID,
		ConnectionLevel: card.ConnectionLevel,
		Type:            card.Type,
		Text:            card.Content.Resolve(lang),
	}
}

// drawView is the response to a draw request
type drawView struct {
	Card     cardView        `json:"card"`
	Progress models.Progress `json:"progress"`
}

// resolveView is the response to completing or skipping a card
type resolveView struct {
	Progress models.Progress      `json:"progress"`
	Level    models.LevelDecision `json:"level"`
}
