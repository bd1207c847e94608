package service

import (
	"context"
	"fmt"

	"connectdeck/internal/client"
	"connectdeck/internal/models"
)

// RemoteAPI is the slice of the backend client the services depend on,
// narrowed to an interface so tests can fake the backend.
type RemoteAPI interface {
	CreateSession(ctx context.Context, req client.CreateSessionRequest) (*client.SessionSnapshot, error)
	GetSession(ctx context.Context, sessionID string) (*client.SessionSnapshot, error)
	DrawCard(ctx context.Context, sessionID string) (*client.DrawResult, error)
	CompleteCard(ctx context.Context, sessionID, cardID string) (*client.ResolveResult, error)
	SkipCard(ctx context.Context, sessionID, cardID string) (*client.ResolveResult, error)
	EndSession(ctx context.Context, sessionID string) (*models.SessionStatistics, error)
	ListDecks(ctx context.Context, relationshipType, tier string) ([]models.Deck, error)
	GetDeckCards(ctx context.Context, deckID string) ([]models.Card, error)
}

// DeckService serves the deck catalog and assembles deck contents for
// session creation
type DeckService struct {
	api RemoteAPI
}

// NewDeckService creates a new deck service
func NewDeckService(api RemoteAPI) *DeckService {
	return &DeckService{api: api}
}

// ListDecks fetches the catalog, optionally filtered by relationship type
func (s *DeckService) ListDecks(ctx context.Context, relationshipType string) ([]models.Deck, error) {
	decks, err := s.api.ListDecks(ctx, relationshipType, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// AssembleDecks loads the selected decks and their cards. Unknown deck ids
// are skipped, matching pool-resolution semantics: access problems show up
// as an empty pool, not as hard failures here.
func (s *DeckService) AssembleDecks(ctx context.Context, deckIDs []string) (map[string]models.Deck, map[string]models.Card, error) {
	catalog, err := s.api.ListDecks(ctx, "", "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load deck catalog: %w", err)
	}

	byID := make(map[string]models.Deck, len(catalog))
	for _, deck := range catalog {
		byID[deck.ID] = deck
	}

	decks := make(map[string]models.Deck, len(deckIDs))
	cards := make(map[string]models.Card)
	for _, deckID := range deckIDs {
		deck, ok := byID[deckID]
		if !ok {
			continue
		}
		if !deck.Accessible() {
			// Locked decks still appear in the map so the resolver can
			// account for them; their cards are never fetched
			decks[deckID] = deck
			continue
		}

		deckCards, err := s.api.GetDeckCards(ctx, deckID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load cards for deck %s: %w", deckID, err)
		}

		deck.CardIDs = make([]string, 0, len(deckCards))
		for _, card := range deckCards {
			deck.CardIDs = append(deck.CardIDs, card.ID)
			cards[card.ID] = card
		}
		decks[deckID] = deck
	}

	return decks, cards, nil
}
