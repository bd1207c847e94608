package game

import "connectdeck/internal/models"

// ResolvePool computes the drawable card pool for a session from the selected
// decks. Unknown decks and locked premium decks are skipped; duplicate card
// ids across decks collapse. The returned slice preserves first-seen order so
// pool contents are deterministic for a given deck selection.
//
// An empty result is a valid outcome, not an error; the caller decides
// whether that means the session cannot start (ErrNoAvailableCards).
func ResolvePool(selectedDeckIDs []string, decksByID map[string]models.Deck) []string {
	seen := make(map[string]bool)
	var pool []string

	for _, deckID := range selectedDeckIDs {
		deck, ok := decksByID[deckID]
		if !ok {
			continue
		}
		if !deck.Accessible() {
			continue
		}
		for _, cardID := range deck.CardIDs {
			if seen[cardID] {
				continue
			}
			seen[cardID] = true
			pool = append(pool, cardID)
		}
	}

	return pool
}
