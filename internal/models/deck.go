package models

// DeckTier gates deck access
type DeckTier string

const (
	TierFree    DeckTier = "FREE"
	TierPremium DeckTier = "PREMIUM"
)

// Deck is a named collection of cards, gated by tier and relationship type
type Deck struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	RelationshipType RelationshipType `json:"relationshipType"`
	Tier             DeckTier         `json:"tier"`
	CardCount        int              `json:"cardCount"`

	// CardIDs is populated from the deck's card listing when a session is
	// being assembled; the catalog endpoint may omit it.
	CardIDs []string `json:"cardIds,omitempty"`

	// Unlocked reflects the current user's access to a premium deck
	Unlocked bool `json:"unlocked"`
}

// Accessible reports whether the deck can contribute cards to a session
func (d Deck) Accessible() bool {
	return d.Tier == TierFree || d.Unlocked
}
