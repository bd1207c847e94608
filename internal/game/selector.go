package game

import (
	"math/rand"

	"connectdeck/internal/models"
)

// defaultTheta is the weight assumed for cards without a quality score
const defaultTheta = 0.5

// SelectOptions tunes how the next card is chosen
type SelectOptions struct {
	// Weighted draws proportionally to each card's theta score instead of
	// uniformly at random
	Weighted bool

	// PreferredLevel narrows the candidates to that connection level when at
	// least one candidate matches; otherwise the full set is kept. Zero
	// means no preference.
	PreferredLevel int
}

// Selector chooses the next card to draw from a session's remaining pool.
// The random source is injected so tests can seed it.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a selector backed by the given random source
func NewSelector(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// SelectNext picks a card from pool that has not been drawn yet. The second
// return value is false when no candidates remain (session exhausted).
// Cards missing from cardsByID still qualify for uniform selection but carry
// no level or theta information.
func (s *Selector) SelectNext(pool []string, cardsByID map[string]models.Card, drawn []string, opts SelectOptions) (string, bool) {
	drawnSet := make(map[string]bool, len(drawn))
	for _, id := range drawn {
		drawnSet[id] = true
	}

	var candidates []string
	for _, id := range pool {
		if !drawnSet[id] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	if opts.PreferredLevel != 0 {
		var atLevel []string
		for _, id := range candidates {
			if card, ok := cardsByID[id]; ok && card.ConnectionLevel == opts.PreferredLevel {
				atLevel = append(atLevel, id)
			}
		}
		// Graceful fallback: keep the full candidate set when no card
		// matches the preferred level
		if len(atLevel) > 0 {
			candidates = atLevel
		}
	}

	if opts.Weighted {
		if id, ok := s.selectWeighted(candidates, cardsByID); ok {
			return id, true
		}
		// Zero total weight: fall through to uniform
	}

	return candidates[s.rng.Intn(len(candidates))], true
}

// selectWeighted draws proportionally to theta using cumulative-distribution
// sampling, the same scheme the practice games use for struggling words.
func (s *Selector) selectWeighted(candidates []string, cardsByID map[string]models.Card) (string, bool) {
	weights := make([]float64, len(candidates))
	totalWeight := 0.0
	for i, id := range candidates {
		weight := defaultTheta
		if card, ok := cardsByID[id]; ok && card.Theta != nil {
			weight = *card.Theta
		}
		weights[i] = weight
		totalWeight += weight
	}

	if totalWeight <= 0 {
		return "", false
	}

	r := s.rng.Float64() * totalWeight
	cumWeight := 0.0
	for i, id := range candidates {
		cumWeight += weights[i]
		if r <= cumWeight {
			return id, true
		}
	}

	// Floating point slack: land on the last candidate
	return candidates[len(candidates)-1], true
}
