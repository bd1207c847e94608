package game

import (
	"math/rand"
	"testing"

	"connectdeck/internal/models"
)

func theta(v float64) *float64 {
	return &v
}

func testCards() map[string]models.Card {
	return map[string]models.Card{
		"c1": {ID: "c1", ConnectionLevel: 1, Theta: theta(0.9)},
		"c2": {ID: "c2", ConnectionLevel: 1, Theta: theta(0.1)},
		"c3": {ID: "c3", ConnectionLevel: 2},
	}
}

func TestSelectNextExhausted(t *testing.T) {
	s := NewSelector(rand.NewSource(1))

	if _, ok := s.SelectNext(nil, testCards(), nil, SelectOptions{}); ok {
		t.Error("empty pool should yield no card")
	}

	pool := []string{"c1", "c2"}
	drawn := []string{"c1", "c2"}
	if _, ok := s.SelectNext(pool, testCards(), drawn, SelectOptions{}); ok {
		t.Error("fully drawn pool should yield no card")
	}
}

func TestSelectNextExcludesDrawn(t *testing.T) {
	s := NewSelector(rand.NewSource(1))
	pool := []string{"c1", "c2", "c3"}

	for i := 0; i < 50; i++ {
		id, ok := s.SelectNext(pool, testCards(), []string{"c1", "c3"}, SelectOptions{})
		if !ok {
			t.Fatal("expected a card")
		}
		if id != "c2" {
			t.Fatalf("only c2 is undrawn, got %q", id)
		}
	}
}

func TestSelectNextPreferredLevel(t *testing.T) {
	s := NewSelector(rand.NewSource(42))
	pool := []string{"c1", "c2", "c3"}

	// Deterministic: exactly one candidate at level 2
	for i := 0; i < 50; i++ {
		id, ok := s.SelectNext(pool, testCards(), nil, SelectOptions{PreferredLevel: 2})
		if !ok || id != "c3" {
			t.Fatalf("preferred level 2 should always pick c3, got %q ok=%v", id, ok)
		}
	}

	// No candidate at level 4: graceful fallback to the full set
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, ok := s.SelectNext(pool, testCards(), nil, SelectOptions{PreferredLevel: 4})
		if !ok {
			t.Fatal("expected a card")
		}
		seen[id] = true
	}
	if len(seen) != 3 {
		t.Errorf("fallback should draw from all candidates, saw %v", seen)
	}
}

func TestSelectNextWeighted(t *testing.T) {
	s := NewSelector(rand.NewSource(7))
	pool := []string{"c1", "c2"}
	cards := testCards()

	counts := make(map[string]int)
	for i := 0; i < 2000; i++ {
		id, ok := s.SelectNext(pool, cards, nil, SelectOptions{Weighted: true})
		if !ok {
			t.Fatal("expected a card")
		}
		counts[id]++
	}

	// c1 carries theta 0.9 vs c2's 0.1: expect roughly a 9:1 split. The
	// seeded source keeps this assertion stable.
	if counts["c1"] <= counts["c2"]*3 {
		t.Errorf("weighted selection should strongly favor c1: got %v", counts)
	}
	if counts["c2"] == 0 {
		t.Error("low-theta card should still be drawable")
	}
}

func TestSelectNextWeightedZeroTotalFallsBackToUniform(t *testing.T) {
	s := NewSelector(rand.NewSource(3))
	cards := map[string]models.Card{
		"c1": {ID: "c1", Theta: theta(0)},
		"c2": {ID: "c2", Theta: theta(0)},
	}
	pool := []string{"c1", "c2"}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, ok := s.SelectNext(pool, cards, nil, SelectOptions{Weighted: true})
		if !ok {
			t.Fatal("expected a card")
		}
		seen[id] = true
	}
	if len(seen) != 2 {
		t.Errorf("degenerate weights should fall back to uniform, saw %v", seen)
	}
}

func TestSelectNextMissingThetaDefaults(t *testing.T) {
	s := NewSelector(rand.NewSource(9))
	// c3 has no theta: it should participate with the default weight
	pool := []string{"c2", "c3"}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, ok := s.SelectNext(pool, testCards(), nil, SelectOptions{Weighted: true})
		if !ok {
			t.Fatal("expected a card")
		}
		seen[id] = true
	}
	if !seen["c3"] {
		t.Error("card without theta should be selectable in weighted mode")
	}
}
