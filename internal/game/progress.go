package game

import (
	"math"

	"connectdeck/internal/models"
)

// DefaultCardsPerLevel is how many completed cards advance the session one
// connection level
const DefaultCardsPerLevel = 5

// ProgressTracker owns the client-side draw/complete/skip bookkeeping for a
// single session. Callers serialize access; one draw or resolve is in flight
// at a time, which the UI enforces with disabled-while-loading controls.
type ProgressTracker struct {
	session *models.Session
}

// NewProgressTracker wraps a session for progress bookkeeping
func NewProgressTracker(session *models.Session) *ProgressTracker {
	return &ProgressTracker{session: session}
}

// RecordDraw appends cardID to the drawn sequence. A card can be drawn at
// most once per session.
func (t *ProgressTracker) RecordDraw(cardID string) error {
	if t.session.HasDrawn(cardID) {
		return ErrDuplicateDraw
	}
	t.session.DrawnCards = append(t.session.DrawnCards, cardID)
	return nil
}

// RecordComplete marks a drawn, unresolved card as completed
func (t *ProgressTracker) RecordComplete(cardID string) error {
	if err := t.checkResolvable(cardID); err != nil {
		return err
	}
	t.session.CompletedCards = append(t.session.CompletedCards, cardID)
	return nil
}

// RecordSkip marks a drawn, unresolved card as skipped
func (t *ProgressTracker) RecordSkip(cardID string) error {
	if err := t.checkResolvable(cardID); err != nil {
		return err
	}
	t.session.SkippedCards = append(t.session.SkippedCards, cardID)
	return nil
}

func (t *ProgressTracker) checkResolvable(cardID string) error {
	if !t.session.HasDrawn(cardID) {
		return ErrNotDrawn
	}
	if t.session.IsResolved(cardID) {
		return ErrAlreadyResolved
	}
	return nil
}

// CardsRemaining returns how many undrawn cards the session still has. The
// server-reported remainder from the last draw wins over the local estimate
// because the server may filter the pool further than the client can see.
func (t *ProgressTracker) CardsRemaining() int {
	if t.session.ServerCardsRemaining != nil {
		return *t.session.ServerCardsRemaining
	}
	remaining := len(t.session.AvailableCardPool) - len(t.session.DrawnCards)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ComputeProgress derives progress metrics from the current counters. It is a
// pure read and safe to call at any point, including after completion.
func (t *ProgressTracker) ComputeProgress() models.Progress {
	drawn := len(t.session.DrawnCards)
	remaining := t.CardsRemaining()
	total := drawn + remaining

	percent := 0.0
	if total > 0 {
		percent = roundTo2(float64(drawn) / float64(total) * 100)
	}

	return models.Progress{
		ProgressPercent: percent,
		CompletedCount:  len(t.session.CompletedCards),
		TotalCount:      total,
		RemainingCount:  remaining,
	}
}

// CheckLevelProgression decides whether the session should advance to the
// next connection level. Levels never decrease and cap at MaxLevel no matter
// how many cards are completed.
func (t *ProgressTracker) CheckLevelProgression(cardsPerLevel int) models.LevelDecision {
	if cardsPerLevel <= 0 {
		cardsPerLevel = DefaultCardsPerLevel
	}

	completed := len(t.session.CompletedCards)
	targetLevel := completed/cardsPerLevel + 1
	if targetLevel > models.MaxLevel {
		targetLevel = models.MaxLevel
	}

	nextLevel := t.session.CurrentLevel
	shouldProgress := targetLevel > t.session.CurrentLevel
	if shouldProgress {
		nextLevel = targetLevel
	}

	return models.LevelDecision{
		ShouldProgress:     shouldProgress,
		NextLevel:          nextLevel,
		CardsNeededForNext: cardsPerLevel - completed%cardsPerLevel,
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
