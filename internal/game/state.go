package game

import (
	"time"

	"connectdeck/internal/models"
)

// The session lifecycle is WAITING -> ACTIVE -> COMPLETED, with a reversible
// ACTIVE <-> PAUSED sub-cycle. Sessions created through the service start
// ACTIVE directly; WAITING exists for lobby-style flows where a session is
// created before play begins.

// Start moves a waiting (or freshly created) session to active. The pool
// must be non-empty; an empty pool means every selected deck was locked or
// had no cards.
func Start(s *models.Session) error {
	if s.Status != models.StatusWaiting && s.Status != "" {
		return ErrInvalidTransition
	}
	if len(s.AvailableCardPool) == 0 {
		return ErrNoAvailableCards
	}
	s.Status = models.StatusActive
	return nil
}

// Pause suspends an active session
func Pause(s *models.Session) error {
	if s.Status != models.StatusActive {
		return ErrInvalidTransition
	}
	s.Status = models.StatusPaused
	return nil
}

// Resume reactivates a paused session
func Resume(s *models.Session) error {
	if s.Status != models.StatusPaused {
		return ErrInvalidTransition
	}
	s.Status = models.StatusActive
	return nil
}

// CanDraw checks the draw preconditions: the session is active and the pool
// is not exhausted.
func CanDraw(s *models.Session) error {
	if s.Status != models.StatusActive {
		return ErrSessionNotActive
	}
	if NewProgressTracker(s).CardsRemaining() <= 0 {
		return ErrPoolExhausted
	}
	return nil
}

// CanResolve checks that completing or skipping a card is legal right now
func CanResolve(s *models.Session) error {
	if s.Status != models.StatusActive {
		return ErrSessionNotActive
	}
	return nil
}

// End completes the session and computes its final statistics. Ending an
// already-completed session is a no-op that returns the stored statistics,
// so duplicate UI dispatches are harmless. After End the session is
// read-only: draws and resolutions fail with ErrSessionNotActive.
func End(s *models.Session, now time.Time) (models.SessionStatistics, error) {
	if s.Status == models.StatusCompleted {
		if s.Statistics != nil {
			return *s.Statistics, nil
		}
		return models.SessionStatistics{}, nil
	}

	s.Status = models.StatusCompleted
	endedAt := now
	s.EndedAt = &endedAt

	drawn := len(s.DrawnCards)
	stats := models.SessionStatistics{
		DurationMs:     now.Sub(s.StartedAt).Milliseconds(),
		CardsDrawn:     drawn,
		CardsCompleted: len(s.CompletedCards),
		CardsSkipped:   len(s.SkippedCards),
		FinalLevel:     s.CurrentLevel,
	}
	if drawn > 0 {
		stats.CompletionRate = roundTo2(float64(stats.CardsCompleted) / float64(drawn) * 100)
		stats.SkipRate = roundTo2(float64(stats.CardsSkipped) / float64(drawn) * 100)
	}

	s.Statistics = &stats
	return stats, nil
}
