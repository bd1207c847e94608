package game

import "errors"

var (
	// ErrDuplicateDraw means a card was drawn twice in the same session
	ErrDuplicateDraw = errors.New("card already drawn in this session")

	// ErrNotDrawn means a card was resolved without having been drawn
	ErrNotDrawn = errors.New("card has not been drawn")

	// ErrAlreadyResolved means a card was completed or skipped twice
	ErrAlreadyResolved = errors.New("card already completed or skipped")

	// ErrSessionNotActive means the operation requires an active session
	ErrSessionNotActive = errors.New("session is not active")

	// ErrPoolExhausted means every card in the pool has been drawn
	ErrPoolExhausted = errors.New("card pool exhausted")

	// ErrNoAvailableCards means the selected decks yielded no drawable
	// cards (all locked or empty). This is a user-actionable condition,
	// not a bug: the player should unlock or choose different decks.
	ErrNoAvailableCards = errors.New("no available cards in selected decks")

	// ErrInvalidTransition means the requested status change is not legal
	ErrInvalidTransition = errors.New("invalid session status transition")
)
