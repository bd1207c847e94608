package models

import "time"

// RelationshipType identifies the kind of relationship a session is built for
type RelationshipType string

const (
	RelationshipFriends            RelationshipType = "friends"
	RelationshipColleagues         RelationshipType = "colleagues"
	RelationshipNewCouples         RelationshipType = "new_couples"
	RelationshipEstablishedCouples RelationshipType = "established_couples"
	RelationshipFamily             RelationshipType = "family"
)

// Valid reports whether the relationship type is one of the known values
func (r RelationshipType) Valid() bool {
	switch r {
	case RelationshipFriends, RelationshipColleagues, RelationshipNewCouples,
		RelationshipEstablishedCouples, RelationshipFamily:
		return true
	}
	return false
}

// SessionStatus represents the lifecycle state of a game session
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// Language is the content language requested for a session
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageVietnamese Language = "vn"
)

// Valid reports whether the language is supported
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageVietnamese
}

// MinLevel and MaxLevel bound the connection level of cards and sessions
const (
	MinLevel = 1
	MaxLevel = 4
)

// Session represents one play-through of the card game. The backend owns the
// canonical record; this is the client-side mirror that the progress tracker
// and state machine operate on.
type Session struct {
	ID               string
	RelationshipType RelationshipType
	SelectedDeckIDs  []string
	Status           SessionStatus
	CurrentLevel     int
	Language         Language

	// AvailableCardPool is computed once when the session starts, from the
	// selected decks and the user's unlock state.
	AvailableCardPool []string

	// DrawnCards holds every card drawn this session, in draw order. A card
	// id appears at most once. CompletedCards and SkippedCards are subsets
	// of DrawnCards.
	DrawnCards     []string
	CompletedCards []string
	SkippedCards   []string

	// ServerCardsRemaining mirrors the cardsRemaining value from the most
	// recent draw response. The server value is authoritative when present;
	// the locally computed pool remainder is the fallback estimate.
	ServerCardsRemaining *int

	StartedAt   time.Time
	EndedAt     *time.Time
	MaxDuration time.Duration

	// Statistics is set once the session completes and never changes after.
	Statistics *SessionStatistics
}

// HasDrawn reports whether cardID has been drawn in this session
func (s *Session) HasDrawn(cardID string) bool {
	return containsID(s.DrawnCards, cardID)
}

// IsResolved reports whether cardID has already been completed or skipped
func (s *Session) IsResolved(cardID string) bool {
	return containsID(s.CompletedCards, cardID) || containsID(s.SkippedCards, cardID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// SessionConfig is the caller-supplied configuration for creating a session
type SessionConfig struct {
	RelationshipType string   `json:"relationshipType" validate:"required,relationship_type"`
	SelectedDeckIDs  []string `json:"selectedDeckIds" validate:"required,min=1,max=5,dive,required"`
	Language         string   `json:"language,omitempty" validate:"omitempty,oneof=en vn"`
	MaxDurationMs    int64    `json:"maxDurationMs,omitempty" validate:"omitempty,min=300000,max=7200000"`
}

// Progress holds derived progress metrics for a session
type Progress struct {
	ProgressPercent float64 `json:"progressPercent"`
	CompletedCount  int     `json:"completedCount"`
	TotalCount      int     `json:"totalCount"`
	RemainingCount  int     `json:"remainingCount"`
}

// LevelDecision is the outcome of a level-progression check
type LevelDecision struct {
	ShouldProgress     bool `json:"shouldProgress"`
	NextLevel          int  `json:"nextLevel"`
	CardsNeededForNext int  `json:"cardsNeededForNext"`
}

// SessionStatistics summarizes a completed session
type SessionStatistics struct {
	DurationMs     int64   `json:"durationMs"`
	CardsDrawn     int     `json:"cardsDrawn"`
	CardsCompleted int     `json:"cardsCompleted"`
	CardsSkipped   int     `json:"cardsSkipped"`
	CompletionRate float64 `json:"completionRate"`
	SkipRate       float64 `json:"skipRate"`
	FinalLevel     int     `json:"finalLevel"`
}
