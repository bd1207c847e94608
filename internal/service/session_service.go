package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"connectdeck/internal/client"
	"connectdeck/internal/game"
	"connectdeck/internal/models"
	"connectdeck/internal/validation"
)

// ErrSessionNotFound indicates the session id is not known locally, on the
// backend, or in the offline cache
var ErrSessionNotFound = errors.New("session not found")

// Outcome says how a drawn card was resolved
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeSkip     Outcome = "skip"
)

// SnapshotStore persists session snapshots for offline recovery
type SnapshotStore interface {
	Save(session *models.Session) error
	Get(sessionID string) (*models.Session, error)
}

// sessionEntry holds one live session plus the card metadata its selector
// and content resolution need
type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
	cards   map[string]models.Card
}

// SessionService orchestrates the session lifecycle: deck assembly, card
// selection, backend synchronization, and progress tracking. The per-session
// lock serializes draws and resolutions, so a slow backend call for one
// session never blocks another.
type SessionService struct {
	api           RemoteAPI
	decks         *DeckService
	selector      *game.Selector
	snapshots     SnapshotStore
	cardsPerLevel int
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionService creates a new session service. snapshots may be nil when
// the offline cache is disabled.
func NewSessionService(api RemoteAPI, decks *DeckService, selector *game.Selector, snapshots SnapshotStore, cardsPerLevel int) *SessionService {
	if cardsPerLevel <= 0 {
		cardsPerLevel = game.DefaultCardsPerLevel
	}
	return &SessionService{
		api:           api,
		decks:         decks,
		selector:      selector,
		snapshots:     snapshots,
		cardsPerLevel: cardsPerLevel,
		now:           time.Now,
		sessions:      make(map[string]*sessionEntry),
	}
}

// CreateSession validates the config, resolves the card pool from the
// selected decks, registers the session with the backend, and activates it
func (s *SessionService) CreateSession(ctx context.Context, cfg models.SessionConfig) (*models.Session, error) {
	if err := validation.ValidateSessionConfig(cfg); err != nil {
		return nil, err
	}

	decksByID, cardsByID, err := s.decks.AssembleDecks(ctx, cfg.SelectedDeckIDs)
	if err != nil {
		return nil, err
	}

	pool := game.ResolvePool(cfg.SelectedDeckIDs, decksByID)
	if len(pool) == 0 {
		return nil, game.ErrNoAvailableCards
	}

	snapshot, err := s.api.CreateSession(ctx, client.CreateSessionRequest{
		RelationshipType: cfg.RelationshipType,
		SelectedDeckIDs:  cfg.SelectedDeckIDs,
		Language:         cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// The backend id is canonical; fall back to a local id when the backend
	// omits one (older API versions)
	sessionID := snapshot.ID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	session := &models.Session{
		ID:                sessionID,
		RelationshipType:  models.RelationshipType(cfg.RelationshipType),
		SelectedDeckIDs:   cfg.SelectedDeckIDs,
		Status:            models.StatusWaiting,
		CurrentLevel:      models.MinLevel,
		Language:          models.Language(cfg.Language),
		AvailableCardPool: pool,
		StartedAt:         s.now(),
		MaxDuration:       time.Duration(cfg.MaxDurationMs) * time.Millisecond,
	}
	if snapshot.CurrentLevel >= models.MinLevel {
		session.CurrentLevel = snapshot.CurrentLevel
	}

	if err := game.Start(session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{session: session, cards: cardsByID}
	s.mu.Unlock()

	s.saveSnapshot(session)
	return session, nil
}

// DrawOutcome is the result of one draw: the card plus the progress and
// session language the API layer renders it with
type DrawOutcome struct {
	Card     models.Card
	Progress models.Progress
	Language models.Language
}

// DrawNext draws the session's next card. The selector picks a candidate
// locally and the backend draw is asked to confirm; when the backend answers,
// its card and cardsRemaining are authoritative. When the backend is
// unreachable the locally selected card stands, so play continues offline.
func (s *SessionService) DrawNext(ctx context.Context, sessionID string) (*DrawOutcome, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	if err := game.CanDraw(session); err != nil {
		return nil, err
	}

	localID, ok := s.selector.SelectNext(session.AvailableCardPool, entry.cards, session.DrawnCards, game.SelectOptions{
		Weighted:       true,
		PreferredLevel: session.CurrentLevel,
	})
	if !ok {
		return nil, game.ErrPoolExhausted
	}

	tracker := game.NewProgressTracker(session)

	var card models.Card
	result, err := s.api.DrawCard(ctx, sessionID)
	switch {
	case err == nil:
		card = result.Card
		if recordErr := tracker.RecordDraw(card.ID); recordErr != nil {
			return nil, recordErr
		}
		session.ServerCardsRemaining = result.CardsRemaining
		if result.CurrentLevel > session.CurrentLevel {
			session.CurrentLevel = result.CurrentLevel
		}
	case isTransient(err):
		// Offline draw: use the local pick and switch to local estimates
		log.Printf("draw for session %s falling back to local selection: %v", sessionID, err)
		localCard, known := entry.cards[localID]
		if !known {
			localCard = models.Card{ID: localID}
		}
		card = localCard
		if recordErr := tracker.RecordDraw(card.ID); recordErr != nil {
			return nil, recordErr
		}
		session.ServerCardsRemaining = nil
	default:
		return nil, err
	}

	s.saveSnapshot(session)
	return &DrawOutcome{
		Card:     card,
		Progress: tracker.ComputeProgress(),
		Language: session.Language,
	}, nil
}

// ResolveCard completes or skips a drawn card, syncs the backend, and applies
// level progression. Backend outages do not lose the resolution; it is applied
// locally and reconciled from the server snapshot later.
func (s *SessionService) ResolveCard(ctx context.Context, sessionID, cardID string, outcome Outcome) (models.Progress, models.LevelDecision, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return models.Progress{}, models.LevelDecision{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	if err := game.CanResolve(session); err != nil {
		return models.Progress{}, models.LevelDecision{}, err
	}

	tracker := game.NewProgressTracker(session)
	switch outcome {
	case OutcomeComplete:
		err = tracker.RecordComplete(cardID)
	case OutcomeSkip:
		err = tracker.RecordSkip(cardID)
	default:
		err = fmt.Errorf("unknown outcome %q", outcome)
	}
	if err != nil {
		return models.Progress{}, models.LevelDecision{}, err
	}

	var result *client.ResolveResult
	var apiErr error
	if outcome == OutcomeComplete {
		result, apiErr = s.api.CompleteCard(ctx, sessionID, cardID)
	} else {
		result, apiErr = s.api.SkipCard(ctx, sessionID, cardID)
	}
	if apiErr != nil {
		if !isTransient(apiErr) {
			// The backend rejected the resolution outright; undo the local
			// record so state stays consistent
			s.unrecord(session, cardID, outcome)
			return models.Progress{}, models.LevelDecision{}, apiErr
		}
		log.Printf("resolve %s for session %s not confirmed by backend: %v", outcome, sessionID, apiErr)
	}
	if result != nil && result.CardsRemaining != nil {
		session.ServerCardsRemaining = result.CardsRemaining
	}

	decision := tracker.CheckLevelProgression(s.cardsPerLevel)
	if decision.ShouldProgress {
		session.CurrentLevel = decision.NextLevel
	}
	if result != nil && result.CurrentLevel > session.CurrentLevel {
		session.CurrentLevel = result.CurrentLevel
	}

	s.saveSnapshot(session)
	return tracker.ComputeProgress(), decision, nil
}

// PauseSession suspends an active session
func (s *SessionService) PauseSession(ctx context.Context, sessionID string) error {
	entry, err := s.entry(sessionID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := game.Pause(entry.session); err != nil {
		return err
	}
	s.saveSnapshot(entry.session)
	return nil
}

// ResumeSession reactivates a paused session
func (s *SessionService) ResumeSession(ctx context.Context, sessionID string) error {
	entry, err := s.entry(sessionID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := game.Resume(entry.session); err != nil {
		return err
	}
	s.saveSnapshot(entry.session)
	return nil
}

// EndSession completes the session and returns its final statistics. Ending
// an already-completed session returns the stored statistics unchanged.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) (models.SessionStatistics, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return models.SessionStatistics{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	alreadyCompleted := session.Status == models.StatusCompleted

	stats, err := game.End(session, s.now())
	if err != nil {
		return models.SessionStatistics{}, err
	}

	if !alreadyCompleted {
		if _, apiErr := s.api.EndSession(ctx, sessionID); apiErr != nil {
			// Local statistics stand; the backend recomputes its own on the
			// next sync
			log.Printf("end session %s not confirmed by backend: %v", sessionID, apiErr)
		}
		s.saveSnapshot(session)
	}
	return stats, nil
}

// GetSession returns the session and its current progress. Lookup order is
// live memory, then the backend, then the offline snapshot cache.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, models.Progress, error) {
	if entry, err := s.entry(sessionID); err == nil {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		return entry.session, game.NewProgressTracker(entry.session).ComputeProgress(), nil
	}

	snapshot, err := s.api.GetSession(ctx, sessionID)
	if err == nil {
		session := sessionFromSnapshot(snapshot)
		return session, game.NewProgressTracker(session).ComputeProgress(), nil
	}

	var clientErr *client.ClientError
	if errors.As(err, &clientErr) && clientErr.Status == 404 {
		return nil, models.Progress{}, ErrSessionNotFound
	}

	if isTransient(err) && s.snapshots != nil {
		cached, cacheErr := s.snapshots.Get(sessionID)
		if cacheErr == nil {
			log.Printf("serving session %s from offline cache: %v", sessionID, err)
			return cached, game.NewProgressTracker(cached).ComputeProgress(), nil
		}
	}
	return nil, models.Progress{}, err
}

func (s *SessionService) entry(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func (s *SessionService) saveSnapshot(session *models.Session) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(session); err != nil {
		log.Printf("failed to cache session %s: %v", session.ID, err)
	}
}

// unrecord removes the last resolution of cardID after a backend rejection
func (s *SessionService) unrecord(session *models.Session, cardID string, outcome Outcome) {
	if outcome == OutcomeComplete {
		session.CompletedCards = removeLast(session.CompletedCards, cardID)
	} else {
		session.SkippedCards = removeLast(session.SkippedCards, cardID)
	}
}

func removeLast(ids []string, id string) []string {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// sessionFromSnapshot rebuilds a read-only session view from the backend
// snapshot. The card pool is unknown here, so progress relies on the server's
// cardsRemaining.
func sessionFromSnapshot(snapshot *client.SessionSnapshot) *models.Session {
	session := &models.Session{
		ID:                   snapshot.ID,
		RelationshipType:     models.RelationshipType(snapshot.RelationshipType),
		Status:               models.SessionStatus(snapshot.Status),
		CurrentLevel:         snapshot.CurrentLevel,
		Language:             models.Language(snapshot.Language),
		DrawnCards:           snapshot.DrawnCards,
		CompletedCards:       snapshot.CompletedCards,
		SkippedCards:         snapshot.SkippedCards,
		ServerCardsRemaining: snapshot.CardsRemaining,
		Statistics:           snapshot.Statistics,
	}
	return session
}

// isTransient reports whether the backend error is an availability problem
// rather than a rejection of the request itself
func isTransient(err error) bool {
	var netErr *client.NetworkError
	var srvErr *client.ServerError
	var openErr *client.CircuitOpenError
	var rateErr *client.RateLimitedError
	return errors.As(err, &netErr) || errors.As(err, &srvErr) ||
		errors.As(err, &openErr) || errors.As(err, &rateErr)
}
