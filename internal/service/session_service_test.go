package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"connectdeck/internal/client"
	"connectdeck/internal/game"
	"connectdeck/internal/models"
)

// fakeAPI is a scriptable in-memory backend
type fakeAPI struct {
	decks     []models.Deck
	deckCards map[string][]models.Card

	drawQueue []models.Card
	drawErr   error

	resolveErr error
	endErr     error

	getSnapshot *client.SessionSnapshot
	getErr      error

	drawCalls    int
	resolveCalls int
	endCalls     int
}

func (f *fakeAPI) CreateSession(ctx context.Context, req client.CreateSessionRequest) (*client.SessionSnapshot, error) {
	return &client.SessionSnapshot{
		ID:               "srv-session-1",
		RelationshipType: req.RelationshipType,
		Status:           "active",
		CurrentLevel:     1,
		Language:         req.Language,
	}, nil
}

func (f *fakeAPI) GetSession(ctx context.Context, sessionID string) (*client.SessionSnapshot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getSnapshot != nil {
		return f.getSnapshot, nil
	}
	return nil, &client.ClientError{Status: 404, Message: "session not found"}
}

func (f *fakeAPI) DrawCard(ctx context.Context, sessionID string) (*client.DrawResult, error) {
	f.drawCalls++
	if f.drawErr != nil {
		return nil, f.drawErr
	}
	if len(f.drawQueue) == 0 {
		return nil, &client.ClientError{Status: 409, Message: "no cards remaining"}
	}
	card := f.drawQueue[0]
	f.drawQueue = f.drawQueue[1:]
	remaining := len(f.drawQueue)
	return &client.DrawResult{Card: card, CurrentLevel: 1, CardsRemaining: &remaining}, nil
}

func (f *fakeAPI) CompleteCard(ctx context.Context, sessionID, cardID string) (*client.ResolveResult, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &client.ResolveResult{}, nil
}

func (f *fakeAPI) SkipCard(ctx context.Context, sessionID, cardID string) (*client.ResolveResult, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &client.ResolveResult{}, nil
}

func (f *fakeAPI) EndSession(ctx context.Context, sessionID string) (*models.SessionStatistics, error) {
	f.endCalls++
	if f.endErr != nil {
		return nil, f.endErr
	}
	return &models.SessionStatistics{}, nil
}

func (f *fakeAPI) ListDecks(ctx context.Context, relationshipType, tier string) ([]models.Deck, error) {
	return f.decks, nil
}

func (f *fakeAPI) GetDeckCards(ctx context.Context, deckID string) ([]models.Card, error) {
	return f.deckCards[deckID], nil
}

// fakeSnapshotStore records saves and serves one canned session
type fakeSnapshotStore struct {
	saved  map[string]models.Session
	cached *models.Session
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{saved: make(map[string]models.Session)}
}

func (f *fakeSnapshotStore) Save(session *models.Session) error {
	f.saved[session.ID] = *session
	return nil
}

func (f *fakeSnapshotStore) Get(sessionID string) (*models.Session, error) {
	if f.cached != nil && f.cached.ID == sessionID {
		return f.cached, nil
	}
	return nil, errors.New("snapshot not found")
}

func testCards(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{
			ID:              string(rune('a' + i)),
			ConnectionLevel: 1,
			Type:            models.CardTypeQuestion,
			Content:         models.PlainContent("prompt"),
		}
	}
	return cards
}

func newTestService(api *fakeAPI, store SnapshotStore) *SessionService {
	return NewSessionService(api, NewDeckService(api), game.NewSelector(rand.NewSource(1)), store, 5)
}

func newTestAPI(cards []models.Card) *fakeAPI {
	return &fakeAPI{
		decks: []models.Deck{
			{ID: "d1", Name: "Icebreakers", RelationshipType: models.RelationshipFriends, Tier: models.TierFree},
		},
		deckCards: map[string][]models.Card{"d1": cards},
		drawQueue: cards,
	}
}

func validSessionConfig() models.SessionConfig {
	return models.SessionConfig{
		RelationshipType: "friends",
		SelectedDeckIDs:  []string{"d1"},
		Language:         "en",
	}
}

func TestCreateSessionActivates(t *testing.T) {
	api := newTestAPI(testCards(5))
	svc := newTestService(api, newFakeSnapshotStore())

	session, err := svc.CreateSession(context.Background(), validSessionConfig())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID != "srv-session-1" {
		t.Errorf("session ID = %q, want backend id", session.ID)
	}
	if session.Status != models.StatusActive {
		t.Errorf("status = %q, want active", session.Status)
	}
	if session.CurrentLevel != 1 {
		t.Errorf("level = %d, want 1", session.CurrentLevel)
	}
	if len(session.AvailableCardPool) != 5 {
		t.Errorf("pool size = %d, want 5", len(session.AvailableCardPool))
	}
}

func TestCreateSessionRejectsInvalidConfig(t *testing.T) {
	svc := newTestService(newTestAPI(testCards(1)), nil)

	_, err := svc.CreateSession(context.Background(), models.SessionConfig{
		RelationshipType: "enemies",
		SelectedDeckIDs:  []string{"d1"},
	})
	if err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestCreateSessionEmptyPool(t *testing.T) {
	api := newTestAPI(nil)
	api.decks[0].Tier = models.TierPremium // locked, no cards reachable
	svc := newTestService(api, nil)

	_, err := svc.CreateSession(context.Background(), validSessionConfig())
	if !errors.Is(err, game.ErrNoAvailableCards) {
		t.Fatalf("error = %v, want ErrNoAvailableCards", err)
	}
}

// A five-card session played to the end: draw and complete every card, watch
// the level advance at the fifth completion, end with 100% progress, and
// verify ending twice returns identical statistics.
func TestFullSessionPlaythrough(t *testing.T) {
	api := newTestAPI(testCards(5))
	store := newFakeSnapshotStore()
	svc := newTestService(api, store)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, validSessionConfig())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	var lastDecision models.LevelDecision
	var lastProgress models.Progress
	for i := 0; i < 5; i++ {
		draw, err := svc.DrawNext(ctx, session.ID)
		if err != nil {
			t.Fatalf("DrawNext() #%d error = %v", i+1, err)
		}
		if want := 5 - (i + 1); draw.Progress.RemainingCount != want {
			t.Errorf("draw #%d remaining = %d, want %d", i+1, draw.Progress.RemainingCount, want)
		}

		lastProgress, lastDecision, err = svc.ResolveCard(ctx, session.ID, draw.Card.ID, OutcomeComplete)
		if err != nil {
			t.Fatalf("ResolveCard() #%d error = %v", i+1, err)
		}
	}

	if !lastDecision.ShouldProgress || lastDecision.NextLevel != 2 {
		t.Errorf("final decision = %+v, want progression to level 2", lastDecision)
	}
	if session.CurrentLevel != 2 {
		t.Errorf("session level = %d, want 2", session.CurrentLevel)
	}
	if lastProgress.ProgressPercent != 100 {
		t.Errorf("progress = %v%%, want 100", lastProgress.ProgressPercent)
	}
	if lastProgress.CompletedCount != 5 {
		t.Errorf("completed = %d, want 5", lastProgress.CompletedCount)
	}

	stats, err := svc.EndSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if stats.CardsDrawn != 5 || stats.CardsCompleted != 5 || stats.CompletionRate != 100 {
		t.Errorf("stats = %+v, want 5 drawn, 5 completed, 100%% completion", stats)
	}
	if stats.FinalLevel != 2 {
		t.Errorf("final level = %d, want 2", stats.FinalLevel)
	}

	again, err := svc.EndSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("second EndSession() error = %v", err)
	}
	if again != stats {
		t.Errorf("second end = %+v, want identical %+v", again, stats)
	}
	if api.endCalls != 1 {
		t.Errorf("backend end calls = %d, want 1", api.endCalls)
	}
}

func TestDrawFallsBackToLocalSelection(t *testing.T) {
	api := newTestAPI(testCards(3))
	svc := newTestService(api, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, validSessionConfig())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	api.drawErr = &client.NetworkError{Err: errors.New("connection refused")}

	draw, err := svc.DrawNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("DrawNext() error = %v", err)
	}
	if draw.Card.ID == "" {
		t.Fatal("expected a locally selected card")
	}
	if !session.HasDrawn(draw.Card.ID) {
		t.Error("local draw was not recorded")
	}
	if session.ServerCardsRemaining != nil {
		t.Error("server remainder should be cleared on offline draw")
	}
	if draw.Progress.RemainingCount != 2 {
		t.Errorf("remaining = %d, want local estimate 2", draw.Progress.RemainingCount)
	}
	if draw.Language != models.LanguageEnglish {
		t.Errorf("draw language = %q, want session language en", draw.Language)
	}
}

func TestDrawRequiresActiveSession(t *testing.T) {
	api := newTestAPI(testCards(2))
	svc := newTestService(api, nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, validSessionConfig())
	if err := svc.PauseSession(ctx, session.ID); err != nil {
		t.Fatalf("PauseSession() error = %v", err)
	}

	if _, err := svc.DrawNext(ctx, session.ID); !errors.Is(err, game.ErrSessionNotActive) {
		t.Errorf("draw on paused session = %v, want ErrSessionNotActive", err)
	}

	if err := svc.ResumeSession(ctx, session.ID); err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	if _, err := svc.DrawNext(ctx, session.ID); err != nil {
		t.Errorf("draw after resume error = %v", err)
	}
}

func TestResolveRollsBackOnBackendRejection(t *testing.T) {
	api := newTestAPI(testCards(2))
	svc := newTestService(api, nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, validSessionConfig())
	draw, err := svc.DrawNext(ctx, session.ID)
	if err != nil {
		t.Fatalf("DrawNext() error = %v", err)
	}
	cardID := draw.Card.ID

	api.resolveErr = &client.ClientError{Status: 409, Message: "card already resolved"}
	if _, _, err := svc.ResolveCard(ctx, session.ID, cardID, OutcomeComplete); err == nil {
		t.Fatal("expected backend rejection to surface")
	}
	if session.IsResolved(cardID) {
		t.Error("rejected resolution should not stick locally")
	}

	// A transient outage keeps the local resolution
	api.resolveErr = &client.NetworkError{Err: errors.New("timeout")}
	if _, _, err := svc.ResolveCard(ctx, session.ID, cardID, OutcomeSkip); err != nil {
		t.Fatalf("offline resolve error = %v", err)
	}
	if !session.IsResolved(cardID) {
		t.Error("offline resolution should stick locally")
	}
}

func TestResolveUnknownCard(t *testing.T) {
	api := newTestAPI(testCards(2))
	svc := newTestService(api, nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, validSessionConfig())
	if _, _, err := svc.ResolveCard(ctx, session.ID, "never-drawn", OutcomeComplete); !errors.Is(err, game.ErrNotDrawn) {
		t.Errorf("error = %v, want ErrNotDrawn", err)
	}
}

func TestGetSessionFallsBackToCache(t *testing.T) {
	store := newFakeSnapshotStore()
	store.cached = &models.Session{
		ID:             "cached-1",
		Status:         models.StatusActive,
		CurrentLevel:   2,
		DrawnCards:     []string{"a", "b"},
		CompletedCards: []string{"a"},
	}

	api := newTestAPI(nil)
	api.getErr = &client.NetworkError{Err: errors.New("no route to host")}
	svc := newTestService(api, store)

	session, progress, err := svc.GetSession(context.Background(), "cached-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.CurrentLevel != 2 {
		t.Errorf("level = %d, want cached 2", session.CurrentLevel)
	}
	if progress.CompletedCount != 1 {
		t.Errorf("completed = %d, want 1", progress.CompletedCount)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc := newTestService(newTestAPI(nil), nil)

	_, _, err := svc.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}
