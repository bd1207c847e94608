package game

import (
	"errors"
	"fmt"
	"testing"

	"connectdeck/internal/models"
)

func activeSession(poolSize int) *models.Session {
	pool := make([]string, poolSize)
	for i := range pool {
		pool[i] = fmt.Sprintf("c%d", i+1)
	}
	return &models.Session{
		ID:                "s1",
		Status:            models.StatusActive,
		CurrentLevel:      1,
		AvailableCardPool: pool,
	}
}

func TestRecordDrawRejectsDuplicates(t *testing.T) {
	tracker := NewProgressTracker(activeSession(3))

	if err := tracker.RecordDraw("c1"); err != nil {
		t.Fatalf("first draw: %v", err)
	}
	if err := tracker.RecordDraw("c1"); !errors.Is(err, ErrDuplicateDraw) {
		t.Errorf("second draw of c1 = %v, want ErrDuplicateDraw", err)
	}
}

func TestRecordResolvePreconditions(t *testing.T) {
	tracker := NewProgressTracker(activeSession(3))

	if err := tracker.RecordComplete("c1"); !errors.Is(err, ErrNotDrawn) {
		t.Errorf("complete before draw = %v, want ErrNotDrawn", err)
	}
	if err := tracker.RecordSkip("c1"); !errors.Is(err, ErrNotDrawn) {
		t.Errorf("skip before draw = %v, want ErrNotDrawn", err)
	}

	if err := tracker.RecordDraw("c1"); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := tracker.RecordComplete("c1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := tracker.RecordComplete("c1"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("double complete = %v, want ErrAlreadyResolved", err)
	}
	if err := tracker.RecordSkip("c1"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("skip after complete = %v, want ErrAlreadyResolved", err)
	}
}

func TestComputeProgress(t *testing.T) {
	tracker := NewProgressTracker(activeSession(3))

	p := tracker.ComputeProgress()
	if p.ProgressPercent != 0 || p.TotalCount != 3 || p.RemainingCount != 3 {
		t.Errorf("initial progress = %+v", p)
	}

	tracker.RecordDraw("c1")
	tracker.RecordComplete("c1")
	p = tracker.ComputeProgress()
	if p.ProgressPercent != 33.33 {
		t.Errorf("ProgressPercent = %v, want 33.33", p.ProgressPercent)
	}
	if p.CompletedCount != 1 || p.RemainingCount != 2 {
		t.Errorf("progress after one card = %+v", p)
	}
}

func TestComputeProgressEmptyPool(t *testing.T) {
	tracker := NewProgressTracker(activeSession(0))
	p := tracker.ComputeProgress()
	if p.ProgressPercent != 0 || p.TotalCount != 0 {
		t.Errorf("empty pool progress = %+v, want zeros", p)
	}
}

func TestComputeProgressMonotone(t *testing.T) {
	tracker := NewProgressTracker(activeSession(10))

	lastCompleted := 0
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("c%d", i)
		if err := tracker.RecordDraw(id); err != nil {
			t.Fatalf("draw %s: %v", id, err)
		}
		if i%2 == 0 {
			tracker.RecordComplete(id)
		}

		p := tracker.ComputeProgress()
		if p.CompletedCount < lastCompleted {
			t.Fatalf("completed count decreased: %d -> %d", lastCompleted, p.CompletedCount)
		}
		if p.CompletedCount > i {
			t.Fatalf("completed count %d exceeds drawn count %d", p.CompletedCount, i)
		}
		lastCompleted = p.CompletedCount
	}
}

func TestServerCardsRemainingWins(t *testing.T) {
	s := activeSession(10)
	tracker := NewProgressTracker(s)
	tracker.RecordDraw("c1")

	// Local estimate: 9 remaining
	if got := tracker.CardsRemaining(); got != 9 {
		t.Fatalf("local remaining = %d, want 9", got)
	}

	// The server filtered the pool further than the client can see
	serverRemaining := 4
	s.ServerCardsRemaining = &serverRemaining
	if got := tracker.CardsRemaining(); got != 4 {
		t.Errorf("server-reported remaining = %d, want 4", got)
	}
	p := tracker.ComputeProgress()
	if p.TotalCount != 5 || p.ProgressPercent != 20 {
		t.Errorf("progress with server remaining = %+v", p)
	}
}

func TestCheckLevelProgression(t *testing.T) {
	tests := []struct {
		name         string
		completed    int
		currentLevel int
		want         models.LevelDecision
	}{
		{
			name:         "not enough completions",
			completed:    4,
			currentLevel: 1,
			want:         models.LevelDecision{ShouldProgress: false, NextLevel: 1, CardsNeededForNext: 1},
		},
		{
			name:         "threshold reached",
			completed:    5,
			currentLevel: 1,
			want:         models.LevelDecision{ShouldProgress: true, NextLevel: 2, CardsNeededForNext: 5},
		},
		{
			name:         "level never decreases",
			completed:    5,
			currentLevel: 3,
			want:         models.LevelDecision{ShouldProgress: false, NextLevel: 3, CardsNeededForNext: 5},
		},
		{
			name:         "capped at level 4",
			completed:    100,
			currentLevel: 4,
			want:         models.LevelDecision{ShouldProgress: false, NextLevel: 4, CardsNeededForNext: 5},
		},
		{
			name:         "jump straight to cap",
			completed:    40,
			currentLevel: 1,
			want:         models.LevelDecision{ShouldProgress: true, NextLevel: 4, CardsNeededForNext: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := activeSession(200)
			s.CurrentLevel = tt.currentLevel
			for i := 0; i < tt.completed; i++ {
				id := fmt.Sprintf("c%d", i+1)
				s.DrawnCards = append(s.DrawnCards, id)
				s.CompletedCards = append(s.CompletedCards, id)
			}

			got := NewProgressTracker(s).CheckLevelProgression(5)
			if got != tt.want {
				t.Errorf("CheckLevelProgression(5) = %+v, want %+v", got, tt.want)
			}
			if got.NextLevel > models.MaxLevel {
				t.Errorf("NextLevel %d exceeds cap", got.NextLevel)
			}
		})
	}
}
