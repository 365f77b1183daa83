package reservations

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSaveAssignsConfirmation(t *testing.T) {
	store := NewInMemoryStore()
	saved, err := store.Save(context.Background(), Reservation{
		SessionID:       "session-1",
		OriginCity:      "Rome",
		DestinationCity: "Milan",
		DepartureDate:   "2026-10-01",
		Passengers:      2,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(saved.Confirmation) != 8 {
		t.Fatalf("confirmation = %q, want 8 characters", saved.Confirmation)
	}
	if saved.Status != StatusBooked {
		t.Fatalf("status = %q, want %q", saved.Status, StatusBooked)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set")
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	store := NewInMemoryStore()
	saved, err := store.Save(context.Background(), Reservation{SessionID: "session-1"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(context.Background(), " "+strings.ToLower(saved.Confirmation)+" ")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Confirmation != saved.Confirmation {
		t.Fatalf("Get() confirmation = %q, want %q", got.Confirmation, saved.Confirmation)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := NewInMemoryStore()
	if _, err := store.Get(context.Background(), "ZZZZZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	store := NewInMemoryStore()
	saved, err := store.Save(context.Background(), Reservation{SessionID: "session-1"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	saved.Status = StatusCancelled
	updated, err := store.Save(context.Background(), saved)
	if err != nil {
		t.Fatalf("Save() update error = %v", err)
	}
	if updated.Confirmation != saved.Confirmation {
		t.Fatalf("confirmation changed on update: %q vs %q", updated.Confirmation, saved.Confirmation)
	}
	if !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatal("CreatedAt should not change on update")
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("status = %q, want %q", updated.Status, StatusCancelled)
	}
}

func TestBySessionFiltersAndSorts(t *testing.T) {
	store := NewInMemoryStore()
	for _, sid := range []string{"session-1", "session-2", "session-1"} {
		if _, err := store.Save(context.Background(), Reservation{SessionID: sid}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.BySession(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BySession() returned %d items, want 2", len(got))
	}
	for _, r := range got {
		if r.SessionID != "session-1" {
			t.Fatalf("unexpected session id %q", r.SessionID)
		}
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 5; i++ {
		if _, err := store.Save(context.Background(), Reservation{SessionID: "session-1"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	got, err := store.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d items", len(got))
	}
}
