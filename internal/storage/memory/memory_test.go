package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rtzll/tutorly/internal"
	memstore "github.com/rtzll/tutorly/internal/storage/memory"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()

	created, err := repo.Save(ctx, internal.User{Username: "Ann", TokenHash: "hash"})
	if err != nil {
		t.Fatalf("save user failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected ID and created_at to be set")
	}

	byName, err := repo.FindByUsername(ctx, "ann")
	if err != nil || byName.ID != created.ID {
		t.Fatalf("expected case-insensitive username lookup, got %v", err)
	}
	if _, err := repo.FindByTokenHash(ctx, ""); !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("empty token hash must not match")
	}

	created.TokenHash = "rotated"
	created.CreatedAt = time.Time{}
	updated, err := repo.Save(ctx, created)
	if err != nil {
		t.Fatalf("update user failed: %v", err)
	}
	if updated.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be preserved")
	}
	if _, err := repo.FindByTokenHash(ctx, "hash"); !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("expected old token hash to stop matching")
	}
}

func TestTranscriptRepository(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewTranscriptRepository()

	saved, err := repo.Save(ctx, internal.Transcript{
		UserID:      "u1",
		Fingerprint: "fp",
		Phrases:     []internal.Phrase{{Display: "hello"}},
	})
	if err != nil {
		t.Fatalf("save transcript failed: %v", err)
	}

	found, err := repo.FindByFingerprint(ctx, "u1", "fp")
	if err != nil || found.ID != saved.ID {
		t.Fatalf("expected fingerprint lookup to find transcript, got %v", err)
	}
	if _, err := repo.FindByFingerprint(ctx, "u2", "fp"); !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("fingerprints must be scoped per user")
	}

	found.Phrases[0].Display = "mutated"
	again, _ := repo.FindByID(ctx, saved.ID)
	if again.Phrases[0].Display != "hello" {
		t.Fatalf("stored phrases must not be shared with callers")
	}

	if err := repo.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(ctx, saved.ID); !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTutorialRepository(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewTutorialRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := repo.Save(ctx, internal.Tutorial{
		UserID:       "u1",
		TranscriptID: "t1",
		Title:        "first",
		Steps:        []internal.Step{{Index: 1, Text: "a", VideoClip: &internal.VideoClip{Start: 0, End: 1}}},
		CreatedAt:    base,
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := repo.Save(ctx, internal.Tutorial{UserID: "u1", TranscriptID: "t2", Title: "second", CreatedAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	first.Steps[0].VideoClip.FileURL = "/mutated"
	stored, _ := repo.FindByID(ctx, first.ID)
	if stored.Steps[0].VideoClip.FileURL != "" {
		t.Fatalf("clip pointers must not be shared with callers")
	}

	byUser, _ := repo.ListByUser(ctx, "u1")
	if len(byUser) != 2 || byUser[0].Title != "first" {
		t.Fatalf("expected both tutorials in creation order, got %d", len(byUser))
	}
	byTranscript, _ := repo.ListByTranscript(ctx, "t1")
	if len(byTranscript) != 1 || byTranscript[0].ID != first.ID {
		t.Fatalf("expected one tutorial for transcript t1")
	}

	if err := repo.Delete(ctx, "missing"); !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
