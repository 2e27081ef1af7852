//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rtzll/tutorly/internal"
	pgstorage "github.com/rtzll/tutorly/internal/storage/postgres"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TUTORLY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TUTORLY_TEST_DATABASE_URL not set; skipping postgres integration tests")
	}

	ctx := context.Background()
	db, err := pgstorage.Connect(ctx, pgstorage.Options{DSN: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pgstorage.Migrate(ctx, db, nil); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	for _, stmt := range []string{"TRUNCATE tutorials CASCADE", "TRUNCATE transcripts CASCADE", "TRUNCATE users CASCADE"} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("cleanup %s: %v", stmt, err)
		}
	}
	return db
}

func TestStoreIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := pgstorage.NewStore(db)

	user, err := store.Users.Save(ctx, internal.User{Username: "ann", Email: "ann@example.com", TokenHash: "h1"})
	if err != nil {
		t.Fatalf("save user failed: %v", err)
	}
	if u, err := store.Users.FindByTokenHash(ctx, "h1"); err != nil || u.ID != user.ID {
		t.Fatalf("find user by token failed: %v", err)
	}

	tr, err := store.Transcripts.Save(ctx, internal.Transcript{
		UserID:          user.ID,
		Filename:        "session.json",
		Fingerprint:     "fp",
		DurationInTicks: 30 * internal.TicksPerSecond,
		Phrases:         []internal.Phrase{{OffsetMilliseconds: 1000, Display: "hello"}},
		Timestamp:       time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("save transcript failed: %v", err)
	}
	found, err := store.Transcripts.FindByFingerprint(ctx, user.ID, "fp")
	if err != nil || found.ID != tr.ID || len(found.Phrases) != 1 || found.Phrases[0].Display != "hello" {
		t.Fatalf("fingerprint lookup failed: %+v %v", found, err)
	}

	tut, err := store.Tutorials.Save(ctx, internal.Tutorial{
		UserID:       user.ID,
		TranscriptID: tr.ID,
		Title:        "Hello",
		Steps:        []internal.Step{{Index: 1, Text: "Say hello", VideoClip: &internal.VideoClip{Start: 1, End: 2, FileURL: "/media/x.mp4"}}},
		Tags:         []string{"intro"},
	})
	if err != nil {
		t.Fatalf("save tutorial failed: %v", err)
	}
	got, err := store.Tutorials.FindByID(ctx, tut.ID)
	if err != nil {
		t.Fatalf("find tutorial failed: %v", err)
	}
	if got.Steps[0].VideoClip == nil || got.Steps[0].VideoClip.FileURL != "/media/x.mp4" || got.Tips == nil {
		t.Fatalf("unexpected tutorial round trip %+v", got)
	}

	if err := store.Transcripts.Delete(ctx, tr.ID); err != nil {
		t.Fatalf("delete transcript failed: %v", err)
	}
	if _, err := store.Tutorials.FindByID(ctx, tut.ID); !errors.Is(err, internal.ErrNotFound) {
		t.Fatalf("expected tutorial removed with its transcript, got %v", err)
	}
}
