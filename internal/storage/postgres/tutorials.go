package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rtzll/tutorly/internal"
)

// TutorialRepository persists tutorials in Postgres. Steps and string lists
// are JSONB columns.
type TutorialRepository struct {
	db *sql.DB
}

// NewTutorialRepository constructs a postgres-backed tutorial repository.
func NewTutorialRepository(db *sql.DB) *TutorialRepository {
	return &TutorialRepository{db: db}
}

const tutorialColumns = `id, transcript_id, user_id, title, introduction, steps, tips, examples, summary, duration_estimate, tags, created_at, updated_at`

func scanTutorial(row rowScanner) (internal.Tutorial, error) {
	var t internal.Tutorial
	var steps, tips, examples, tags []byte
	err := row.Scan(&t.ID, &t.TranscriptID, &t.UserID, &t.Title, &t.Introduction,
		&steps, &tips, &examples, &t.Summary, &t.DurationEstimate, &tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return internal.Tutorial{}, internal.ErrNotFound
		}
		return internal.Tutorial{}, err
	}
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{steps, &t.Steps},
		{tips, &t.Tips},
		{examples, &t.Examples},
		{tags, &t.Tags},
	} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return internal.Tutorial{}, fmt.Errorf("decode tutorial: %w", err)
		}
	}
	return t, nil
}

func (r *TutorialRepository) FindByID(ctx context.Context, id string) (internal.Tutorial, error) {
	t, err := scanTutorial(r.db.QueryRowContext(ctx, `SELECT `+tutorialColumns+` FROM tutorials WHERE id = $1`, id))
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		return internal.Tutorial{}, fmt.Errorf("find tutorial: %w", err)
	}
	return t, err
}

func (r *TutorialRepository) ListByUser(ctx context.Context, userID string) ([]internal.Tutorial, error) {
	return r.list(ctx, `SELECT `+tutorialColumns+` FROM tutorials WHERE user_id = $1 ORDER BY created_at ASC`, userID)
}

func (r *TutorialRepository) ListByTranscript(ctx context.Context, transcriptID string) ([]internal.Tutorial, error) {
	return r.list(ctx, `SELECT `+tutorialColumns+` FROM tutorials WHERE transcript_id = $1 ORDER BY created_at ASC`, transcriptID)
}

func (r *TutorialRepository) list(ctx context.Context, query string, arg string) ([]internal.Tutorial, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list tutorials: %w", err)
	}
	defer rows.Close()

	res := make([]internal.Tutorial, 0)
	for rows.Next() {
		t, err := scanTutorial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tutorial: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TutorialRepository) Save(ctx context.Context, t internal.Tutorial) (internal.Tutorial, error) {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	// lib/pq sends []byte as bytea, so JSONB values go over the wire as text
	encoded := make([]string, 0, 4)
	for _, v := range []any{nonNil(t.Steps), nonNil(t.Tips), nonNil(t.Examples), nonNil(t.Tags)} {
		b, err := json.Marshal(v)
		if err != nil {
			return internal.Tutorial{}, fmt.Errorf("encode tutorial: %w", err)
		}
		encoded = append(encoded, string(b))
	}

	const upsert = `
        INSERT INTO tutorials (id, transcript_id, user_id, title, introduction, steps, tips, examples, summary, duration_estimate, tags, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE
           SET title = EXCLUDED.title,
               introduction = EXCLUDED.introduction,
               steps = EXCLUDED.steps,
               tips = EXCLUDED.tips,
               examples = EXCLUDED.examples,
               summary = EXCLUDED.summary,
               duration_estimate = EXCLUDED.duration_estimate,
               tags = EXCLUDED.tags,
               updated_at = EXCLUDED.updated_at
        RETURNING created_at
    `
	if err := r.db.QueryRowContext(ctx, upsert,
		t.ID,
		t.TranscriptID,
		t.UserID,
		t.Title,
		t.Introduction,
		encoded[0],
		encoded[1],
		encoded[2],
		t.Summary,
		t.DurationEstimate,
		encoded[3],
		t.CreatedAt,
		t.UpdatedAt,
	).Scan(&t.CreatedAt); err != nil {
		return internal.Tutorial{}, fmt.Errorf("save tutorial: %w", err)
	}
	return t, nil
}

func (r *TutorialRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tutorials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tutorial: %w", err)
	}
	return requireAffected(res)
}

var _ internal.TutorialRepository = (*TutorialRepository)(nil)
