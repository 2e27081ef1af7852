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

// TranscriptRepository persists transcripts in Postgres. Phrases live in a
// JSONB column.
type TranscriptRepository struct {
	db *sql.DB
}

// NewTranscriptRepository constructs a postgres-backed transcript repository.
func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

const transcriptColumns = `id, user_id, filename, fingerprint, recorded_at, duration_in_ticks, phrases, video_file, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (internal.Transcript, error) {
	var (
		t        internal.Transcript
		recorded sql.NullTime
		phrases  []byte
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Filename, &t.Fingerprint, &recorded, &t.DurationInTicks, &phrases, &t.VideoFile, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return internal.Transcript{}, internal.ErrNotFound
		}
		return internal.Transcript{}, err
	}
	if recorded.Valid {
		t.Timestamp = recorded.Time.UTC()
	}
	if err := json.Unmarshal(phrases, &t.Phrases); err != nil {
		return internal.Transcript{}, fmt.Errorf("decode phrases: %w", err)
	}
	return t, nil
}

func (r *TranscriptRepository) FindByID(ctx context.Context, id string) (internal.Transcript, error) {
	t, err := scanTranscript(r.db.QueryRowContext(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE id = $1`, id))
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		return internal.Transcript{}, fmt.Errorf("find transcript: %w", err)
	}
	return t, err
}

func (r *TranscriptRepository) FindByFingerprint(ctx context.Context, userID, fingerprint string) (internal.Transcript, error) {
	t, err := scanTranscript(r.db.QueryRowContext(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE user_id = $1 AND fingerprint = $2`, userID, fingerprint))
	if err != nil && !errors.Is(err, internal.ErrNotFound) {
		return internal.Transcript{}, fmt.Errorf("find transcript by fingerprint: %w", err)
	}
	return t, err
}

func (r *TranscriptRepository) ListByUser(ctx context.Context, userID string) ([]internal.Transcript, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	res := make([]internal.Transcript, 0)
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TranscriptRepository) Save(ctx context.Context, t internal.Transcript) (internal.Transcript, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	phrases, err := json.Marshal(nonNil(t.Phrases))
	if err != nil {
		return internal.Transcript{}, fmt.Errorf("encode phrases: %w", err)
	}
	var recorded sql.NullTime
	if !t.Timestamp.IsZero() {
		recorded = sql.NullTime{Time: t.Timestamp, Valid: true}
	}

	const upsert = `
        INSERT INTO transcripts (id, user_id, filename, fingerprint, recorded_at, duration_in_ticks, phrases, video_file, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO UPDATE
           SET filename = EXCLUDED.filename,
               recorded_at = EXCLUDED.recorded_at,
               duration_in_ticks = EXCLUDED.duration_in_ticks,
               phrases = EXCLUDED.phrases,
               video_file = EXCLUDED.video_file
        RETURNING created_at
    `
	if err := r.db.QueryRowContext(ctx, upsert,
		t.ID,
		t.UserID,
		t.Filename,
		t.Fingerprint,
		recorded,
		t.DurationInTicks,
		string(phrases),
		t.VideoFile,
		t.CreatedAt,
	).Scan(&t.CreatedAt); err != nil {
		return internal.Transcript{}, fmt.Errorf("save transcript: %w", err)
	}
	return t, nil
}

func (r *TranscriptRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internal.ErrNotFound
	}
	return nil
}

// nonNil keeps JSONB columns as [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ internal.TranscriptRepository = (*TranscriptRepository)(nil)
