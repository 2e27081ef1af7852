package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rtzll/tutorly/internal"
)

// TranscriptRepository implements internal.TranscriptRepository in-memory.
type TranscriptRepository struct {
	mu    sync.RWMutex
	store map[string]internal.Transcript
}

// NewTranscriptRepository constructs repository.
func NewTranscriptRepository() *TranscriptRepository {
	return &TranscriptRepository{store: make(map[string]internal.Transcript)}
}

func (r *TranscriptRepository) FindByID(_ context.Context, id string) (internal.Transcript, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.store[id]
	if !ok {
		return internal.Transcript{}, internal.ErrNotFound
	}
	return cloneTranscript(t), nil
}

func (r *TranscriptRepository) FindByFingerprint(_ context.Context, userID, fingerprint string) (internal.Transcript, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.store {
		if t.UserID == userID && t.Fingerprint == fingerprint {
			return cloneTranscript(t), nil
		}
	}
	return internal.Transcript{}, internal.ErrNotFound
}

func (r *TranscriptRepository) ListByUser(_ context.Context, userID string) ([]internal.Transcript, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]internal.Transcript, 0)
	for _, t := range r.store {
		if t.UserID == userID {
			res = append(res, cloneTranscript(t))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (r *TranscriptRepository) Save(_ context.Context, t internal.Transcript) (internal.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	if existing, ok := r.store[t.ID]; ok && t.CreatedAt.IsZero() {
		t.CreatedAt = existing.CreatedAt
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.store[t.ID] = cloneTranscript(t)
	return t, nil
}

func (r *TranscriptRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return internal.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func cloneTranscript(t internal.Transcript) internal.Transcript {
	t.Phrases = slices.Clone(t.Phrases)
	return t
}

// Ensure interface satisfaction at compile time.
var _ internal.TranscriptRepository = (*TranscriptRepository)(nil)
