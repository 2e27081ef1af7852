package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rtzll/tutorly/internal"
)

// TutorialRepository implements internal.TutorialRepository in-memory.
type TutorialRepository struct {
	mu    sync.RWMutex
	store map[string]internal.Tutorial
}

// NewTutorialRepository constructs repository.
func NewTutorialRepository() *TutorialRepository {
	return &TutorialRepository{store: make(map[string]internal.Tutorial)}
}

func (r *TutorialRepository) FindByID(_ context.Context, id string) (internal.Tutorial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.store[id]
	if !ok {
		return internal.Tutorial{}, internal.ErrNotFound
	}
	return cloneTutorial(t), nil
}

func (r *TutorialRepository) ListByUser(_ context.Context, userID string) ([]internal.Tutorial, error) {
	return r.list(func(t internal.Tutorial) bool { return t.UserID == userID }), nil
}

func (r *TutorialRepository) ListByTranscript(_ context.Context, transcriptID string) ([]internal.Tutorial, error) {
	return r.list(func(t internal.Tutorial) bool { return t.TranscriptID == transcriptID }), nil
}

func (r *TutorialRepository) list(match func(internal.Tutorial) bool) []internal.Tutorial {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]internal.Tutorial, 0)
	for _, t := range r.store {
		if match(t) {
			res = append(res, cloneTutorial(t))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

func (r *TutorialRepository) Save(_ context.Context, t internal.Tutorial) (internal.Tutorial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = newID()
	}
	if existing, ok := r.store[t.ID]; ok && t.CreatedAt.IsZero() {
		t.CreatedAt = existing.CreatedAt
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	r.store[t.ID] = cloneTutorial(t)
	return cloneTutorial(t), nil
}

func (r *TutorialRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return internal.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

// cloneTutorial copies slices and clip pointers so callers cannot mutate
// stored state
func cloneTutorial(t internal.Tutorial) internal.Tutorial {
	steps := make([]internal.Step, len(t.Steps))
	for i, s := range t.Steps {
		if s.VideoClip != nil {
			clip := *s.VideoClip
			s.VideoClip = &clip
		}
		steps[i] = s
	}
	t.Steps = steps
	t.Tips = slices.Clone(t.Tips)
	t.Examples = slices.Clone(t.Examples)
	t.Tags = slices.Clone(t.Tags)
	return t
}

// Ensure interface satisfaction at compile time.
var _ internal.TutorialRepository = (*TutorialRepository)(nil)
