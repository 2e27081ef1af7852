package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rtzll/tutorly/internal"
)

// UserRepository implements internal.UserRepository in-memory.
type UserRepository struct {
	mu    sync.RWMutex
	store map[string]internal.User
}

// NewUserRepository constructs repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{store: make(map[string]internal.User)}
}

func (r *UserRepository) FindByID(_ context.Context, id string) (internal.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.store[id]
	if !ok {
		return internal.User{}, internal.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (internal.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.store {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return internal.User{}, internal.ErrNotFound
}

func (r *UserRepository) FindByTokenHash(_ context.Context, tokenHash string) (internal.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tokenHash == "" {
		return internal.User{}, internal.ErrNotFound
	}
	for _, u := range r.store {
		if u.TokenHash == tokenHash {
			return u, nil
		}
	}
	return internal.User{}, internal.ErrNotFound
}

func (r *UserRepository) Save(_ context.Context, user internal.User) (internal.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = newID()
		user.CreatedAt = time.Now().UTC()
	} else if existing, ok := r.store[user.ID]; ok && user.CreatedAt.IsZero() {
		user.CreatedAt = existing.CreatedAt
	}
	r.store[user.ID] = user
	return user, nil
}

// Ensure interface satisfaction at compile time.
var _ internal.UserRepository = (*UserRepository)(nil)
