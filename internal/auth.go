package internal

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// IssueToken returns a new random bearer token. Only its hash is stored.
func IssueToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// HashToken returns the stored form of a bearer token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves a bearer token to its user
func (app *App) Authenticate(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrUnauthorized
	}
	user, err := app.store.Users.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	return user, nil
}

// CreateUser registers a user and returns it with a freshly issued token
func (app *App) CreateUser(ctx context.Context, username, email string) (User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, "", fmt.Errorf("username is required")
	}
	if _, err := app.store.Users.FindByUsername(ctx, username); err == nil {
		return User{}, "", fmt.Errorf("user %q already exists", username)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, "", err
	}

	token, err := IssueToken()
	if err != nil {
		return User{}, "", err
	}

	user, err := app.store.Users.Save(ctx, User{
		Username:  username,
		Email:     strings.TrimSpace(email),
		TokenHash: HashToken(token),
	})
	if err != nil {
		return User{}, "", fmt.Errorf("saving user: %w", err)
	}
	return user, token, nil
}

// EnsureUserToken creates or updates username so that token authenticates as it
func (app *App) EnsureUserToken(ctx context.Context, username, token string) (User, error) {
	user, err := app.store.Users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	if errors.Is(err, ErrNotFound) {
		user = User{Username: username}
	}
	user.TokenHash = HashToken(token)
	return app.store.Users.Save(ctx, user)
}

// LocalUser returns the user owning CLI-driven work, creating it on first use
func (app *App) LocalUser(ctx context.Context) (User, error) {
	const name = "local"
	user, err := app.store.Users.FindByUsername(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	token, err := IssueToken()
	if err != nil {
		return User{}, err
	}
	return app.store.Users.Save(ctx, User{Username: name, TokenHash: HashToken(token)})
}
