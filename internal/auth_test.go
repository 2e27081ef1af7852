package internal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rtzll/tutorly/internal"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, token, err := env.app.CreateUser(ctx, "ann", "ann@example.com")
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if token == "" || user.TokenHash != internal.HashToken(token) {
		t.Fatalf("expected only the token hash to be stored")
	}

	authed, err := env.app.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected same user ID")
	}

	for _, bad := range []string{"", "   ", "not-a-token", user.TokenHash} {
		if _, err := env.app.Authenticate(ctx, bad); !errors.Is(err, internal.ErrUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", bad, err)
		}
	}

	if _, _, err := env.app.CreateUser(ctx, "ann", ""); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func TestIssueTokenIsRandom(t *testing.T) {
	a, err := internal.IssueToken()
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	b, _ := internal.IssueToken()
	if a == b || len(a) < 40 {
		t.Fatalf("expected distinct long tokens, got %q and %q", a, b)
	}
}

func TestEnsureBootstrapUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.config.BootstrapToken = "first-token"

	if err := env.app.EnsureBootstrapUser(ctx); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	admin, err := env.app.Authenticate(ctx, "first-token")
	if err != nil || admin.Username != "admin" {
		t.Fatalf("expected bootstrap token to authenticate as admin, got %+v %v", admin, err)
	}

	// rotating the configured token replaces the old one
	env.config.BootstrapToken = "second-token"
	if err := env.app.EnsureBootstrapUser(ctx); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if _, err := env.app.Authenticate(ctx, "first-token"); !errors.Is(err, internal.ErrUnauthorized) {
		t.Fatalf("expected old token rejected, got %v", err)
	}
	again, err := env.app.Authenticate(ctx, "second-token")
	if err != nil || again.ID != admin.ID {
		t.Fatalf("expected same admin user, got %+v %v", again, err)
	}
}

func TestLocalUserIsStable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.app.LocalUser(ctx)
	if err != nil {
		t.Fatalf("local user: %v", err)
	}
	b, err := env.app.LocalUser(ctx)
	if err != nil {
		t.Fatalf("local user: %v", err)
	}
	if a.ID != b.ID || a.Username != "local" {
		t.Fatalf("expected the same local user, got %s and %s", a.ID, b.ID)
	}
}
