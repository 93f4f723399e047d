package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository/memory"
)

func TestAuthRoundTrip(t *testing.T) {
	store := memory.NewStore()
	auth := NewAuthService(store.Users(), "test-secret", time.Hour)
	ctx := context.Background()

	user, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "asha", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleDriver || user.Password != "" {
		t.Errorf("registered user = %+v", user)
	}
	if _, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "asha", Password: "other1"}); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate: got %v", err)
	}
	if _, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "mallory", Password: "s3cret!", Role: domain.RoleAdmin}); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("self-made admin: got %v", err)
	}

	if _, err := auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: got %v", err)
	}
	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	actor, name, err := auth.ResolveActor(ctx, resp.Token)
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	if actor.UserID != user.ID || actor.Role != domain.RoleDriver || name != "asha" {
		t.Errorf("actor = %+v %s", actor, name)
	}

	// A promotion is visible without a new token.
	if err := store.Users().UpdateRole(ctx, user.ID, domain.RoleGuard); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	actor, _, _ = auth.ResolveActor(ctx, resp.Token)
	if actor.Role != domain.RoleGuard {
		t.Errorf("role = %s, want guard", actor.Role)
	}

	other := NewAuthService(store.Users(), "another-secret", time.Hour)
	if _, _, err := other.ResolveActor(ctx, resp.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("foreign signature: got %v", err)
	}
	expired := NewAuthService(store.Users(), "test-secret", -time.Minute)
	stale, _ := expired.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "s3cret!"})
	if _, _, err := auth.ResolveActor(ctx, stale.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expired token: got %v", err)
	}
}
