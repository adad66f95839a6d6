package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizarena/internal/common"
	"quizarena/internal/common/security"
	"quizarena/internal/domain/model"
	"quizarena/internal/platform/config"
)

func initTestJWT() {
	config.AppConfig = &config.Config{
		JWTKey: []byte("test-signing-key"),
		JWTExp: time.Hour,
	}
	security.InitJWT()
}

func TestSignupAndLogin(t *testing.T) {
	initTestJWT()
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.User.UserType != model.UserTypeNormal {
		t.Fatalf("new accounts must start as Normal, got %s", resp.User.UserType)
	}
	if resp.User.HashedPassword != "" {
		t.Fatal("password hash must not leave the service")
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatalf("expected the same user, got %s and %s", login.User.ID, resp.User.ID)
	}
}

func TestSignupValidation(t *testing.T) {
	initTestJWT()
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		req  SignupRequest
		want error
	}{
		{"missing fields", SignupRequest{Email: "a@b.com", Password: "secret1"}, common.ErrBadRequest},
		{"bad email", SignupRequest{Name: "A", Email: "not-an-email", Password: "secret1"}, common.ErrValidation},
		{"short password", SignupRequest{Name: "A", Email: "a@b.com", Password: "four"}, common.ErrValidation},
	}
	for _, tc := range cases {
		if _, err := svc.Signup(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if _, err := svc.Signup(ctx, SignupRequest{Name: "A", Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupRequest{Name: "B", Email: "a@b.com", Password: "secret2"}); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("duplicate email: expected ErrConflict, got %v", err)
	}
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	initTestJWT()
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Name: "Alice", Email: "alice@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	// Unknown account and wrong password look identical to the caller.
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("unknown email: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong-password"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
}
