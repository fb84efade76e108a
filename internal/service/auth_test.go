package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/devfeed/internal/apperror"
	"github.com/sakif/devfeed/internal/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	users := newMockUserRepo()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("setup: NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(users, tokens, passwords, logger), users
}

func TestRegister_ThenLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)

	reg, err := svc.Register(context.Background(), "alice", "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.User.ID == "" || reg.Token == "" {
		t.Fatalf("Register() returned incomplete result: %+v", reg)
	}

	login, err := svc.Login(context.Background(), "alice", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Errorf("Login user ID = %s, want %s", login.User.ID, reg.User.ID)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "username too short", username: "ab", password: "longenough"},
		{name: "username too long", username: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", password: "longenough"},
		{name: "password too short", username: "alice", password: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, "", tt.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.Register(context.Background(), "alice", "", "hunter2hunter2"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), "alice", "", "differentpass")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	svc.Register(context.Background(), "alice", "", "hunter2hunter2")

	_, err := svc.Login(context.Background(), "alice", "wrongpassword")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized (not NotFound)", err)
	}
}

func TestLogin_GitHubOnlyAccount(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:    42,
		Login: "octocat",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	// The upserted account has no password hash, so a local login with
	// any password must be rejected.
	_, err = svc.Login(context.Background(), "octocat", "anything-at-all")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginOrRegisterGitHub_UpsertKeepsID(t *testing.T) {
	svc, _ := newTestAuthService(t)

	first, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		AvatarURL: "https://example.com/v1.png",
	})
	if err != nil {
		t.Fatalf("first LoginOrRegisterGitHub() error = %v", err)
	}

	second, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		AvatarURL: "https://example.com/v2.png",
	})
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("user ID changed across logins: %s then %s", first.User.ID, second.User.ID)
	}
	if second.User.AvatarURL != "https://example.com/v2.png" {
		t.Errorf("AvatarURL = %q, want the refreshed value", second.User.AvatarURL)
	}
}

func TestRegister_TokenValidates(t *testing.T) {
	svc, _ := newTestAuthService(t)

	reg, err := svc.Register(context.Background(), "alice", "", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tokens, _ := auth.NewTokenService("test-secret-at-least-16-chars")
	userID, err := tokens.Validate(reg.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if userID != reg.User.ID {
		t.Errorf("token subject = %s, want %s", userID, reg.User.ID)
	}
}

func TestGetUserByID_Empty(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.GetUserByID(context.Background(), ""); err == nil {
		t.Error("expected error for empty user ID")
	}
}
