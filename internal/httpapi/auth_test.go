package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"dokankhata/backend/internal/domain"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func newUserStoreStub(users ...domain.UserAccount) *userStoreStub {
	stub := &userStoreStub{users: make(map[string]domain.UserAccount)}
	for _, u := range users {
		stub.users[u.Username] = u
	}
	return stub
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil
	}
	u.Password = password
	s.users[username] = u
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("roundtrip-secret", time.Hour, nil)

	token, err := auth.sign("mita", "owner", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	actor, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.Username != "mita" || actor.Role != "owner" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := NewAuthManager("tamper-secret", time.Hour, nil)
	token, err := auth.sign("mita", "staff", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := token[:len(token)-4] + "XXXX"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}

	other := NewAuthManager("a-different-secret", time.Hour, nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("expiry-secret", time.Hour, nil)
	token, err := auth.sign("mita", "staff", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestLoginUpgradesLegacyPlaintextPassword(t *testing.T) {
	stub := newUserStoreStub(domain.UserAccount{
		Username:  "legacy",
		Password:  "plain-secret",
		Role:      "staff",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	auth := NewAuthManager("legacy-secret", time.Hour, stub)

	resp, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plain-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "staff" {
		t.Fatalf("role = %q", resp.Role)
	}

	stub.mu.Lock()
	stored := stub.users["legacy"].Password
	stub.mu.Unlock()
	if !strings.HasPrefix(stored, "$2") {
		t.Fatalf("plaintext password was not upgraded to bcrypt: %q", stored)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	hash, err := hashPassword("secret99")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	stub := newUserStoreStub(domain.UserAccount{
		Username: "gone",
		Password: hash,
		Role:     "staff",
		Active:   false,
	})
	auth := NewAuthManager("inactive-secret", time.Hour, stub)

	if _, err := auth.Login(domain.LoginRequest{Username: "gone", Password: "secret99"}); err == nil {
		t.Fatalf("expected inactive account login to fail")
	}
}

func TestCreateStaffAccountValidation(t *testing.T) {
	auth := NewAuthManager("staff-secret", time.Hour, newUserStoreStub())

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "goodpassword"},
		{"username with space", "ab cd", "goodpassword"},
		{"short password", "newstaff", "123"},
	}
	for _, tc := range cases {
		if err := auth.CreateStaffAccount(context.Background(), tc.username, tc.password); err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}

	if err := auth.CreateStaffAccount(context.Background(), "newstaff", "goodpassword"); err != nil {
		t.Fatalf("valid account rejected: %v", err)
	}
	if err := auth.CreateStaffAccount(context.Background(), "newstaff", "goodpassword"); err == nil {
		t.Fatalf("expected duplicate username to be rejected")
	}

	resp, err := auth.Login(domain.LoginRequest{Username: "newstaff", Password: "goodpassword"})
	if err != nil {
		t.Fatalf("login with new account: %v", err)
	}
	if resp.Role != "staff" {
		t.Fatalf("new accounts must get the staff role, got %q", resp.Role)
	}
}
