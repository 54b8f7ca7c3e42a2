package store

import (
	"context"
	"testing"
)

func TestUserCreate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	u, err := s.Users.Create(ctx, " Alice@Example.com ", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.Users.Create(ctx, "alice@example.com", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := s.Users.Create(ctx, "alice@example.com", "hash2")
	if err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	created := createTestUser(t, s, "bob@example.com")

	u, err := s.Users.GetByEmail(ctx, "BOB@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatalf("got %+v, want user %d", u, created.ID)
	}

	missing, err := s.Users.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}
}

func TestUserUpdatePassword(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, s, "carol@example.com")

	if err := s.Users.UpdatePassword(ctx, u.ID, "newhash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, err := s.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.PasswordHash != "newhash" {
		t.Errorf("password_hash = %q, want %q", got.PasswordHash, "newhash")
	}
}
