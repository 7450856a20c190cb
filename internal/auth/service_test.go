package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"menu-planner/internal/database"
)

func newTestService(t *testing.T, cache SessionCache) *Service {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(NewRepository(db.SQL), "test-secret", time.Hour, cache)
	t.Cleanup(svc.StopRenewals)
	return svc
}

func TestRegister(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	t.Run("creates user, profile, and session", func(t *testing.T) {
		session, err := svc.Register(ctx, "Chef@Example.com ", "hunter22", "Julia C")
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if session.Token == "" {
			t.Error("expected a session token")
		}
		if session.Profile == nil || session.Profile.FullName != "Julia C" {
			t.Errorf("profile = %+v", session.Profile)
		}
		if !session.Expiry.After(time.Now()) {
			t.Error("expiry should be in the future")
		}
	})

	t.Run("email is normalized", func(t *testing.T) {
		if _, err := svc.Login(ctx, "chef@example.com", "hunter22"); err != nil {
			t.Errorf("login with normalized email failed: %v", err)
		}
	})

	t.Run("duplicate emails are rejected", func(t *testing.T) {
		if _, err := svc.Register(ctx, "chef@example.com", "other", ""); err == nil {
			t.Fatal("expected error for duplicate email")
		}
	})

	t.Run("blank credentials are rejected", func(t *testing.T) {
		if _, err := svc.Register(ctx, "", "pw", ""); err == nil {
			t.Error("expected error for blank email")
		}
		if _, err := svc.Register(ctx, "a@b.c", "", ""); err == nil {
			t.Error("expected error for blank password")
		}
	})
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "cook@example.com", "secret-pw", ""); err != nil {
		t.Fatalf("setup register failed: %v", err)
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "cook@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email looks the same as a wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "whatever")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("valid credentials", func(t *testing.T) {
		session, err := svc.Login(ctx, "cook@example.com", "secret-pw")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if session.Profile == nil {
			t.Error("login should attach the profile")
		}
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, "t@example.com", "pw123456", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("valid token resolves to the user", func(t *testing.T) {
		uid, err := svc.VerifyToken(session.Token)
		if err != nil {
			t.Fatalf("VerifyToken failed: %v", err)
		}
		if uid != session.UserID {
			t.Errorf("user id = %q, want %q", uid, session.UserID)
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		if _, err := svc.VerifyToken("not.a.token"); err == nil {
			t.Fatal("expected error for malformed token")
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		forged, _, err := IssueToken(session.UserID, "other-secret", time.Hour)
		if err != nil {
			t.Fatalf("IssueToken failed: %v", err)
		}
		if _, err := svc.VerifyToken(forged); err == nil {
			t.Fatal("expected error for wrong signing secret")
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expired, _, err := IssueToken(session.UserID, "test-secret", -time.Minute)
		if err != nil {
			t.Fatalf("IssueToken failed: %v", err)
		}
		if _, err := svc.VerifyToken(expired); err == nil {
			t.Fatal("expected error for expired token")
		}
	})
}

type memorySessionCache struct {
	values map[string]string
}

func (c *memorySessionCache) Get(key string) string { return c.values[key] }
func (c *memorySessionCache) Set(key, value string) { c.values[key] = value }
func (c *memorySessionCache) Remove(key string)     { delete(c.values, key) }

func TestSessionRenewal(t *testing.T) {
	cache := &memorySessionCache{values: map[string]string{}}
	svc := newTestService(t, cache)
	ctx := context.Background()

	session, err := svc.Register(ctx, "renew@example.com", "pw123456", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("registering arms a renewal timer", func(t *testing.T) {
		svc.mu.Lock()
		_, armed := svc.renewals[session.UserID]
		svc.mu.Unlock()
		if !armed {
			t.Error("expected a renewal timer for the new session")
		}
	})

	t.Run("renewal parks a verifiable token", func(t *testing.T) {
		if _, err := svc.renewSession(session.UserID); err != nil {
			t.Fatalf("renewSession failed: %v", err)
		}
		renewed := svc.takeRenewedSession(session.UserID)
		if renewed == nil {
			t.Fatal("expected a cached renewed session")
		}
		uid, err := svc.VerifyToken(renewed.Token)
		if err != nil {
			t.Fatalf("renewed token did not verify: %v", err)
		}
		if uid != session.UserID {
			t.Errorf("renewed token user = %q, want %q", uid, session.UserID)
		}
	})

	t.Run("refresh consumes the renewed token once", func(t *testing.T) {
		if _, err := svc.renewSession(session.UserID); err != nil {
			t.Fatalf("renewSession failed: %v", err)
		}
		first, err := svc.Refresh(session.UserID)
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if cache.Get(sessionKey(session.UserID)) != "" {
			t.Error("renewed token should be removed from the cache once handed out")
		}
		second, err := svc.Refresh(session.UserID)
		if err != nil {
			t.Fatalf("second Refresh failed: %v", err)
		}
		if first.Token == "" || second.Token == "" {
			t.Error("both refreshes must return a token")
		}
	})

	t.Run("expired cached token is discarded", func(t *testing.T) {
		stale := `{"token":"stale","expiry":"2020-01-01T00:00:00Z"}`
		cache.Set(sessionKey(session.UserID), stale)
		if got := svc.takeRenewedSession(session.UserID); got != nil {
			t.Errorf("stale cached session should be dropped, got %+v", got)
		}
	})
}

func TestEnsureProfileCreatesOnFirstAccess(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	// A user row without a profile, as left behind by a failed registration.
	user := &User{Email: "orphan@example.com", PasswordHash: "x"}
	if err := svc.repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	profile, err := svc.EnsureProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}
	if profile == nil || profile.ID != user.ID {
		t.Fatalf("profile = %+v", profile)
	}

	again, err := svc.EnsureProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("second EnsureProfile failed: %v", err)
	}
	if again.ID != profile.ID {
		t.Error("EnsureProfile should return the existing profile")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, "p@example.com", "pw123456", "Before")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	updated := &Profile{ID: session.UserID, FullName: "After", AvatarURL: "https://example.com/a.png"}
	if err := svc.UpdateProfile(ctx, updated); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	got, err := svc.repo.GetProfile(ctx, session.UserID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.FullName != "After" || got.AvatarURL != "https://example.com/a.png" {
		t.Errorf("profile = %+v", got)
	}

	t.Run("unknown profile errors", func(t *testing.T) {
		err := svc.UpdateProfile(ctx, &Profile{ID: "missing", FullName: "x"})
		if err == nil {
			t.Fatal("expected error updating a missing profile")
		}
	})
}
