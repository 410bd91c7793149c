package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"talehub/internal/apperr"
	"talehub/internal/domain"
	"talehub/internal/storage/memory"
)

func testConfig() Config {
	return Config{
		AccessSecret:  strings.Repeat("a", 32),
		RefreshSecret: strings.Repeat("r", 32),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T) (*TokenService, *memory.Store, domain.Account) {
	t.Helper()
	store := memory.New()
	acc, err := store.CreateAccount(context.Background(), domain.NewAccount{
		Username: "alice", Email: "alice@example.com", PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return NewTokenService(testConfig(), store), store, acc
}

func TestConfig_Validate(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"short access secret", func(c *Config) { c.AccessSecret = "short" }},
		{"shared secret", func(c *Config) { c.RefreshSecret = c.AccessSecret }},
		{"refresh not longer", func(c *Config) { c.RefreshTTL = c.AccessTTL }},
		{"access too long", func(c *Config) { c.AccessTTL = 25 * time.Hour }},
		{"zero ttl", func(c *Config) { c.AccessTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestVerifyAccess_RoundTrip(t *testing.T) {
	svc, _, acc := newTestService(t)

	token, err := svc.IssueAccessToken(acc)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	claims, err := svc.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if claims.AccountID != acc.ID || claims.Email != acc.Email {
		t.Errorf("claims = %+v, want account %d %s", claims, acc.ID, acc.Email)
	}
}

func TestVerifyAccess_Expired(t *testing.T) {
	svc, _, acc := newTestService(t)
	issued := time.Now()
	svc.WithClock(func() time.Time { return issued })

	token, err := svc.IssueAccessToken(acc)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	svc.WithClock(func() time.Time { return issued.Add(16 * time.Minute) })
	_, err = svc.VerifyAccess(token)
	if !errors.Is(err, apperr.ErrAuthExpired) {
		t.Errorf("expected expired, got %v", err)
	}
}

func TestVerifyAccess_Invalid(t *testing.T) {
	svc, _, acc := newTestService(t)

	refresh, err := svc.IssueRefreshToken(context.Background(), acc)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	for name, token := range map[string]string{
		"garbage":       "not.a.jwt",
		"refresh token": refresh,
	} {
		if _, err := svc.VerifyAccess(token); !errors.Is(err, apperr.ErrAuthInvalid) {
			t.Errorf("%s: expected invalid, got %v", name, err)
		}
	}
}

func TestRotate_RevokesPrevious(t *testing.T) {
	svc, _, acc := newTestService(t)
	ctx := context.Background()

	r1, err := svc.IssueRefreshToken(ctx, acc)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	pair, err := svc.Rotate(ctx, r1)
	if err != nil {
		t.Fatalf("Rotate(r1) error = %v", err)
	}
	if pair.RefreshToken == r1 {
		t.Fatal("rotation returned the same refresh token")
	}

	if _, err := svc.Rotate(ctx, r1); !errors.Is(err, apperr.ErrAuthRevoked) {
		t.Errorf("second Rotate(r1) = %v, want revoked", err)
	}
	if _, err := svc.Rotate(ctx, pair.RefreshToken); err != nil {
		t.Errorf("Rotate(r2) error = %v", err)
	}
}

func TestRotate_AfterRevoke(t *testing.T) {
	svc, _, acc := newTestService(t)
	ctx := context.Background()

	r1, _ := svc.IssueRefreshToken(ctx, acc)
	if err := svc.Revoke(ctx, acc.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := svc.Rotate(ctx, r1); !errors.Is(err, apperr.ErrAuthRevoked) {
		t.Errorf("Rotate() after sign-out = %v, want revoked", err)
	}
}

func TestRotate_NewSignInSupersedes(t *testing.T) {
	svc, _, acc := newTestService(t)
	ctx := context.Background()

	first, _ := svc.IssuePair(ctx, acc)
	if _, err := svc.IssuePair(ctx, acc); err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}
	if _, err := svc.Rotate(ctx, first.RefreshToken); !errors.Is(err, apperr.ErrAuthRevoked) {
		t.Errorf("Rotate(superseded) = %v, want revoked", err)
	}
}

func TestRotate_ConcurrentSingleWinner(t *testing.T) {
	svc, _, acc := newTestService(t)
	ctx := context.Background()

	r1, err := svc.IssueRefreshToken(ctx, acc)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, revoked := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rotate(ctx, r1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrAuthRevoked):
				revoked++
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful rotation, got %d", wins)
	}
	if revoked != 19 {
		t.Errorf("expected 19 revoked rotations, got %d", revoked)
	}
}
