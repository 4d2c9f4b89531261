package session

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessTokenSecret = "access-secret-0123456789abcdef0123456789"
	cfg.RefreshTokenSecret = "refresh-secret-0123456789abcdef012345678"
	cfg.AccessTokenTTL = 15 * time.Minute
	cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.ClockSkew = 0
	return cfg
}

func mustManager(t *testing.T) TokenManager {
	t.Helper()

	mgr, err := NewJWTManager(testConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return mgr
}

func TestJWT_IssueAndVerify(t *testing.T) {
	mgr := mustManager(t)
	now := time.Now().UTC()

	for _, kind := range []TokenKind{KindAccess, KindRefresh} {
		tok, exp, err := mgr.Issue(kind, "01HZZZZZZZZZZZZZZZZZZZZZZZ", now)
		if err != nil {
			t.Fatalf("Issue(%s): %v", kind, err)
		}
		if !exp.After(now) {
			t.Fatalf("expected exp after now for %s", kind)
		}

		claims, err := mgr.Verify(kind, tok, now.Add(1*time.Second))
		if err != nil {
			t.Fatalf("Verify(%s): %v", kind, err)
		}
		if claims.UserID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
			t.Fatalf("subject mismatch: %q", claims.UserID)
		}
		if claims.Issuer != "stash" {
			t.Fatalf("issuer mismatch: %q", claims.Issuer)
		}
	}
}

func TestJWT_CrossKindRejection(t *testing.T) {
	mgr := mustManager(t)
	now := time.Now().UTC()

	accessTok, _, err := mgr.Issue(KindAccess, "user-1", now)
	if err != nil {
		t.Fatalf("Issue access: %v", err)
	}
	refreshTok, _, err := mgr.Issue(KindRefresh, "user-1", now)
	if err != nil {
		t.Fatalf("Issue refresh: %v", err)
	}

	if _, err := mgr.Verify(KindRefresh, accessTok, now); err != ErrInvalidToken {
		t.Fatalf("access token under refresh secret must fail, got %v", err)
	}
	if _, err := mgr.Verify(KindAccess, refreshTok, now); err != ErrInvalidToken {
		t.Fatalf("refresh token under access secret must fail, got %v", err)
	}
}

func TestJWT_ExpiryBoundary(t *testing.T) {
	mgr := mustManager(t)
	now := time.Now().UTC()

	tok, exp, err := mgr.Issue(KindAccess, "user-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := mgr.Verify(KindAccess, tok, exp.Add(-1*time.Second)); err != nil {
		t.Fatalf("token strictly before expiry must verify: %v", err)
	}
	if _, err := mgr.Verify(KindAccess, tok, exp.Add(1*time.Second)); err != ErrInvalidToken {
		t.Fatalf("token past expiry must fail, got %v", err)
	}
}

func TestJWT_TamperedTokenRejected(t *testing.T) {
	mgr := mustManager(t)
	now := time.Now().UTC()

	tok, _, err := mgr.Issue(KindAccess, "user-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := mgr.Verify(KindAccess, tampered, now); err != ErrInvalidToken {
		t.Fatalf("tampered token must fail, got %v", err)
	}
	if _, err := mgr.Verify(KindAccess, "not-a-jwt", now); err != ErrInvalidToken {
		t.Fatalf("malformed token must fail, got %v", err)
	}
}

func TestNewJWTManager_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenSecret = cfg.AccessTokenSecret
	if _, err := NewJWTManager(cfg); err != ErrConfig {
		t.Fatalf("identical secrets must be rejected, got %v", err)
	}

	cfg = testConfig()
	cfg.AccessTokenSecret = "short"
	if _, err := NewJWTManager(cfg); err != ErrConfig {
		t.Fatalf("short secret must be rejected, got %v", err)
	}

	cfg = testConfig()
	cfg.AccessTokenTTL = cfg.RefreshTokenTTL + time.Hour
	if _, err := NewJWTManager(cfg); err != ErrConfig {
		t.Fatalf("access TTL above refresh TTL must be rejected, got %v", err)
	}
}
