package auth

import (
    "testing"
    "time"
)

func TestTokenRoundTrip(t *testing.T) {
    tok, err := AccessToken("key1", "secret", "call-abc", "caller-7", time.Minute)
    if err != nil {
        t.Fatalf("generate: %v", err)
    }
    room, identity, err := ValidateToken("secret", tok, "call-abc", time.Now())
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if room != "call-abc" || identity != "caller-7" {
        t.Fatalf("unexpected claims room=%q identity=%q", room, identity)
    }
}

func TestTokenWrongSecret(t *testing.T) {
    tok, _ := AccessToken("key1", "secret", "call-abc", "caller-7", time.Minute)
    if _, _, err := ValidateToken("other", tok, "call-abc", time.Now()); err != ErrTokenSig {
        t.Fatalf("expected ErrTokenSig, got %v", err)
    }
}

func TestTokenExpired(t *testing.T) {
    tok, _ := AccessToken("key1", "secret", "call-abc", "caller-7", time.Minute)
    if _, _, err := ValidateToken("secret", tok, "call-abc", time.Now().Add(2*time.Minute)); err != ErrTokenExp {
        t.Fatalf("expected ErrTokenExp, got %v", err)
    }
}

func TestTokenRoomMismatch(t *testing.T) {
    tok, _ := AccessToken("key1", "secret", "call-abc", "caller-7", time.Minute)
    if _, _, err := ValidateToken("secret", tok, "call-xyz", time.Now()); err != ErrTokenAudience {
        t.Fatalf("expected ErrTokenAudience, got %v", err)
    }
}

func TestTokenGarbage(t *testing.T) {
    if _, _, err := ValidateToken("secret", "not-a-token", "", time.Now()); err != ErrTokenFormat {
        t.Fatalf("expected ErrTokenFormat, got %v", err)
    }
}
