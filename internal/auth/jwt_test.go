package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-32bytes-long!!!!"

func TestTokenService_IssueAndVerify_Roundtrip(t *testing.T) {
	svc := NewTokenService(testSecret)

	token, err := svc.Issue("alice", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected compact JWT with 3 segments, got %q", token)
	}

	subject, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want %q", subject, "alice")
	}
}

func TestTokenService_Verify_ExpiredToken_ReturnsError(t *testing.T) {
	svc := NewTokenService(testSecret)

	token, err := svc.Issue("alice", time.Nanosecond)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_Verify_TamperedToken_ReturnsError(t *testing.T) {
	svc := NewTokenService(testSecret)

	token, err := svc.Issue("alice", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// 署名部分を破壊する
	tampered := token[:len(token)-4] + "AAAA"

	if _, err := svc.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestTokenService_Verify_WrongSecret_ReturnsError(t *testing.T) {
	svc := NewTokenService(testSecret)
	other := NewTokenService("another-secret-key-32bytes-long!")

	token, err := other.Issue("alice", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}

func TestTokenService_Verify_GarbageToken_ReturnsError(t *testing.T) {
	svc := NewTokenService(testSecret)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Verify(input); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", input, err)
		}
	}
}

func TestTokenService_Verify_NoneAlgorithm_ReturnsError(t *testing.T) {
	svc := NewTokenService(testSecret)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build none-alg token: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for alg=none token, got %v", err)
	}
}

func TestTokenService_Verify_MissingSubject_ReturnsError(t *testing.T) {
	svc := NewTokenService(testSecret)

	token, err := svc.Issue("", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for missing sub claim, got %v", err)
	}
}

func TestTokenService_Issue_ZeroTTL_UsesDefault(t *testing.T) {
	svc := NewTokenService(testSecret)

	before := time.Now()
	token, err := svc.Issue("alice", 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}); err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}

	wantMin := before.Add(DefaultTokenTTL - time.Minute)
	wantMax := before.Add(DefaultTokenTTL + time.Minute)
	if claims.ExpiresAt.Before(wantMin) || claims.ExpiresAt.After(wantMax) {
		t.Errorf("ExpiresAt = %v, want within [%v, %v]", claims.ExpiresAt.Time, wantMin, wantMax)
	}
}
