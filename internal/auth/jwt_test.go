package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidateSeatToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123", time.Hour)
	token, err := mgr.IssueSeatToken("lobby-1", "ann", "host")
	if err != nil {
		t.Fatalf("issue seat token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.SessionID != "lobby-1" || claims.Player != "ann" || claims.Role != "host" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.Subject != "ann" || claims.Issuer != issuer {
		t.Errorf("expected subject=ann issuer=%s, got %s %s", issuer, claims.Subject, claims.Issuer)
	}
}

func TestDefaultExpiry(t *testing.T) {
	mgr := NewJWTManager("s", 0)
	if mgr.expiry != 12*time.Hour {
		t.Errorf("expected 12h default, got %v", mgr.expiry)
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	mgr := NewJWTManager("", time.Hour)
	if _, err := mgr.IssueSeatToken("s", "ann", "player"); err != ErrNoSecret {
		t.Errorf("expected ErrNoSecret, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one", time.Hour)
	mgr2 := NewJWTManager("secret-two", time.Hour)

	token, err := mgr1.IssueSeatToken("s", "ann", "player")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr2.ValidateToken(token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)
	if _, err := mgr.ValidateToken("not-a-jwt"); err == nil {
		t.Error("expected error for garbage token")
	}
	if _, err := mgr.ValidateToken(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := &JWTManager{secret: []byte("test-secret"), expiry: -1 * time.Second}
	token, err := mgr.IssueSeatToken("s", "ann", "player")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestForeignIssuerRejected(t *testing.T) {
	secret := []byte("test-secret")
	claims := &Claims{
		SessionID: "s",
		Player:    "ann",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	mgr := &JWTManager{secret: secret, expiry: time.Hour}
	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("tokens from another issuer must be rejected")
	}
}

func TestDifferentSeatsGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)
	t1, _ := mgr.IssueSeatToken("s", "ann", "player")
	t2, _ := mgr.IssueSeatToken("s", "bob", "player")
	if t1 == t2 {
		t.Error("different seats should get different tokens")
	}
}
