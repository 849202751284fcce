package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrNoSecret     = errors.New("token secret is empty")
)

const issuer = "conquest"

// Claims is a seat token: proof that the bearer holds a named seat in a
// session, with the role it held when the token was issued.
type Claims struct {
	SessionID string `json:"sid"`
	Player    string `json:"player"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates seat tokens.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager. Tokens expire after expiry; zero means
// 12 hours.
func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), expiry: expiry}
}

// IssueSeatToken signs a token for player's seat in sessionID.
func (m *JWTManager) IssueSeatToken(sessionID, player, role string) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		Player:    player,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   player,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
