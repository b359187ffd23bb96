package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/issue-notify-service/internal/domain"
)

// ErrInvalidToken is returned for any credential that cannot be trusted:
// bad signature, wrong algorithm, expired, or malformed. Callers branch on
// the error, they never receive partial claims.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and verifies the bearer credentials presented at
// connect time.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 1440
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes the JWT payload carried by a connection credential.
type Claims struct {
	UserID   int         `json:"userId"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue builds and signs a credential for the identity.
func (tm *TokenManager) Issue(claim domain.IdentityClaim) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		UserID:   claim.UserID,
		Username: claim.Username,
		Role:     claim.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claim.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify validates the credential and extracts the identity claim. Any
// structural or cryptographic failure yields ErrInvalidToken.
func (tm *TokenManager) Verify(tokenStr string) (domain.IdentityClaim, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return domain.IdentityClaim{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.IdentityClaim{}, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return domain.IdentityClaim{}, ErrInvalidToken
	}
	return domain.IdentityClaim{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
