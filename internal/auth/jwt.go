package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// ScopeGraph allows running the graph suggestion and execution endpoints.
const ScopeGraph = "graph"

// JWTClaims represents custom JWT claims
type JWTClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims grant scope.
func (c *JWTClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// JWTManager handles JWT operations
type JWTManager struct {
	secretKey     []byte
	apiKey        []byte
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWT manager. Tokens are issued to callers that
// present apiKey.
func NewJWTManager(secretKey, apiKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		apiKey:        []byte(apiKey),
		tokenDuration: tokenDuration,
	}
}

// IssueToken exchanges an API key for a signed token.
func (m *JWTManager) IssueToken(apiKey, subject string) (string, error) {
	if len(m.apiKey) == 0 || subtle.ConstantTimeCompare([]byte(apiKey), m.apiKey) != 1 {
		return "", ErrInvalidAPIKey
	}
	return m.GenerateToken(subject, []string{ScopeGraph})
}

// GenerateToken generates a new JWT token
func (m *JWTManager) GenerateToken(subject string, scopes []string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateToken validates the JWT token
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			_, ok := token.Method.(*jwt.SigningMethodHMAC)
			if !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
