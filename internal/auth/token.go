package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and parses HS256 bearer tokens. Every token carries a jti
// so logout can revoke it ahead of natural expiry.
type Manager struct {
	secret           []byte
	ttl              time.Duration
	refreshThreshold time.Duration
}

func NewManager(secret string, ttl, refreshThreshold time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, refreshThreshold: refreshThreshold}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue mints a token for the given user id with a full expiry window.
func (m *Manager) Issue(userID string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse validates signature and expiry and returns the claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NeedsRefresh reports whether the remaining lifetime has dropped below the
// sliding-refresh threshold.
func (m *Manager) NeedsRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < m.refreshThreshold
}
