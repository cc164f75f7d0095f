package feed

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

// ServiceToken issues the HS256 bearer token presented to the upstream feed.
func ServiceToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("token: secret is required")
	}
	if subject == "" {
		subject = "fleet-monitor"
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now = now.UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
