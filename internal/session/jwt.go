package session

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// JWTStore issues stateless HS256 tokens. Logout is a client-side discard;
// revocation needs the Redis store instead.
type JWTStore struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTStore builds a stateless JWT session store.
func NewJWTStore(secret string, ttl time.Duration) *JWTStore {
	return &JWTStore{secret: []byte(secret), ttl: ttl}
}

// New creates a signed JWT carrying the user ID as subject.
func (s *JWTStore) New(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// UserID validates a token and returns its subject. Expired or malformed
// tokens report not-found rather than an error so callers treat them as an
// ordinary unauthorized request.
func (s *JWTStore) UserID(token string) (string, bool, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", false, nil
	}
	if claims.Subject == "" {
		return "", false, errors.New("token missing subject")
	}
	return claims.Subject, true, nil
}

// Delete is a no-op for stateless JWT; provided for interface parity.
func (s *JWTStore) Delete(_ string) error {
	return nil
}
