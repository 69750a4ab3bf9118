// Package auth holds the credential primitives used by the services:
// session tokens, password hashing and reset-token material.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

// Claims is the session payload: standard claims plus the account role.
// The account id travels in "sub".
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Session is what a valid token asserts.
type Session struct {
	AccountID string
	Role      models.Role
	ExpiresAt time.Time
}

// SessionIssuer signs and validates HS256 session tokens with a secret held
// for the life of the process.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret []byte, ttl time.Duration, now func() time.Time) *SessionIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{secret: secret, ttl: ttl, now: now}
}

func (i *SessionIssuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for accountID and its expiry instant.
func (i *SessionIssuer) Issue(accountID string, role models.Role) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(role),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, algorithm and expiry. Every failure is
// reported as common.ErrInvalidOrExpiredToken.
func (i *SessionIssuer) Validate(tokenString string) (*Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidOrExpiredToken
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}

	return &Session{
		AccountID: claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
