// Package session issues and verifies bearer session tokens.
//
// Tokens are HS256-signed JWTs; validity is a pure function of the
// token contents and wall-clock time. There is no server-side session
// store and no revocation.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

// Session is the decoded identity carried by a valid token.
type Session struct {
	UserID    string
	Username  string
	Role      models.Role
	Name      string
	ExpiresAt time.Time
}

// Claims is the JWT payload for a session token.
type Claims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	Name   string      `json:"name"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec with the given HMAC secret and token TTL.
// The TTL is taken as-is; config validation owns the default and the
// floor. A non-positive TTL issues tokens that are already expired.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// Issue creates a signed token for user, expiring after the codec TTL.
func (c *Codec) Issue(user models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Verify decodes and validates a token. It fails closed: malformed
// tokens, bad signatures, and wrong signing methods all return
// apperr.ErrInvalidToken; expired tokens return apperr.ErrTokenExpired.
func (c *Codec) Verify(tokenStr string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, apperr.ErrTokenExpired
		}
		return Session{}, apperr.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return Session{}, apperr.ErrInvalidToken
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return Session{
		UserID:    claims.UserID,
		Username:  claims.Subject,
		Role:      claims.Role,
		Name:      claims.Name,
		ExpiresAt: exp,
	}, nil
}
