package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "estate-api"
	Audience = "estate-client"
)

// Purpose scopes a token to one use so a reset link cannot open a session.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposePasswordReset Purpose = "password_reset"
)

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrTokenInvalid  = errors.New("token is invalid or expired")
)

type claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens keyed by user id.
type TokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. accessTTL is the
// lifetime used by IssueAccess.
func NewTokenIssuer(secret string, accessTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// Issue returns a signed token for userID valid for ttl.
func (t *TokenIssuer) Issue(userID uuid.UUID, purpose Purpose, ttl time.Duration) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := t.now()
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// IssueAccess returns a session token with the configured lifetime.
func (t *TokenIssuer) IssueAccess(userID uuid.UUID) (string, error) {
	return t.Issue(userID, PurposeAccess, t.accessTTL)
}

// Parse verifies token and returns its subject. Tokens issued for another
// purpose are rejected.
func (t *TokenIssuer) Parse(token string, purpose Purpose) (uuid.UUID, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(t.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrTokenInvalid
	}
	if c.Purpose != purpose {
		return uuid.Nil, ErrTokenInvalid
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

// ParseAccessToken satisfies middleware.TokenParser.
func (t *TokenIssuer) ParseAccessToken(token string) (uuid.UUID, error) {
	return t.Parse(token, PurposeAccess)
}
