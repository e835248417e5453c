// Package signing turns delegation tokens into transportable signed strings
// and back. The evaluators never inspect signature bytes; they store and
// reason about the unsigned token structure and its CID. Signing is the
// boundary capability a host wires in, and JWTCodec is the default
// implementation.
package signing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/covenant-labs/covenant/pkg/capability"
)

// Signer produces an opaque transportable string for a token.
type Signer interface {
	Sign(tok capability.Token, lifetime time.Duration) (string, error)
}

// Verifier checks an opaque string and returns the embedded token, with its
// CID recomputed from the embedded fields.
type Verifier interface {
	Verify(raw string) (capability.Token, error)
}

// ErrKeyRequired is returned when a codec is built without key material.
var ErrKeyRequired = errors.New("signing key must not be empty")

// tokenClaims embeds the delegation token fields in a JWT claim set.
type tokenClaims struct {
	jwt.RegisteredClaims
	Token capability.Token `json:"covenant_token"`
}

// JWTCodec signs and verifies tokens as HS256 JWTs over a shared key.
type JWTCodec struct {
	key    []byte
	issuer string
}

// NewJWTCodec creates a codec. issuer names the signing authority recorded
// in the JWT registered claims.
func NewJWTCodec(key []byte, issuer string) (*JWTCodec, error) {
	if len(key) == 0 {
		return nil, ErrKeyRequired
	}
	return &JWTCodec{key: key, issuer: issuer}, nil
}

// Sign implements Signer.
func (c *JWTCodec) Sign(tok capability.Token, lifetime time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tok.Audience,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
		Token: tok,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify implements Verifier.
func (c *JWTCodec) Verify(raw string) (capability.Token, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil {
		return capability.Token{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return capability.Token{}, jwt.ErrTokenSignatureInvalid
	}

	// Recompute the CID over the embedded fields.
	return capability.Rehydrate(claims.Token)
}
