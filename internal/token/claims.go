// Package token issues and verifies the HS256 signed tokens that carry
// the authenticated subject policies evaluate against.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures, distinguishable so clients can drive their
// refresh logic. Verify reports the first failing check in a fixed order:
// signature, expiration, not-before, audience, issuer.
var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrNotYetValid      = errors.New("token not yet valid")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrMalformed        = errors.New("token malformed")
)

// notBeforeSkew backdates nbf slightly so a token is usable immediately
// even across small clock differences between issuer and verifier.
const notBeforeSkew = 250 * time.Millisecond

// now is swapped out by tests.
var now = time.Now

// Claims is the identity payload of one issued token. Immutable after
// issuance; the invariant not_before <= issued_at < expiration holds by
// construction, and TokenID is unique per issuance.
type Claims struct {
	Subject    string
	Issuer     string
	Audience   string
	IssuedAt   time.Time
	NotBefore  time.Time
	Expiration time.Time
	TokenID    string
}

// Issue creates claims for the subject with the standard three-point time
// window: issued_at = now, not_before = now - skew, expiration = now + ttl.
func Issue(subject, issuer, audience string, ttl time.Duration) Claims {
	t := now()
	return Claims{
		Subject:    subject,
		Issuer:     issuer,
		Audience:   audience,
		IssuedAt:   t,
		NotBefore:  t.Add(-notBeforeSkew),
		Expiration: t.Add(ttl),
		TokenID:    uuid.NewString(),
	}
}

// Sign serializes the claims into a compact HS256 JWT.
func (c Claims) Sign(key []byte) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   c.Subject,
		Issuer:    c.Issuer,
		Audience:  jwt.ClaimStrings{c.Audience},
		IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
		NotBefore: jwt.NewNumericDate(c.NotBefore),
		ExpiresAt: jwt.NewNumericDate(c.Expiration),
		ID:        c.TokenID,
	})

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and claims of a compact token and returns
// the embedded claims. Checks run in a fixed order and the first failure
// is reported: ErrSignatureInvalid, ErrExpired, ErrNotYetValid,
// ErrAudienceMismatch, ErrIssuerMismatch.
//
// Time and audience/issuer validation is done here rather than by the JWT
// library so the failure order stays fixed and the errors stay distinct.
func Verify(tokenString string, key []byte, expectedIssuer, expectedAudience string) (Claims, error) {
	var reg jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &reg, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrSignatureInvalid
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	t := now()
	if reg.ExpiresAt != nil && t.After(reg.ExpiresAt.Time) {
		return Claims{}, ErrExpired
	}
	if reg.NotBefore != nil && t.Before(reg.NotBefore.Time) {
		return Claims{}, ErrNotYetValid
	}
	if expectedAudience != "" && !containsAudience(reg.Audience, expectedAudience) {
		return Claims{}, ErrAudienceMismatch
	}
	if expectedIssuer != "" && reg.Issuer != expectedIssuer {
		return Claims{}, ErrIssuerMismatch
	}

	c := Claims{
		Subject: reg.Subject,
		Issuer:  reg.Issuer,
		TokenID: reg.ID,
	}
	if len(reg.Audience) > 0 {
		c.Audience = reg.Audience[0]
	}
	if reg.IssuedAt != nil {
		c.IssuedAt = reg.IssuedAt.Time
	}
	if reg.NotBefore != nil {
		c.NotBefore = reg.NotBefore.Time
	}
	if reg.ExpiresAt != nil {
		c.Expiration = reg.ExpiresAt.Time
	}
	return c, nil
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
