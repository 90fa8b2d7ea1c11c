package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret")

func issueSigned(t *testing.T, ttl time.Duration) string {
	t.Helper()
	signed, err := Issue("user-1", "iss", "aud", ttl).Sign(testKey)
	require.NoError(t, err)
	return signed
}

func TestIssueTimeWindow(t *testing.T) {
	before := time.Now()
	c := Issue("user-1", "iss", "aud", time.Hour)
	after := time.Now()

	assert.Equal(t, "user-1", c.Subject)
	assert.Equal(t, "iss", c.Issuer)
	assert.Equal(t, "aud", c.Audience)
	assert.NotEmpty(t, c.TokenID)

	assert.False(t, c.IssuedAt.Before(before))
	assert.False(t, c.IssuedAt.After(after))
	assert.Equal(t, c.IssuedAt.Add(-notBeforeSkew), c.NotBefore)
	assert.Equal(t, c.IssuedAt.Add(time.Hour), c.Expiration)
	assert.True(t, c.NotBefore.Before(c.IssuedAt))
	assert.True(t, c.IssuedAt.Before(c.Expiration))
}

func TestIssueTokenIDUnique(t *testing.T) {
	a := Issue("u", "iss", "aud", time.Hour)
	b := Issue("u", "iss", "aud", time.Hour)
	assert.NotEqual(t, a.TokenID, b.TokenID)
}

func TestVerifyRoundTrip(t *testing.T) {
	signed := issueSigned(t, time.Hour)

	c, err := Verify(signed, testKey, "iss", "aud")
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
	assert.Equal(t, "iss", c.Issuer)
	assert.Equal(t, "aud", c.Audience)
	assert.NotEmpty(t, c.TokenID)
}

func TestVerifyWrongKey(t *testing.T) {
	signed := issueSigned(t, time.Hour)

	_, err := Verify(signed, []byte("other-secret"), "iss", "aud")
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyTamperedPayload(t *testing.T) {
	signed := issueSigned(t, time.Hour)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	// Flip a payload character; the signature no longer matches.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err := Verify(tampered, testKey, "iss", "aud")
	assert.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	orig := now
	defer func() { now = orig }()

	now = func() time.Time { return orig().Add(-2 * time.Hour) }
	signed := issueSigned(t, time.Hour)
	now = orig

	_, err := Verify(signed, testKey, "iss", "aud")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyNotYetValid(t *testing.T) {
	orig := now
	defer func() { now = orig }()

	now = func() time.Time { return orig().Add(time.Hour) }
	signed := issueSigned(t, 2*time.Hour)
	now = orig

	_, err := Verify(signed, testKey, "iss", "aud")
	assert.ErrorIs(t, err, ErrNotYetValid)
}

func TestVerifyAudienceMismatch(t *testing.T) {
	signed := issueSigned(t, time.Hour)

	_, err := Verify(signed, testKey, "iss", "someone-else")
	assert.ErrorIs(t, err, ErrAudienceMismatch)
}

func TestVerifyIssuerMismatch(t *testing.T) {
	signed := issueSigned(t, time.Hour)

	_, err := Verify(signed, testKey, "someone-else", "aud")
	assert.ErrorIs(t, err, ErrIssuerMismatch)
}

func TestVerifyExpiredBeforeAudience(t *testing.T) {
	orig := now
	defer func() { now = orig }()

	// Both expired and wrong audience: expiration is reported first.
	now = func() time.Time { return orig().Add(-2 * time.Hour) }
	signed := issueSigned(t, time.Hour)
	now = orig

	_, err := Verify(signed, testKey, "iss", "wrong")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyMalformed(t *testing.T) {
	_, err := Verify("not-a-token", testKey, "iss", "aud")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	// alg=none header with an empty signature must not verify.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJzdWIiOiJ1c2VyLTEifQ."
	_, err := Verify(unsigned, testKey, "", "")
	assert.Error(t, err)
}
