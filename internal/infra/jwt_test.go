package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier("secret")
	require.NoError(t, err)

	raw, err := SignJWT("secret", "driver-1", "driver", time.Hour)
	require.NoError(t, err)

	tok, err := v.VerifyIDToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "driver-1", tok.UID)
	assert.Equal(t, "driver", tok.Role())
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v, err := NewJWTVerifier("secret")
	require.NoError(t, err)

	wrongKey, err := SignJWT("other", "s1", "student", time.Hour)
	require.NoError(t, err)
	expired, err := SignJWT("secret", "s1", "student", -time.Minute)
	require.NoError(t, err)
	noSubject, err := SignJWT("secret", "", "student", time.Hour)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong key":  wrongKey,
		"expired":    expired,
		"no subject": noSubject,
		"garbage":    "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.VerifyIDToken(context.Background(), raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier("")
	assert.Error(t, err)
}

func TestIDToken_Role(t *testing.T) {
	var nilTok *IDToken
	assert.Equal(t, "", nilTok.Role())
	assert.Equal(t, "", (&IDToken{UID: "x"}).Role())
	assert.Equal(t, "student", (&IDToken{Claims: map[string]interface{}{"role": "student"}}).Role())
	assert.Equal(t, "", (&IDToken{Claims: map[string]interface{}{"role": 7}}).Role())
}
