package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "unit-test-signing-secret-32-bytes"

func TestJWTTokenService_IssueAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "trust-ledger")
	id := uuid.New()

	token, expiresAt, err := svc.Generate(id, "meera")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.CaregiverID)
	assert.Equal(t, "meera", claims.Username)
}

func TestJWTTokenService_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, -time.Minute, "trust-ledger")

	token, _, err := svc.Generate(uuid.New(), "meera")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsForeignSignature(t *testing.T) {
	issuer := NewJWTTokenService("first-secret", time.Hour, "trust-ledger")
	verifier := NewJWTTokenService("second-secret", time.Hour, "trust-ledger")

	token, _, err := issuer.Generate(uuid.New(), "meera")
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsGarbage(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "trust-ledger")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Validate(token)
		assert.Error(t, err, "token=%q", token)
	}
}
