package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HashService_RoundTrip(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("caregiver-secret-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v="))

	ok, err := svc.Verify("caregiver-secret-1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify("caregiver-secret-2", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2HashService_SaltsAreUnique(t *testing.T) {
	svc := NewArgon2HashService()

	first, err := svc.Hash("repeated-password")
	require.NoError(t, err)
	second, err := svc.Hash("repeated-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2HashService_EncodesCostParameters(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("x")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}

func TestArgon2HashService_RejectsMalformedHash(t *testing.T) {
	svc := NewArgon2HashService()

	for _, encoded := range []string{
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=1,p=4$onlyfivesegments",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
	} {
		_, err := svc.Verify("password", encoded)
		assert.Error(t, err, "encoded=%s", encoded)
	}
}
