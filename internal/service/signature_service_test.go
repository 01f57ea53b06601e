package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignProducesHexDigest(t *testing.T) {
	svc := NewHMACSignatureService()

	sig := svc.Sign("orchestrator-secret", `POST|/api/v1/transactions|1756500000|n-001|{"amount":4500}`)

	assert.Regexp(t, `^[0-9a-f]{64}$`, sig)
}

func TestHMACSignatureService_VerifyRoundTrip(t *testing.T) {
	svc := NewHMACSignatureService()
	canonical := svc.BuildCanonicalString("POST", "/api/v1/transactions/settle", 1756500030, "n-002", `{"transaction_id":"ord-77"}`)

	sig := svc.Sign("orchestrator-secret", canonical)

	assert.True(t, svc.Verify("orchestrator-secret", canonical, sig))
	assert.False(t, svc.Verify("some-other-secret", canonical, sig), "wrong key must not verify")
	assert.False(t, svc.Verify("orchestrator-secret", canonical+" ", sig), "altered payload must not verify")
}

func TestHMACSignatureService_VerifyRejectsNonHexSignature(t *testing.T) {
	svc := NewHMACSignatureService()

	assert.False(t, svc.Verify("key", "payload", "zz-not-hex"))
	assert.False(t, svc.Verify("key", "payload", ""))
}

func TestHMACSignatureService_SignIsDeterministic(t *testing.T) {
	svc := NewHMACSignatureService()

	assert.Equal(t, svc.Sign("k", "canonical"), svc.Sign("k", "canonical"))
}

func TestHMACSignatureService_BuildCanonicalString(t *testing.T) {
	svc := NewHMACSignatureService()

	tests := []struct {
		name      string
		method    string
		path      string
		timestamp int64
		nonce     string
		body      string
		want      string
	}{
		{
			name:      "post with body",
			method:    "POST",
			path:      "/api/v1/transactions",
			timestamp: 1756500000,
			nonce:     "n-100",
			body:      `{"amount":12000}`,
			want:      `POST|/api/v1/transactions|1756500000|n-100|{"amount":12000}`,
		},
		{
			name:      "get with empty body keeps trailing separator",
			method:    "GET",
			path:      "/api/v1/transactions/ord-1",
			timestamp: 1756500060,
			nonce:     "n-101",
			body:      "",
			want:      "GET|/api/v1/transactions/ord-1|1756500060|n-101|",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.BuildCanonicalString(tc.method, tc.path, tc.timestamp, tc.nonce, tc.body)
			assert.Equal(t, tc.want, got)
		})
	}
}
