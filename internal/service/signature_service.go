package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// canonicalSep joins the request parts signed by the orchestrator.
// None of the parts may contain it except the body, which comes last.
const canonicalSep = "|"

// HMACSignatureService implements ports.SignatureService with
// HMAC-SHA256 over the canonical request string.
type HMACSignatureService struct{}

func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload under secretKey.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares in constant time.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hmac.Equal(mac.Sum(nil), given)
}

// BuildCanonicalString assembles METHOD|PATH|TIMESTAMP|NONCE|BODY.
// Both sides must build it identically or verification fails.
func (s *HMACSignatureService) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return strings.Join([]string{
		method,
		path,
		strconv.FormatInt(timestamp, 10),
		nonce,
		body,
	}, canonicalSep)
}
