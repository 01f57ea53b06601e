package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"trust-ledger/config"
	"trust-ledger/internal/core/ports"
	"trust-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type serviceAuthFixture struct {
	router     *gin.Engine
	sigSvc     *mocks.MockSignatureService
	nonceStore *mocks.MockNonceStore
}

func newServiceAuthFixture(t *testing.T) *serviceAuthFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &serviceAuthFixture{
		sigSvc:     mocks.NewMockSignatureService(ctrl),
		nonceStore: mocks.NewMockNonceStore(ctrl),
	}
	cfg := config.ServiceAuthConfig{AccessKey: "ak_service", Secret: "raw_secret"}
	f.router = gin.New()
	f.router.POST("/test", ServiceAuth(cfg, f.sigSvc, f.nonceStore, zerolog.Nop()),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return f
}

func (f *serviceAuthFixture) do(accessKey, sig string, ts int64, nonce string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", body)
	if accessKey != "" {
		req.Header.Set(HeaderAccessKey, accessKey)
		req.Header.Set(HeaderSignature, sig)
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(HeaderNonce, nonce)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestServiceAuth_MissingHeaders(t *testing.T) {
	f := newServiceAuthFixture(t)

	w := f.do("", "", 0, "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuth_WrongAccessKey(t *testing.T) {
	f := newServiceAuthFixture(t)

	w := f.do("ak_wrong", "sig", time.Now().Unix(), "nonce123", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuth_StaleTimestamp(t *testing.T) {
	f := newServiceAuthFixture(t)

	w := f.do("ak_service", "sig", time.Now().Add(-2*time.Minute).Unix(), "nonce123", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServiceAuth_ReplayedNonce(t *testing.T) {
	f := newServiceAuthFixture(t)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_service", "replayed", nonceTTL).Return(false, nil)

	w := f.do("ak_service", "sig", time.Now().Unix(), "replayed", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServiceAuth_ValidSignature(t *testing.T) {
	f := newServiceAuthFixture(t)
	ts := time.Now().Unix()
	body := `{"amount":12000}`

	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_service", "nonce-ok", nonceTTL).Return(true, nil)
	f.sigSvc.EXPECT().BuildCanonicalString("POST", "/test", ts, "nonce-ok", body).Return("canonical")
	f.sigSvc.EXPECT().Verify("raw_secret", "canonical", "valid_sig").Return(true)

	w := f.do("ak_service", "valid_sig", ts, "nonce-ok", bytes.NewBufferString(body))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceAuth_ForgedSignature(t *testing.T) {
	f := newServiceAuthFixture(t)
	ts := time.Now().Unix()

	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_service", "nonce-ok", nonceTTL).Return(true, nil)
	f.sigSvc.EXPECT().BuildCanonicalString("POST", "/test", ts, "nonce-ok", "").Return("canonical")
	f.sigSvc.EXPECT().Verify("raw_secret", "canonical", "forged_sig").Return(false)

	w := f.do("ak_service", "forged_sig", ts, "nonce-ok", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuth_NonceStoreDownDegradesOpen(t *testing.T) {
	f := newServiceAuthFixture(t)
	ts := time.Now().Unix()

	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_service", "n1", nonceTTL).Return(false, assert.AnError)
	f.sigSvc.EXPECT().BuildCanonicalString("POST", "/test", ts, "n1", "").Return("canonical")
	f.sigSvc.EXPECT().Verify("raw_secret", "canonical", "sig").Return(true)

	w := f.do("ak_service", "sig", ts, "n1", nil)

	assert.Equal(t, http.StatusOK, w.Code, "store failure must not block signed traffic")
}

func jwtRouter(t *testing.T) (*gin.Engine, *mocks.MockTokenService, *uuid.UUID) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	captured := new(uuid.UUID)
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		if id, ok := c.Get(CtxCaregiverID); ok {
			*captured = id.(uuid.UUID)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, tokenSvc, captured
}

func TestJWTAuth_NoAuthorizationHeader(t *testing.T) {
	router, _, _ := jwtRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RejectedToken(t *testing.T) {
	router, tokenSvc, _ := jwtRouter(t)
	tokenSvc.EXPECT().Validate("bad_token").Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_SetsCaregiverIdentity(t *testing.T) {
	router, tokenSvc, captured := jwtRouter(t)
	caregiverID := uuid.New()
	tokenSvc.EXPECT().Validate("good_token").Return(&ports.TokenClaims{
		CaregiverID: caregiverID,
		Username:    "asha",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, caregiverID, *captured)
}

func TestRecovery_TurnsPanicInto500(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_000", resp["error_code"])
}
