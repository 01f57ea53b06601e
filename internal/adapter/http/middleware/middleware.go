package middleware

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trust-ledger/config"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"
	"trust-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderAccessKey = "X-Access-Key"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"

	CtxCaregiverID = "caregiver_id"
	CtxUsername    = "username"

	maxTimestampDrift = 60 * time.Second
	nonceTTL          = 120 * time.Second
)

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}

// ServiceAuth verifies HMAC-SHA256 signed requests from the transaction
// orchestrator. The credential is a single shared key pair from
// deployment configuration; no per-user auth happens on the money path.
// Order: access key, timestamp drift, nonce replay, signature.
func ServiceAuth(
	cfg config.ServiceAuthConfig,
	sigSvc ports.SignatureService,
	nonceStore ports.NonceStore,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessKey := c.GetHeader(HeaderAccessKey)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)
		if accessKey == "" || signature == "" || timestampStr == "" || nonce == "" {
			abort(c, apperror.ErrInvalidSignature())
			return
		}

		if subtle.ConstantTimeCompare([]byte(accessKey), []byte(cfg.AccessKey)) != 1 {
			abort(c, apperror.ErrInvalidSignature())
			return
		}

		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil || outsideDriftWindow(timestamp) {
			abort(c, apperror.ErrTimestampExpired())
			return
		}

		// Degrade open on store errors: a signed request is not refused
		// just because the nonce store is down.
		fresh, err := nonceStore.CheckAndSet(c.Request.Context(), accessKey, nonce, nonceTTL)
		if err != nil {
			log.Warn().Err(err).Msg("nonce store error, allowing request")
		} else if !fresh {
			abort(c, apperror.ErrNonceUsed())
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abort(c, apperror.Validation("cannot read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		canonical := sigSvc.BuildCanonicalString(c.Request.Method, c.Request.URL.Path, timestamp, nonce, string(body))
		if !sigSvc.Verify(cfg.Secret, canonical, signature) {
			abort(c, apperror.ErrInvalidSignature())
			return
		}

		c.Next()
	}
}

func outsideDriftWindow(timestamp int64) bool {
	drift := time.Now().Unix() - timestamp
	if drift < 0 {
		drift = -drift
	}
	return drift > int64(maxTimestampDrift.Seconds())
}

// JWTAuth validates the Bearer token on dashboard routes and stores
// the caregiver identity in the request context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			abort(c, apperror.ErrInvalidToken())
			return
		}

		c.Set(CtxCaregiverID, claims.CaregiverID)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// RequestLogger logs one line per request, at warn for 4xx and error
// for 5xx.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery turns panics into opaque 500 responses instead of dropped
// connections.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_000",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize caps the request body. Reads past the cap fail and the
// request is rejected.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
