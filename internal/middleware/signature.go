package middleware

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/config"
	"contentgate/api/internal/security"
)

func NewReadCloser(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}

// Signature authenticates internal callbacks signed with the shared HMAC secret. Each nonce
// is accepted once within the skew window.
func Signature(cfg config.SecurityConfig, redisClient *redis.Client) gin.HandlerFunc {
	skew := cfg.SignatureSkew
	if skew <= 0 {
		skew = 5 * time.Minute
	}

	return func(c *gin.Context) {
		headers, err := security.ExtractSignatureHeaders(c.Request.Header)
		if err != nil {
			abort(c, apperr.KindUnauthorized, "signature_required", "signed request required")
			return
		}
		if headers.KeyID != cfg.SignatureKeyID {
			abort(c, apperr.KindUnauthorized, "unknown_key", "unknown signing key")
			return
		}

		requestTime, err := time.Parse(time.RFC3339, headers.Date)
		if err != nil {
			abort(c, apperr.KindUnauthorized, "invalid_date", "signature date must be RFC 3339")
			return
		}
		if time.Since(requestTime) > skew || time.Until(requestTime) > skew {
			abort(c, apperr.KindUnauthorized, "request_expired", "signature date outside allowed window")
			return
		}

		rawBody, err := c.GetRawData()
		if err != nil {
			abort(c, apperr.KindValidation, "invalid_body", "request body could not be read")
			return
		}
		c.Request.Body = NewReadCloser(rawBody)

		path, query := security.CanonicalPath(c.Request)
		valid := security.ValidateSignature(
			cfg.SignatureSecret,
			headers.KeyID,
			headers.Signature,
			c.Request.Method,
			path,
			query,
			rawBody,
			headers.Date,
			headers.Nonce,
		)
		if !valid {
			abort(c, apperr.KindUnauthorized, "invalid_signature", "signature does not match")
			return
		}

		nonceKey := fmt.Sprintf("sig:%s:%s", headers.KeyID, headers.Nonce)
		fresh, err := redisClient.SetNX(c.Request.Context(), nonceKey, "1", 2*skew).Result()
		if err != nil {
			AbortWithError(c, fmt.Errorf("record nonce: %w", err))
			return
		}
		if !fresh {
			abort(c, apperr.KindConflict, "replay_detected", "nonce already used")
			return
		}

		c.Next()
	}
}
