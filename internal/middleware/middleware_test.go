package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/config"
	"contentgate/api/internal/models"
	"contentgate/api/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator map[string]*models.Principal

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*models.Principal, *security.AccessClaims, error) {
	principal, ok := s[token]
	if !ok {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "invalid_session", "session is invalid or expired")
	}
	return principal, &security.AccessClaims{AccountID: principal.AccountID}, nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func whoami(c *gin.Context) {
	principal := PrincipalFrom(c)
	if principal == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, principal.AccountID)
}

func TestAuth(t *testing.T) {
	auth := stubAuthenticator{"good": {AccountID: "acc-1", Role: models.AccountRoleUser}}
	router := gin.New()
	router.GET("/me", Auth(auth), whoami)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", decodeError(t, rec).Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_session", decodeError(t, rec).Error.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = serve(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	auth := stubAuthenticator{"good": {AccountID: "acc-1"}}
	router := gin.New()
	router.GET("/content", OptionalAuth(auth), whoami)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/content", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/content", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	auth := stubAuthenticator{
		"user":  {AccountID: "acc-1", Role: models.AccountRoleUser},
		"admin": {AccountID: "acc-2", Role: models.AccountRoleAdmin},
	}
	router := gin.New()
	router.POST("/admin", Auth(auth), RequireRoles(models.AccountRoleAdmin), whoami)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer user")
	rec := serve(router, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec = serve(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAbortWithErrorHidesInternalDetails(t *testing.T) {
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, errors.New("pq: connection refused"))
	})
	router.GET("/gone", func(c *gin.Context) {
		AbortWithError(c, apperr.New(apperr.KindExpired, "otp_expired", "verification code has expired"))
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Error.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "otp_expired", decodeError(t, rec).Error.Code)
}

var signatureConfig = config.SecurityConfig{
	SignatureSecret: "callback-secret",
	SignatureKeyID:  "payments",
	SignatureSkew:   5 * time.Minute,
}

func signedRequest(t *testing.T, keyID, nonce string, date time.Time, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/p1/confirm", strings.NewReader(body))
	stamp := date.UTC().Format(time.RFC3339)
	sig := security.ComputeSignature(signatureConfig.SignatureSecret, keyID, http.MethodPost, "/payments/p1/confirm", "", security.ComputeBodyHash([]byte(body)), stamp, nonce)
	req.Header.Set(security.HeaderKeyID, keyID)
	req.Header.Set(security.HeaderDate, stamp)
	req.Header.Set(security.HeaderNonce, nonce)
	req.Header.Set(security.HeaderSignature, sig)
	return req
}

func TestSignature(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := gin.New()
	router.POST("/payments/:id/confirm", Signature(signatureConfig, client), func(c *gin.Context) {
		body, err := c.GetRawData()
		require.NoError(t, err)
		c.String(http.StatusOK, string(body))
	})

	body := `{"externalOrderId":"pi_1","succeeded":true}`

	rec := serve(router, signedRequest(t, "payments", "n-1", time.Now(), body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String(), "body must be readable after verification")

	rec = serve(router, signedRequest(t, "payments", "n-1", time.Now(), body))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "replay_detected", decodeError(t, rec).Error.Code)

	rec = serve(router, signedRequest(t, "other", "n-2", time.Now(), body))
	assert.Equal(t, "unknown_key", decodeError(t, rec).Error.Code)

	rec = serve(router, signedRequest(t, "payments", "n-3", time.Now().Add(-10*time.Minute), body))
	assert.Equal(t, "request_expired", decodeError(t, rec).Error.Code)

	tampered := signedRequest(t, "payments", "n-4", time.Now(), body)
	tampered.Body = NewReadCloser([]byte(`{"externalOrderId":"pi_2","succeeded":true}`))
	rec = serve(router, tampered)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_signature", decodeError(t, rec).Error.Code)

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/payments/p1/confirm", strings.NewReader(body)))
	assert.Equal(t, "signature_required", decodeError(t, rec).Error.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/x", whoami)

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := serve(router, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = serve(router, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithoutConfiguredOrigins(t *testing.T) {
	router := gin.New()
	router.Use(CORS(nil))
	router.GET("/x", whoami)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := serve(router, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Request-Id", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := serve(router, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "has space")
	rec = serve(router, req)
	assert.NotEqual(t, "has space", rec.Body.String())
	assert.Len(t, rec.Body.String(), 36)
}

func TestRecoveryWritesInternalError(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery(zerolog.Nop()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Error.Code)
}
