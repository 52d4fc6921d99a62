package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/syncengine/internal/infrastructure/auth"
	"github.com/erp/syncengine/internal/infrastructure/config"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
)

const testJWTSecret = "test-secret-key-at-least-32-chars"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(t *testing.T) *auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.JWTConfig{
		Secret:     testJWTSecret,
		Issuer:     "syncengine",
		Expiration: 15 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func newTestToken(t *testing.T, svc *auth.JWTService, scopes ...string) string {
	t.Helper()
	token, err := svc.GenerateToken("ops@example.com", scopes, 0)
	require.NoError(t, err)
	return token.AccessToken
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := newTestJWTService(t)

	router := gin.New()
	router.Use(Authenticate(svc, nil))
	router.GET("/api/v1/sync/records", func(c *gin.Context) {
		claims := Claims(c)
		require.NotNil(t, claims)
		assert.Equal(t, "ops@example.com", claims.Subject)
		assert.Equal(t, "ops@example.com", Subject(c))
		assert.Equal(t, "ops@example.com", logger.GetSubject(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/records", nil)
	req.Header.Set("Authorization", BearerPrefix+newTestToken(t, svc, auth.ScopeRead))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	svc := newTestJWTService(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			Issuer:    "syncengine",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeUnauthorized},
		{"empty token", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer invalid-token", dto.ErrCodeTokenInvalid},
		{"expired token", "Bearer " + expired, dto.ErrCodeTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.WarnLevel)
			router := gin.New()
			router.Use(RequestID(), Authenticate(svc, zap.New(core)))
			router.GET("/api/v1/sync/runs", func(c *gin.Context) {
				t.Fatal("handler must not run")
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.ErrorMessage)
			assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)
			assert.Equal(t, 1, recorded.FilterMessage("Operator authentication failed").Len())
		})
	}
}

func TestRequireScope(t *testing.T) {
	svc := newTestJWTService(t)

	tests := []struct {
		name   string
		scopes []string
		scope  string
		status int
	}{
		{"read token on read route", []string{auth.ScopeRead}, auth.ScopeRead, http.StatusOK},
		{"write token on read route", []string{auth.ScopeWrite}, auth.ScopeRead, http.StatusOK},
		{"read token on write route", []string{auth.ScopeRead}, auth.ScopeWrite, http.StatusForbidden},
		{"no scopes", nil, auth.ScopeRead, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(Authenticate(svc, nil))
			router.POST("/api/v1/sync/retry", RequireScope(tt.scope), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/retry", nil)
			req.Header.Set("Authorization", BearerPrefix+newTestToken(t, svc, tt.scopes...))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, rec).Code)
			}
		})
	}
}

func TestRequireScope_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequireScope(auth.ScopeRead), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaims_NotFound(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, Claims(c))
	assert.Empty(t, Subject(c))

	c.Set(claimsKey, "not claims")
	assert.Nil(t, Claims(c))
}
