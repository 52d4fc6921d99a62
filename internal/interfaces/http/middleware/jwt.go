package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/infrastructure/auth"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
)

// BearerPrefix starts the Authorization header of operator requests
const BearerPrefix = "Bearer "

const claimsKey = "jwt_claims"

var errNoBearer = errors.New("missing bearer token")

// TokenValidator checks an operator token
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and stores its claims on the context.
// log may be nil.
func Authenticate(tokens TokenValidator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), BearerPrefix)
		var (
			claims *auth.Claims
			err    = errNoBearer
		)
		if ok && raw != "" {
			claims, err = tokens.ValidateToken(raw)
		}
		if err != nil {
			log.Warn("Operator authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", getRequestID(c)),
			)
			code, msg := authFailure(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Failure(code, msg, getRequestID(c)))
			return
		}

		c.Set(claimsKey, claims)
		ctx, _ := logger.WithSubject(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, errNoBearer):
		return dto.ErrCodeUnauthorized, "Authentication required"
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token is not yet valid"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}

// RequireScope rejects tokens without scope. Authenticate must run first.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		switch {
		case claims == nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Failure(
				dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
		case !claims.HasScope(scope):
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Failure(
				dto.ErrCodeForbidden, "Token lacks scope "+scope, getRequestID(c)))
		default:
			c.Next()
		}
	}
}

// Claims returns the claims stored by Authenticate, or nil
func Claims(c *gin.Context) *auth.Claims {
	claims, _ := c.Value(claimsKey).(*auth.Claims)
	return claims
}

// Subject returns the authenticated token subject, or ""
func Subject(c *gin.Context) string {
	if claims := Claims(c); claims != nil {
		return claims.Subject
	}
	return ""
}
