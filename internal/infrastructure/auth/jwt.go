package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erp/syncengine/internal/infrastructure/config"
)

// Scopes granted to operator tokens
const (
	ScopeRead  = "sync:read"
	ScopeWrite = "sync:write"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
	ErrMissingSecret    = errors.New("jwt secret is not configured")
)

// Claims represents the claims of an operator token
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope checks if the claims grant a scope. Write access implies read access.
func (c *Claims) HasScope(scope string) bool {
	if slices.Contains(c.Scopes, scope) {
		return true
	}
	return scope == ScopeRead && slices.Contains(c.Scopes, ScopeWrite)
}

// GetExpiresAtTime returns the token's expiration time as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// Token is a signed operator token
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"` // Bearer
}

// JWTService issues and validates HS256 tokens for the admin API
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	expiration := cfg.Expiration
	if expiration <= 0 {
		expiration = time.Hour
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// GenerateToken signs a token for subject. A zero ttl uses the configured expiration.
func (s *JWTService) GenerateToken(subject string, scopes []string, ttl time.Duration) (*Token, error) {
	if subject == "" {
		return nil, ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = s.expiration
	}

	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Scopes: scopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		ExpiresAt:   now.Add(ttl),
		TokenType:   "Bearer",
	}, nil
}

// ValidateToken validates a token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// Expiration returns the default token lifetime
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
