// Package auth verifies HS256 bearer tokens and carries the resulting principal in the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zoobzio/clockz"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

const (
	Issuer   = "salesscope-api"
	Audience = "salesscope-web"

	DefaultAccessTTL = 15 * time.Minute
)

type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
}

func (c *Claims) Principal() domain.Principal {
	return domain.Principal{
		UserID:         c.UserID,
		Email:          c.Email,
		OrganizationID: c.OrganizationID,
		Role:           c.Role,
	}
}

// TokenService signs and verifies access tokens with a shared secret.
type TokenService struct {
	secret []byte
	clock  clockz.Clock
}

func NewTokenService(secret string, clock clockz.Clock) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt access secret is required")
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &TokenService{secret: []byte(secret), clock: clock}, nil
}

// Issue signs an access token for p valid for ttl.
func (s *TokenService) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	now := s.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:         p.UserID,
		Email:          p.Email,
		OrganizationID: p.OrganizationID,
		Role:           p.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience and expiry. Every failure is ErrUnauthorized.
func (s *TokenService) Verify(token string) (domain.Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", err)
	}
	if claims.UserID == "" || claims.OrganizationID == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token lacks user or organization"))
	}
	return claims.Principal(), nil
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(domain.Principal)
	return p, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid bearer token through onError and
// stores the verified principal in the request context otherwise.
func Middleware(tokens *TokenService, onError func(http.ResponseWriter, *http.Request, error), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			onError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing bearer token")))
			return
		}
		principal, err := tokens.Verify(token)
		if err != nil {
			onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
