package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	// ErrMissingToken is returned when the request has no bearer token.
	ErrMissingToken = errors.New("no token provided")

	// ErrForbidden is returned when the token's role is not allowed.
	ErrForbidden = errors.New("insufficient permissions")
)

type claimsKey struct{}

const echoClaimsKey = "auth.claims"

// CORS headers written by Gate on every response, including rejections.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	AllowHeaders = "Content-Type, Authorization"
)

// SetCORSHeaders writes the permissive CORS headers used by the API.
func SetCORSHeaders(h http.Header) {
	h.Set(echo.HeaderAccessControlAllowOrigin, AllowOrigin)
	h.Set(echo.HeaderAccessControlAllowMethods, AllowMethods)
	h.Set(echo.HeaderAccessControlAllowHeaders, AllowHeaders)
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Gate returns middleware that admits requests carrying a valid token whose
// role is in roles (any role when roles is empty). CORS headers are set
// before any other check; preflight requests are answered with 200.
func Gate(codec *Codec, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetCORSHeaders(c.Response().Header())

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}

			token, err := BearerToken(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized").SetInternal(err)
			}
			claims, err := codec.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token").SetInternal(err)
			}
			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden").SetInternal(ErrForbidden)
			}

			c.Set(echoClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims attached by Gate, from either the echo
// context or the request context.
func ClaimsFrom(c echo.Context) (Claims, bool) {
	if claims, ok := c.Get(echoClaimsKey).(Claims); ok {
		return claims, true
	}
	return ClaimsFromContext(c.Request().Context())
}

// ClaimsFromContext returns claims stored with WithClaims.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}
