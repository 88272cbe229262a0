package committee

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wa-psh/committee/auth"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type sessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      sessionUser `json:"user"`
}

func userOf(claims auth.Claims) sessionUser {
	return sessionUser{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
}

// handleLogin exchanges the admin credential for a session token.
func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	claims, err := a.Verifier.VerifyCredentials(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrMissingCredentials) {
			a.loginLimiter.Record(ip)
			c.Logger().Warnf("login: failed attempt for %q from %s", req.Username, ip)
		}
		return err
	}
	a.loginLimiter.Reset(ip)

	token, expires, err := a.Codec.Issue(claims)
	if err != nil {
		return err
	}
	c.Logger().Infof("login: %s signed in from %s", claims.Username, ip)
	return ok(c, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
		User:      userOf(claims),
	}, "Login successful")
}

// handleVerify reports the identity carried by a valid token. The gate has
// already rejected missing and invalid tokens.
func (a *App) handleVerify(c echo.Context) error {
	claims, found := auth.ClaimsFrom(c)
	if !found {
		return auth.ErrMissingToken
	}
	return ok(c, http.StatusOK, map[string]sessionUser{"user": userOf(claims)}, "Token is valid")
}
