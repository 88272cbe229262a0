package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

func testVerifier(t *testing.T) Verifier {
	t.Helper()
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return Verifier{Username: "admin", PasswordHash: hash}
}

func TestVerifyCredentials(t *testing.T) {
	v := testVerifier(t)

	claims, err := v.VerifyCredentials("admin", "correct horse")
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if claims.UserID != AdminID || claims.Username != "admin" || claims.Role != RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerifyCredentialsDoesNotDistinguishFailures(t *testing.T) {
	v := testVerifier(t)

	_, wrongUser := v.VerifyCredentials("root", "correct horse")
	_, wrongPass := v.VerifyCredentials("admin", "battery staple")

	if !errors.Is(wrongUser, ErrInvalidCredentials) || !errors.Is(wrongPass, ErrInvalidCredentials) {
		t.Fatalf("errors = %v / %v", wrongUser, wrongPass)
	}
	if wrongUser.Error() != wrongPass.Error() {
		t.Errorf("unknown user and wrong password must look identical")
	}
}

func TestVerifyCredentialsRequiresBoth(t *testing.T) {
	v := testVerifier(t)
	for _, pair := range [][2]string{{"", "x"}, {"admin", ""}} {
		if _, err := v.VerifyCredentials(pair[0], pair[1]); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("VerifyCredentials(%q, %q) = %v", pair[0], pair[1], err)
		}
	}
}

func TestVerifyCredentialsUnconfiguredHash(t *testing.T) {
	v := Verifier{Username: "admin"}
	if _, err := v.VerifyCredentials("admin", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("", 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
	c, err := NewCodec("s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.TTL() != DefaultTokenTTL {
		t.Errorf("TTL = %v", c.TTL())
	}
}

func TestTokenRoundTrip(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	in := Claims{UserID: AdminID, Username: "admin", Role: RoleAdmin}

	token, expires, err := codec.Issue(in)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 59*time.Minute {
		t.Errorf("expires = %v", expires)
	}

	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.UserID != in.UserID || got.Username != in.Username || got.Role != in.Role {
		t.Errorf("claims = %+v", got)
	}
}

func TestTokenExpiry(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	codec, _ := NewCodec("test-secret", 24*time.Hour)
	codec = codec.WithClock(func() time.Time { return now })

	token, _, err := codec.Issue(Claims{UserID: AdminID, Username: "admin", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}

	now = base.Add(23 * time.Hour)
	if _, err := codec.Verify(token); err != nil {
		t.Errorf("token should be valid before expiry: %v", err)
	}

	now = base.Add(24*time.Hour + time.Second)
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTokenRejections(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	other, _ := NewCodec("other-secret", time.Hour)

	foreign, _, _ := other.Issue(Claims{UserID: AdminID, Role: RoleAdmin})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: AdminID,
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: AdminID, Role: RoleAdmin})
	forever, _ := noExpiry.SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", foreign},
		{"alg none", unsigned},
		{"no expiry", forever},
		{"malformed", "not.a.token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set(echo.HeaderAuthorization, tt.header)
		}
		got, err := BearerToken(req)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func gateServer(t *testing.T, codec *Codec, roles ...string) *echo.Echo {
	t.Helper()
	e := echo.New()
	g := e.Group("/admin", Gate(codec, roles...))
	handler := func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no claims")
		}
		if ctxClaims, ok := ClaimsFromContext(c.Request().Context()); !ok || ctxClaims.Username != claims.Username {
			return c.String(http.StatusInternalServerError, "no request claims")
		}
		return c.String(http.StatusOK, claims.Username)
	}
	g.GET("/ping", handler)
	g.OPTIONS("/ping", handler)
	return e
}

func serve(e *echo.Echo, method, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/admin/ping", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGate(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	admin, _, _ := codec.Issue(Claims{UserID: AdminID, Username: "admin", Role: RoleAdmin})
	viewer, _, _ := codec.Issue(Claims{UserID: "2", Username: "viewer", Role: "viewer"})
	roleless, _, _ := codec.Issue(Claims{UserID: "9", Username: "x"})

	e := gateServer(t, codec, RoleAdmin)

	tests := []struct {
		name   string
		method string
		auth   string
		want   int
	}{
		{"valid admin", http.MethodGet, "Bearer " + admin, http.StatusOK},
		{"preflight", http.MethodOptions, "", http.StatusOK},
		{"no header", http.MethodGet, "", http.StatusUnauthorized},
		{"malformed header", http.MethodGet, "Token " + admin, http.StatusUnauthorized},
		{"invalid token", http.MethodGet, "Bearer garbage", http.StatusUnauthorized},
		{"wrong role", http.MethodGet, "Bearer " + viewer, http.StatusForbidden},
		{"no role", http.MethodGet, "Bearer " + roleless, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.auth)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q", got)
			}
			if !strings.Contains(rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "Authorization") {
				t.Errorf("Access-Control-Allow-Headers = %q", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
			}
		})
	}
}

func TestGateWithoutRolesAcceptsAnyValidToken(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	viewer, _, _ := codec.Issue(Claims{UserID: "2", Username: "viewer", Role: "viewer"})

	rec := serve(gateServer(t, codec), http.MethodGet, "Bearer "+viewer)
	if rec.Code != http.StatusOK || rec.Body.String() != "viewer" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestVerifyKeepsMissingRoleEmpty(t *testing.T) {
	codec, _ := NewCodec("test-secret", time.Hour)
	token, _, err := codec.Issue(Claims{UserID: "9", Username: "x"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != "" {
		t.Errorf("Role = %q, want empty", claims.Role)
	}
}
