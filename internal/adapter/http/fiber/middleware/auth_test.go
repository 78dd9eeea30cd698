package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	valid := signToken(t, secret, jwt.RegisteredClaims{
		Subject:   "operator",
		Issuer:    "alfa-voz",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, secret, jwt.RegisteredClaims{
		Issuer:    "alfa-voz",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongIssuer := signToken(t, secret, jwt.RegisteredClaims{Issuer: "other"})
	wrongKey := signToken(t, "other-secret", jwt.RegisteredClaims{Issuer: "alfa-voz"})

	app := fiber.New()
	app.Use(JWTAuth(secret, "alfa-voz"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("subject").(string))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, fiber.StatusOK},
		{"missing", "", fiber.StatusUnauthorized},
		{"bad format", "Token " + valid, fiber.StatusUnauthorized},
		{"expired", "Bearer " + expired, fiber.StatusUnauthorized},
		{"wrong issuer", "Bearer " + wrongIssuer, fiber.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestJWTAuth_QueryToken(t *testing.T) {
	const secret = "test-secret"
	valid := signToken(t, secret, jwt.RegisteredClaims{
		Subject:   "panel",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	app := fiber.New()
	app.Use(JWTAuth(secret, ""))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("subject").(string))
	})

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"query token", "/?access_token=" + valid, "", fiber.StatusOK},
		{"bad query token", "/?access_token=garbage", "", fiber.StatusUnauthorized},
		{"header wins over query", "/?access_token=" + valid, "Bearer garbage", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestJWTAuth_DisabledWithoutSecret(t *testing.T) {
	app := fiber.New()
	app.Use(JWTAuth("", ""))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
