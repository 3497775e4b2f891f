package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tutordesk/backend/pkg/utils"
)

const testSecret = "middleware-secret"

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Use(AuthRequired(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("role")})
	})
	return app
}

func statusFor(t *testing.T, app *fiber.App, authorization string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestAuthRequired(t *testing.T) {
	valid, err := utils.GenerateToken(uuid.NewString(), "admin", testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	unknownRole, _ := utils.GenerateToken(uuid.NewString(), "student", testSecret)
	numericID, _ := utils.GenerateToken("42", "teacher", testSecret)
	otherSecret, _ := utils.GenerateToken(uuid.NewString(), "owner", "another-secret")

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid token", header: "Bearer " + valid, status: http.StatusOK},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + valid, status: http.StatusUnauthorized},
		{name: "unknown role", header: "Bearer " + unknownRole, status: http.StatusUnauthorized},
		{name: "non uuid subject", header: "Bearer " + numericID, status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + otherSecret, status: http.StatusUnauthorized},
	}

	app := newAuthApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(t, app, tt.header); got != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, got)
			}
		})
	}
}

func TestTokenFromRequestPrefersQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/ws", func(c *fiber.Ctx) error {
		return c.SendString(TokenFromRequest(c))
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   string
	}{
		{name: "query", path: "/ws?token=from-query", header: "Bearer from-header", want: "from-query"},
		{name: "header", path: "/ws", header: "Bearer from-header", want: "from-header"},
		{name: "none", path: "/ws", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			if got := string(buf[:n]); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(RequestTimeout(20 * time.Millisecond))
	app.Get("/slow", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if _, ok := ctx.Deadline(); !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return c.SendStatus(fiber.StatusGatewayTimeout)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil), 2000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
}
