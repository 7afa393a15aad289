package identity

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

func readErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		t.Fatalf("unmarshal body %q: %v", string(bodyBytes), err)
	}
	return body.Error.Code
}

func TestRequireAuthNoHeader(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Use(RequireAuth("secret"))
	app.Get("/test", func(c fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
	if code := readErrorCode(t, resp); code != "unauthorized" {
		t.Errorf("error code = %q, want %q", code, "unauthorized")
	}
}

func TestRequireAuthBadFormat(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Use(RequireAuth("secret"))
	app.Get("/test", func(c fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	secret := "test-secret"
	app.Use(RequireAuth(secret))
	app.Get("/test", func(c fiber.Ctx) error { return c.SendStatus(200) })

	tokenStr, err := NewToken(Identity{UserID: uuid.New()}, secret, -time.Second)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestRequireAuthValid(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	secret := "test-secret"
	id := Identity{UserID: uuid.New(), PrimaryEmail: "ada@example.com", VerifiedEmails: []string{"ada@example.com"}}

	app.Use(RequireAuth(secret))
	app.Get("/test", func(c fiber.Ctx) error {
		got, ok := FromContext(c)
		if !ok {
			return c.Status(500).SendString("identity not found in locals")
		}
		return c.SendString(got.UserID.String())
	})

	tokenStr, err := NewToken(id, secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	if string(bodyBytes) != id.UserID.String() {
		t.Errorf("body = %q, want %q", string(bodyBytes), id.UserID.String())
	}
}

func TestRequireAuthWrongSignature(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Use(RequireAuth("correct-secret"))
	app.Get("/test", func(c fiber.Ctx) error { return c.SendStatus(200) })

	tokenStr, _ := NewToken(Identity{UserID: uuid.New()}, "wrong-secret", 15*time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestOptionalAuthNoHeaderPassesThrough(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Use(OptionalAuth("secret"))
	app.Get("/test", func(c fiber.Ctx) error {
		_, ok := FromContext(c)
		if ok {
			return c.Status(500).SendString("unexpected identity present")
		}
		return c.SendStatus(200)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
}

func TestOptionalAuthValidTokenPopulatesIdentity(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	secret := "test-secret"
	id := Identity{UserID: uuid.New()}

	app.Use(OptionalAuth(secret))
	app.Get("/test", func(c fiber.Ctx) error {
		got, ok := FromContext(c)
		if !ok {
			return c.Status(500).SendString("expected identity present")
		}
		return c.SendString(got.UserID.String())
	})

	tokenStr, err := NewToken(id, secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
}

func TestOptionalAuthInvalidTokenRejected(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Use(OptionalAuth("secret"))
	app.Get("/test", func(c fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}
