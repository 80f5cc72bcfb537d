package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// The JWT secret is latched on first use, so every test in this package
// shares the value set here.
func TestMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	userID := uuid.New()
	token, err := generateToken(userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	handler := Middleware(func(c echo.Context) error {
		got, err := GetUserIDFromContext(c)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if got != userID {
			t.Errorf("user id = %s, want %s", got, userID)
		}
		return c.NoContent(http.StatusOK)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"malformed header", "Bearer"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			err := handler(e.NewContext(req, rec))
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTP error, got %v", err)
			}
			if httpErr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d", httpErr.Code)
			}
		})
	}
}

func TestGetUserIDFromContextMissing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := GetUserIDFromContext(c); err == nil {
		t.Fatal("expected error when no user is set")
	}
}
