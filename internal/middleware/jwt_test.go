package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/freetravelapp/freetravel-server/internal/utils"
)

func run(mw echo.MiddlewareFunc, authz string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec, c
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec, _ := run(JWTAuth("secret"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthGarbageToken(t *testing.T) {
	rec, _ := run(JWTAuth("secret"), "Bearer not.a.jwt")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, false, 60)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	rec, _ := run(JWTAuth("secret"), "Bearer "+at.Token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken("secret", 7, true, 60)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	rec, c := run(JWTAuth("secret"), "Bearer "+at.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if id, ok := c.Get("user_id").(uint64); !ok || id != 7 {
		t.Errorf("user_id = %v", c.Get("user_id"))
	}
	if adm, ok := c.Get("is_admin").(bool); !ok || !adm {
		t.Errorf("is_admin = %v", c.Get("is_admin"))
	}
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()

	for _, tc := range []struct {
		admin any
		want  int
	}{
		{true, http.StatusOK},
		{false, http.StatusForbidden},
		{nil, http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodPatch, "/v1/reports/1/status", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if tc.admin != nil {
			c.Set("is_admin", tc.admin)
		}
		handler := RequireAdmin()(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		_ = handler(c)
		if rec.Code != tc.want {
			t.Errorf("admin=%v: status = %d, want %d", tc.admin, rec.Code, tc.want)
		}
	}
}
