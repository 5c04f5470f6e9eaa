package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func testContext(t *testing.T) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestExtractUserInfo(t *testing.T) {
	c := testContext(t)
	c.Set("userID", "user-1")
	c.Set("userRole", "courier")

	userID, role, err := ExtractUserInfo(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-1" || role != "courier" {
		t.Fatalf("got (%q, %q), want (user-1, courier)", userID, role)
	}
}

// A token without a userID claim must stop the handler. The error has to be
// non-nil so the usual "if err != nil { return err }" guard actually fires
// instead of letting the mutation run after a 401 was already written.
func TestExtractUserInfoMissingIdentity(t *testing.T) {
	c := testContext(t)

	_, _, err := ExtractUserInfo(c)
	if err == nil {
		t.Fatal("expected an error for a context without userID")
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", he.Code)
	}
}

func TestExtractUserInfoIgnoresRoleOnlyContext(t *testing.T) {
	c := testContext(t)
	c.Set("userRole", "business")

	if _, _, err := ExtractUserInfo(c); err == nil {
		t.Fatal("role without userID must not authenticate")
	}
}
