package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"order-handoff/internal/models"

	"github.com/labstack/echo/v4"
)

func handlerContext(t *testing.T, method, target, body, userID, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("orderId")
	c.SetParamValues("order-1")
	if userID != "" {
		c.Set("userID", userID)
		c.Set("userRole", role)
	}
	return c, rec
}

// A validly-authenticated stranger must not be able to mint codes for an
// order they have no part in. The response is a plain 404 with no hint the
// order exists, and no plaintext ever leaves the service.
func TestGeneratePasscodesHandlerRejectsStranger(t *testing.T) {
	f := newFixture(t, deliveryOrder(models.StatusAwaitingPickup))
	h := NewHandler(f.svc)
	c, rec := handlerContext(t, http.MethodPost, "/orders/order-1/passcodes", "", "total-stranger", models.RoleConsumer)

	if err := h.GeneratePasscodes(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != models.CodeNotFound {
		t.Fatalf("wire code = %q, want %q", resp.Code, models.CodeNotFound)
	}
	if strings.Contains(rec.Body.String(), "pickup_code") {
		t.Fatal("response leaked plaintext codes")
	}
	if _, stored := f.repo.pairs["order-1"]; stored {
		t.Fatal("pair minted despite the rejection")
	}
}

func TestGeneratePasscodesHandlerIssuesForParty(t *testing.T) {
	f := newFixture(t, deliveryOrder(models.StatusAwaitingPickup))
	h := NewHandler(f.svc)
	c, rec := handlerContext(t, http.MethodPost, "/orders/order-1/passcodes", "", "business-1", models.RoleBusiness)

	if err := h.GeneratePasscodes(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var pair models.PasscodePair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pair.PickupCode) != 6 {
		t.Fatalf("issuing party should receive the plaintext pair, got %+v", pair)
	}
}

// Without an identity the handler must stop before the service runs, not
// write a 401 and then mint codes anyway.
func TestGeneratePasscodesHandlerStopsWithoutIdentity(t *testing.T) {
	f := newFixture(t, deliveryOrder(models.StatusAwaitingPickup))
	h := NewHandler(f.svc)
	c, _ := handlerContext(t, http.MethodPost, "/orders/order-1/passcodes", "", "", "")

	if err := h.GeneratePasscodes(c); err == nil {
		t.Fatal("handler must fail without an authenticated user")
	}
	if _, stored := f.repo.pairs["order-1"]; stored {
		t.Fatal("service ran after the authentication failure")
	}
}

func TestVerifyPickupHandlerForbiddenRole(t *testing.T) {
	f := newFixture(t, deliveryOrder(models.StatusAwaitingPickup)).withEvidence(models.PasscodePickup)
	pair, _ := f.svc.Issue(context.Background(), "order-1", "consumer-1", models.RoleConsumer)
	h := NewHandler(f.svc)

	body := `{"code":"` + pair.PickupCode + `"}`
	c, rec := handlerContext(t, http.MethodPost, "/orders/order-1/verify/pickup", body, "consumer-1", models.RoleConsumer)

	if err := h.VerifyPickup(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != models.CodeForbidden {
		t.Fatalf("wire code = %q, want %q", resp.Code, models.CodeForbidden)
	}
	if len(f.repo.releases) != 0 {
		t.Fatal("escrow moved for a wrong-role caller")
	}
}
