package handoff

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"order-handoff/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type fakeIssuer struct {
	pairs   map[string]*models.PasscodePair
	resent  []models.PasscodeKind
	failErr error
}

func (f *fakeIssuer) GeneratePasscodes(ctx context.Context, orderID string) (*models.PasscodePair, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	pair, ok := f.pairs[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return pair, nil
}

func (f *fakeIssuer) ResendPasscode(ctx context.Context, orderID string, kind models.PasscodeKind) (*models.PasscodePair, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.resent = append(f.resent, kind)
	pair := &models.PasscodePair{OrderID: orderID, ExpiresAt: time.Now().Add(2 * time.Hour)}
	switch kind {
	case models.PasscodePickup:
		pair.PickupCode = "NEWPK1"
	case models.PasscodeDelivery:
		pair.DeliveryCode = "NEWDL1"
	}
	return pair, nil
}

func TestStoreGenerateAndRetrieve(t *testing.T) {
	issuer := &fakeIssuer{pairs: map[string]*models.PasscodePair{
		"order-1": {OrderID: "order-1", PickupCode: "AB12CD", DeliveryCode: "XY98ZW", ExpiresAt: time.Now().Add(2 * time.Hour)},
	}}
	store := NewPasscodeStore(issuer, filepath.Join(t.TempDir(), "codes.json"))

	pair, err := store.Generate(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pair.PickupCode != "AB12CD" {
		t.Fatalf("unexpected pickup code %q", pair.PickupCode)
	}

	entry, err := store.Retrieve("order-1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if entry.PickupCode != "AB12CD" || entry.DeliveryCode != "XY98ZW" {
		t.Fatalf("cached entry mismatch: %+v", entry)
	}
}

func TestStoreRetrieveUnknownOrder(t *testing.T) {
	store := NewPasscodeStore(&fakeIssuer{}, filepath.Join(t.TempDir(), "codes.json"))
	if _, err := store.Retrieve("nope"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreGenerateRemoteFailure(t *testing.T) {
	issuer := &fakeIssuer{failErr: models.ErrRemoteUnavailable}
	store := NewPasscodeStore(issuer, filepath.Join(t.TempDir(), "codes.json"))

	_, err := store.Generate(context.Background(), "order-1")
	if !IsRemoteUnavailable(err) {
		t.Fatalf("expected remote-unavailable, got %v", err)
	}
}

func TestStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.json")
	issuer := &fakeIssuer{pairs: map[string]*models.PasscodePair{
		"order-1": {OrderID: "order-1", PickupCode: "AB12CD", DeliveryCode: "XY98ZW", ExpiresAt: time.Now().Add(time.Hour)},
	}}

	first := NewPasscodeStore(issuer, path)
	if _, err := first.Generate(context.Background(), "order-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// A fresh store over the same file sees the cached codes without any
	// network call.
	second := NewPasscodeStore(&fakeIssuer{failErr: models.ErrRemoteUnavailable}, path)
	entry, err := second.Retrieve("order-1")
	if err != nil {
		t.Fatalf("retrieve after reopen: %v", err)
	}
	if entry.PickupCode != "AB12CD" {
		t.Fatalf("expected cached code after reopen, got %+v", entry)
	}
}

func TestStoreOpensEmptyOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.json")
	writeFile(t, path, "{not json")

	store := NewPasscodeStore(&fakeIssuer{}, path)
	if _, err := store.Retrieve("order-1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("corrupt file should start empty, got %v", err)
	}
}

func TestStorePurgeExpired(t *testing.T) {
	store := NewPasscodeStore(&fakeIssuer{}, filepath.Join(t.TempDir(), "codes.json"))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	store.Persist("fresh", &models.PasscodePair{PickupCode: "AAAAAA", DeliveryCode: "BBBBBB", ExpiresAt: base.Add(time.Hour)})
	store.Persist("stale", &models.PasscodePair{PickupCode: "CCCCCC", DeliveryCode: "DDDDDD", ExpiresAt: base.Add(-time.Minute)})
	store.Persist("edge", &models.PasscodePair{PickupCode: "EEEEEE", DeliveryCode: "FFFFFF", ExpiresAt: base})

	// Expiry is inclusive at the boundary instant.
	if removed := store.PurgeExpired(); removed != 2 {
		t.Fatalf("expected 2 purged, got %d", removed)
	}
	if _, err := store.Retrieve("stale"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("stale entry should be gone, got %v", err)
	}
	if _, err := store.Retrieve("fresh"); err != nil {
		t.Fatalf("fresh entry should remain: %v", err)
	}
}

func TestStoreResendKeepsOtherCode(t *testing.T) {
	issuer := &fakeIssuer{pairs: map[string]*models.PasscodePair{
		"order-1": {OrderID: "order-1", PickupCode: "AB12CD", DeliveryCode: "XY98ZW", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	store := NewPasscodeStore(issuer, filepath.Join(t.TempDir(), "codes.json"))

	if _, err := store.Generate(context.Background(), "order-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := store.Resend(context.Background(), "order-1", models.PasscodePickup); err != nil {
		t.Fatalf("resend: %v", err)
	}

	entry, err := store.Retrieve("order-1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if entry.PickupCode != "NEWPK1" {
		t.Fatalf("pickup code not replaced: %q", entry.PickupCode)
	}
	if entry.DeliveryCode != "XY98ZW" {
		t.Fatalf("delivery code should survive a pickup resend: %q", entry.DeliveryCode)
	}
}

func TestStoredPasscodesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := StoredPasscodes{ExpiresAt: now}
	if !entry.Expired(now) {
		t.Fatal("boundary instant should count as expired")
	}
	if entry.Expired(now.Add(-time.Second)) {
		t.Fatal("before the boundary should not be expired")
	}
}
