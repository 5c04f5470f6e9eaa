package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"order-handoff/internal/models"
)

type memRepo struct {
	records map[string]*models.EvidenceRecord // keyed orderID+"/"+proofType
	seq     int
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*models.EvidenceRecord)}
}

func (m *memRepo) Upsert(ctx context.Context, rec *models.EvidenceRecord) error {
	key := rec.OrderID + "/" + string(rec.ProofType)
	if prior, ok := m.records[key]; ok {
		// Mirrors the ON CONFLICT upsert: the row id is stable across
		// retakes, only the content changes.
		rec.ID = prior.ID
	} else {
		m.seq++
		rec.ID = fmt.Sprintf("ev-%d", m.seq)
	}
	rec.CreatedAt = time.Now()
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *memRepo) Find(ctx context.Context, orderID string, proofType models.PasscodeKind) (*models.EvidenceRecord, error) {
	rec, ok := m.records[orderID+"/"+string(proofType)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRepo) HasEvidence(ctx context.Context, orderID string, proofType models.PasscodeKind) (*string, error) {
	rec, ok := m.records[orderID+"/"+string(proofType)]
	if !ok {
		return nil, nil
	}
	return &rec.ID, nil
}

type memOrders struct {
	order *models.Order
}

func (m *memOrders) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	if m.order == nil || m.order.ID != orderID {
		return nil, models.ErrNotFound
	}
	cp := *m.order
	return &cp, nil
}

type memBlobs struct {
	keys []string
}

func (m *memBlobs) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	io.Copy(io.Discard, body)
	m.keys = append(m.keys, key)
	return "https://blobs.test/" + key, nil
}

func protocolOrder() *models.Order {
	return &models.Order{
		ID:         "order-1",
		ConsumerID: "consumer-1",
		BusinessID: "business-1",
		CourierID:  sql.NullString{String: "courier-1", Valid: true},
		Status:     models.StatusAwaitingPickup,
	}
}

func TestUploadProofStoresBlobAndRecord(t *testing.T) {
	repo := newMemRepo()
	blobs := &memBlobs{}
	svc := NewService(repo, &memOrders{order: protocolOrder()}, blobs)

	rec, err := svc.UploadProof(context.Background(), "order-1", models.PasscodePickup,
		"courier-1", strings.NewReader("jpeg-bytes"), 10, "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.PhotoKey != "orders/order-1/pickup.jpg" {
		t.Fatalf("photo key = %q", rec.PhotoKey)
	}
	if len(blobs.keys) != 1 || blobs.keys[0] != rec.PhotoKey {
		t.Fatalf("blob store keys = %v", blobs.keys)
	}
	if id, _ := repo.HasEvidence(context.Background(), "order-1", models.PasscodePickup); id == nil {
		t.Fatal("record not registered as active evidence")
	}
}

func TestUploadProofRetakeReplaces(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &memOrders{order: protocolOrder()}, &memBlobs{})

	first, err := svc.UploadProof(context.Background(), "order-1", models.PasscodeDelivery,
		"courier-1", strings.NewReader("one"), 3, "image/jpeg")
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.UploadProof(context.Background(), "order-1", models.PasscodeDelivery,
		"courier-1", strings.NewReader("retake"), 6, "image/jpeg")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("retake replaces the record in place, the id stays stable")
	}

	active, err := repo.Find(context.Background(), "order-1", models.PasscodeDelivery)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if active.SizeBytes != 6 {
		t.Fatalf("active record still holds the first upload: %+v", active)
	}
}

// Evidence is part of the escrow gate: someone outside the order must not
// be able to satisfy the photo precondition, or even learn the order exists.
func TestUploadProofRejectsNonParty(t *testing.T) {
	repo := newMemRepo()
	blobs := &memBlobs{}
	svc := NewService(repo, &memOrders{order: protocolOrder()}, blobs)

	_, err := svc.UploadProof(context.Background(), "order-1", models.PasscodePickup,
		"total-stranger", strings.NewReader("jpeg-bytes"), 10, "image/jpeg")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound for non-party upload, got %v", err)
	}
	if len(blobs.keys) != 0 {
		t.Fatal("blob stored for a non-party caller")
	}
	if id, _ := repo.HasEvidence(context.Background(), "order-1", models.PasscodePickup); id != nil {
		t.Fatal("evidence registered for a non-party caller")
	}
}

func TestGetProofRejectsNonParty(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &memOrders{order: protocolOrder()}, &memBlobs{})

	if _, err := svc.UploadProof(context.Background(), "order-1", models.PasscodePickup,
		"business-1", strings.NewReader("jpeg-bytes"), 10, "image/jpeg"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.GetProof(context.Background(), "order-1", models.PasscodePickup, "total-stranger"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound for non-party reader, got %v", err)
	}
	if rec, err := svc.GetProof(context.Background(), "order-1", models.PasscodePickup, "consumer-1"); err != nil || rec == nil {
		t.Fatalf("party read failed: %v", err)
	}
}

func TestUploadProofRejectsUnknownType(t *testing.T) {
	svc := NewService(newMemRepo(), &memOrders{order: protocolOrder()}, &memBlobs{})

	_, err := svc.UploadProof(context.Background(), "order-1", models.PasscodeKind("selfie"),
		"courier-1", strings.NewReader("jpeg-bytes"), 10, "image/jpeg")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown proof type, got %v", err)
	}
}
