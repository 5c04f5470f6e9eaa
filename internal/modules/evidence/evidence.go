package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"order-handoff/internal/models"
	"order-handoff/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// ------------------- Repository Layer -------------------

// RepositoryInterface declares database operations for evidence records.
type RepositoryInterface interface {
	// Upsert stores the proof record for one side of an order. Retaking a
	// photo replaces the prior reference; no history is kept.
	Upsert(ctx context.Context, rec *models.EvidenceRecord) error
	// Find returns the active record for (order, proof type).
	Find(ctx context.Context, orderID string, proofType models.PasscodeKind) (*models.EvidenceRecord, error)
	// HasEvidence returns the active record's id, or nil when none exists.
	HasEvidence(ctx context.Context, orderID string, proofType models.PasscodeKind) (*string, error)
}

// Repository is a PostgreSQL implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new evidence repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Upsert stores or replaces the proof record for one side of an order.
func (r *Repository) Upsert(ctx context.Context, rec *models.EvidenceRecord) error {
	query := `
		INSERT INTO evidence_records (order_id, proof_type, photo_key, size_bytes, uploaded_by, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id, proof_type) DO UPDATE
		SET photo_key = EXCLUDED.photo_key,
		    size_bytes = EXCLUDED.size_bytes,
		    uploaded_by = EXCLUDED.uploaded_by,
		    captured_at = EXCLUDED.captured_at,
		    created_at = NOW()
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		rec.OrderID, rec.ProofType, rec.PhotoKey, rec.SizeBytes, rec.UploadedBy, rec.CapturedAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("repo.Upsert: %w", err)
	}
	return nil
}

// Find returns the active evidence record for (order, proof type).
func (r *Repository) Find(ctx context.Context, orderID string, proofType models.PasscodeKind) (*models.EvidenceRecord, error) {
	query := `
		SELECT id, order_id, proof_type, photo_key, size_bytes, uploaded_by, captured_at, created_at
		FROM evidence_records
		WHERE order_id = $1 AND proof_type = $2`

	rec := &models.EvidenceRecord{}
	err := r.db.QueryRow(ctx, query, orderID, proofType).Scan(
		&rec.ID, &rec.OrderID, &rec.ProofType, &rec.PhotoKey, &rec.SizeBytes,
		&rec.UploadedBy, &rec.CapturedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.Find: %w", err)
	}
	return rec, nil
}

// HasEvidence reports the active record's id for (order, proof type).
func (r *Repository) HasEvidence(ctx context.Context, orderID string, proofType models.PasscodeKind) (*string, error) {
	rec, err := r.Find(ctx, orderID, proofType)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec.ID, nil
}

// ------------------- Service Layer -------------------

// BlobStore persists photo bytes and returns a retrieval URL. Implemented by
// pkg/storage on S3.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// OrderStore is the slice of the orders module this service needs to check
// that the caller belongs to the order.
type OrderStore interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
}

// ServiceInterface defines business logic for evidence capture. Both
// operations are restricted to the order's parties; outsiders get
// ErrNotFound.
type ServiceInterface interface {
	// UploadProof stores the photo blob and registers it as the active
	// evidence for one side of the order.
	UploadProof(ctx context.Context, orderID string, proofType models.PasscodeKind, uploadedBy string, photo io.Reader, size int64, contentType string) (*models.EvidenceRecord, error)
	GetProof(ctx context.Context, orderID string, proofType models.PasscodeKind, userID string) (*models.EvidenceRecord, error)
}

// Service implements ServiceInterface.
type Service struct {
	repo   RepositoryInterface
	orders OrderStore
	blobs  BlobStore
}

// NewService creates a new evidence service.
func NewService(repo RepositoryInterface, orders OrderStore, blobs BlobStore) *Service {
	return &Service{repo: repo, orders: orders, blobs: blobs}
}

// UploadProof stores the photo and upserts the evidence record.
func (s *Service) UploadProof(ctx context.Context, orderID string, proofType models.PasscodeKind, uploadedBy string, photo io.Reader, size int64, contentType string) (*models.EvidenceRecord, error) {
	if !proofType.Valid() {
		return nil, models.ErrNotFound
	}
	if err := s.requireParty(ctx, orderID, uploadedBy); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("orders/%s/%s.jpg", orderID, proofType)
	url, err := s.blobs.Put(ctx, key, photo, contentType)
	if err != nil {
		return nil, fmt.Errorf("service.UploadProof: %w", err)
	}

	rec := &models.EvidenceRecord{
		OrderID:    orderID,
		ProofType:  proofType,
		PhotoKey:   key,
		PhotoURL:   url,
		SizeBytes:  size,
		UploadedBy: uploadedBy,
		CapturedAt: time.Now(),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("service.UploadProof: %w", err)
	}
	return rec, nil
}

// GetProof returns the active evidence record for one side of an order.
func (s *Service) GetProof(ctx context.Context, orderID string, proofType models.PasscodeKind, userID string) (*models.EvidenceRecord, error) {
	if err := s.requireParty(ctx, orderID, userID); err != nil {
		return nil, err
	}
	rec, err := s.repo.Find(ctx, orderID, proofType)
	if err != nil {
		return nil, fmt.Errorf("service.GetProof: %w", err)
	}
	return rec, nil
}

// requireParty resolves the order and rejects callers who are not one of
// its parties. ErrNotFound for outsiders keeps order existence private.
func (s *Service) requireParty(ctx context.Context, orderID, userID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service.requireParty: %w", err)
	}
	if !order.IsParty(userID) {
		return models.ErrNotFound
	}
	return nil
}

// ------------------- Handler Layer -------------------

// Handler handles HTTP requests for proof uploads.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new evidence handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// UploadProof accepts a multipart photo for the given proof type.
func (h *Handler) UploadProof(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	proofType := models.PasscodeKind(c.FormValue("proof_type"))
	if !proofType.Valid() {
		return utils.RespondWithError(c, http.StatusBadRequest, "proof_type must be pickup or delivery")
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "photo file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "unable to read photo upload")
	}
	defer file.Close()

	rec, err := h.svc.UploadProof(
		c.Request().Context(),
		c.Param("orderId"),
		proofType,
		userID,
		file,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, rec)
}

// GetProof returns the active evidence record for one side of an order.
func (h *Handler) GetProof(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	proofType := models.PasscodeKind(c.QueryParam("proof_type"))
	if !proofType.Valid() {
		return utils.RespondWithError(c, http.StatusBadRequest, "proof_type must be pickup or delivery")
	}

	rec, err := h.svc.GetProof(c.Request().Context(), c.Param("orderId"), proofType, userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, rec)
}
