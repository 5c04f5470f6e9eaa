package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-handoff/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines storage for passcode records, the attempt
// audit log and the escrow release log.
type RepositoryInterface interface {
	// UpsertPair overwrites the order's passcode row. Passcodes are
	// idempotent secrets: last writer wins.
	UpsertPair(ctx context.Context, rec *models.PasscodeRecord) error
	GetPair(ctx context.Context, orderID string) (*models.PasscodeRecord, error)
	// UpdateCode replaces one code's hash and resets the window, leaving the
	// other code untouched.
	UpdateCode(ctx context.Context, orderID string, kind models.PasscodeKind, hash []byte, expiresAt time.Time) error
	RecordAttempt(ctx context.Context, attempt *models.VerificationAttempt) error
	// CreateRelease inserts the one-time escrow release row. A duplicate
	// (order, milestone) insert returns ErrAlreadyVerified.
	CreateRelease(ctx context.Context, release *models.PaymentRelease) error
	ListReleases(ctx context.Context, orderID string) ([]models.PaymentRelease, error)
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new verification repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// UpsertPair overwrites the order's passcode row.
func (r *Repository) UpsertPair(ctx context.Context, rec *models.PasscodeRecord) error {
	query := `
		INSERT INTO order_passcodes (order_id, pickup_hash, delivery_hash, consumer_pin_hash, expires_at, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE
		SET pickup_hash = EXCLUDED.pickup_hash,
		    delivery_hash = EXCLUDED.delivery_hash,
		    consumer_pin_hash = EXCLUDED.consumer_pin_hash,
		    expires_at = EXCLUDED.expires_at,
		    issued_at = EXCLUDED.issued_at`

	_, err := r.db.Exec(ctx, query,
		rec.OrderID, rec.PickupHash, rec.DeliveryHash, rec.ConsumerPinHash, rec.ExpiresAt, rec.IssuedAt)
	if err != nil {
		return fmt.Errorf("repository.UpsertPair: %w", err)
	}
	return nil
}

// GetPair retrieves the order's passcode row.
func (r *Repository) GetPair(ctx context.Context, orderID string) (*models.PasscodeRecord, error) {
	query := `
		SELECT order_id, pickup_hash, delivery_hash, consumer_pin_hash, expires_at, issued_at
		FROM order_passcodes
		WHERE order_id = $1`

	rec := &models.PasscodeRecord{}
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&rec.OrderID, &rec.PickupHash, &rec.DeliveryHash, &rec.ConsumerPinHash, &rec.ExpiresAt, &rec.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.GetPair: %w", err)
	}
	return rec, nil
}

// UpdateCode replaces one code's hash and resets the expiry window.
func (r *Repository) UpdateCode(ctx context.Context, orderID string, kind models.PasscodeKind, hash []byte, expiresAt time.Time) error {
	column := "pickup_hash"
	if kind == models.PasscodeDelivery {
		column = "delivery_hash"
	}
	query := fmt.Sprintf(`
		UPDATE order_passcodes
		SET %s = $1, expires_at = $2, issued_at = NOW()
		WHERE order_id = $3`, column)

	cmdTag, err := r.db.Exec(ctx, query, hash, expiresAt, orderID)
	if err != nil {
		return fmt.Errorf("repository.UpdateCode: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordAttempt appends one row to the verification attempt audit log.
func (r *Repository) RecordAttempt(ctx context.Context, attempt *models.VerificationAttempt) error {
	query := `
		INSERT INTO verification_attempts (order_id, milestone, outcome, evidence_id, latitude, longitude, accuracy_m, distance_m, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var lat, lon, acc *float64
	if attempt.Location != nil {
		lat, lon, acc = &attempt.Location.Latitude, &attempt.Location.Longitude, &attempt.Location.AccuracyM
	}
	err := r.db.QueryRow(ctx, query,
		attempt.OrderID, attempt.Milestone, attempt.Outcome, attempt.EvidenceID,
		lat, lon, acc, attempt.DistanceM, attempt.SubmittedAt,
	).Scan(&attempt.ID)
	if err != nil {
		return fmt.Errorf("repository.RecordAttempt: %w", err)
	}
	return nil
}

// CreateRelease inserts the one-time escrow release row. The unique
// constraint on (order_id, milestone) is what makes "released exactly once"
// hold under concurrent submissions.
func (r *Repository) CreateRelease(ctx context.Context, release *models.PaymentRelease) error {
	query := `
		INSERT INTO payment_releases (order_id, milestone, payee, amount, released_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		release.OrderID, release.Milestone, release.Payee, release.Amount, release.ReleasedAt,
	).Scan(&release.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrAlreadyVerified
		}
		return fmt.Errorf("repository.CreateRelease: %w", err)
	}
	return nil
}

// ListReleases returns all escrow releases recorded for an order.
func (r *Repository) ListReleases(ctx context.Context, orderID string) ([]models.PaymentRelease, error) {
	query := `
		SELECT id, order_id, milestone, payee, amount, released_at
		FROM payment_releases
		WHERE order_id = $1
		ORDER BY released_at`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListReleases: %w", err)
	}
	defer rows.Close()

	var releases []models.PaymentRelease
	for rows.Next() {
		var rel models.PaymentRelease
		if err := rows.Scan(&rel.ID, &rel.OrderID, &rel.Milestone, &rel.Payee, &rel.Amount, &rel.ReleasedAt); err != nil {
			return nil, fmt.Errorf("repository.ListReleases scan: %w", err)
		}
		releases = append(releases, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListReleases rows: %w", err)
	}
	return releases, nil
}
