package handoff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"order-handoff/internal/models"
	"order-handoff/pkg/utils"
)

// LocationProvider supplies the device's current coordinates with an
// accuracy radius. An error means no fix; verification proceeds without a
// sample.
type LocationProvider interface {
	Current(ctx context.Context) (*models.LocationSample, error)
}

// EvidenceCapture acquires a photograph and exposes it as an uploadable
// blob plus its content type.
type EvidenceCapture interface {
	Capture(ctx context.Context) (io.ReadCloser, string, error)
}

// RemoteVerifier is the slice of the REST client the verifier uses.
// *Client implements it.
type RemoteVerifier interface {
	VerifyPickup(ctx context.Context, orderID string, req models.VerifyRequest) (*models.PickupVerifyResult, error)
	VerifyDelivery(ctx context.Context, orderID string, req models.VerifyRequest) (*models.DeliveryVerifyResult, error)
	UploadProof(ctx context.Context, orderID string, proofType models.PasscodeKind, photo io.Reader, contentType string) (*models.EvidenceRecord, error)
	GetProof(ctx context.Context, orderID string, proofType models.PasscodeKind) (*models.EvidenceRecord, error)
}

// Verifier orchestrates one side of the hand-off: photo capture and upload,
// location acquisition, code normalization and submission. One Verifier per
// device session; it tracks which proof sides it has uploaded so an
// incomplete submission is rejected before any network round-trip. The
// ledger is in-memory only: after a process restart call SyncProofs to
// rehydrate it from the authority, otherwise a proof uploaded in the prior
// session would force a pointless retake.
type Verifier struct {
	remote   RemoteVerifier
	location LocationProvider
	camera   EvidenceCapture

	mu       sync.Mutex
	uploaded map[string]map[models.PasscodeKind]bool
}

// NewVerifier creates a verifier. location and camera are device
// capabilities; location may be nil (verification then never carries a
// sample).
func NewVerifier(remote RemoteVerifier, location LocationProvider, camera EvidenceCapture) *Verifier {
	return &Verifier{
		remote:   remote,
		location: location,
		camera:   camera,
		uploaded: make(map[string]map[models.PasscodeKind]bool),
	}
}

// CaptureProof takes a photo and uploads it as the active evidence for one
// side of the order. Retaking replaces the prior photo server-side; only
// the latest upload counts.
func (v *Verifier) CaptureProof(ctx context.Context, orderID string, proofType models.PasscodeKind) (*models.EvidenceRecord, error) {
	if v.camera == nil {
		return nil, fmt.Errorf("verifier.CaptureProof: no camera capability")
	}
	photo, contentType, err := v.camera.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifier.CaptureProof: %w", err)
	}
	defer photo.Close()

	rec, err := v.remote.UploadProof(ctx, orderID, proofType, photo, contentType)
	if err != nil {
		return nil, fmt.Errorf("verifier.CaptureProof: %w", err)
	}

	v.mu.Lock()
	if v.uploaded[orderID] == nil {
		v.uploaded[orderID] = make(map[models.PasscodeKind]bool)
	}
	v.uploaded[orderID][proofType] = true
	v.mu.Unlock()

	return rec, nil
}

// SyncProofs rehydrates the local upload ledger from the authority's active
// evidence records for one order. ErrNotFound for a side just means no
// proof exists there yet; any other error is returned so the caller knows
// the ledger may still be stale.
func (v *Verifier) SyncProofs(ctx context.Context, orderID string) error {
	for _, side := range []models.PasscodeKind{models.PasscodePickup, models.PasscodeDelivery} {
		rec, err := v.remote.GetProof(ctx, orderID, side)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return fmt.Errorf("verifier.SyncProofs: %w", err)
		}
		if rec == nil {
			continue
		}
		v.mu.Lock()
		if v.uploaded[orderID] == nil {
			v.uploaded[orderID] = make(map[models.PasscodeKind]bool)
		}
		v.uploaded[orderID][side] = true
		v.mu.Unlock()
	}
	return nil
}

// VerifyPickup normalizes and submits the pickup code. The pickup proof
// photo must have been uploaded first; that check happens locally so a
// doomed submission never reaches the wire. Submission stays idempotent
// until it succeeds: resubmitting the same code after an interruption is
// safe.
func (v *Verifier) VerifyPickup(ctx context.Context, orderID, code string) (*models.PickupVerifyResult, error) {
	req, err := v.buildRequest(ctx, orderID, models.PasscodePickup, code)
	if err != nil {
		return nil, err
	}
	result, err := v.remote.VerifyPickup(ctx, orderID, *req)
	if err != nil {
		return nil, fmt.Errorf("verifier.VerifyPickup: %w", err)
	}
	return result, nil
}

// VerifyDelivery normalizes and submits the delivery code, symmetric to
// VerifyPickup. The consumer reads the delivery code to the courier; there
// is exactly one delivery secret.
func (v *Verifier) VerifyDelivery(ctx context.Context, orderID, code string) (*models.DeliveryVerifyResult, error) {
	req, err := v.buildRequest(ctx, orderID, models.PasscodeDelivery, code)
	if err != nil {
		return nil, err
	}
	result, err := v.remote.VerifyDelivery(ctx, orderID, *req)
	if err != nil {
		return nil, fmt.Errorf("verifier.VerifyDelivery: %w", err)
	}
	return result, nil
}

// buildRequest runs the shared client-side preparation: evidence
// precondition, code normalization and best-effort location attachment.
func (v *Verifier) buildRequest(ctx context.Context, orderID string, side models.PasscodeKind, code string) (*models.VerifyRequest, error) {
	v.mu.Lock()
	hasProof := v.uploaded[orderID][side]
	v.mu.Unlock()
	if !hasProof {
		return nil, models.ErrEvidenceMissing
	}

	normalized := utils.NormalizePasscode(code)
	if len(normalized) != utils.PasscodeLength {
		return nil, models.ErrInvalidCode
	}

	req := &models.VerifyRequest{Code: normalized}
	req.Location = v.sampleLocation(ctx)
	return req, nil
}

// sampleLocation asks the device for a fix. Failure is non-fatal: GPS must
// never block a legitimate hand-off.
func (v *Verifier) sampleLocation(ctx context.Context) *models.LocationSample {
	if v.location == nil {
		return nil
	}
	sample, err := v.location.Current(ctx)
	if err != nil {
		log.Printf("verifier: proceeding without location: %v", err)
		return nil
	}
	if sample != nil && sample.CapturedAt.IsZero() {
		sample.CapturedAt = time.Now()
	}
	return sample
}

// CountdownRemaining computes the advisory client-side countdown for a
// cached pair. At or past zero the UI should disable submission and offer a
// resend; the authority enforces the real boundary.
func CountdownRemaining(entry StoredPasscodes, now time.Time) time.Duration {
	remaining := entry.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsRetryable reports whether a verification error is worth resubmitting
// as-is (transient transport trouble), as opposed to needing user action.
func IsRetryable(err error) bool {
	return errors.Is(err, models.ErrRemoteUnavailable)
}
