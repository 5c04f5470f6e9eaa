package verification

import (
	"context"
	"fmt"
	"log"
	"time"

	"order-handoff/internal/models"
	"order-handoff/pkg/geo"
	"order-handoff/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// OrderStore is the slice of the orders module this service needs.
type OrderStore interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error
	SetMilestoneVerified(ctx context.Context, orderID string, milestone models.PasscodeKind, at time.Time) error
}

// EvidenceChecker reports whether a proof photo has been uploaded for one
// side of an order. Implemented by the evidence module.
type EvidenceChecker interface {
	HasEvidence(ctx context.Context, orderID string, proofType models.PasscodeKind) (*string, error)
}

// ServiceInterface defines the contract for the verification service. Every
// operation carries the caller's identity: passcodes gate escrowed funds,
// so only the order's own parties, in the right role, may touch them.
type ServiceInterface interface {
	// Issue generates a fresh passcode pair for an order, superseding any
	// prior pair. The plaintext codes exist only in the return value.
	// Callers must be the order's consumer or business.
	Issue(ctx context.Context, orderID, userID, role string) (*models.PasscodePair, error)
	// Resend invalidates one code and reissues it with a fresh window.
	// Same caller rules as Issue.
	Resend(ctx context.Context, orderID string, kind models.PasscodeKind, userID, role string) (*models.PasscodePair, error)
	// VerifyPickup accepts the pickup code from the business or the
	// assigned courier.
	VerifyPickup(ctx context.Context, orderID string, req models.VerifyRequest, userID, role string) (*models.PickupVerifyResult, error)
	// VerifyDelivery accepts the delivery code from the assigned courier.
	VerifyDelivery(ctx context.Context, orderID string, req models.VerifyRequest, userID, role string) (*models.DeliveryVerifyResult, error)
	ListReleases(ctx context.Context, orderID string) ([]models.PaymentRelease, error)
}

// Service implements the hand-off verification protocol.
type Service struct {
	repo       RepositoryInterface
	orders     OrderStore
	evidence   EvidenceChecker
	codeTTL    time.Duration
	proximityM float64
	now        func() time.Time
}

// NewService creates a new verification service. codeTTL is the passcode
// validity window; proximityM the advisory GPS corroboration threshold.
func NewService(repo RepositoryInterface, orders OrderStore, evidence EvidenceChecker, codeTTL time.Duration, proximityM float64) *Service {
	if codeTTL <= 0 {
		codeTTL = 2 * time.Hour
	}
	if proximityM <= 0 {
		proximityM = geo.DefaultProximityM
	}
	return &Service{
		repo:       repo,
		orders:     orders,
		evidence:   evidence,
		codeTTL:    codeTTL,
		proximityM: proximityM,
		now:        time.Now,
	}
}

// authorize loads the order and checks the caller against it. Non-parties
// get ErrNotFound so order existence is never leaked; parties calling in a
// role the operation does not accept get ErrForbidden.
func (s *Service) authorize(ctx context.Context, orderID, userID, role string, allowed ...string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.authorize: %w", err)
	}
	if !order.IsParty(userID) {
		return nil, models.ErrNotFound
	}
	for _, r := range allowed {
		if role == r {
			return order, nil
		}
	}
	return nil, models.ErrForbidden
}

// Issue generates a new passcode pair plus consumer PIN for an order. The
// plaintext goes to the issuing party and nowhere else.
func (s *Service) Issue(ctx context.Context, orderID, userID, role string) (*models.PasscodePair, error) {
	if _, err := s.authorize(ctx, orderID, userID, role, models.RoleConsumer, models.RoleBusiness); err != nil {
		return nil, err
	}

	pickup, err := utils.GeneratePasscode()
	if err != nil {
		return nil, fmt.Errorf("service.Issue: %w", err)
	}
	delivery, err := utils.GeneratePasscode()
	if err != nil {
		return nil, fmt.Errorf("service.Issue: %w", err)
	}
	pin, err := utils.GeneratePin()
	if err != nil {
		return nil, fmt.Errorf("service.Issue: %w", err)
	}

	now := s.now()
	rec := &models.PasscodeRecord{
		OrderID:   orderID,
		ExpiresAt: now.Add(s.codeTTL),
		IssuedAt:  now,
	}
	if rec.PickupHash, err = bcrypt.GenerateFromPassword([]byte(pickup), bcrypt.DefaultCost); err != nil {
		return nil, fmt.Errorf("service.Issue.Hash: %w", err)
	}
	if rec.DeliveryHash, err = bcrypt.GenerateFromPassword([]byte(delivery), bcrypt.DefaultCost); err != nil {
		return nil, fmt.Errorf("service.Issue.Hash: %w", err)
	}
	if rec.ConsumerPinHash, err = bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost); err != nil {
		return nil, fmt.Errorf("service.Issue.Hash: %w", err)
	}

	if err := s.repo.UpsertPair(ctx, rec); err != nil {
		return nil, fmt.Errorf("service.Issue: %w", err)
	}

	return &models.PasscodePair{
		OrderID:      orderID,
		PickupCode:   pickup,
		DeliveryCode: delivery,
		ConsumerPin:  pin,
		ExpiresAt:    rec.ExpiresAt,
		IssuedAt:     rec.IssuedAt,
	}, nil
}

// Resend invalidates the existing code of the given kind and issues a new
// one with a fresh expiry window. If the order had lapsed into expired, a
// successful resend restores the matching awaiting state.
func (s *Service) Resend(ctx context.Context, orderID string, kind models.PasscodeKind, userID, role string) (*models.PasscodePair, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("service.Resend: %w", models.ErrNotFound)
	}

	order, err := s.authorize(ctx, orderID, userID, role, models.RoleConsumer, models.RoleBusiness)
	if err != nil {
		return nil, err
	}
	if !order.Status.Awaiting() && order.Status != models.StatusExpired {
		return nil, models.ErrConflict
	}

	code, err := utils.GeneratePasscode()
	if err != nil {
		return nil, fmt.Errorf("service.Resend: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.Resend.Hash: %w", err)
	}

	expiresAt := s.now().Add(s.codeTTL)
	if err := s.repo.UpdateCode(ctx, orderID, kind, hash, expiresAt); err != nil {
		return nil, fmt.Errorf("service.Resend: %w", err)
	}

	if order.Status == models.StatusExpired {
		restored := models.StatusAwaitingPickup
		if order.PickupVerifiedAt != nil {
			restored = models.StatusAwaitingDelivery
		}
		if err := s.orders.TransitionStatus(ctx, orderID, models.StatusExpired, restored); err != nil {
			return nil, fmt.Errorf("service.Resend.Restore: %w", err)
		}
	}

	pair := &models.PasscodePair{OrderID: orderID, ExpiresAt: expiresAt, IssuedAt: s.now()}
	if kind == models.PasscodePickup {
		pair.PickupCode = code
	} else {
		pair.DeliveryCode = code
	}
	return pair, nil
}

// VerifyPickup checks the pickup code and, on success, releases the
// business's share of escrow and hands back courier routing info.
func (s *Service) VerifyPickup(ctx context.Context, orderID string, req models.VerifyRequest, userID, role string) (*models.PickupVerifyResult, error) {
	order, verifiedAt, _, err := s.verify(ctx, orderID, models.PasscodePickup, req, userID, role)
	if err != nil {
		return nil, err
	}

	release := &models.PaymentRelease{
		OrderID:    orderID,
		Milestone:  models.PasscodePickup,
		Payee:      order.BusinessID,
		Amount:     order.TotalAmount - order.CourierFee,
		ReleasedAt: verifiedAt,
	}
	if err := s.repo.CreateRelease(ctx, release); err != nil {
		return nil, fmt.Errorf("service.VerifyPickup: %w", err)
	}

	if err := s.orders.SetMilestoneVerified(ctx, orderID, models.PasscodePickup, verifiedAt); err != nil {
		return nil, fmt.Errorf("service.VerifyPickup: %w", err)
	}
	if err := s.orders.TransitionStatus(ctx, orderID, models.StatusAwaitingPickup, models.StatusPickupVerified); err != nil {
		return nil, fmt.Errorf("service.VerifyPickup: %w", err)
	}

	// Courier delivery continues to the second milestone; consumer pickup
	// ends the protocol here.
	next := models.StatusCompleted
	if order.Fulfillment == models.FulfillmentDelivery {
		next = models.StatusAwaitingDelivery
	}
	if err := s.orders.TransitionStatus(ctx, orderID, models.StatusPickupVerified, next); err != nil {
		return nil, fmt.Errorf("service.VerifyPickup: %w", err)
	}

	result := &models.PickupVerifyResult{
		OrderID:        orderID,
		Status:         next,
		ReleasedAmount: release.Amount,
		VerifiedAt:     verifiedAt,
	}
	if order.CourierID.Valid {
		result.Courier = &models.CourierInfo{
			CourierID: order.CourierID.String,
			Name:      order.CourierName.String,
			Phone:     order.CourierPhone.String,
		}
	}
	return result, nil
}

// VerifyDelivery checks the delivery code and, on success, releases the
// courier's share of escrow and reports whether a rating is expected.
func (s *Service) VerifyDelivery(ctx context.Context, orderID string, req models.VerifyRequest, userID, role string) (*models.DeliveryVerifyResult, error) {
	order, verifiedAt, _, err := s.verify(ctx, orderID, models.PasscodeDelivery, req, userID, role)
	if err != nil {
		return nil, err
	}

	payee := order.BusinessID
	if order.CourierID.Valid {
		payee = order.CourierID.String
	}
	release := &models.PaymentRelease{
		OrderID:    orderID,
		Milestone:  models.PasscodeDelivery,
		Payee:      payee,
		Amount:     order.CourierFee,
		ReleasedAt: verifiedAt,
	}
	if err := s.repo.CreateRelease(ctx, release); err != nil {
		return nil, fmt.Errorf("service.VerifyDelivery: %w", err)
	}

	if err := s.orders.SetMilestoneVerified(ctx, orderID, models.PasscodeDelivery, verifiedAt); err != nil {
		return nil, fmt.Errorf("service.VerifyDelivery: %w", err)
	}
	if err := s.orders.TransitionStatus(ctx, orderID, models.StatusAwaitingDelivery, models.StatusDeliveryVerified); err != nil {
		return nil, fmt.Errorf("service.VerifyDelivery: %w", err)
	}

	status := models.StatusDeliveryVerified
	if !order.RatingRequired {
		// Nothing left to collect; finalize immediately.
		if err := s.orders.TransitionStatus(ctx, orderID, models.StatusDeliveryVerified, models.StatusCompleted); err != nil {
			return nil, fmt.Errorf("service.VerifyDelivery: %w", err)
		}
		status = models.StatusCompleted
	}

	return &models.DeliveryVerifyResult{
		OrderID:        orderID,
		Status:         status,
		ReleasedAmount: release.Amount,
		RatingRequired: order.RatingRequired,
		VerifiedAt:     verifiedAt,
	}, nil
}

// ListReleases returns the escrow releases for an order.
func (s *Service) ListReleases(ctx context.Context, orderID string) ([]models.PaymentRelease, error) {
	return s.repo.ListReleases(ctx, orderID)
}

// verify runs the shared caller, precondition and code checks for either
// milestone. Every submission by an authorized caller, matched or not,
// lands in the attempt log.
func (s *Service) verify(ctx context.Context, orderID string, milestone models.PasscodeKind, req models.VerifyRequest, userID, role string) (*models.Order, time.Time, *string, error) {
	// The business scans the pickup code; the courier submits the delivery
	// code the consumer reads out. The code holder is never the submitter.
	allowed := []string{models.RoleBusiness, models.RoleCourier}
	if milestone == models.PasscodeDelivery {
		allowed = []string{models.RoleCourier}
	}
	order, err := s.authorize(ctx, orderID, userID, role, allowed...)
	if err != nil {
		return nil, time.Time{}, nil, err
	}

	code := utils.NormalizePasscode(req.Code)
	if len(code) != utils.PasscodeLength {
		return nil, time.Time{}, nil, models.ErrInvalidCode
	}

	awaiting := models.StatusAwaitingPickup
	verifiedAlready := order.PickupVerifiedAt != nil
	if milestone == models.PasscodeDelivery {
		awaiting = models.StatusAwaitingDelivery
		verifiedAlready = order.DeliveryVerifiedAt != nil
	}
	if verifiedAlready {
		return nil, time.Time{}, nil, models.ErrAlreadyVerified
	}
	if order.Status == models.StatusExpired {
		return nil, time.Time{}, nil, models.ErrCodeExpired
	}
	if order.Status != awaiting {
		return nil, time.Time{}, nil, models.ErrInvalidTransition
	}

	pair, err := s.repo.GetPair(ctx, orderID)
	if err != nil {
		return nil, time.Time{}, nil, fmt.Errorf("service.verify: %w", err)
	}

	now := s.now()
	if pair.Expired(now) {
		// The window lapsed: the order drops out of the awaiting state until
		// a resend succeeds. The local countdown on the client is advisory;
		// this check is the real boundary.
		if err := s.orders.TransitionStatus(ctx, orderID, awaiting, models.StatusExpired); err != nil {
			log.Printf("order %s: expiry transition failed: %v", orderID, err)
		}
		s.recordAttempt(ctx, order, milestone, models.OutcomeExpired, nil, req.Location, now)
		return nil, time.Time{}, nil, models.ErrCodeExpired
	}

	// Evidence precedes the code check so an incomplete submission never
	// consumes a verification attempt.
	evidenceID, err := s.evidence.HasEvidence(ctx, orderID, milestone)
	if err != nil {
		return nil, time.Time{}, nil, fmt.Errorf("service.verify: %w", err)
	}
	if evidenceID == nil {
		return nil, time.Time{}, nil, models.ErrEvidenceMissing
	}

	expected := pair.PickupHash
	if milestone == models.PasscodeDelivery {
		expected = pair.DeliveryHash
	}
	if err := bcrypt.CompareHashAndPassword(expected, []byte(code)); err != nil {
		s.recordAttempt(ctx, order, milestone, models.OutcomeFailure, evidenceID, req.Location, now)
		return nil, time.Time{}, nil, models.ErrInvalidCode
	}

	s.recordAttempt(ctx, order, milestone, models.OutcomeSuccess, evidenceID, req.Location, now)
	return order, now, evidenceID, nil
}

// recordAttempt appends to the audit log, annotating the location sample
// with its distance to the milestone's target coordinates when both are
// known. Best-effort: an audit write failure never fails the verification.
func (s *Service) recordAttempt(ctx context.Context, order *models.Order, milestone models.PasscodeKind, outcome models.AttemptOutcome, evidenceID *string, loc *models.LocationSample, at time.Time) {
	attempt := &models.VerificationAttempt{
		OrderID:     order.ID,
		Milestone:   milestone,
		Outcome:     outcome,
		EvidenceID:  evidenceID,
		Location:    loc,
		SubmittedAt: at,
	}
	if loc != nil {
		if target, ok := milestoneTarget(order, milestone); ok {
			d := geo.DistanceM(geo.Point{Lat: loc.Latitude, Lon: loc.Longitude}, target)
			attempt.DistanceM = &d
			if d > s.proximityM {
				// Reported alongside the attempt, never a gate: GPS accuracy
				// varies too much to block a legitimate hand-off.
				log.Printf("order %s: %s sample %.0fm from target (threshold %.0fm)", order.ID, milestone, d, s.proximityM)
			}
		}
	}
	if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
		log.Printf("order %s: attempt audit write failed: %v", order.ID, err)
	}
}

func milestoneTarget(order *models.Order, milestone models.PasscodeKind) (geo.Point, bool) {
	if milestone == models.PasscodePickup {
		if order.BusinessLat.Valid && order.BusinessLon.Valid {
			return geo.Point{Lat: order.BusinessLat.Float64, Lon: order.BusinessLon.Float64}, true
		}
		return geo.Point{}, false
	}
	if order.DeliveryLat.Valid && order.DeliveryLon.Valid {
		return geo.Point{Lat: order.DeliveryLat.Float64, Lon: order.DeliveryLon.Float64}, true
	}
	return geo.Point{}, false
}

var _ ServiceInterface = (*Service)(nil)
