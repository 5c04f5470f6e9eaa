package orders

import (
	"context"
	"fmt"
	"log"

	"order-handoff/internal/models"
)

// PasscodeIssuer is implemented by the verification module. Orders entering
// the protocol get their passcode pair at placement, issued on behalf of
// the consumer who placed them.
type PasscodeIssuer interface {
	Issue(ctx context.Context, orderID, userID, role string) (*models.PasscodePair, error)
}

// ReleaseReader exposes the escrow release log kept by the verification
// module, for the status endpoint.
type ReleaseReader interface {
	ListReleases(ctx context.Context, orderID string) ([]models.PaymentRelease, error)
}

// Alerter sends operational notices (new order, dispute filed). Failures are
// logged, never propagated: alerting is best-effort.
type Alerter interface {
	NewOrderPlaced(ctx context.Context, order *models.Order)
	IssueReported(ctx context.Context, order *models.Order, description string)
}

// ServiceInterface defines the contract for the order service.
type ServiceInterface interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, *models.PasscodePair, error)
	GetOrderDetails(ctx context.Context, orderID, userID string) (*models.Order, error)
	ListBusinessOrders(ctx context.Context, businessID string, page, limit int) ([]*models.Order, int, error)
	ReportIssue(ctx context.Context, orderID, reporterID, description string) error
	GetVerificationStatus(ctx context.Context, orderID, userID string) (*models.VerificationStatus, error)
}

// Service implements the order lifecycle logic.
type Service struct {
	repo     RepositoryInterface
	issuer   PasscodeIssuer
	releases ReleaseReader
	alerter  Alerter
}

// NewService creates a new order service.
func NewService(repo RepositoryInterface, issuer PasscodeIssuer, releases ReleaseReader, alerter Alerter) *Service {
	return &Service{repo: repo, issuer: issuer, releases: releases, alerter: alerter}
}

// CreateOrder places an order into the hand-off protocol: the row is
// created, a passcode pair is issued, and the order moves to awaiting pickup
// verification. The plaintext codes are returned exactly once, here.
func (s *Service) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, *models.PasscodePair, error) {
	order, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("service.CreateOrder: %w", err)
	}

	pair, err := s.issuer.Issue(ctx, order.ID, order.ConsumerID, models.RoleConsumer)
	if err != nil {
		return nil, nil, fmt.Errorf("service.CreateOrder.Issue: %w", err)
	}

	if err := s.repo.TransitionStatus(ctx, order.ID, models.StatusCreated, models.StatusAwaitingPickup); err != nil {
		return nil, nil, fmt.Errorf("service.CreateOrder.Transition: %w", err)
	}
	order.Status = models.StatusAwaitingPickup

	if s.alerter != nil {
		s.alerter.NewOrderPlaced(ctx, order)
	}

	return order, pair, nil
}

// GetOrderDetails retrieves a single order, visible only to its parties.
func (s *Service) GetOrderDetails(ctx context.Context, orderID, userID string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.GetOrderDetails: %w", err)
	}
	if !order.IsParty(userID) {
		return nil, models.ErrNotFound // do not leak existence to outsiders
	}
	return order, nil
}

// ListBusinessOrders retrieves a business's orders with pagination.
func (s *Service) ListBusinessOrders(ctx context.Context, businessID string, page, limit int) ([]*models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, total, err := s.repo.ListByBusiness(ctx, businessID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListBusinessOrders: %w", err)
	}
	return list, total, nil
}

// ReportIssue files a dispute. Any awaiting state can be disputed without a
// code match; terminal orders cannot.
func (s *Service) ReportIssue(ctx context.Context, orderID, reporterID, description string) error {
	order, err := s.GetOrderDetails(ctx, orderID, reporterID)
	if err != nil {
		return err
	}

	if _, err := order.Status.Transition(models.StatusDisputed); err != nil {
		return err
	}
	if err := s.repo.TransitionStatus(ctx, orderID, order.Status, models.StatusDisputed); err != nil {
		return fmt.Errorf("service.ReportIssue.Transition: %w", err)
	}
	if err := s.repo.SaveIssueReport(ctx, orderID, reporterID, description); err != nil {
		// The dispute transition already happened; losing the report text is
		// bad but not worth failing the request over. Log loudly.
		log.Printf("CRITICAL: order %s disputed but report text not saved: %v", orderID, err)
	}

	if s.alerter != nil {
		s.alerter.IssueReported(ctx, order, description)
	}
	return nil
}

// GetVerificationStatus summarizes an order's milestones and escrow releases.
func (s *Service) GetVerificationStatus(ctx context.Context, orderID, userID string) (*models.VerificationStatus, error) {
	order, err := s.GetOrderDetails(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	releases, err := s.releases.ListReleases(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.GetVerificationStatus: %w", err)
	}

	return &models.VerificationStatus{
		OrderID:            order.ID,
		Status:             order.Status,
		PickupVerified:     order.PickupVerifiedAt != nil,
		PickupVerifiedAt:   order.PickupVerifiedAt,
		DeliveryVerified:   order.DeliveryVerifiedAt != nil,
		DeliveryVerifiedAt: order.DeliveryVerifiedAt,
		Releases:           releases,
	}, nil
}

