package notifications

import (
	"context"
	"fmt"
	"net/http"

	"order-handoff/internal/models"
	"order-handoff/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// ------------------- Repository Layer -------------------

// RepositoryInterface declares database operations for the business's
// pending-order feed.
type RepositoryInterface interface {
	// ListPending returns the business's open (awaiting) orders, newest
	// first. The unread count is the number with viewed_by_business false.
	ListPending(ctx context.Context, businessID string) ([]models.PendingOrder, int, error)
	MarkViewed(ctx context.Context, businessID, orderID string) error
	MarkAllViewed(ctx context.Context, businessID string) error
}

// Repository is a PostgreSQL implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new notifications repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ListPending returns the open orders for a business plus the unread count.
func (r *Repository) ListPending(ctx context.Context, businessID string) ([]models.PendingOrder, int, error) {
	query := `
		SELECT id, consumer_id, fulfillment, total_amount, status, viewed_by_business, created_at
		FROM orders
		WHERE business_id = $1
		  AND status IN ('awaiting_pickup_verification', 'awaiting_delivery_verification')
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ListPending: %w", err)
	}
	defer rows.Close()

	var orders []models.PendingOrder
	unread := 0
	for rows.Next() {
		var po models.PendingOrder
		if err := rows.Scan(&po.OrderID, &po.ConsumerID, &po.Fulfillment, &po.TotalAmount, &po.Status, &po.ViewedByBusiness, &po.PlacedAt); err != nil {
			return nil, 0, fmt.Errorf("repo.ListPending scan: %w", err)
		}
		if !po.ViewedByBusiness {
			unread++
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ListPending rows: %w", err)
	}
	return orders, unread, nil
}

// MarkViewed clears one order's unread flag.
func (r *Repository) MarkViewed(ctx context.Context, businessID, orderID string) error {
	query := `
		UPDATE orders
		SET viewed_by_business = TRUE, updated_at = NOW()
		WHERE id = $1 AND business_id = $2`

	cmdTag, err := r.db.Exec(ctx, query, orderID, businessID)
	if err != nil {
		return fmt.Errorf("repo.MarkViewed: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkAllViewed clears every unread flag for a business.
func (r *Repository) MarkAllViewed(ctx context.Context, businessID string) error {
	query := `
		UPDATE orders
		SET viewed_by_business = TRUE, updated_at = NOW()
		WHERE business_id = $1 AND viewed_by_business = FALSE`

	if _, err := r.db.Exec(ctx, query, businessID); err != nil {
		return fmt.Errorf("repo.MarkAllViewed: %w", err)
	}
	return nil
}

// ------------------- Service Layer -------------------

// ServiceInterface defines business logic for the pending-order feed.
type ServiceInterface interface {
	FetchPending(ctx context.Context, businessID string) (*models.PendingOrdersResponse, error)
	MarkViewed(ctx context.Context, businessID, orderID string) error
	MarkAllViewed(ctx context.Context, businessID string) error
}

// Service implements ServiceInterface.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new notifications service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// FetchPending is the poll endpoint's backing call.
func (s *Service) FetchPending(ctx context.Context, businessID string) (*models.PendingOrdersResponse, error) {
	orders, unread, err := s.repo.ListPending(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("service.FetchPending: %w", err)
	}
	return &models.PendingOrdersResponse{Orders: orders, UnreadCount: unread}, nil
}

// MarkViewed clears one order's unread flag.
func (s *Service) MarkViewed(ctx context.Context, businessID, orderID string) error {
	if err := s.repo.MarkViewed(ctx, businessID, orderID); err != nil {
		return fmt.Errorf("service.MarkViewed: %w", err)
	}
	return nil
}

// MarkAllViewed clears every unread flag for the business.
func (s *Service) MarkAllViewed(ctx context.Context, businessID string) error {
	if err := s.repo.MarkAllViewed(ctx, businessID); err != nil {
		return fmt.Errorf("service.MarkAllViewed: %w", err)
	}
	return nil
}

// ------------------- Handler Layer -------------------

// Handler handles HTTP requests for the pending-order feed.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new notifications handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// FetchPending serves the poll cycle: open orders + unread count.
func (h *Handler) FetchPending(c echo.Context) error {
	businessID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	resp, err := h.svc.FetchPending(c.Request().Context(), businessID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, resp)
}

// MarkViewed clears the unread flag for one order.
func (h *Handler) MarkViewed(c echo.Context) error {
	businessID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	if err := h.svc.MarkViewed(c.Request().Context(), businessID, c.Param("orderId")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllViewed clears every unread flag for the caller's business.
func (h *Handler) MarkAllViewed(c echo.Context) error {
	businessID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	if err := h.svc.MarkAllViewed(c.Request().Context(), businessID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
