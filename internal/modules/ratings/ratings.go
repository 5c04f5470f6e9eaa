package ratings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"order-handoff/internal/models"
	"order-handoff/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// ------------------- Repository Layer -------------------

// RepositoryInterface declares database operations for ratings.
type RepositoryInterface interface {
	// Create inserts a rating. One rating per (order, milestone); a
	// duplicate insert returns ErrConflict.
	Create(ctx context.Context, rating *models.Rating) error
	FindByOrder(ctx context.Context, orderID string) ([]models.Rating, error)
}

// Repository is a PostgreSQL implementation of RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new ratings repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Create inserts a rating row.
func (r *Repository) Create(ctx context.Context, rating *models.Rating) error {
	query := `
		INSERT INTO ratings (order_id, milestone, stars, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, rating.OrderID, rating.Milestone, rating.Stars, rating.Comment).
		Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("repo.Create: %w", err)
	}
	return nil
}

// FindByOrder returns all ratings recorded for an order.
func (r *Repository) FindByOrder(ctx context.Context, orderID string) ([]models.Rating, error) {
	query := `
		SELECT id, order_id, milestone, stars, comment, created_at
		FROM ratings
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repo.FindByOrder: %w", err)
	}
	defer rows.Close()

	var list []models.Rating
	for rows.Next() {
		var rt models.Rating
		if err := rows.Scan(&rt.ID, &rt.OrderID, &rt.Milestone, &rt.Stars, &rt.Comment, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo.FindByOrder scan: %w", err)
		}
		list = append(list, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.FindByOrder rows: %w", err)
	}
	return list, nil
}

// ------------------- Service Layer -------------------

// OrderStore is the slice of the orders module this service needs.
type OrderStore interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error
}

// ServiceInterface defines business logic for rating collection. Only the
// order's own parties may rate or skip; outsiders get ErrNotFound.
type ServiceInterface interface {
	// Submit accepts a rating for an order whose verification asked for one
	// and finalizes the order.
	Submit(ctx context.Context, orderID, userID string, req models.SubmitRatingRequest) (*models.Rating, error)
	// Skip finalizes the order without a rating. The prompt is "required"
	// only in the UI sense; the protocol completes either way.
	Skip(ctx context.Context, orderID, userID string) error
}

// Service implements ServiceInterface.
type Service struct {
	repo   RepositoryInterface
	orders OrderStore
}

// NewService creates a new ratings service.
func NewService(repo RepositoryInterface, orders OrderStore) *Service {
	return &Service{repo: repo, orders: orders}
}

// Submit validates and stores a rating, then completes the order.
func (s *Service) Submit(ctx context.Context, orderID, userID string, req models.SubmitRatingRequest) (*models.Rating, error) {
	if req.Stars < 1 || req.Stars > 5 {
		return nil, models.ErrRatingOutOfRange
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service.Submit: %w", err)
	}
	if !order.IsParty(userID) {
		return nil, models.ErrNotFound
	}
	if !order.RatingRequired {
		return nil, models.ErrRatingNotRequired
	}
	milestoneVerified := order.PickupVerifiedAt != nil
	if req.Milestone == models.PasscodeDelivery {
		milestoneVerified = order.DeliveryVerifiedAt != nil
	}
	if !milestoneVerified {
		return nil, models.ErrRatingNotRequired
	}

	rating := &models.Rating{
		OrderID:   orderID,
		Milestone: req.Milestone,
		Stars:     req.Stars,
		Comment:   req.Comment,
	}
	if err := s.repo.Create(ctx, rating); err != nil {
		return nil, fmt.Errorf("service.Submit: %w", err)
	}

	s.finalize(ctx, order)
	return rating, nil
}

// Skip finalizes the order without storing a rating.
func (s *Service) Skip(ctx context.Context, orderID, userID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service.Skip: %w", err)
	}
	if !order.IsParty(userID) {
		return models.ErrNotFound
	}
	s.finalize(ctx, order)
	return nil
}

// finalize moves a delivery-verified order to completed. Orders in any
// other state are left alone; the rating is just an annotation then.
func (s *Service) finalize(ctx context.Context, order *models.Order) {
	if order.Status != models.StatusDeliveryVerified {
		return
	}
	if err := s.orders.TransitionStatus(ctx, order.ID, models.StatusDeliveryVerified, models.StatusCompleted); err != nil {
		// Lost race with another finalizer; the order still completes.
		if !errors.Is(err, models.ErrInvalidTransition) {
			log.Printf("ratings: finalize %s: %v", order.ID, err)
		}
	}
}

// ------------------- Handler Layer -------------------

// Handler handles HTTP requests for ratings.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new ratings handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// Submit attaches a rating to an order milestone.
func (h *Handler) Submit(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.SubmitRatingRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	rating, err := h.svc.Submit(c.Request().Context(), c.Param("orderId"), userID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, rating)
}

// Skip finalizes the order without a rating.
func (h *Handler) Skip(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	if err := h.svc.Skip(c.Request().Context(), c.Param("orderId"), userID); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
