package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-handoff/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the order repository.
type RepositoryInterface interface {
	Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	ListByBusiness(ctx context.Context, businessID string, page, limit int) ([]*models.Order, int, error)
	// TransitionStatus moves an order from one status to another atomically.
	// The WHERE clause guards against racing writers: zero rows affected
	// means the order either does not exist or is no longer in `from`.
	TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error
	SetMilestoneVerified(ctx context.Context, orderID string, milestone models.PasscodeKind, at time.Time) error
	SaveIssueReport(ctx context.Context, orderID, reporterID, description string) error
}

// Repository implements the RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new order repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const orderColumns = `id, consumer_id, business_id, courier_id, courier_name, courier_phone,
	fulfillment, total_amount, courier_fee, status, viewed_by_business, rating_required,
	business_lat, business_lon, delivery_lat, delivery_lon,
	pickup_verified_at, delivery_verified_at, created_at, updated_at`

// scanOrder is a helper to scan a row into an Order model.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID,
		&order.ConsumerID,
		&order.BusinessID,
		&order.CourierID,
		&order.CourierName,
		&order.CourierPhone,
		&order.Fulfillment,
		&order.TotalAmount,
		&order.CourierFee,
		&order.Status,
		&order.ViewedByBusiness,
		&order.RatingRequired,
		&order.BusinessLat,
		&order.BusinessLon,
		&order.DeliveryLat,
		&order.DeliveryLon,
		&order.PickupVerifiedAt,
		&order.DeliveryVerifiedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &order, nil
}

// Create inserts a new order. Delivery orders require a rating after the
// courier milestone; pickup orders do not.
func (r *Repository) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	ratingRequired := req.Fulfillment == models.FulfillmentDelivery

	query := `
		INSERT INTO orders (consumer_id, business_id, courier_id, courier_name, courier_phone,
			fulfillment, total_amount, courier_fee, status, viewed_by_business, rating_required,
			business_lat, business_lon, delivery_lat, delivery_lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'created', FALSE, $9, $10, $11, $12, $13)
		RETURNING ` + orderColumns

	row := r.db.QueryRow(ctx, query,
		req.ConsumerID, req.BusinessID, req.CourierID, req.CourierName, req.CourierPhone,
		req.Fulfillment, req.TotalAmount, req.CourierFee, ratingRequired,
		req.BusinessLat, req.BusinessLon, req.DeliveryLat, req.DeliveryLon,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return order, nil
}

// FindByID retrieves a single order by its ID.
func (r *Repository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return order, nil
}

// ListByBusiness retrieves a business's orders with pagination.
func (r *Repository) ListByBusiness(ctx context.Context, businessID string, page, limit int) ([]*models.Order, int, error) {
	offset := (page - 1) * limit
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByBusiness.Query: %w", err)
	}
	defer rows.Close()

	var list []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListByBusiness.Scan: %w", err)
		}
		list = append(list, order)
	}

	var total int
	err = r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders WHERE business_id = $1", businessID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByBusiness.Count: %w", err)
	}

	return list, total, nil
}

// TransitionStatus applies a guarded status update.
func (r *Repository) TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	cmdTag, err := r.db.Exec(ctx, query, to, orderID, from)
	if err != nil {
		return fmt.Errorf("repository.TransitionStatus: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Distinguish a missing order from a stale transition.
		if _, err := r.FindByID(ctx, orderID); err != nil {
			return err
		}
		return models.ErrInvalidTransition
	}
	return nil
}

// SetMilestoneVerified stamps the verification time for one milestone.
func (r *Repository) SetMilestoneVerified(ctx context.Context, orderID string, milestone models.PasscodeKind, at time.Time) error {
	column := "pickup_verified_at"
	if milestone == models.PasscodeDelivery {
		column = "delivery_verified_at"
	}
	query := fmt.Sprintf(`UPDATE orders SET %s = $1, updated_at = NOW() WHERE id = $2`, column)

	cmdTag, err := r.db.Exec(ctx, query, at, orderID)
	if err != nil {
		return fmt.Errorf("repository.SetMilestoneVerified: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SaveIssueReport records a dispute against an order.
func (r *Repository) SaveIssueReport(ctx context.Context, orderID, reporterID, description string) error {
	query := `
		INSERT INTO issue_reports (order_id, reporter_id, description, priority)
		VALUES ($1, $2, $3, 'high')`

	if _, err := r.db.Exec(ctx, query, orderID, reporterID, description); err != nil {
		return fmt.Errorf("repository.SaveIssueReport: %w", err)
	}
	return nil
}
