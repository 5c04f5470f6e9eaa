package handoff

import (
	"context"
	"fmt"
	"sync"

	"order-handoff/internal/models"
)

// RatingRemote is the slice of the REST client the collector uses.
type RatingRemote interface {
	SubmitRating(ctx context.Context, orderID string, req models.SubmitRatingRequest) (*models.Rating, error)
	SkipRating(ctx context.Context, orderID string) error
}

// RatingCollector decides when the post-delivery rating prompt should show
// and forwards the consumer's answer. The prompt is keyed off the
// rating_required flag carried in the delivery verification result; pickup
// orders never prompt.
type RatingCollector struct {
	remote RatingRemote

	mu      sync.Mutex
	pending map[string]bool
}

func NewRatingCollector(remote RatingRemote) *RatingCollector {
	return &RatingCollector{remote: remote, pending: make(map[string]bool)}
}

// NoteDeliveryVerified records the outcome of a delivery verification. Call
// it with each DeliveryVerifyResult; the collector remembers whether that
// order still owes a rating prompt.
func (rc *RatingCollector) NoteDeliveryVerified(result *models.DeliveryVerifyResult) {
	if result == nil {
		return
	}
	rc.mu.Lock()
	rc.pending[result.OrderID] = result.RatingRequired
	rc.mu.Unlock()
}

// ShouldPrompt reports whether the UI should show the rating screen for an
// order.
func (rc *RatingCollector) ShouldPrompt(orderID string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.pending[orderID]
}

// Submit validates the score locally and sends it. An accepted or skipped
// rating clears the prompt; the order completes server-side either way.
func (rc *RatingCollector) Submit(ctx context.Context, orderID string, stars int, comment string) (*models.Rating, error) {
	if stars < 1 || stars > 5 {
		return nil, models.ErrRatingOutOfRange
	}
	rating, err := rc.remote.SubmitRating(ctx, orderID, models.SubmitRatingRequest{
		Milestone: models.PasscodeDelivery,
		Stars:     stars,
		Comment:   comment,
	})
	if err != nil {
		return nil, fmt.Errorf("ratings.Submit: %w", err)
	}
	rc.clear(orderID)
	return rating, nil
}

// Skip declines the prompt. Declining is a first-class outcome: the order
// still finishes, it just carries no score.
func (rc *RatingCollector) Skip(ctx context.Context, orderID string) error {
	if err := rc.remote.SkipRating(ctx, orderID); err != nil {
		return fmt.Errorf("ratings.Skip: %w", err)
	}
	rc.clear(orderID)
	return nil
}

func (rc *RatingCollector) clear(orderID string) {
	rc.mu.Lock()
	delete(rc.pending, orderID)
	rc.mu.Unlock()
}
