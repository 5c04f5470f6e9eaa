package email

import (
	"context"
	"fmt"
	"log"

	"order-handoff/internal/models"
)

// Alerter sends operational notices about the hand-off protocol to the
// business operator's inbox. All sends are best-effort: a mail failure is
// logged and swallowed, never surfaced to the triggering request.
type Alerter struct {
	sender  Sender
	toEmail string
}

// NewAlerter creates an alerter. A nil sender disables alerting entirely,
// which keeps local development mail-free.
func NewAlerter(sender Sender, toEmail string) *Alerter {
	return &Alerter{sender: sender, toEmail: toEmail}
}

// NewOrderPlaced notifies the business that a new order entered the
// protocol. The in-app poller is the primary wake-up; this is the fallback.
func (a *Alerter) NewOrderPlaced(ctx context.Context, order *models.Order) {
	if a == nil || a.sender == nil {
		return
	}
	subject := fmt.Sprintf("New order %s awaiting pickup", order.ID)
	text := fmt.Sprintf(
		"Order %s (%s, %.2f) has been placed and is awaiting pickup verification.",
		order.ID, order.Fulfillment, order.TotalAmount)
	html := fmt.Sprintf(
		"<p>Order <strong>%s</strong> (%s, %.2f) has been placed and is awaiting pickup verification.</p>",
		order.ID, order.Fulfillment, order.TotalAmount)
	if err := a.sender.SendEmail(ctx, a.toEmail, subject, text, html); err != nil {
		log.Printf("alert: new-order email for %s failed: %v", order.ID, err)
	}
}

// IssueReported flags a dispute, marked high priority in the subject so
// operator inbox rules can escalate it.
func (a *Alerter) IssueReported(ctx context.Context, order *models.Order, description string) {
	if a == nil || a.sender == nil {
		return
	}
	subject := fmt.Sprintf("[HIGH PRIORITY] Issue reported on order %s", order.ID)
	text := fmt.Sprintf("Order %s has been disputed:\n\n%s", order.ID, description)
	html := fmt.Sprintf("<p>Order <strong>%s</strong> has been disputed:</p><p>%s</p>", order.ID, description)
	if err := a.sender.SendEmail(ctx, a.toEmail, subject, text, html); err != nil {
		log.Printf("alert: issue-report email for %s failed: %v", order.ID, err)
	}
}
