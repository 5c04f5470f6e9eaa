package models

import "time"

// PendingOrder is one entry in the business's unseen-order feed, the source
// the notification poller diffs against.
type PendingOrder struct {
	OrderID          string          `json:"order_id"`
	ConsumerID       string          `json:"consumer_id"`
	Fulfillment      FulfillmentMode `json:"fulfillment"`
	TotalAmount      float64         `json:"total_amount"`
	Status           OrderStatus     `json:"status"`
	ViewedByBusiness bool            `json:"viewed_by_business"`
	PlacedAt         time.Time       `json:"placed_at"`
}

// PendingOrdersResponse is the poll payload: the open orders plus how many
// of them the business has not yet looked at.
type PendingOrdersResponse struct {
	Orders      []PendingOrder `json:"orders"`
	UnreadCount int            `json:"unread_count"`
}
