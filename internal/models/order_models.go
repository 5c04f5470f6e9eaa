package models

import (
	"database/sql"
	"time"
)

// OrderStatus is the explicit lifecycle state of an order's hand-off
// protocol. All movement goes through Transition; nothing else writes the
// status column.
type OrderStatus string

const (
	StatusCreated          OrderStatus = "created"
	StatusAwaitingPickup   OrderStatus = "awaiting_pickup_verification"
	StatusPickupVerified   OrderStatus = "pickup_verified"
	StatusAwaitingDelivery OrderStatus = "awaiting_delivery_verification"
	StatusDeliveryVerified OrderStatus = "delivery_verified"
	StatusCompleted        OrderStatus = "completed"
	StatusExpired          OrderStatus = "expired"
	StatusDisputed         OrderStatus = "disputed"
)

// transitions maps each status to the set of statuses reachable from it.
// Completed and Disputed are terminal. Expired is terminal for verification
// attempts; a successful passcode resend restores the awaiting state, which
// is the one re-entry path.
var transitions = map[OrderStatus][]OrderStatus{
	StatusCreated:          {StatusAwaitingPickup},
	StatusAwaitingPickup:   {StatusPickupVerified, StatusExpired, StatusDisputed},
	StatusPickupVerified:   {StatusAwaitingDelivery, StatusCompleted},
	StatusAwaitingDelivery: {StatusDeliveryVerified, StatusExpired, StatusDisputed},
	StatusDeliveryVerified: {StatusCompleted},
	StatusExpired:          {StatusAwaitingPickup, StatusAwaitingDelivery},
}

// CanTransition reports whether moving from s to next is legal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Awaiting reports whether the order is in a state that accepts a
// verification attempt.
func (s OrderStatus) Awaiting() bool {
	return s == StatusAwaitingPickup || s == StatusAwaitingDelivery
}

// Terminal reports whether no further protocol transitions are possible.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Transition validates and returns the next status, or ErrInvalidTransition.
func (s OrderStatus) Transition(next OrderStatus) (OrderStatus, error) {
	if !s.CanTransition(next) {
		return s, ErrInvalidTransition
	}
	return next, nil
}

// FulfillmentMode distinguishes courier delivery from consumer pickup.
type FulfillmentMode string

const (
	FulfillmentDelivery FulfillmentMode = "delivery"
	FulfillmentPickup   FulfillmentMode = "pickup"
)

// Order represents a marketplace order moving through the hand-off protocol.
type Order struct {
	ID                 string          `json:"id"`
	ConsumerID         string          `json:"consumer_id"`
	BusinessID         string          `json:"business_id"`
	CourierID          sql.NullString  `json:"courier_id,omitempty"`
	CourierName        sql.NullString  `json:"courier_name,omitempty"`
	CourierPhone       sql.NullString  `json:"courier_phone,omitempty"`
	Fulfillment        FulfillmentMode `json:"fulfillment"`
	TotalAmount        float64         `json:"total_amount"`
	CourierFee         float64         `json:"courier_fee"`
	Status             OrderStatus     `json:"status"`
	ViewedByBusiness   bool            `json:"viewed_by_business"`
	RatingRequired     bool            `json:"rating_required"`
	BusinessLat        sql.NullFloat64 `json:"business_lat,omitempty"`
	BusinessLon        sql.NullFloat64 `json:"business_lon,omitempty"`
	DeliveryLat        sql.NullFloat64 `json:"delivery_lat,omitempty"`
	DeliveryLon        sql.NullFloat64 `json:"delivery_lon,omitempty"`
	PickupVerifiedAt   *time.Time      `json:"pickup_verified_at,omitempty"`
	DeliveryVerifiedAt *time.Time      `json:"delivery_verified_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// IsParty reports whether userID is one of the order's three parties. Every
// module that exposes order state checks this; outsiders get ErrNotFound so
// order existence is never leaked.
func (o *Order) IsParty(userID string) bool {
	if userID == o.ConsumerID || userID == o.BusinessID {
		return true
	}
	return o.CourierID.Valid && o.CourierID.String == userID
}

// CreateOrderRequest is the payload for placing an order into the protocol.
// Checkout itself (cart, payment capture) happens upstream; this record is
// what the hand-off needs.
type CreateOrderRequest struct {
	ConsumerID   string          `json:"consumer_id" validate:"required"`
	BusinessID   string          `json:"business_id" validate:"required"`
	CourierID    *string         `json:"courier_id,omitempty"`
	CourierName  *string         `json:"courier_name,omitempty"`
	CourierPhone *string         `json:"courier_phone,omitempty"`
	Fulfillment  FulfillmentMode `json:"fulfillment" validate:"required,oneof=delivery pickup"`
	TotalAmount  float64         `json:"total_amount" validate:"required,gt=0"`
	CourierFee   float64         `json:"courier_fee" validate:"gte=0"`
	BusinessLat  *float64        `json:"business_lat,omitempty"`
	BusinessLon  *float64        `json:"business_lon,omitempty"`
	DeliveryLat  *float64        `json:"delivery_lat,omitempty"`
	DeliveryLon  *float64        `json:"delivery_lon,omitempty"`
}

// ReportIssueRequest files a free-text dispute against an order.
type ReportIssueRequest struct {
	Description string `json:"description" validate:"required,min=10"`
}

// VerificationStatus summarizes where an order stands for polling clients.
type VerificationStatus struct {
	OrderID            string           `json:"order_id"`
	Status             OrderStatus      `json:"status"`
	PickupVerified     bool             `json:"pickup_verified"`
	PickupVerifiedAt   *time.Time       `json:"pickup_verified_at,omitempty"`
	DeliveryVerified   bool             `json:"delivery_verified"`
	DeliveryVerifiedAt *time.Time       `json:"delivery_verified_at,omitempty"`
	Releases           []PaymentRelease `json:"releases"`
}
