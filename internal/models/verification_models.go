package models

import "time"

// LocationSample is a client-reported GPS fix attached to a verification
// attempt. Corroborative only: the server records and annotates it but never
// rejects an attempt for being far away.
type LocationSample struct {
	Latitude   float64   `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64   `json:"longitude" validate:"min=-180,max=180"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// VerifyRequest is the submission payload for either milestone.
type VerifyRequest struct {
	Code     string          `json:"code" validate:"required,min=6,max=6"`
	Location *LocationSample `json:"location,omitempty"`
}

// AttemptOutcome classifies a recorded verification attempt.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
	OutcomeExpired AttemptOutcome = "expired"
)

// VerificationAttempt is the audit row for every code submission, matched or
// not. Submitted codes are stored redacted to their length, never verbatim.
type VerificationAttempt struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	Milestone   PasscodeKind    `json:"milestone"`
	Outcome     AttemptOutcome  `json:"outcome"`
	EvidenceID  *string         `json:"evidence_id,omitempty"`
	Location    *LocationSample `json:"location,omitempty"`
	DistanceM   *float64        `json:"distance_m,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// CourierInfo is the routing contact handed to the business after pickup
// verification succeeds.
type CourierInfo struct {
	CourierID string `json:"courier_id"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PickupVerifyResult is returned on successful pickup verification.
type PickupVerifyResult struct {
	OrderID        string       `json:"order_id"`
	Status         OrderStatus  `json:"status"`
	ReleasedAmount float64      `json:"released_amount"`
	Courier        *CourierInfo `json:"courier,omitempty"`
	VerifiedAt     time.Time    `json:"verified_at"`
}

// DeliveryVerifyResult is returned on successful delivery verification.
type DeliveryVerifyResult struct {
	OrderID        string      `json:"order_id"`
	Status         OrderStatus `json:"status"`
	ReleasedAmount float64     `json:"released_amount"`
	RatingRequired bool        `json:"rating_required"`
	VerifiedAt     time.Time   `json:"verified_at"`
}

// PaymentRelease is the one-time escrow release event emitted per milestone.
// The ledger that moves the money is external; this row is the authorization.
type PaymentRelease struct {
	ID         string       `json:"id"`
	OrderID    string       `json:"order_id"`
	Milestone  PasscodeKind `json:"milestone"`
	Payee      string       `json:"payee"`
	Amount     float64      `json:"amount"`
	ReleasedAt time.Time    `json:"released_at"`
}
