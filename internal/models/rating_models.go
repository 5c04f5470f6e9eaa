package models

import "time"

// Rating is the optional 1-5 score collected after a verified milestone.
type Rating struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"order_id"`
	Milestone PasscodeKind `json:"milestone"`
	Stars     int          `json:"stars"`
	Comment   string       `json:"comment,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// SubmitRatingRequest is the payload for attaching a rating to an order.
type SubmitRatingRequest struct {
	Milestone PasscodeKind `json:"milestone" validate:"required,oneof=pickup delivery"`
	Stars     int          `json:"stars" validate:"required,min=1,max=5"`
	Comment   string       `json:"comment,omitempty" validate:"omitempty,max=2000"`
}
