package models

import "time"

// PasscodeKind selects one side of a passcode pair.
type PasscodeKind string

const (
	PasscodePickup   PasscodeKind = "pickup"
	PasscodeDelivery PasscodeKind = "delivery"
)

// Valid reports whether k names a real passcode kind.
func (k PasscodeKind) Valid() bool {
	return k == PasscodePickup || k == PasscodeDelivery
}

// PasscodePair is the issuance response: the only moment the plaintext codes
// leave the server. At rest only bcrypt hashes are kept.
type PasscodePair struct {
	OrderID      string    `json:"order_id"`
	PickupCode   string    `json:"pickup_code"`
	DeliveryCode string    `json:"delivery_code"`
	ConsumerPin  string    `json:"consumer_pin,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	IssuedAt     time.Time `json:"issued_at"`
}

// PasscodeRecord is the stored form of a pair. One row per order,
// overwritten on reissue (last writer wins).
type PasscodeRecord struct {
	OrderID         string
	PickupHash      []byte
	DeliveryHash    []byte
	ConsumerPinHash []byte
	ExpiresAt       time.Time
	IssuedAt        time.Time
}

// Expired reports whether the pair's window has lapsed at now.
func (r *PasscodeRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ResendRequest reissues one code of a pair.
type ResendRequest struct {
	Kind PasscodeKind `json:"kind" validate:"required,oneof=pickup delivery"`
}
