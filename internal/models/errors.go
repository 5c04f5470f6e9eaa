package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a write collides with existing state,
	// e.g. generating passcodes for an order that already left issuance.
	ErrConflict = errors.New("resource conflict")

	// ErrForbidden is returned when a party to the order calls an operation
	// reserved for a different role, e.g. a consumer submitting the pickup
	// verification. Outsiders get ErrNotFound instead.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrInvalidCode is returned when a submitted passcode does not match the
	// active code for the order. The caller should clear the input and retry.
	ErrInvalidCode = errors.New("passcode does not match")

	// ErrCodeExpired is returned when the passcode window has lapsed.
	// Retrying is pointless; the caller must request a resend.
	ErrCodeExpired = errors.New("passcode has expired")

	// ErrEvidenceMissing is returned when a verification is submitted before
	// the required proof photo has been uploaded for that side.
	ErrEvidenceMissing = errors.New("proof photo has not been uploaded")

	// ErrAlreadyVerified is returned when a milestone that has already been
	// verified is submitted again. Funds are released exactly once.
	ErrAlreadyVerified = errors.New("milestone already verified")

	// ErrInvalidTransition is returned when an order is asked to move to a
	// status unreachable from its current one.
	ErrInvalidTransition = errors.New("illegal order status transition")

	// ErrRatingNotRequired is returned when a rating is submitted for an
	// order whose verification never asked for one.
	ErrRatingNotRequired = errors.New("order does not accept a rating")

	// ErrRatingOutOfRange is returned for ratings outside 1-5.
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")

	// ErrRemoteUnavailable is surfaced by the client SDK when the
	// verification authority cannot be reached. Transient; retry.
	ErrRemoteUnavailable = errors.New("verification authority unreachable")

	// ErrLocationUnavailable is surfaced when no GPS fix could be acquired.
	// Non-fatal: verification proceeds without a location sample.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// ErrorResponse is the JSON error envelope returned by all handlers.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Wire error codes. The client SDK decodes these back into the sentinel
// errors above so both sides share one taxonomy.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeForbidden       = "FORBIDDEN"
	CodeInvalidCode     = "INVALID_CODE"
	CodeExpired         = "EXPIRED"
	CodeEvidenceMissing = "EVIDENCE_MISSING"
	CodeAlreadyVerified = "ALREADY_VERIFIED"
	CodeBadTransition   = "ILLEGAL_TRANSITION"
	CodeRatingRejected  = "RATING_REJECTED"
)
