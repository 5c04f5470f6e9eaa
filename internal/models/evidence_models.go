package models

import "time"

// EvidenceRecord is the proof photo attached to one side of an order's
// hand-off. One active record per (order, proof type): retaking replaces the
// prior reference, no history is kept.
type EvidenceRecord struct {
	ID         string       `json:"id"`
	OrderID    string       `json:"order_id"`
	ProofType  PasscodeKind `json:"proof_type"`
	PhotoKey   string       `json:"photo_key"`
	PhotoURL   string       `json:"photo_url,omitempty"`
	SizeBytes  int64        `json:"size_bytes"`
	UploadedBy string       `json:"uploaded_by"`
	CapturedAt time.Time    `json:"captured_at"`
	CreatedAt  time.Time    `json:"created_at"`
}
