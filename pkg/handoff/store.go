package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"order-handoff/internal/models"
)

// StoredPasscodes is the per-order record kept in the local cache, readable
// offline.
type StoredPasscodes struct {
	OrderID      string    `json:"orderId"`
	PickupCode   string    `json:"pickupCode"`
	DeliveryCode string    `json:"deliveryCode"`
	ExpiresAt    time.Time `json:"expiresAt"`
	StoredAt     time.Time `json:"storedAt"`
}

// Expired reports whether the cached pair's window has lapsed at now.
func (s StoredPasscodes) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PasscodeIssuer is the remote side of the store. *Client implements it.
type PasscodeIssuer interface {
	GeneratePasscodes(ctx context.Context, orderID string) (*models.PasscodePair, error)
	ResendPasscode(ctx context.Context, orderID string, kind models.PasscodeKind) (*models.PasscodePair, error)
}

// PasscodeStore is a durable local cache of passcode pairs keyed by order
// id. It survives restarts via a JSON file so codes stay presentable while
// offline. Writes are last-writer-wins per key: passcodes are idempotent
// secrets, not counters.
//
// Expiry purging here is hygiene, not a security boundary: the authority
// re-checks expiry on every verification attempt regardless of what this
// cache holds.
type PasscodeStore struct {
	remote PasscodeIssuer
	path   string

	mu      sync.Mutex
	entries map[string]StoredPasscodes
	now     func() time.Time
}

// NewPasscodeStore opens (or creates) the cache file at path. A corrupt or
// missing file starts empty rather than failing: the cache is rebuildable
// from the authority.
func NewPasscodeStore(remote PasscodeIssuer, path string) *PasscodeStore {
	s := &PasscodeStore{
		remote:  remote,
		path:    path,
		entries: make(map[string]StoredPasscodes),
		now:     time.Now,
	}
	if data, err := os.ReadFile(path); err == nil {
		var entries map[string]StoredPasscodes
		if json.Unmarshal(data, &entries) == nil && entries != nil {
			s.entries = entries
		}
	}
	return s
}

// Generate requests new codes from the authority and persists them. On
// network failure it returns ErrRemoteUnavailable; the caller may retry or
// fall back to Retrieve for previously cached codes.
func (s *PasscodeStore) Generate(ctx context.Context, orderID string) (*models.PasscodePair, error) {
	pair, err := s.remote.GeneratePasscodes(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("store.Generate: %w", err)
	}
	s.Persist(orderID, pair)
	return pair, nil
}

// Persist writes the pair to the cache, overwriting any prior entry for the
// order.
func (s *PasscodeStore) Persist(orderID string, pair *models.PasscodePair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := StoredPasscodes{
		OrderID:      orderID,
		PickupCode:   pair.PickupCode,
		DeliveryCode: pair.DeliveryCode,
		ExpiresAt:    pair.ExpiresAt,
		StoredAt:     s.now(),
	}
	// A resend carries only the reissued code; keep the other one.
	if prev, ok := s.entries[orderID]; ok {
		if entry.PickupCode == "" {
			entry.PickupCode = prev.PickupCode
		}
		if entry.DeliveryCode == "" {
			entry.DeliveryCode = prev.DeliveryCode
		}
	}
	s.entries[orderID] = entry
	s.flushLocked()
}

// Retrieve returns the cached pair for an order, or ErrNotFound.
func (s *PasscodeStore) Retrieve(orderID string) (StoredPasscodes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[orderID]
	if !ok {
		return StoredPasscodes{}, models.ErrNotFound
	}
	return entry, nil
}

// PurgeExpired deletes every cached pair whose window has passed and
// reports how many were removed. Designed to run opportunistically, e.g. on
// app foregrounding.
func (s *PasscodeStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.flushLocked()
	}
	return removed
}

// Resend invalidates the existing code of the given kind and caches its
// replacement. Callers are responsible for not running two resends for the
// same order concurrently.
func (s *PasscodeStore) Resend(ctx context.Context, orderID string, kind models.PasscodeKind) (*models.PasscodePair, error) {
	pair, err := s.remote.ResendPasscode(ctx, orderID, kind)
	if err != nil {
		return nil, fmt.Errorf("store.Resend: %w", err)
	}
	s.Persist(orderID, pair)
	return pair, nil
}

// flushLocked writes the cache file. Callers hold s.mu. A write failure is
// tolerated: the in-memory cache stays correct and the file is retried on
// the next mutation.
func (s *PasscodeStore) flushLocked() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}

// IsRemoteUnavailable reports whether err represents a transient network
// failure worth retrying.
func IsRemoteUnavailable(err error) bool {
	return errors.Is(err, models.ErrRemoteUnavailable)
}
