package models

import (
	"errors"
	"testing"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusCreated, StatusAwaitingPickup, true},
		{StatusCreated, StatusCompleted, false},
		{StatusAwaitingPickup, StatusPickupVerified, true},
		{StatusAwaitingPickup, StatusExpired, true},
		{StatusAwaitingPickup, StatusDisputed, true},
		{StatusAwaitingPickup, StatusDeliveryVerified, false},
		{StatusPickupVerified, StatusAwaitingDelivery, true},
		{StatusPickupVerified, StatusCompleted, true},
		{StatusAwaitingDelivery, StatusDeliveryVerified, true},
		{StatusAwaitingDelivery, StatusExpired, true},
		{StatusAwaitingDelivery, StatusAwaitingPickup, false},
		{StatusDeliveryVerified, StatusCompleted, true},
		{StatusDeliveryVerified, StatusDisputed, false},
		// Expired re-enters the protocol only through a resend.
		{StatusExpired, StatusAwaitingPickup, true},
		{StatusExpired, StatusAwaitingDelivery, true},
		{StatusExpired, StatusCompleted, false},
		// Terminal states go nowhere.
		{StatusCompleted, StatusAwaitingPickup, false},
		{StatusDisputed, StatusAwaitingPickup, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestOrderStatusTransitionReturnsError(t *testing.T) {
	if _, err := StatusCompleted.Transition(StatusAwaitingPickup); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	next, err := StatusAwaitingPickup.Transition(StatusPickupVerified)
	if err != nil || next != StatusPickupVerified {
		t.Fatalf("got (%s, %v)", next, err)
	}
}

func TestOrderStatusPredicates(t *testing.T) {
	if !StatusAwaitingPickup.Awaiting() || !StatusAwaitingDelivery.Awaiting() {
		t.Fatal("awaiting states misreported")
	}
	if StatusExpired.Awaiting() {
		t.Fatal("expired does not accept verification attempts")
	}
	if !StatusCompleted.Terminal() || !StatusDisputed.Terminal() {
		t.Fatal("completed and disputed are terminal")
	}
	if StatusExpired.Terminal() {
		t.Fatal("expired has a re-entry path and is not terminal")
	}
}
