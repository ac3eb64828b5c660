package order

import "strings"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending           Status = "Pending"
	StatusNewOrder          Status = "New Order"
	StatusNeedsConfirmation Status = "Needs confirmation"
	StatusProcessing        Status = "Processing"
	StatusConfirmed         Status = "Confirmed"
	StatusReady             Status = "Ready"
	StatusReadyForPickup    Status = "Ready for pickup"
	StatusOutForDelivery    Status = "Out for delivery"
	StatusDelivered         Status = "Delivered"
	StatusCompleted         Status = "Completed"
	StatusCancelled         Status = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusNewOrder,
	StatusNeedsConfirmation,
	StatusProcessing,
	StatusConfirmed,
	StatusReady,
	StatusReadyForPickup,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// ParseStatus returns the status named s. Matching is exact.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// StatusList joins all statuses for error messages.
func StatusList() string {
	names := make([]string, len(Statuses))
	for i, st := range Statuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

// Terminal reports whether the order has left the supplier's hands. Terminal
// orders can no longer be cancelled in strict mode.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCompleted || s == StatusCancelled
}

// RestoresStock reports whether deleting an order in this status gives its
// reserved stock back. Cancelled and delivered goods are not returned to
// the shelf.
func (s Status) RestoresStock() bool {
	return s != StatusCancelled && s != StatusDelivered
}

// Fulfilled reports whether reaching s notifies the supplier of delivery.
func (s Status) Fulfilled() bool {
	return s == StatusDelivered || s == StatusCompleted
}

var transitions = map[Status][]Status{
	StatusPending:           {StatusNewOrder, StatusNeedsConfirmation, StatusProcessing, StatusConfirmed},
	StatusNewOrder:          {StatusNeedsConfirmation, StatusProcessing, StatusConfirmed},
	StatusNeedsConfirmation: {StatusProcessing, StatusConfirmed},
	StatusProcessing:        {StatusConfirmed, StatusReady, StatusReadyForPickup, StatusOutForDelivery},
	StatusConfirmed:         {StatusProcessing, StatusReady, StatusReadyForPickup, StatusOutForDelivery},
	StatusReady:             {StatusReadyForPickup, StatusOutForDelivery, StatusDelivered, StatusCompleted},
	StatusReadyForPickup:    {StatusDelivered, StatusCompleted},
	StatusOutForDelivery:    {StatusDelivered},
	StatusDelivered:         {StatusCompleted},
}

// CanTransition reports whether from → to is allowed by the strict
// transition table. Re-asserting the current status is always allowed, and
// any non-terminal order can be cancelled.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if to == StatusCancelled {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
