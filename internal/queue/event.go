// Package queue defines the domain events published to the message broker
// and the plumbing that publishes and consumes them.
package queue

// Exchange is the topic exchange every event is published to.
const Exchange = "campuswork.events"

// ActivityQueue is the durable queue the worker binds to all routing keys.
const ActivityQueue = "campuswork.activity"

// Routing keys.
const (
	RKBookingCreated   = "booking.created"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingRejected  = "booking.rejected"
	RKBookingCancelled = "booking.cancelled"
	RKBookingCompleted = "booking.completed"
	RKBookingRefunded  = "booking.refunded"
	RKBookingReviewed  = "booking.reviewed"
	RKWalletWithdrawn  = "wallet.withdrawn"
)

// BookingEvent is published after a booking transition has been committed.
// It carries enough to log or notify without reading the state store.
type BookingEvent struct {
	BookingID    string `json:"booking_id"`
	ServiceID    string `json:"service_id"`
	ServiceTitle string `json:"service_title"`
	ClientID     string `json:"client_id"`
	FreelancerID string `json:"freelancer_id"`
	ActorID      string `json:"actor_id"`
	Status       string `json:"status"`
	Price        int64  `json:"price"`
	Refunded     int64  `json:"refunded,omitempty"`
	Rating       int    `json:"rating,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}

// WalletEvent is published after a withdrawal has been committed.
type WalletEvent struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	Balance       int64  `json:"balance"`
	Destination   string `json:"destination"`
	OccurredAt    string `json:"occurred_at"`
}
