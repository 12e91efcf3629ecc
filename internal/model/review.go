package model

import "time"

// Review is a client's rating of a completed booking.
type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	ServiceID string    `json:"serviceId"`
	ClientID  string    `json:"clientId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}
