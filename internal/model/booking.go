package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition can leave s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// DateLayout is the calendar format used for booking dates and deadlines.
const DateLayout = "2006-01-02"

// Booking records a client's purchase of a freelancer's service.
// ServiceTitle, ClientName and FreelancerName are a snapshot taken when the
// booking is created; later renames do not rewrite them.
type Booking struct {
	ID             string        `json:"id"`
	ServiceID      string        `json:"serviceId"`
	ServiceTitle   string        `json:"serviceTitle"`
	ClientID       string        `json:"clientId"`
	ClientName     string        `json:"clientName"`
	FreelancerID   string        `json:"freelancerId"`
	FreelancerName string        `json:"freelancerName"`
	Date           string        `json:"date"`     // creation date, YYYY-MM-DD
	Deadline       string        `json:"deadline"` // delivery date, YYYY-MM-DD
	Price          int64         `json:"price"`
	Status         BookingStatus `json:"status"`
}

// DeadlineTime parses Deadline as 00:00 UTC of that calendar day.
func (b Booking) DeadlineTime() (time.Time, error) {
	return time.ParseInLocation(DateLayout, b.Deadline, time.UTC)
}

// Overdue reports whether now is past the deadline while the booking is
// still open. A deadline that cannot be parsed is never overdue.
func (b Booking) Overdue(now time.Time) bool {
	if b.Status.Terminal() {
		return false
	}
	d, err := b.DeadlineTime()
	if err != nil {
		return false
	}
	return now.After(d)
}

// BookingTab selects which slice of a user's bookings a list view shows.
type BookingTab string

const (
	TabUpcoming  BookingTab = "UPCOMING"
	TabCompleted BookingTab = "COMPLETED"
	TabCancelled BookingTab = "CANCELLED"
)

// Includes reports whether a booking in status s belongs on tab t.
func (t BookingTab) Includes(s BookingStatus) bool {
	switch t {
	case TabUpcoming:
		return s == BookingPending || s == BookingConfirmed
	case TabCompleted:
		return s == BookingCompleted
	case TabCancelled:
		return s == BookingCancelled
	}
	return false
}

// Valid reports whether t is one of the known tabs.
func (t BookingTab) Valid() bool {
	return t == TabUpcoming || t == TabCompleted || t == TabCancelled
}
