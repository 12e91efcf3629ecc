package repository

import "github.com/campuswork/marketplace/internal/model"

// Collection names. Each is stored under "<prefix>:<name>".
const (
	KeyUsers         = "users"
	KeyBookings      = "bookings"
	KeyChats         = "chats"
	KeyNotifications = "notifications"
	KeyServices      = "services"
	KeyHistory       = "history"
	KeyReviews       = "reviews"
	keySessionPrefix = "session_user:"
)

// Snapshot is the whole application state as loaded from the store. Slices
// keep insertion order; callers append to add and edit in place to change.
type Snapshot struct {
	Users         []model.UserRecord
	Bookings      []model.Booking
	Chats         []model.ChatThread
	Notifications []model.Notification
	Services      []model.Service
	History       []model.Transaction
	Reviews       []model.Review
}

type collection struct {
	name string
	ptr  interface{}
}

func (s *Snapshot) collections() []collection {
	return []collection{
		{KeyUsers, &s.Users},
		{KeyBookings, &s.Bookings},
		{KeyChats, &s.Chats},
		{KeyNotifications, &s.Notifications},
		{KeyServices, &s.Services},
		{KeyHistory, &s.History},
		{KeyReviews, &s.Reviews},
	}
}

// User returns a pointer into Users for id, or nil.
func (s *Snapshot) User(id string) *model.UserRecord {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// UserByEmail returns a pointer into Users for email, or nil. The match is
// exact; callers normalise first.
func (s *Snapshot) UserByEmail(email string) *model.UserRecord {
	for i := range s.Users {
		if s.Users[i].Email == email {
			return &s.Users[i]
		}
	}
	return nil
}

// Booking returns a pointer into Bookings for id, or nil.
func (s *Snapshot) Booking(id string) *model.Booking {
	for i := range s.Bookings {
		if s.Bookings[i].ID == id {
			return &s.Bookings[i]
		}
	}
	return nil
}

// Service returns a pointer into Services for id, or nil.
func (s *Snapshot) Service(id string) *model.Service {
	for i := range s.Services {
		if s.Services[i].ID == id {
			return &s.Services[i]
		}
	}
	return nil
}

// Chat returns a pointer into Chats for id, or nil.
func (s *Snapshot) Chat(id string) *model.ChatThread {
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return &s.Chats[i]
		}
	}
	return nil
}

// ReviewFor returns the review left on a booking, or nil.
func (s *Snapshot) ReviewFor(bookingID string) *model.Review {
	for i := range s.Reviews {
		if s.Reviews[i].BookingID == bookingID {
			return &s.Reviews[i]
		}
	}
	return nil
}
