package model

import "time"

// Session is the signed-in user as persisted under the session key. The
// embedded user never carries a password. ActiveRole is the lens a BOTH
// user is currently viewing; for everyone else it equals User.Role.
type Session struct {
	ID         string    `json:"id"`
	User       User      `json:"user"`
	ActiveRole Role      `json:"activeRole"`
	CreatedAt  time.Time `json:"createdAt"`
}
