package model

// User is the public view of an account. It is what the session carries
// and what handlers return; the password hash never leaves UserRecord.
//
// Fields:
//  ID        – opaque identifier (uuid).
//  Name      – display name given at registration.
//  Email     – campus email, unique across users.
//  AvatarURL – profile picture location.
//  Role      – NONE until chosen, then fixed.
//  Balance   – wallet balance in whole rupiah, never negative.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
	Role      Role   `json:"role"`
	Balance   int64  `json:"balance"`
}

// UserRecord is the persisted form of a user in the `users` collection.
type UserRecord struct {
	User
	PasswordHash string `json:"passwordHash"`
}
