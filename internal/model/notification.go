package model

// Notification is an inbox entry. Entries are never deleted; only IsRead
// changes after creation.
type Notification struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
	IsRead  bool   `json:"isRead"`
	Date    string `json:"date"` // display string set at creation
}
