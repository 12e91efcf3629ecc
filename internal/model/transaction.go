package model

// Transaction is one line of a user's wallet history. Amount is signed:
// withdrawals are negative, refunds positive.
type Transaction struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Action string `json:"action"`
	Detail string `json:"detail"`
	Amount int64  `json:"amount"`
	Date   string `json:"date"`
	Status string `json:"status"`
}
