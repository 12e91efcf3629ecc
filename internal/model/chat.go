package model

// Message is a single chat line. Timestamp is unix milliseconds.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
	IsRead    bool   `json:"isRead"`
}

// Participant caches the display details of a thread member.
type Participant struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ChatThread is a conversation between exactly two users.
type ChatThread struct {
	ID                 string                 `json:"id"`
	Participants       []string               `json:"participants"`
	ParticipantDetails map[string]Participant `json:"participantDetails"`
	Messages           []Message              `json:"messages"`
	LastMessage        string                 `json:"lastMessage"`
	LastTimestamp      int64                  `json:"lastTimestamp"`
}

// Has reports whether userID takes part in the thread.
func (t ChatThread) Has(userID string) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (t ChatThread) Other(userID string) string {
	for _, p := range t.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
