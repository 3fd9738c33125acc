package chat

import "time"

// State gates the rating/feedback sub-dialogue and conversation termination.
type State string

const (
	StateActive           State = "active"
	StateAwaitingRating   State = "awaiting_rating"
	StateAwaitingFeedback State = "awaiting_feedback"
	StateCompleted        State = "completed"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are immutable once
// appended; insertion order pairs the i-th user turn with the i-th
// assistant turn for transcript purposes.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session captures one anonymous visitor's continuous conversation.
// TurnCount is tracked separately from len(Turns) because a successful
// call booking resets the counter without discarding history.
type Session struct {
	ID            string    `json:"id"`
	Turns         []Turn    `json:"turns"`
	TurnCount     int       `json:"turnCount"`
	State         State     `json:"state"`
	Rating        int       `json:"rating,omitempty"` // 1-5, zero until collected
	Feedback      string    `json:"feedback,omitempty"`
	CallScheduled bool      `json:"callScheduled"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool {
	return s.State == StateCompleted
}
