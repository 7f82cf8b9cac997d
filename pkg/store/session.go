package store

import "strings"

// Document represents a retrieved knowledge passage for the RAG system
type Document struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// SessionState is the conversational state of a single sender
type SessionState string

const (
	StateIdle          SessionState = "IDLE"
	StateAwaitingOrder SessionState = "AWAITING_ORDER"
)

func (s SessionState) String() string {
	return string(s)
}

// SessionStore holds exactly one SessionState per sender.
// Absence of an entry means StateIdle. All operations are total.
type SessionStore interface {
	Get(senderId string) SessionState
	Transition(senderId string, newState SessionState)
	Swap(senderId string, newState SessionState) SessionState
	Clear(senderId string)

	// Lock serializes handling for one sender. Distinct senders never share a lock.
	Lock(senderId string) (unlock func())
}

// StripChannelPrefix removes a channel scheme tag such as "whatsapp:" from a
// sender id. The full id stays the session key; the bare number is what
// external systems receive.
func StripChannelPrefix(senderId string) string {
	senderId = strings.TrimSpace(senderId)
	if i := strings.Index(senderId, ":"); i >= 0 {
		return strings.TrimSpace(senderId[i+1:])
	}
	return senderId
}
