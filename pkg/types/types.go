package types

import (
	"time"
)

// User represents one live connection for its whole lifetime: created at
// socket-open, mutated in place on typing events, removed at socket-close.
// The connection registry is the sole owner; every other component reads
// through the registry or receives copies.
type User struct {
	ID           string    // process-unique, generated at connect time
	BaseName     string    // client-chosen name before disambiguation
	DisplayName  string    // base name plus session-derived suffix
	Color        string    // cosmetic swatch, client-chosen or assigned
	SessionID    string    // client-persisted opaque string, never validated
	IsTyping     bool
	LastTypingAt time.Time
	JoinedAt     time.Time
}

// Public returns the roster view of the user. Internal fields (session id,
// typing timestamps) never cross this boundary.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.DisplayName,
		Color:  u.Color,
		Online: true,
	}
}

// PublicUser is a roster entry as delivered to clients.
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Online bool   `json:"online"`
}

// ChatMessage is one chat line. Immutable once appended to the history
// buffer; the id exists for client-side deduplication, the server never
// deduplicates.
type ChatMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	SenderColor string    `json:"senderColor"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}
