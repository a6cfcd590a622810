package protocol

// Frame type discriminators. "message" and "typing" travel in both
// directions with different payloads.
const (
	TypeMessage  = "message"
	TypeTyping   = "typing"
	TypeLoadMore = "load_more"

	TypeUserInfo      = "user_info"
	TypeSystem        = "system"
	TypeUsersUpdate   = "users_update"
	TypeHistory       = "history"
	TypeUserJoined    = "user_joined"
	TypeUserLeft      = "user_left"
	TypeOlderMessages = "older_messages"
)

// Inbound is the decoded form of one client frame. The three variants
// below are the complete set; dispatch type-switches over them with an
// explicit default branch for unknown future variants.
type Inbound interface {
	inbound()
}

// InboundMessage carries a chat line from the client. Content is raw:
// trimming and length capping happen in the engine.
type InboundMessage struct {
	Content string
}

// InboundTyping flips the sender's typing indicator.
type InboundTyping struct {
	IsTyping bool
}

// InboundLoadMore requests a page of history older than what the client
// already holds. Offset counts paginated messages already delivered.
type InboundLoadMore struct {
	Offset int
}

func (InboundMessage) inbound()  {}
func (InboundTyping) inbound()   {}
func (InboundLoadMore) inbound() {}
