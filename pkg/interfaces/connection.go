package interfaces

// Sender is the write side of one live connection. Protocol and engine
// logic fan frames out through this interface and never touch a socket,
// which keeps the dispatch table unit-testable with fake senders.
type Sender interface {
	// ID returns the process-unique connection identifier.
	ID() string
	// WriteJSON serializes v and queues it for delivery to this connection.
	WriteJSON(v interface{}) error
	// Close tears down the underlying transport. Safe to call twice.
	Close() error
}
