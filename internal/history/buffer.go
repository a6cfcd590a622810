package history

import (
	"parley/pkg/types"
)

// Buffer is a fixed-capacity, arrival-ordered sequence of chat messages.
// It is the sole source of truth replayed to new connections and to
// pagination requests. The hub's event goroutine is the only caller, so
// the buffer carries no lock; see the hub for the ownership rule.
type Buffer struct {
	capacity int
	messages []types.ChatMessage
}

// NewBuffer creates an empty buffer. Capacity must be positive; the
// config layer validates this before construction.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		capacity: capacity,
		messages: make([]types.ChatMessage, 0, capacity),
	}
}

// Append adds a message, evicting the oldest entry when the buffer is at
// capacity. Eviction is normal operation, not a failure path.
func (b *Buffer) Append(msg types.ChatMessage) {
	b.messages = append(b.messages, msg)
	if len(b.messages) > b.capacity {
		// Shift in place so the backing array never outgrows capacity+1.
		copy(b.messages, b.messages[1:])
		b.messages = b.messages[:b.capacity]
	}
}

// Recent returns a copy of the newest count messages in arrival order.
func (b *Buffer) Recent(count int) []types.ChatMessage {
	if count <= 0 {
		return []types.ChatMessage{}
	}
	start := len(b.messages) - count
	if start < 0 {
		start = 0
	}
	out := make([]types.ChatMessage, len(b.messages)-start)
	copy(out, b.messages[start:])
	return out
}

// Older returns up to count messages immediately preceding the newest
// skip messages, in arrival order, plus whether anything older than the
// returned window remains. A window that reaches past the start of the
// buffer is clamped.
func (b *Buffer) Older(skip, count int) ([]types.ChatMessage, bool) {
	if skip < 0 || count <= 0 {
		return []types.ChatMessage{}, false
	}
	end := len(b.messages) - skip
	if end <= 0 {
		return []types.ChatMessage{}, false
	}
	start := end - count
	if start < 0 {
		start = 0
	}
	out := make([]types.ChatMessage, end-start)
	copy(out, b.messages[start:end])
	return out, start > 0
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int { return len(b.messages) }

// Capacity returns the configured maximum length.
func (b *Buffer) Capacity() int { return b.capacity }
