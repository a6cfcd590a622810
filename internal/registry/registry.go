package registry

import (
	"fmt"
	"strings"
	"time"

	"parley/pkg/interfaces"
	"parley/pkg/types"
)

// palette is the fallback swatch set for clients that supply no color (or
// an invalid one). Assignment cycles by admission counter so consecutive
// anonymous joiners get distinct colors.
var palette = [...]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// suffixLen is how much of the session id tail goes into the display
// name. Two different session ids sharing the same last four characters
// would collide; that is an accepted limitation, not handled here.
const suffixLen = 4

// Params carries the identity fields presented at connection time, raw
// from the query string.
type Params struct {
	Username  string
	Color     string
	SessionID string
}

type entry struct {
	user   *types.User
	sender interfaces.Sender
}

// Registry tracks each live connection's identity, keyed by connection
// ID. It owns the User entities exclusively: the broadcast engine reads
// through it and never holds its own copy.
//
// The registry is not safe for concurrent use. All access funnels
// through the hub's single event goroutine; admissions, evictions, and
// the name-uniqueness invariant they maintain stay atomic because of
// that ownership, not because of a lock.
type Registry struct {
	entries map[string]*entry
	order   []string // connection IDs in admission order, for stable rosters
	counter int      // monotonically increasing admission count
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Admit constructs a User from inbound parameters and stores it keyed by
// the sender's connection ID. Missing names become "UserN", missing or
// invalid colors come from the palette, and the display name gains a
// session-derived suffix so concurrent same-name users stay
// distinguishable.
func (r *Registry) Admit(sender interfaces.Sender, p Params, now time.Time) *types.User {
	r.counter++

	base := strings.TrimSpace(p.Username)
	if base == "" {
		base = fmt.Sprintf("User%d", r.counter)
	}

	color := p.Color
	if !types.IsValidColor(color) {
		color = palette[(r.counter-1)%len(palette)]
	}

	display := base
	if suffix := sessionSuffix(p.SessionID); suffix != "" {
		display = base + "#" + suffix
	}

	user := &types.User{
		ID:          sender.ID(),
		BaseName:    base,
		DisplayName: display,
		Color:       color,
		SessionID:   p.SessionID,
		JoinedAt:    now,
	}

	r.entries[user.ID] = &entry{user: user, sender: sender}
	r.order = append(r.order, user.ID)
	return user
}

// Evict removes and returns the user for a closed connection. A second
// eviction of the same ID is a no-op returning false; a connection racing
// its own close must never error here.
func (r *Registry) Evict(connID string) (*types.User, bool) {
	e, ok := r.entries[connID]
	if !ok {
		return nil, false
	}
	delete(r.entries, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return e.user, true
}

// User returns the registry's entry for a connection, or false if it was
// already evicted.
func (r *Registry) User(connID string) (*types.User, bool) {
	e, ok := r.entries[connID]
	if !ok {
		return nil, false
	}
	return e.user, true
}

// Roster returns a snapshot of all current connections' public fields in
// admission order. The slice is a copy; mutating it does not touch
// registry state, and internal fields never leak into it.
func (r *Registry) Roster() []types.PublicUser {
	roster := make([]types.PublicUser, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok {
			roster = append(roster, e.user.Public())
		}
	}
	return roster
}

// MarkTyping updates the typing state for a connection. Unknown IDs are
// a no-op: a typing event can legally arrive after eviction.
func (r *Registry) MarkTyping(connID string, isTyping bool, now time.Time) {
	e, ok := r.entries[connID]
	if !ok {
		return
	}
	e.user.IsTyping = isTyping
	e.user.LastTypingAt = now
}

// SweepStaleTyping clears the typing flag on every connection that has
// been silent longer than staleAfter and returns the users that changed,
// in admission order, for the caller to broadcast.
func (r *Registry) SweepStaleTyping(now time.Time, staleAfter time.Duration) []*types.User {
	var changed []*types.User
	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		if e.user.IsTyping && now.Sub(e.user.LastTypingAt) > staleAfter {
			e.user.IsTyping = false
			changed = append(changed, e.user)
		}
	}
	return changed
}

// Sender returns the write side of a connection.
func (r *Registry) Sender(connID string) (interfaces.Sender, bool) {
	e, ok := r.entries[connID]
	if !ok {
		return nil, false
	}
	return e.sender, true
}

// AllSenders returns every open connection's write side in admission order.
func (r *Registry) AllSenders() []interfaces.Sender {
	return r.sendersExcept("")
}

// AllSendersExcept returns every write side but the excluded connection's.
func (r *Registry) AllSendersExcept(connID string) []interfaces.Sender {
	return r.sendersExcept(connID)
}

func (r *Registry) sendersExcept(excluded string) []interfaces.Sender {
	senders := make([]interfaces.Sender, 0, len(r.order))
	for _, id := range r.order {
		if id == excluded {
			continue
		}
		if e, ok := r.entries[id]; ok {
			senders = append(senders, e.sender)
		}
	}
	return senders
}

// Len returns the number of live connections.
func (r *Registry) Len() int { return len(r.entries) }

// sessionSuffix derives the disambiguating display-name suffix from a
// session id: the last four characters, or the whole id when shorter.
func sessionSuffix(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	if len(sessionID) <= suffixLen {
		return sessionID
	}
	return sessionID[len(sessionID)-suffixLen:]
}
