package engine

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"parley/internal/history"
	"parley/internal/protocol"
	"parley/internal/registry"
	"parley/pkg/interfaces"
	"parley/pkg/types"
)

// Options are the protocol knobs the engine applies to every event.
type Options struct {
	MaxMessageLength int           // chat content cap, in runes
	HistoryBatchSize int           // messages per history/older_messages frame
	TypingStaleAfter time.Duration // silence before the sweep clears a typing flag
	WelcomeText      string
}

// Engine validates and applies inbound events against the registry and
// history buffer and decides the broadcast scope of everything going back
// out. Handlers return directives instead of writing to the transport;
// the hub owns the I/O. The engine performs no locking of its own — it
// runs entirely on the hub's event goroutine.
type Engine struct {
	registry *registry.Registry
	history  *history.Buffer
	clock    interfaces.Clock
	opts     Options
}

// NewEngine creates an engine over the given shared state. The clock is
// injected so tests control timestamps and staleness decisions.
func NewEngine(reg *registry.Registry, hist *history.Buffer, clock interfaces.Clock, opts Options) *Engine {
	return &Engine{
		registry: reg,
		history:  hist,
		clock:    clock,
		opts:     opts,
	}
}

// Connect admits a connection and produces its welcome sequence — the
// assigned identity, the welcome line, the roster snapshot, and the most
// recent history batch — plus the join announcement for the room. The
// user_joined frame goes to everyone including the newcomer; the roster
// replacement goes to the others, who don't yet have it.
func (e *Engine) Connect(sender interfaces.Sender, p registry.Params) []protocol.Directive {
	user := e.registry.Admit(sender, p, e.clock.Now())
	roster := e.registry.Roster()
	recent := e.history.Recent(e.opts.HistoryBatchSize)
	id := user.ID

	return []protocol.Directive{
		{Scope: protocol.Only(id), Frame: protocol.NewUserInfo(user.Public())},
		{Scope: protocol.Only(id), Frame: protocol.NewSystem(e.opts.WelcomeText)},
		{Scope: protocol.Only(id), Frame: protocol.NewUsersUpdate(roster)},
		{Scope: protocol.Only(id), Frame: protocol.NewHistory(recent)},
		{Scope: protocol.All(), Frame: protocol.NewUserJoined(user.Public())},
		{Scope: protocol.AllExcept(id), Frame: protocol.NewUsersUpdate(roster)},
	}
}

// Inbound dispatches one decoded client event. Events from connections
// the registry no longer knows are silent no-ops: an event racing a
// close must not crash or broadcast.
func (e *Engine) Inbound(connID string, event protocol.Inbound) []protocol.Directive {
	switch ev := event.(type) {
	case protocol.InboundMessage:
		return e.handleMessage(connID, ev)
	case protocol.InboundTyping:
		return e.handleTyping(connID, ev)
	case protocol.InboundLoadMore:
		return e.handleLoadMore(connID, ev)
	default:
		// Forward-compatibility branch: a variant added to the protocol
		// package but not handled here is logged, not dropped silently.
		log.Printf("Unhandled inbound event %T from %s", event, connID)
		return nil
	}
}

// handleMessage validates a chat line, appends it to history, and fans it
// out to everyone including the sender, who reconciles by message id
// rather than local echo. Empty-after-trim content is dropped without
// notifying the sender.
func (e *Engine) handleMessage(connID string, ev protocol.InboundMessage) []protocol.Directive {
	user, ok := e.registry.User(connID)
	if !ok {
		return nil
	}

	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return nil
	}
	content = types.TruncateRunes(content, e.opts.MaxMessageLength)

	msg := types.ChatMessage{
		ID:          uuid.NewString(),
		SenderID:    user.ID,
		SenderName:  user.DisplayName,
		SenderColor: user.Color,
		Content:     content,
		Timestamp:   e.clock.Now(),
	}
	e.history.Append(msg)

	return []protocol.Directive{
		{Scope: protocol.All(), Frame: protocol.NewMessage(msg)},
	}
}

// handleTyping records the sender's typing state and tells everyone else.
func (e *Engine) handleTyping(connID string, ev protocol.InboundTyping) []protocol.Directive {
	user, ok := e.registry.User(connID)
	if !ok {
		return nil
	}
	e.registry.MarkTyping(connID, ev.IsTyping, e.clock.Now())

	return []protocol.Directive{
		{Scope: protocol.AllExcept(connID), Frame: protocol.NewTyping(user.ID, user.DisplayName, ev.IsTyping)},
	}
}

// handleLoadMore pages backwards through history for one requester. The
// offset counts paginated messages the client already received beyond the
// initial batch; a negative offset is rejected.
func (e *Engine) handleLoadMore(connID string, ev protocol.InboundLoadMore) []protocol.Directive {
	if _, ok := e.registry.User(connID); !ok {
		return nil
	}
	if ev.Offset < 0 {
		log.Printf("Rejected load_more with negative offset %d from %s", ev.Offset, connID)
		return nil
	}

	messages, hasMore := e.history.Older(e.opts.HistoryBatchSize+ev.Offset, e.opts.HistoryBatchSize)
	return []protocol.Directive{
		{Scope: protocol.Only(connID), Frame: protocol.NewOlderMessages(messages, hasMore)},
	}
}

// Disconnect evicts a connection and announces the departure. Eviction is
// idempotent: only the first close of a connection broadcasts user_left,
// so a double-close never produces a duplicate announcement.
func (e *Engine) Disconnect(connID string) []protocol.Directive {
	user, ok := e.registry.Evict(connID)
	if !ok {
		return nil
	}
	roster := e.registry.Roster()

	return []protocol.Directive{
		{Scope: protocol.All(), Frame: protocol.NewUserLeft(user.ID, user.DisplayName)},
		{Scope: protocol.All(), Frame: protocol.NewUsersUpdate(roster)},
	}
}

// SweepTyping clears typing flags that have gone stale and emits exactly
// one typing:false per flipped connection, to everyone but that
// connection. This guards against a client that dropped off mid-typing
// leaving a stale indicator visible indefinitely.
func (e *Engine) SweepTyping(now time.Time) []protocol.Directive {
	changed := e.registry.SweepStaleTyping(now, e.opts.TypingStaleAfter)
	if len(changed) == 0 {
		return nil
	}

	directives := make([]protocol.Directive, 0, len(changed))
	for _, user := range changed {
		directives = append(directives, protocol.Directive{
			Scope: protocol.AllExcept(user.ID),
			Frame: protocol.NewTyping(user.ID, user.DisplayName, false),
		})
	}
	return directives
}

// HistoryLen reports the buffered message count for the stats surface.
func (e *Engine) HistoryLen() int { return e.history.Len() }
