package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"parley/internal/engine"
	"parley/internal/protocol"
	"parley/internal/registry"
	"parley/pkg/interfaces"
)

// Hub owns all mutation of the connection registry and history buffer.
// Joins, leaves, inbound events, and the typing sweep are serialized
// through one goroutine, so the shared structures need no locks and a
// message's append-then-trim sequence can never interleave with another.
//
// Lifecycle and chat events share one ordered channel: a connection's
// join is processed before its events, and its events before its leave,
// in the order the transport submitted them. Separate channels would let
// the select loop pick a pending leave ahead of the matching join and
// admit a connection whose socket already closed.
type Hub struct {
	commands chan command
	statsCh  chan chan Stats
	shutdown chan struct{}

	engine   *engine.Engine
	registry *registry.Registry
	clock    interfaces.Clock

	sweepInterval time.Duration

	running bool
	mu      sync.RWMutex
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdEvent
)

// command is one unit of serialized work. Only the fields for its kind
// are set.
type command struct {
	kind   commandKind
	sender interfaces.Sender
	params registry.Params
	connID string
	event  protocol.Inbound
}

// Stats is a point-in-time snapshot for the status API.
type Stats struct {
	Connections int `json:"connections"`
	History     int `json:"history"`
}

// NewHub creates a hub over the given engine. The registry reference is
// only used to resolve broadcast scopes into write sides; all state
// changes go through the engine.
func NewHub(eng *engine.Engine, reg *registry.Registry, clock interfaces.Clock, sweepInterval time.Duration) *Hub {
	return &Hub{
		commands:      make(chan command, 1000),
		statsCh:       make(chan chan Stats),
		shutdown:      make(chan struct{}),
		engine:        eng,
		registry:      reg,
		clock:         clock,
		sweepInterval: sweepInterval,
	}
}

// Start launches the event goroutine, including the periodic typing
// sweep. Starting a running hub is an error; a stopped hub can be
// started again with a fresh shutdown channel.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.shutdown = make(chan struct{})
	shutdown := h.shutdown
	h.mu.Unlock()

	log.Println("Starting chat hub...")
	go h.run(ctx, shutdown)
	return nil
}

// Stop shuts the event goroutine down. Stopping a stopped hub is an
// error; the shutdown channel close itself is guarded for the concurrent
// case.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	log.Println("Stopping chat hub...")
	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	return nil
}

// Join queues a new connection for admission. The welcome sequence is
// written by the hub goroutine once the join is processed.
func (h *Hub) Join(sender interfaces.Sender, params registry.Params) error {
	return h.submit(command{kind: cmdJoin, sender: sender, params: params})
}

// Leave queues a closed connection for eviction. Safe to call for an
// already-evicted connection; the engine treats that as a no-op.
func (h *Hub) Leave(connID string) error {
	return h.submit(command{kind: cmdLeave, connID: connID})
}

// Dispatch queues one decoded inbound event for processing. Events from
// a single connection are processed in the order they are dispatched.
func (h *Hub) Dispatch(connID string, event protocol.Inbound) error {
	return h.submit(command{kind: cmdEvent, connID: connID, event: event})
}

func (h *Hub) submit(cmd command) error {
	if err := h.checkRunning(); err != nil {
		return err
	}
	select {
	case h.commands <- cmd:
		return nil
	default:
		return ErrCommandChannelFull
	}
}

// Snapshot reads current connection and history counts through the event
// goroutine, preserving the single-owner discipline for the shared state.
func (h *Hub) Snapshot() (Stats, error) {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return Stats{}, ErrHubNotRunning
	}
	shutdown := h.shutdown
	h.mu.RUnlock()

	reply := make(chan Stats, 1)
	select {
	case h.statsCh <- reply:
	case <-shutdown:
		return Stats{}, ErrHubNotRunning
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-shutdown:
		return Stats{}, ErrHubNotRunning
	}
}

func (h *Hub) checkRunning() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return ErrHubNotRunning
	}
	return nil
}

// run is the single event loop. The sweep ticker lives and dies with it,
// so shutdown cancels the periodic task along with everything else. The
// shutdown channel is captured at launch: after a restart, an old loop's
// late exit can never tear down the new one.
func (h *Hub) run(ctx context.Context, shutdown chan struct{}) {
	defer log.Println("Hub processing stopped")

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-h.commands:
			switch cmd.kind {
			case cmdJoin:
				h.apply(h.engine.Connect(cmd.sender, cmd.params))
			case cmdLeave:
				h.apply(h.engine.Disconnect(cmd.connID))
			case cmdEvent:
				h.apply(h.engine.Inbound(cmd.connID, cmd.event))
			}

		case <-ticker.C:
			h.apply(h.engine.SweepTyping(h.clock.Now()))

		case reply := <-h.statsCh:
			reply <- Stats{
				Connections: h.registry.Len(),
				History:     h.engine.HistoryLen(),
			}

		case <-shutdown:
			log.Println("Hub shutdown requested")
			return

		case <-ctx.Done():
			log.Println("Hub context cancelled")
			h.mu.Lock()
			if h.shutdown == shutdown {
				h.running = false
				select {
				case <-shutdown:
				default:
					close(shutdown)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// apply fans each directive out to its resolved recipients. A failed
// write is logged and skipped; delivery to the rest continues, and the
// failing connection's own close path evicts it.
func (h *Hub) apply(directives []protocol.Directive) {
	for _, d := range directives {
		for _, sender := range h.recipients(d.Scope) {
			if err := sender.WriteJSON(d.Frame); err != nil {
				log.Printf("Frame delivery failed: conn=%s err=%v", sender.ID(), err)
			}
		}
	}
}

func (h *Hub) recipients(scope protocol.Scope) []interfaces.Sender {
	switch scope.Kind {
	case protocol.ScopeAll:
		return h.registry.AllSenders()
	case protocol.ScopeAllExcept:
		return h.registry.AllSendersExcept(scope.ConnID)
	case protocol.ScopeOnly:
		if sender, ok := h.registry.Sender(scope.ConnID); ok {
			return []interfaces.Sender{sender}
		}
		return nil
	default:
		return nil
	}
}
