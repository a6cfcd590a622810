package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/history"
	"parley/internal/protocol"
	"parley/internal/registry"
)

type fakeSender struct {
	id string
}

func (f *fakeSender) ID() string                  { return f.id }
func (f *fakeSender) WriteJSON(interface{}) error { return nil }
func (f *fakeSender) Close() error                { return nil }

// fakeClock hands out a fixed instant until advanced.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func defaultOptions() Options {
	return Options{
		MaxMessageLength: 500,
		HistoryBatchSize: 20,
		TypingStaleAfter: 3 * time.Second,
		WelcomeText:      "Welcome to the chat!",
	}
}

func newTestEngine(capacity int) (*Engine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	reg := registry.NewRegistry()
	buf := history.NewBuffer(capacity)
	return NewEngine(reg, buf, clock, defaultOptions()), clock
}

func connect(e *Engine, id, name, session string) []protocol.Directive {
	return e.Connect(&fakeSender{id: id}, registry.Params{Username: name, SessionID: session})
}

func sendMessage(e *Engine, connID, content string) []protocol.Directive {
	return e.Inbound(connID, protocol.InboundMessage{Content: content})
}

func TestEngine_ConnectWelcomeSequence(t *testing.T) {
	e, _ := newTestEngine(100)

	directives := connect(e, "c1", "Alice", "sess-1234")
	require.Len(t, directives, 6)

	// Identity, welcome, roster, history arrive first and only to the
	// new connection.
	for _, d := range directives[:4] {
		assert.Equal(t, protocol.Only("c1"), d.Scope)
	}

	info, ok := directives[0].Frame.(protocol.UserInfoFrame)
	require.True(t, ok, "first frame should be user_info, got %T", directives[0].Frame)
	assert.Equal(t, "c1", info.User.ID)
	assert.Equal(t, "Alice#1234", info.User.Name)

	system, ok := directives[1].Frame.(protocol.SystemFrame)
	require.True(t, ok)
	assert.Equal(t, "Welcome to the chat!", system.Text)

	roster, ok := directives[2].Frame.(protocol.UsersUpdateFrame)
	require.True(t, ok)
	require.Len(t, roster.Users, 1)

	hist, ok := directives[3].Frame.(protocol.HistoryFrame)
	require.True(t, ok)
	assert.Empty(t, hist.Messages)

	// The join announcement reaches everyone, the roster replacement
	// only those who don't already have it.
	joined, ok := directives[4].Frame.(protocol.UserJoinedFrame)
	require.True(t, ok)
	assert.Equal(t, protocol.All(), directives[4].Scope)
	assert.Equal(t, "Alice#1234", joined.User.Name)

	assert.Equal(t, protocol.AllExcept("c1"), directives[5].Scope)
	_, ok = directives[5].Frame.(protocol.UsersUpdateFrame)
	assert.True(t, ok)
}

func TestEngine_ConnectDeliversRecentHistory(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")
	for i := 1; i <= 30; i++ {
		sendMessage(e, "c1", fmt.Sprintf("msg%d", i))
	}

	directives := connect(e, "c2", "Bob", "s2")
	hist := directives[3].Frame.(protocol.HistoryFrame)
	require.Len(t, hist.Messages, 20)
	assert.Equal(t, "msg11", hist.Messages[0].Content)
	assert.Equal(t, "msg30", hist.Messages[19].Content)
}

func TestEngine_MessageRoundTrip(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "sess-1234")

	directives := sendMessage(e, "c1", "  hello  ")
	require.Len(t, directives, 1)
	assert.Equal(t, protocol.All(), directives[0].Scope)

	frame, ok := directives[0].Frame.(protocol.MessageFrame)
	require.True(t, ok)
	assert.Equal(t, "hello", frame.Message.Content, "content is trimmed server-side")
	assert.NotEmpty(t, frame.Message.ID)
	assert.Equal(t, "c1", frame.Message.SenderID)
	assert.Equal(t, "Alice#1234", frame.Message.SenderName)
	assert.False(t, frame.Message.Timestamp.IsZero())
}

func TestEngine_IdenticalSendsGetDistinctIDs(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")

	first := sendMessage(e, "c1", "hello")[0].Frame.(protocol.MessageFrame)
	second := sendMessage(e, "c1", "hello")[0].Frame.(protocol.MessageFrame)

	// Deduplication is a client concern; the server never collapses sends.
	assert.NotEqual(t, first.Message.ID, second.Message.ID)
}

func TestEngine_EmptyMessageSilentlyDropped(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")

	for _, content := range []string{"", "   ", "\t\n"} {
		directives := sendMessage(e, "c1", content)
		assert.Nil(t, directives, "content %q must be dropped without any frame", content)
	}
	assert.Equal(t, 0, e.HistoryLen())
}

func TestEngine_LongMessageTruncated(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}

	frame := sendMessage(e, "c1", string(long))[0].Frame.(protocol.MessageFrame)
	assert.Len(t, frame.Message.Content, 500)
}

func TestEngine_MessageFromUnknownConnection(t *testing.T) {
	e, _ := newTestEngine(100)

	directives := sendMessage(e, "ghost", "hello")
	assert.Nil(t, directives, "events racing an eviction are silent no-ops")
	assert.Equal(t, 0, e.HistoryLen())
}

func TestEngine_TypingExcludesSender(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "sess-1234")
	connect(e, "c2", "Bob", "sess-5678")

	directives := e.Inbound("c1", protocol.InboundTyping{IsTyping: true})
	require.Len(t, directives, 1)
	assert.Equal(t, protocol.AllExcept("c1"), directives[0].Scope)

	frame := directives[0].Frame.(protocol.TypingFrame)
	assert.Equal(t, "c1", frame.SenderID)
	assert.Equal(t, "Alice#1234", frame.SenderName)
	assert.True(t, frame.IsTyping)
}

func TestEngine_LoadMoreAfterOverflow(t *testing.T) {
	// 105 messages into a 100-capacity buffer with batch size 20: the
	// initial history covers msg86-msg105, so offset 0 pages back to
	// msg66-msg85 and older messages remain.
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")
	for i := 1; i <= 105; i++ {
		sendMessage(e, "c1", fmt.Sprintf("msg%d", i))
	}

	directives := e.Inbound("c1", protocol.InboundLoadMore{Offset: 0})
	require.Len(t, directives, 1)
	assert.Equal(t, protocol.Only("c1"), directives[0].Scope)

	frame, ok := directives[0].Frame.(protocol.OlderMessagesFrame)
	require.True(t, ok)
	require.Len(t, frame.Messages, 20)
	assert.Equal(t, "msg66", frame.Messages[0].Content)
	assert.Equal(t, "msg85", frame.Messages[19].Content)
	assert.True(t, frame.HasMore)
}

func TestEngine_LoadMoreExhaustsBuffer(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")
	for i := 1; i <= 105; i++ {
		sendMessage(e, "c1", fmt.Sprintf("msg%d", i))
	}

	frame := e.Inbound("c1", protocol.InboundLoadMore{Offset: 60})[0].Frame.(protocol.OlderMessagesFrame)
	require.Len(t, frame.Messages, 20)
	assert.Equal(t, "msg6", frame.Messages[0].Content)
	assert.False(t, frame.HasMore, "offset reached the buffer's start")
}

func TestEngine_LoadMoreNegativeOffset(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")

	directives := e.Inbound("c1", protocol.InboundLoadMore{Offset: -1})
	assert.Nil(t, directives)
}

func TestEngine_DisconnectAnnouncesOnce(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "sess-1234")
	connect(e, "c2", "Bob", "sess-5678")

	directives := e.Disconnect("c1")
	require.Len(t, directives, 2)

	left, ok := directives[0].Frame.(protocol.UserLeftFrame)
	require.True(t, ok)
	assert.Equal(t, protocol.All(), directives[0].Scope)
	assert.Equal(t, "c1", left.ID)
	assert.Equal(t, "Alice#1234", left.Name)

	roster := directives[1].Frame.(protocol.UsersUpdateFrame)
	require.Len(t, roster.Users, 1)
	assert.Equal(t, "Bob#5678", roster.Users[0].Name)

	// Double-close: no error, no duplicate user_left broadcast.
	assert.Nil(t, e.Disconnect("c1"))
}

func TestEngine_SweepEmitsOneTypingFalse(t *testing.T) {
	e, clock := newTestEngine(100)
	connect(e, "c1", "Alice", "sess-1234")
	connect(e, "c2", "Bob", "sess-5678")

	e.Inbound("c1", protocol.InboundTyping{IsTyping: true})

	// Not stale yet.
	clock.advance(2 * time.Second)
	assert.Nil(t, e.SweepTyping(clock.Now()))

	// Past the threshold: exactly one typing:false, excluding c1 itself.
	clock.advance(2 * time.Second)
	directives := e.SweepTyping(clock.Now())
	require.Len(t, directives, 1)
	assert.Equal(t, protocol.AllExcept("c1"), directives[0].Scope)

	frame := directives[0].Frame.(protocol.TypingFrame)
	assert.Equal(t, "c1", frame.SenderID)
	assert.False(t, frame.IsTyping)

	// And never a second one for the same silence.
	clock.advance(time.Second)
	assert.Nil(t, e.SweepTyping(clock.Now()))
}

func TestEngine_TypingRefreshDefersSweep(t *testing.T) {
	e, clock := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")
	connect(e, "c2", "Bob", "s2")

	e.Inbound("c1", protocol.InboundTyping{IsTyping: true})
	clock.advance(2 * time.Second)
	e.Inbound("c1", protocol.InboundTyping{IsTyping: true}) // keeps typing

	clock.advance(2 * time.Second)
	assert.Nil(t, e.SweepTyping(clock.Now()), "refreshed typing state is not stale")
}

func TestEngine_HistoryNeverExceedsCapacity(t *testing.T) {
	e, _ := newTestEngine(100)
	connect(e, "c1", "Alice", "s1")

	for i := 1; i <= 250; i++ {
		sendMessage(e, "c1", fmt.Sprintf("msg%d", i))
		require.LessOrEqual(t, e.HistoryLen(), 100)
	}
	assert.Equal(t, 100, e.HistoryLen())
}
