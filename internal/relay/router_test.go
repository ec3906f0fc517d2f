package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/common/config"
	"github.com/harisabid200/ChatFlowUI/internal/origin"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
)

type fakeChatbots map[string]*storage.Chatbot

func (f fakeChatbots) GetChatbot(_ context.Context, id string) (*storage.Chatbot, error) {
	if bot, ok := f[id]; ok {
		return bot, nil
	}
	return nil, storage.ErrNotFound
}

type fakeConn struct {
	id   string
	mu   sync.Mutex
	got  []*ServerMessage
	fail bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg *ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send failed")
	}
	c.got = append(c.got, msg)
	return nil
}

func (c *fakeConn) received() []*ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ServerMessage{}, c.got...)
}

func newTestRouter(t *testing.T, bots fakeChatbots) *Router {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Env = cnst.EnvProduction
	v := origin.NewValidator(zap.NewNop(), cfg, bots)
	return NewRouter(zap.NewNop(), bots, v)
}

func testBots() fakeChatbots {
	return fakeChatbots{
		"c1": {ID: "c1", AllowedOrigins: `["https://shop.example.com"]`},
		"c2": {ID: "c2", AllowedOrigins: `["https://shop.example.com"]`},
	}
}

func TestJoinAndDeliverRoundTrip(t *testing.T) {
	r := newTestRouter(t, testBots())
	conn := &fakeConn{id: "conn1"}

	require.NoError(t, r.Join(context.Background(), conn, "c1", "s1", "https://shop.example.com"))

	ev := NewBotMessage("hello back", nil, nil)
	assert.Equal(t, 1, r.Deliver("c1", "s1", ev))

	got := conn.received()
	require.Len(t, got, 1)
	assert.Equal(t, cnst.EventMessage, got[0].Event)
	assert.Equal(t, ev, got[0].Data)
}

func TestDeliverDoesNotCrossRooms(t *testing.T) {
	r := newTestRouter(t, testBots())
	ctx := context.Background()

	s1 := &fakeConn{id: "conn1"}
	s2 := &fakeConn{id: "conn2"}
	require.NoError(t, r.Join(ctx, s1, "c1", "s1", "https://shop.example.com"))
	require.NoError(t, r.Join(ctx, s2, "c1", "s2", "https://shop.example.com"))

	r.Deliver("c1", "s1", NewBotMessage("for s1 only", nil, nil))

	assert.Len(t, s1.received(), 1)
	assert.Empty(t, s2.received())
}

func TestDeliverDoesNotCrossChatbots(t *testing.T) {
	// Two chatbots with colliding session ids must not cross-deliver.
	r := newTestRouter(t, testBots())
	ctx := context.Background()

	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	require.NoError(t, r.Join(ctx, a, "c1", "s1", "https://shop.example.com"))
	require.NoError(t, r.Join(ctx, b, "c2", "s1", "https://shop.example.com"))

	r.Deliver("c1", "s1", NewBotMessage("hi", nil, nil))

	assert.Len(t, a.received(), 1)
	assert.Empty(t, b.received())
}

func TestDeliverToAbsentRoomDrops(t *testing.T) {
	r := newTestRouter(t, testBots())
	assert.Equal(t, 0, r.Deliver("c1", "ghost", NewBotMessage("hi", nil, nil)))
}

func TestJoinRejectsUnknownChatbot(t *testing.T) {
	r := newTestRouter(t, testBots())
	err := r.Join(context.Background(), &fakeConn{id: "x"}, "nope", "s1", "https://shop.example.com")
	assert.ErrorIs(t, err, ErrInvalidChatbot)
}

func TestJoinRejectsDisallowedOrigin(t *testing.T) {
	r := newTestRouter(t, testBots())
	err := r.Join(context.Background(), &fakeConn{id: "x"}, "c1", "s1", "https://evil.example.org")
	assert.ErrorIs(t, err, ErrOriginNotAllowed)
	assert.Equal(t, 0, r.RoomCount())
}

func TestJoinAllowsAbsentOrigin(t *testing.T) {
	// Non-browser callers carry no Origin header and are admitted.
	r := newTestRouter(t, testBots())
	assert.NoError(t, r.Join(context.Background(), &fakeConn{id: "x"}, "c1", "s1", ""))
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newTestRouter(t, testBots())
	conn := &fakeConn{id: "conn1"}
	require.NoError(t, r.Join(context.Background(), conn, "c1", "s1", ""))

	r.Leave(conn, "c1", "s1")
	assert.Equal(t, 0, r.RoomCount())

	// Second leave and leaving a room that never existed are no-ops.
	r.Leave(conn, "c1", "s1")
	r.Leave(conn, "c9", "s9")
	assert.Equal(t, 0, r.RoomCount())
}

func TestDisconnectCleansAllRooms(t *testing.T) {
	r := newTestRouter(t, testBots())
	ctx := context.Background()

	conn := &fakeConn{id: "conn1"}
	other := &fakeConn{id: "conn2"}
	require.NoError(t, r.Join(ctx, conn, "c1", "s1", ""))
	require.NoError(t, r.Join(ctx, conn, "c2", "s2", ""))
	require.NoError(t, r.Join(ctx, other, "c1", "s1", ""))

	r.Disconnect(conn)

	// c2:s2 emptied and deleted, c1:s1 still holds the other connection.
	assert.Equal(t, 1, r.RoomCount())
	assert.Equal(t, 1, r.Deliver("c1", "s1", NewBotMessage("still here", nil, nil)))
	assert.Empty(t, conn.received())
}

func TestRelayTypingSkipsSender(t *testing.T) {
	r := newTestRouter(t, testBots())
	ctx := context.Background()

	tab1 := &fakeConn{id: "tab1"}
	tab2 := &fakeConn{id: "tab2"}
	require.NoError(t, r.Join(ctx, tab1, "c1", "s1", ""))
	require.NoError(t, r.Join(ctx, tab2, "c1", "s1", ""))

	r.RelayTyping(tab1, "c1", "s1", true)

	assert.Empty(t, tab1.received())
	got := tab2.received()
	require.Len(t, got, 1)
	assert.Equal(t, cnst.EventUserTyping, got[0].Event)
	assert.Equal(t, &TypingEvent{IsTyping: true}, got[0].Data)
}

func TestDeliverCountsOnlySuccessfulSends(t *testing.T) {
	r := newTestRouter(t, testBots())
	ctx := context.Background()

	good := &fakeConn{id: "good"}
	bad := &fakeConn{id: "bad", fail: true}
	require.NoError(t, r.Join(ctx, good, "c1", "s1", ""))
	require.NoError(t, r.Join(ctx, bad, "c1", "s1", ""))

	assert.Equal(t, 1, r.Deliver("c1", "s1", NewBotMessage("hi", nil, nil)))
}

func TestCloseClearsRooms(t *testing.T) {
	r := newTestRouter(t, testBots())
	require.NoError(t, r.Join(context.Background(), &fakeConn{id: "x"}, "c1", "s1", ""))
	r.Close()
	assert.Equal(t, 0, r.RoomCount())
}

func TestNewBotMessageDefaults(t *testing.T) {
	ev := NewBotMessage("hi", nil, nil)
	assert.Equal(t, cnst.TypeBotMessage, ev.Type)
	assert.NotNil(t, ev.QuickReplies)
	assert.NotNil(t, ev.Metadata)
	assert.NotEmpty(t, ev.Timestamp)
}
