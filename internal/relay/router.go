// Package relay routes asynchronous bot responses to the right browser
// session. A room is the set of live connections for one (chatbot, session)
// pair; delivery is best effort, an event for a room with no connections is
// dropped rather than queued.
package relay

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/origin"
	"github.com/harisabid200/ChatFlowUI/internal/storage"
)

var (
	// ErrInvalidChatbot is returned on join for an unknown chatbot id.
	ErrInvalidChatbot = errors.New("invalid chatbot")
	// ErrOriginNotAllowed is returned on join when the connection origin
	// fails validation for the chatbot.
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// Conn is a live realtime connection. Send must not block; a connection that
// cannot keep up reports an error and is dropped by its transport.
type Conn interface {
	ID() string
	Send(msg *ServerMessage) error
}

// Router owns the room map. All mutation goes through Join, Leave,
// Disconnect and the broadcast methods; no other component touches rooms.
type Router struct {
	logger    *zap.Logger
	chatbots  origin.ChatbotSource
	validator *origin.Validator

	mu    sync.RWMutex
	rooms map[string]map[string]Conn
}

// NewRouter creates a session router. One instance lives for the whole
// process; tests construct their own.
func NewRouter(logger *zap.Logger, chatbots origin.ChatbotSource, validator *origin.Validator) *Router {
	return &Router{
		logger:    logger.Named("relay"),
		chatbots:  chatbots,
		validator: validator,
		rooms:     make(map[string]map[string]Conn),
	}
}

// RoomKey builds the composite routing key. Session ids are scoped per
// chatbot; the same sessionId under two chatbots names two distinct rooms.
func RoomKey(chatbotID, sessionID string) string {
	return chatbotID + ":" + sessionID
}

// Join admits conn into the room for (chatbotID, sessionID). The chatbot
// must exist and connOrigin must pass the same origin validation the HTTP
// transport applies.
func (r *Router) Join(ctx context.Context, conn Conn, chatbotID, sessionID, connOrigin string) error {
	if chatbotID == "" || sessionID == "" {
		return ErrInvalidChatbot
	}

	if _, err := r.chatbots.GetChatbot(ctx, chatbotID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidChatbot
		}
		return err
	}

	if d := r.validator.Check(ctx, connOrigin, chatbotID); !d.Allowed {
		r.logger.Warn("connection rejected",
			zap.String("origin", connOrigin),
			zap.String("chatbot_id", chatbotID),
			zap.String("reason", d.Reason))
		return ErrOriginNotAllowed
	}

	key := RoomKey(chatbotID, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[key]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[key] = room
	}
	room[conn.ID()] = conn

	r.logger.Debug("connection joined room",
		zap.String("conn_id", conn.ID()),
		zap.String("room", key))
	return nil
}

// Leave removes conn from the room. Idempotent; leaving a room the
// connection is not in is a no-op. An emptied room is deleted.
func (r *Router) Leave(conn Conn, chatbotID, sessionID string) {
	key := RoomKey(chatbotID, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[key]
	if !ok {
		return
	}
	delete(room, conn.ID())
	if len(room) == 0 {
		delete(r.rooms, key)
	}
}

// Disconnect removes conn from every room it belongs to, deleting rooms left
// empty. A connection is normally in at most one room, but the scan tolerates
// zero or several.
func (r *Router) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, room := range r.rooms {
		if _, ok := room[conn.ID()]; ok {
			delete(room, conn.ID())
			if len(room) == 0 {
				delete(r.rooms, key)
			}
		}
	}
}

// RelayTyping broadcasts a typing indicator to every connection in the room
// except the sender. Supports multi-tab awareness of one visitor; nothing is
// persisted.
func (r *Router) RelayTyping(sender Conn, chatbotID, sessionID string, isTyping bool) {
	key := RoomKey(chatbotID, sessionID)
	msg := &ServerMessage{Event: cnst.EventUserTyping, Data: &TypingEvent{IsTyping: isTyping}}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, conn := range r.rooms[key] {
		if id == sender.ID() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			r.logger.Debug("typing relay failed",
				zap.String("conn_id", id),
				zap.Error(err))
		}
	}
}

// Deliver broadcasts ev to every connection in the room and returns how many
// received it. A missing room drops the event: queueing for a visitor who
// closed the tab is out of scope.
func (r *Router) Deliver(chatbotID, sessionID string, ev *Event) int {
	key := RoomKey(chatbotID, sessionID)
	msg := &ServerMessage{Event: cnst.EventMessage, Data: ev}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[key]
	if !ok {
		r.logger.Debug("no connections in room, dropping event", zap.String("room", key))
		return 0
	}

	delivered := 0
	for id, conn := range room {
		if err := conn.Send(msg); err != nil {
			r.logger.Warn("delivery to connection failed",
				zap.String("conn_id", id),
				zap.String("room", key),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// RoomCount returns the number of active rooms.
func (r *Router) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RoomSize returns the number of connections in one room.
func (r *Router) RoomSize(chatbotID, sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[RoomKey(chatbotID, sessionID)])
}

// Close clears all rooms. Called at shutdown.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]map[string]Conn)
}
