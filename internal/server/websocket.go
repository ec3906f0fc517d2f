package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
	"github.com/harisabid200/ChatFlowUI/internal/relay"
)

const (
	sendQueueSize = 100
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	maxFrameBytes = 16 * 1024
)

var errSendQueueFull = errors.New("send queue full")

// clientMessage is one inbound frame from the widget.
type clientMessage struct {
	Event     string `json:"event"`
	ChatbotID string `json:"chatbotId"`
	SessionID string `json:"sessionId"`
	IsTyping  bool   `json:"isTyping"`
}

// wsConn adapts a websocket connection to relay.Conn. Outbound messages go
// through a buffered queue drained by the write pump, so broadcasts never
// block the router on a slow client.
type wsConn struct {
	id   string
	sock *websocket.Conn
	send chan *relay.ServerMessage

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(sock *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		sock: sock,
		send: make(chan *relay.ServerMessage, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(msg *relay.ServerMessage) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	case c.send <- msg:
		return nil
	default:
		return errSendQueueFull
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sock.Close()
	})
}

// handleWebSocket upgrades the connection and runs the read loop. Every
// origin passes the handshake; whether the connection may actually receive
// anything is decided per join against the chatbot's allow-list.
func (s *Server) handleWebSocket(c *gin.Context) {
	sock, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newWSConn(sock)
	connOrigin := c.Request.Header.Get("Origin")

	if s.metrics != nil {
		s.metrics.ConnOpened()
	}
	s.logger.Debug("client connected", zap.String("conn_id", conn.id))

	go s.writePump(conn)
	s.readPump(c.Request.Context(), conn, connOrigin)
}

func (s *Server) readPump(ctx context.Context, conn *wsConn, connOrigin string) {
	defer func() {
		s.router.Disconnect(conn)
		conn.close()
		if s.metrics != nil {
			s.metrics.ConnClosed()
		}
		s.logger.Debug("client disconnected", zap.String("conn_id", conn.id))
	}()

	conn.sock.SetReadLimit(maxFrameBytes)
	_ = conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	conn.sock.SetPongHandler(func(string) error {
		return conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", zap.String("conn_id", conn.id), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(conn, "Invalid message")
			continue
		}

		switch msg.Event {
		case cnst.EventJoin:
			if err := s.router.Join(ctx, conn, msg.ChatbotID, msg.SessionID, connOrigin); err != nil {
				switch {
				case errors.Is(err, relay.ErrInvalidChatbot):
					s.sendError(conn, "Invalid chatbot")
				case errors.Is(err, relay.ErrOriginNotAllowed):
					if s.metrics != nil {
						s.metrics.OriginRejected()
					}
					s.sendError(conn, "Origin not allowed")
				default:
					s.logger.Error("join failed", zap.String("conn_id", conn.id), zap.Error(err))
					s.sendError(conn, "Internal server error")
				}
			}
		case cnst.EventLeave:
			s.router.Leave(conn, msg.ChatbotID, msg.SessionID)
		case cnst.EventTyping:
			s.router.RelayTyping(conn, msg.ChatbotID, msg.SessionID, msg.IsTyping)
		default:
			// Unknown events are ignored, the widget may be newer than the
			// server.
		}
	}
}

func (s *Server) writePump(conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.close()
	}()

	for {
		select {
		case <-conn.done:
			return
		case msg := <-conn.send:
			_ = conn.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.sock.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", zap.String("conn_id", conn.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendError(conn *wsConn, message string) {
	err := conn.Send(&relay.ServerMessage{
		Event: cnst.EventError,
		Data:  map[string]string{"message": message},
	})
	if err != nil {
		s.logger.Debug("failed to send error event", zap.String("conn_id", conn.id), zap.Error(err))
	}
}
