package relay

import (
	"time"

	"github.com/harisabid200/ChatFlowUI/internal/common/cnst"
)

// Event is the outbound bot message pushed to every connection in a room.
type Event struct {
	Type         string         `json:"type"`
	Message      string         `json:"message"`
	QuickReplies []string       `json:"quickReplies"`
	Metadata     map[string]any `json:"metadata"`
	Timestamp    string         `json:"timestamp"`
}

// NewBotMessage builds a bot_message event stamped with the current time.
func NewBotMessage(message string, quickReplies []string, metadata map[string]any) *Event {
	if quickReplies == nil {
		quickReplies = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Event{
		Type:         cnst.TypeBotMessage,
		Message:      message,
		QuickReplies: quickReplies,
		Metadata:     metadata,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

// TypingEvent is the transient typing indicator relayed between connections
// of one room.
type TypingEvent struct {
	IsTyping bool `json:"isTyping"`
}

// ServerMessage is one frame sent to a realtime connection.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
