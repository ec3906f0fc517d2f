package cnst

const (
	// HeaderSignature carries the hex HMAC-SHA256 of the request body.
	HeaderSignature = "X-ChatFlowUI-Signature"

	// MaxMessageLength is the ceiling for a single widget message.
	MaxMessageLength = 4096
)

// Rate-limit buckets, one per endpoint class so counters never interfere.
const (
	BucketAPI     = "api"
	BucketWidget  = "widget"
	BucketWebhook = "webhook"
)

// Realtime events, client to server.
const (
	EventJoin   = "join"
	EventLeave  = "leave"
	EventTyping = "typing"
)

// Realtime events, server to client.
const (
	EventMessage    = "message"
	EventUserTyping = "user_typing"
	EventError      = "error"
)

// TypeBotMessage is the type tag on outbound bot message events.
const TypeBotMessage = "bot_message"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)
