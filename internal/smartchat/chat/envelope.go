// Package chat is the realtime transport: a websocket hub that fans
// messages out per room, mirrors customer rooms to online staff, and runs
// the AI brain for rooms no staff member is covering.
package chat

import (
	"encoding/json"

	"github.com/chevai/smartchat/internal/smartchat/store"
)

// Event names carried on the wire.
const (
	EventJoinRoom         = "join_room"
	EventSendMessage      = "send_message"
	EventChatMessage      = "chat_message"
	EventChatHistory      = "chat_history"
	EventTyping           = "typing"
	EventAdminTyping      = "admin_typing"
	EventAITypingStart    = "ai_typing_start"
	EventAITypingStop     = "ai_typing_stop"
	EventCheckAdminStatus = "check_admin_status"
	EventAdminOnline      = "admin_online"
	EventAdminOffline     = "admin_offline"
	EventError            = "error"
)

// Envelope is the framing for every websocket message, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an envelope. Marshal failures are
// programming errors on our own types, so they panic.
func NewEnvelope(event string, data any) Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		panic("chat: marshal envelope data: " + err.Error())
	}
	return Envelope{Event: event, Data: raw}
}

// JoinRequest is the payload of join_room.
type JoinRequest struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Name     string `json:"name,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
	AdminKey string `json:"adminKey,omitempty"`
}

// SendRequest is the payload of send_message.
type SendRequest struct {
	Body string `json:"body"`
}

// HistoryPayload is the payload of chat_history.
type HistoryPayload struct {
	RoomID   string          `json:"roomId"`
	Messages []store.Message `json:"messages"`
}

// TypingPayload is the payload of typing / admin_typing.
type TypingPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Typing bool   `json:"typing"`
}

// PresencePayload is the payload of admin_online / admin_offline.
type PresencePayload struct {
	AdminID string `json:"adminId"`
	Online  int    `json:"online"`
}

// ErrorPayload is the payload of error events.
type ErrorPayload struct {
	Message string `json:"message"`
}
