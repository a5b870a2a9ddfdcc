package core

import (
	"time"

	"github.com/dkeye/Banter/internal/domain"
)

// Outbound event envelopes. Type is the discriminator the client
// switches on; the rest of the fields ride alongside it.

const (
	KindJoin    = "join"
	KindLeave   = "leave"
	KindMessage = "message"
)

// Notification is a transient UI event describing a join/leave/message
// occurrence. Never persisted.
type Notification struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewNotification(kind, message string) Notification {
	return Notification{Type: "notification", Kind: kind, Message: message}
}

// PresenceUpdate carries the full ordered presence list for a room.
type PresenceUpdate struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

func NewPresenceUpdate(users []string) PresenceUpdate {
	return PresenceUpdate{Type: "user_list_update", Users: users, Count: len(users)}
}

// NewMessageEvent mirrors the persisted message for live delivery.
type NewMessageEvent struct {
	Type        string             `json:"type"`
	ID          uint               `json:"id"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type"`
	Timestamp   string             `json:"timestamp"`
	Username    string             `json:"username"`
	UserID      domain.UserID      `json:"user_id"`
}

func NewMessageBroadcast(msg *domain.Message, username string) NewMessageEvent {
	return NewMessageEvent{
		Type:        "new_message",
		ID:          msg.ID,
		Content:     msg.Content,
		ContentType: msg.ContentType,
		Timestamp:   msg.CreatedAt.Format(time.RFC3339),
		Username:    username,
		UserID:      msg.UserID,
	}
}

// ErrorEvent goes to a single connection, never broadcast.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}
