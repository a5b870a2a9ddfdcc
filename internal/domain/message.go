package domain

import "time"

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

const previewLen = 30

// Message is immutable once created: the store assigns ID and CreatedAt,
// after that it is shared by reference only.
type Message struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	RoomID      RoomID      `gorm:"index:idx_msg_room;not null" json:"room_id"`
	UserID      UserID      `gorm:"index;not null" json:"user_id"`
	ContentType ContentType `gorm:"size:16;not null;default:text" json:"content_type"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Preview renders the short notification line shown in room toasts.
func (m *Message) Preview(username string) string {
	if m.ContentType == ContentImage {
		return username + " sent an image"
	}
	text := m.Content
	if len(text) > previewLen {
		text = text[:previewLen]
	}
	return username + ": " + text + "..."
}
