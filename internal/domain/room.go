package domain

import "time"

const MaxRoomNameLen = 128

type RoomID uint

// Room is created out-of-band (startup seeding); the core never creates
// rooms at runtime.
type Room struct {
	ID        RoomID    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
}

// RoomMember records that a user has ever entered a room. It is durable
// membership, unrelated to live presence.
type RoomMember struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    UserID    `gorm:"uniqueIndex:idx_member_user_room;not null"`
	RoomID    RoomID    `gorm:"uniqueIndex:idx_member_user_room;not null"`
	CreatedAt time.Time
}
