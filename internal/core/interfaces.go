package core

import (
	"context"

	"github.com/dkeye/Banter/internal/domain"
)

// MessageStore is the persistence gateway the session manager depends
// on. Implementations assign Message.ID and Message.CreatedAt; the
// session manager maps storage failures to domain.ErrPersistence.
type MessageStore interface {
	RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	EnsureMember(ctx context.Context, userID domain.UserID, roomID domain.RoomID) error
	InsertMessage(ctx context.Context, roomID domain.RoomID, userID domain.UserID, ct domain.ContentType, content string) (*domain.Message, error)
}

// Normalizer decodes an inbound image payload and re-encodes it bounded
// to the configured max dimension. Malformed input fails with
// domain.ErrMediaDecode (wrapped).
type Normalizer interface {
	DecodeAndResize(payload string) (string, error)
}

// Emitter abstracts the broadcaster so transitions can be tested
// without a live transport.
type Emitter interface {
	BroadcastRoom(roomID domain.RoomID, v any)
	SendTo(conn ConnID, v any)
}
