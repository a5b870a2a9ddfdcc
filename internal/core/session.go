package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Banter/internal/domain"
	"github.com/rs/zerolog/log"
)

// connState serializes all events for one connection. Disconnect takes
// the same lock, so an in-flight message either completes before the
// presence sweep or is rejected after it; it can never interleave and
// leave a dangling presence entry.
type connState struct {
	mu   sync.Mutex
	user domain.User
	gone bool
}

// SessionManager governs the per-connection room state machine:
// NotJoined -> Joined -> (Left | Disconnected). It mutates the presence
// registry, persists messages before broadcasting them, and never holds
// a presence lock across a persistence call.
type SessionManager struct {
	mu    sync.RWMutex
	conns map[ConnID]*connState

	presence *PresenceRegistry
	emit     Emitter
	store    MessageStore
	media    Normalizer
}

func NewSessionManager(presence *PresenceRegistry, emit Emitter, store MessageStore, media Normalizer) *SessionManager {
	return &SessionManager{
		conns:    make(map[ConnID]*connState),
		presence: presence,
		emit:     emit,
		store:    store,
		media:    media,
	}
}

// Connect binds the authenticated display name to the connection. The
// login flow validated the user upstream; it is not re-validated here.
func (m *SessionManager) Connect(conn ConnID, user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn] = &connState{user: user}
	log.Info().Str("module", "core.session").Str("conn", string(conn)).Str("username", user.Username).Msg("connected")
}

// JoinRoom moves the connection to Joined for the room, records durable
// membership, and announces the join to the room.
func (m *SessionManager) JoinRoom(ctx context.Context, conn ConnID, roomID domain.RoomID) error {
	st, ok := m.state(conn)
	if !ok {
		return domain.ErrNotJoined
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gone {
		return domain.ErrNotJoined
	}

	// Rooms pre-exist; an unknown id is rejected before any mutation.
	if _, err := m.store.RoomByID(ctx, roomID); err != nil {
		return err
	}

	users := m.presence.Join(roomID, conn, st.user.Username)

	if err := m.store.EnsureMember(ctx, st.user.ID, roomID); err != nil {
		log.Error().Err(err).Str("module", "core.session").Uint("room", uint(roomID)).Msg("ensure member")
	}

	m.emit.BroadcastRoom(roomID, NewNotification(KindJoin, st.user.Username+" has joined the room"))
	m.emit.BroadcastRoom(roomID, NewPresenceUpdate(users))
	log.Info().Str("module", "core.session").Str("conn", string(conn)).Uint("room", uint(roomID)).Msg("joined room")
	return nil
}

// LeaveRoom moves the connection to Left for the room. Leaving a room
// the connection is not joined to is a no-op.
func (m *SessionManager) LeaveRoom(conn ConnID, roomID domain.RoomID) {
	st, ok := m.state(conn)
	if !ok {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	users, removed := m.presence.Leave(roomID, conn)
	if !removed {
		return
	}
	m.emit.BroadcastRoom(roomID, NewNotification(KindLeave, st.user.Username+" has left the room"))
	m.emit.BroadcastRoom(roomID, NewPresenceUpdate(users))
	log.Info().Str("module", "core.session").Str("conn", string(conn)).Uint("room", uint(roomID)).Msg("left room")
}

// Disconnect is the transport-close path and the final word for the
// connection: one atomic sweep over every room it held, exactly one
// notification and presence update per affected room.
func (m *SessionManager) Disconnect(conn ConnID) {
	st, ok := m.state(conn)
	if !ok {
		return
	}
	st.mu.Lock()
	st.gone = true
	st.mu.Unlock()

	m.mu.Lock()
	delete(m.conns, conn)
	m.mu.Unlock()

	updates := m.presence.LeaveAll(conn)
	for _, up := range updates {
		m.emit.BroadcastRoom(up.Room, NewNotification(KindLeave, st.user.Username+" has disconnected"))
		m.emit.BroadcastRoom(up.Room, NewPresenceUpdate(up.Users))
	}
	log.Info().Str("module", "core.session").Str("conn", string(conn)).Int("rooms", len(updates)).Msg("disconnected")
}

// SendMessage persists a text message and then broadcasts it. A
// connection not in Joined state for the room is rejected with no side
// effects.
func (m *SessionManager) SendMessage(ctx context.Context, conn ConnID, roomID domain.RoomID, text string) error {
	return m.publish(ctx, conn, roomID, domain.ContentText, text)
}

// SendImage normalizes the payload first; a decode failure produces no
// persistence and no room broadcast.
func (m *SessionManager) SendImage(ctx context.Context, conn ConnID, roomID domain.RoomID, payload string) error {
	st, ok := m.state(conn)
	if !ok {
		return domain.ErrNotJoined
	}
	st.mu.Lock()
	joined := !st.gone && m.presence.Contains(roomID, conn)
	st.mu.Unlock()
	if !joined {
		return domain.ErrNotJoined
	}

	// Decode outside the connection lock: a big bitmap must not stall
	// a concurrent disconnect.
	normalized, err := m.media.DecodeAndResize(payload)
	if err != nil {
		return err
	}
	return m.publish(ctx, conn, roomID, domain.ContentImage, normalized)
}

func (m *SessionManager) publish(ctx context.Context, conn ConnID, roomID domain.RoomID, ct domain.ContentType, content string) error {
	st, ok := m.state(conn)
	if !ok {
		return domain.ErrNotJoined
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gone || !m.presence.Contains(roomID, conn) {
		return domain.ErrNotJoined
	}

	msg, err := m.store.InsertMessage(ctx, roomID, st.user.ID, ct, content)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	m.emit.BroadcastRoom(roomID, NewMessageBroadcast(msg, st.user.Username))
	m.emit.BroadcastRoom(roomID, NewNotification(KindMessage, msg.Preview(st.user.Username)))
	return nil
}

func (m *SessionManager) state(conn ConnID) (*connState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.conns[conn]
	return st, ok
}
