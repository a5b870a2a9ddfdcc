package core

import (
	"sync"

	"github.com/dkeye/Banter/internal/domain"
	"github.com/rs/zerolog/log"
)

// ConnID is a transport-level identity, unique for the connection's
// lifetime. The core never owns the connection, only this reference.
type ConnID string

type presenceEntry struct {
	conn ConnID
	name string
}

// roomPresence is a threadsafe ordered membership set for one room.
// Ordering is join order; a rejoin keeps the original position.
type roomPresence struct {
	mu      sync.RWMutex
	entries []presenceEntry
}

func (rp *roomPresence) join(conn ConnID, name string) []string {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	for i := range rp.entries {
		if rp.entries[i].conn == conn {
			rp.entries[i].name = name
			return rp.namesLocked()
		}
	}
	rp.entries = append(rp.entries, presenceEntry{conn: conn, name: name})
	return rp.namesLocked()
}

func (rp *roomPresence) leave(conn ConnID) (names []string, removed bool) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	for i := range rp.entries {
		if rp.entries[i].conn == conn {
			rp.entries = append(rp.entries[:i], rp.entries[i+1:]...)
			return rp.namesLocked(), true
		}
	}
	return rp.namesLocked(), false
}

func (rp *roomPresence) snapshot() []string {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	return rp.namesLocked()
}

func (rp *roomPresence) conns() []ConnID {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	out := make([]ConnID, 0, len(rp.entries))
	for _, e := range rp.entries {
		out = append(out, e.conn)
	}
	return out
}

func (rp *roomPresence) contains(conn ConnID) bool {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	for _, e := range rp.entries {
		if e.conn == conn {
			return true
		}
	}
	return false
}

func (rp *roomPresence) namesLocked() []string {
	out := make([]string, 0, len(rp.entries))
	for _, e := range rp.entries {
		out = append(out, e.name)
	}
	return out
}

// RoomUpdate is one room's post-mutation presence list, as reported by
// LeaveAll.
type RoomUpdate struct {
	Room  domain.RoomID
	Users []string
}

// PresenceRegistry is the single source of truth for "online now".
// It maps room -> ordered (connection, display name) entries. Mutations
// for one room are serialized by that room's own lock; independent rooms
// mutate concurrently. The registry lives for the process lifetime.
type PresenceRegistry struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*roomPresence
	byConn map[ConnID][]domain.RoomID // rooms in join order, for LeaveAll
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		rooms:  make(map[domain.RoomID]*roomPresence),
		byConn: make(map[ConnID][]domain.RoomID),
	}
}

// Join inserts the entry and returns the updated ordered name list.
// Rejoining with the same connection replaces the display name in place.
func (r *PresenceRegistry) Join(roomID domain.RoomID, conn ConnID, name string) []string {
	r.mu.Lock()
	rp, ok := r.rooms[roomID]
	if !ok {
		rp = &roomPresence{}
		r.rooms[roomID] = rp
	}
	if !containsRoom(r.byConn[conn], roomID) {
		r.byConn[conn] = append(r.byConn[conn], roomID)
	}
	r.mu.Unlock()

	users := rp.join(conn, name)
	log.Debug().Str("module", "core.presence").Str("conn", string(conn)).Uint("room", uint(roomID)).Int("count", len(users)).Msg("joined")
	return users
}

// Leave removes the entry if present; absent is a no-op, not an error.
func (r *PresenceRegistry) Leave(roomID domain.RoomID, conn ConnID) (users []string, removed bool) {
	r.mu.Lock()
	rp, ok := r.rooms[roomID]
	if ok {
		r.byConn[conn] = dropRoom(r.byConn[conn], roomID)
		if len(r.byConn[conn]) == 0 {
			delete(r.byConn, conn)
		}
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	users, removed = rp.leave(conn)
	if removed {
		log.Debug().Str("module", "core.presence").Str("conn", string(conn)).Uint("room", uint(roomID)).Int("count", len(users)).Msg("left")
	}
	return users, removed
}

// LeaveAll removes the connection from every room it was present in and
// reports each affected room's updated list, in the connection's join
// order. Used on disconnect; returns nil for an unknown connection.
func (r *PresenceRegistry) LeaveAll(conn ConnID) []RoomUpdate {
	r.mu.Lock()
	roomIDs := r.byConn[conn]
	delete(r.byConn, conn)
	held := make([]*roomPresence, len(roomIDs))
	for i, id := range roomIDs {
		held[i] = r.rooms[id]
	}
	r.mu.Unlock()

	out := make([]RoomUpdate, 0, len(roomIDs))
	for i, rp := range held {
		if rp == nil {
			continue
		}
		if users, removed := rp.leave(conn); removed {
			out = append(out, RoomUpdate{Room: roomIDs[i], Users: users})
		}
	}
	log.Debug().Str("module", "core.presence").Str("conn", string(conn)).Int("rooms", len(out)).Msg("left all rooms")
	return out
}

// Snapshot returns the current names and count; never mutates.
func (r *PresenceRegistry) Snapshot(roomID domain.RoomID) ([]string, int) {
	r.mu.RLock()
	rp, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil, 0
	}
	users := rp.snapshot()
	return users, len(users)
}

// Connections returns the connection ids currently joined to the room.
// The broadcaster fans out to this set.
func (r *PresenceRegistry) Connections(roomID domain.RoomID) []ConnID {
	r.mu.RLock()
	rp, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return rp.conns()
}

// Contains reports whether the connection is joined to the room.
func (r *PresenceRegistry) Contains(roomID domain.RoomID, conn ConnID) bool {
	r.mu.RLock()
	rp, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return rp.contains(conn)
}

func containsRoom(rooms []domain.RoomID, id domain.RoomID) bool {
	for _, r := range rooms {
		if r == id {
			return true
		}
	}
	return false
}

func dropRoom(rooms []domain.RoomID, id domain.RoomID) []domain.RoomID {
	for i, r := range rooms {
		if r == id {
			return append(rooms[:i], rooms[i+1:]...)
		}
	}
	return rooms
}
