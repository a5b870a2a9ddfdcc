package core

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Banter/internal/domain"
	"github.com/rs/zerolog/log"
)

// Sink is one connection's outgoing half.
// Owned by the adapter; the adapter must Close() it.
type Sink interface {
	TrySend([]byte) error
	Close()
}

// Broadcaster fans events out to the connections the presence registry
// reports as joined at the time of the call. Connections joining
// mid-broadcast may or may not receive the event; per-receiver order of
// successive broadcasts matches call order because TrySend enqueues
// in-line.
type Broadcaster struct {
	presence *PresenceRegistry

	mu    sync.RWMutex
	sinks map[ConnID]Sink
}

func NewBroadcaster(presence *PresenceRegistry) *Broadcaster {
	return &Broadcaster{
		presence: presence,
		sinks:    make(map[ConnID]Sink),
	}
}

func (b *Broadcaster) Register(conn ConnID, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[conn] = s
}

func (b *Broadcaster) Unregister(conn ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, conn)
}

// BroadcastRoom delivers v to every connection currently joined to the
// room. A room with no joined connections is a legal no-op. A slow or
// closed sink is skipped, never blocks the others.
func (b *Broadcaster) BroadcastRoom(roomID domain.RoomID, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.broadcast").Msg("marshal event")
		return
	}

	conns := b.presence.Connections(roomID)
	sent, dropped := 0, 0
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, conn := range conns {
		s, ok := b.sinks[conn]
		if !ok {
			continue
		}
		if err := s.TrySend(data); err != nil {
			dropped++
			continue
		}
		sent++
	}
	if dropped > 0 {
		log.Warn().Str("module", "core.broadcast").Uint("room", uint(roomID)).Int("sent", sent).Int("dropped", dropped).Msg("broadcast dropped receivers")
	}
}

// SendTo delivers v to a single connection (private error events).
func (b *Broadcaster) SendTo(conn ConnID, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.broadcast").Msg("marshal event")
		return
	}
	b.mu.RLock()
	s, ok := b.sinks[conn]
	b.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "core.broadcast").Str("conn", string(conn)).Msg("send dropped")
	}
}
