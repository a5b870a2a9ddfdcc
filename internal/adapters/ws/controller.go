// Package ws is the websocket transport for the chat core. It owns the
// connection lifecycle; the core only ever sees connection ids.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Sessions   *core.SessionManager
	Bcast      *core.Broadcaster
	Limiter    *EventRateLimiter
	ReadLimit  int64
	SendBuf    int
	PingPeriod time.Duration
}

func NewController(sessions *core.SessionManager, bcast *core.Broadcaster, limiter *EventRateLimiter, readLimit int64, sendBuf int, pingPeriod time.Duration) *Controller {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Sessions:   sessions,
		Bcast:      bcast,
		Limiter:    limiter,
		ReadLimit:  readLimit,
		SendBuf:    sendBuf,
		PingPeriod: pingPeriod,
	}
}

// HandleChat upgrades the request and runs the connection until the
// peer goes away. The read loop exit is the single disconnect trigger.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context, user domain.User) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	connID := core.ConnID(uuid.NewString())
	conn := newWSConn(ws, ctl.SendBuf)
	log.Info().Str("module", "ws").Str("conn", string(connID)).Str("username", user.Username).Msg("new connection")

	ctl.Bcast.Register(connID, conn)
	ctl.Sessions.Connect(connID, user)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer func() {
			cancel()
			ctl.Sessions.Disconnect(connID)
			ctl.Bcast.Unregister(connID)
			ctl.Limiter.Forget(connID)
			conn.Close()
		}()
		ctl.readPump(ctx, connID, conn)
	}()
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, connID core.ConnID, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "ws").Str("conn", string(connID)).Msg("readPump read error")
				}
				return
			}
			ctl.handleEvent(ctx, connID, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	// join/leave stay exempt: throttling cleanup would leak presence.
	switch env.Type {
	case "message", "image":
		if !ctl.Limiter.Allow(connID) {
			ctl.sendError(c, "rate limited")
			return
		}
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, connID, c, data)
	case "leave":
		ctl.handleLeave(connID, c, data)
	case "message":
		ctl.handleMessage(ctx, connID, c, data)
	case "image":
		ctl.handleImage(ctx, connID, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event type")
		ctl.sendError(c, "unknown event type")
	}
}

func (ctl *Controller) handleJoin(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p struct {
		RoomID domain.RoomID `json:"room_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.Sessions.JoinRoom(ctx, connID, p.RoomID); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(connID)).Uint("room", uint(p.RoomID)).Msg("join rejected")
		ctl.sendError(c, errorMessage(err))
	}
}

func (ctl *Controller) handleLeave(connID core.ConnID, c *wsConn, data []byte) {
	var p struct {
		RoomID domain.RoomID `json:"room_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Sessions.LeaveRoom(connID, p.RoomID)
}

func (ctl *Controller) handleMessage(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p struct {
		RoomID  domain.RoomID `json:"room_id"`
		Content string        `json:"content"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Content == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.Sessions.SendMessage(ctx, connID, p.RoomID, p.Content); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(connID)).Msg("message rejected")
		ctl.sendError(c, errorMessage(err))
	}
}

func (ctl *Controller) handleImage(ctx context.Context, connID core.ConnID, c *wsConn, data []byte) {
	var p struct {
		RoomID domain.RoomID `json:"room_id"`
		Image  string        `json:"image"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Image == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.Sessions.SendImage(ctx, connID, p.RoomID, p.Image); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(connID)).Msg("image rejected")
		ctl.sendError(c, errorMessage(err))
	}
}

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, core.NewErrorEvent(msg))
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// errorMessage maps core errors to the client-facing error text.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotJoined):
		return "not joined to this room"
	case errors.Is(err, domain.ErrUnknownRoom):
		return "room does not exist"
	case errors.Is(err, domain.ErrMediaDecode):
		return "Failed to process image"
	case errors.Is(err, domain.ErrPersistence):
		return "failed to store message"
	default:
		return "internal error"
	}
}
