package http

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/store"
)

type Handlers struct {
	Store    *store.Store
	Presence *core.PresenceRegistry
	PageSize int
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
}

// Login creates the user on first sight and binds the display name to
// the cookie session. No password: identity hardening is out of scope.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid username"})
		return
	}

	user, err := h.Store.GetOrCreateUser(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := sessions.Default(c)
	sess.Set("username", user.Username)
	sess.Set("user_id", uint(user.ID))
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("username", user.Username).Msg("login")
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Me(c *gin.Context) {
	user, ok := sessionUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type roomView struct {
	ID     domain.RoomID `json:"id"`
	Name   string        `json:"name"`
	Online int           `json:"online"`
}

// Rooms lists every room with its live presence count.
func (h *Handlers) Rooms(c *gin.Context) {
	rooms, err := h.Store.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "room list failed"})
		return
	}
	out := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		_, count := h.Presence.Snapshot(r.ID)
		out = append(out, roomView{ID: r.ID, Name: r.Name, Online: count})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// Messages is the paginated history pass-through for one room.
func (h *Handlers) Messages(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	history, err := h.Store.RecentMessages(c.Request.Context(), domain.RoomID(roomID), page, h.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// sessionUser recovers the login identity from the cookie session.
func sessionUser(c *gin.Context) (domain.User, bool) {
	sess := sessions.Default(c)
	username, _ := sess.Get("username").(string)
	userID, _ := sess.Get("user_id").(uint)
	if username == "" || userID == 0 {
		return domain.User{}, false
	}
	return domain.User{ID: domain.UserID(userID), Username: username}, true
}
