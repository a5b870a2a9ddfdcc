package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/adapters/ws"
	"github.com/dkeye/Banter/internal/config"
	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/store"
)

func SetupRouter(ctx context.Context, cfg *config.Config, st *store.Store, presence *core.PresenceRegistry, ctl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("BanterSession", sessionStore))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &Handlers{Store: st, Presence: presence, PageSize: cfg.HistoryPageSize}

	api := r.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/me", h.Me)
	api.GET("/rooms", h.Rooms)
	api.GET("/rooms/:id/messages", h.Messages)

	api.GET("/ws", func(c *gin.Context) {
		user, ok := sessionUser(c)
		if !ok {
			c.JSON(401, gin.H{"error": "login required"})
			return
		}
		ctl.HandleChat(ctx, c, user)
	})

	return r
}
