package web

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PancyStudios/JazzBotGo/pkg/lavalink"
	"github.com/PancyStudios/JazzBotGo/pkg/mqtt"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

var snowflake = regexp.MustCompile(`^\d{15,21}$`)

// Bot reports the Discord connection
type Bot interface {
	IsReady() bool
	GuildCount() int
}

// Node reports the audio node connection
type Node interface {
	Name() string
	Connected() bool
	Stats() lavalink.Stats
}

// Store reports the database connection
type Store interface {
	GetStatus() (string, bool)
}

// Sessions exposes the live playback sessions
type Sessions interface {
	Len() int
	Snapshot(ctx context.Context, guildID string) (music.Snapshot, bool, error)
}

// API holds what the routes report on. Nil fields are reported as offline.
type API struct {
	Bot      Bot
	Node     Node
	Store    Store
	Sessions Sessions
	Position mqtt.PositionFunc
	Version  string
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, a *API) {
	api := s.Group("/api")
	{
		api.GET("/health", a.healthHandler)
		api.GET("/status", a.statusHandler)
		api.GET("/guilds/:guildId/player", a.playerHandler)
	}
}

// healthHandler returns a simple health check response
func (a *API) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "JazzBot Go is running",
		"version": a.Version,
	})
}

// statusHandler returns the bot, audio node and database status
func (a *API) statusHandler(c *gin.Context) {
	bot := gin.H{"isOnline": false, "guilds": 0}
	if a.Bot != nil {
		bot = gin.H{"isOnline": a.Bot.IsReady(), "guilds": a.Bot.GuildCount()}
	}

	node := gin.H{"isOnline": false}
	if a.Node != nil {
		stats := a.Node.Stats()
		node = gin.H{
			"name":           a.Node.Name(),
			"isOnline":       a.Node.Connected(),
			"players":        stats.Players,
			"playingPlayers": stats.PlayingPlayers,
			"uptime":         (time.Duration(stats.Uptime) * time.Millisecond).String(),
		}
	}

	db := gin.H{"status": "🔴 | Desconectado", "isOnline": false}
	if a.Store != nil {
		status, online := a.Store.GetStatus()
		db = gin.H{"status": status, "isOnline": online}
	}

	sessions := 0
	if a.Sessions != nil {
		sessions = a.Sessions.Len()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"bot":      bot,
		"lavalink": node,
		"database": db,
		"sessions": sessions,
	})
}

// playerHandler returns the player snapshot of a guild
func (a *API) playerHandler(c *gin.Context) {
	guildID := c.Param("guildId")
	if !snowflake.MatchString(guildID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "guildId inválido.",
		})
		return
	}

	if a.Sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Service Unavailable",
			"message": "El reproductor no está disponible en este momento.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	snap, active, err := a.Sessions.Snapshot(ctx, guildID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Service Unavailable",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active": active,
		"player": mqtt.NewMusicState(snap, a.Position),
	})
}
