package lavalink

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// Stats are the node statistics sent every minute
type Stats struct {
	Players        int   `json:"players"`
	PlayingPlayers int   `json:"playingPlayers"`
	Uptime         int64 `json:"uptime"`
	Memory         struct {
		Free      int64 `json:"free"`
		Used      int64 `json:"used"`
		Allocated int64 `json:"allocated"`
	} `json:"memory"`
}

// message is any op the node sends over the websocket
type message struct {
	Op        string `json:"op"`
	SessionID string `json:"sessionId"`
	Resumed   bool   `json:"resumed"`
	GuildID   string `json:"guildId"`

	// playerUpdate
	State *struct {
		Position  int64 `json:"position"`
		Connected bool  `json:"connected"`
	} `json:"state"`

	// event
	Type        string `json:"type"`
	Track       *Track `json:"track"`
	Reason      string `json:"reason"`
	ThresholdMs int64  `json:"thresholdMs"`
	Code        int    `json:"code"`
	Exception   *struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"exception"`

	Stats
}

func (c *Client) run() {
	for {
		if err := c.connect(); err != nil {
			logger.Error(fmt.Sprintf("Error al conectar con Lavalink %s: %v", c.config.Name, err), "Lavalink")
		} else {
			c.readMessages()
		}

		select {
		case <-c.closed:
			return
		case <-time.After(reconnectDelay):
			logger.Warn(fmt.Sprintf("Reintentando conexión con Lavalink: %s", c.config.Name), "Lavalink")
		}
	}
}

// connect establishes the websocket connection
func (c *Client) connect() error {
	c.mu.RLock()
	userID := c.userID
	c.mu.RUnlock()

	headers := http.Header{}
	headers.Set("Authorization", c.config.Password)
	headers.Set("User-Id", userID)
	headers.Set("Client-Name", clientName)

	conn, _, err := c.dialer.Dial(c.config.websocketURL(), headers)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	logger.Success(fmt.Sprintf("Conectado con Lavalink server: %s", c.config.Name), "Lavalink")
	return nil
}

// readMessages reads until the connection drops
func (c *Client) readMessages() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				logger.Warn(fmt.Sprintf("Error leyendo mensaje de Lavalink: %v", err), "Lavalink")
			}
			c.handleDisconnect()
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug(fmt.Sprintf("Mensaje de Lavalink inválido: %v", err), "Lavalink")
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage processes incoming Lavalink messages
func (c *Client) handleMessage(msg message) {
	switch msg.Op {
	case "ready":
		c.mu.Lock()
		c.sessionID = msg.SessionID
		c.mu.Unlock()
		select {
		case <-c.ready:
		default:
			close(c.ready)
		}
		logger.Info(fmt.Sprintf("Lavalink ready (session %s, resumed %v)", msg.SessionID, msg.Resumed), "Lavalink")
		c.resendVoice()

	case "playerUpdate":
		if msg.State == nil {
			return
		}
		c.mu.Lock()
		c.positions[msg.GuildID] = time.Duration(msg.State.Position) * time.Millisecond
		c.mu.Unlock()

	case "stats":
		c.mu.Lock()
		c.stats = msg.Stats
		c.mu.Unlock()

	case "event":
		c.handleEvent(msg)
	}
}

// handleEvent handles Lavalink player events
func (c *Client) handleEvent(msg message) {
	key := ""
	title := ""
	if msg.Track != nil {
		key = msg.Track.playbackKey()
		title = msg.Track.Info.Title
	}

	switch msg.Type {
	case "TrackStartEvent":
		logger.Info(fmt.Sprintf("Reproduciendo: %s en guild %s", title, msg.GuildID), "Lavalink")

	case "TrackEndEvent":
		c.clearPosition(msg.GuildID)
		if !endsNaturally(msg.Reason) {
			return
		}
		c.emitTrackEnd(msg.GuildID, key)

	case "TrackExceptionEvent":
		if msg.Exception != nil {
			logger.Error(fmt.Sprintf("Track exception in guild %s: %s", msg.GuildID, msg.Exception.Message), "Lavalink")
		}

	case "TrackStuckEvent":
		logger.Warn(fmt.Sprintf("Track stuck in guild %s (%dms)", msg.GuildID, msg.ThresholdMs), "Lavalink")
		c.emitTrackEnd(msg.GuildID, key)

	case "WebSocketClosedEvent":
		logger.Warn(fmt.Sprintf("WebSocket closed for guild %s (code %d)", msg.GuildID, msg.Code), "Lavalink")
	}
}

// endsNaturally reports whether a TrackEndEvent reason should advance the
// queue. "stopped", "replaced" and "cleanup" come from our own requests.
func endsNaturally(reason string) bool {
	return reason == "finished" || reason == "loadFailed"
}

func (c *Client) emitTrackEnd(guildID, key string) {
	c.mu.RLock()
	fn := c.onTrackEnd
	c.mu.RUnlock()
	if fn != nil {
		fn(guildID, key)
	}
}

func (c *Client) clearPosition(guildID string) {
	c.mu.Lock()
	delete(c.positions, guildID)
	c.mu.Unlock()
}

// handleDisconnect handles node disconnection
func (c *Client) handleDisconnect() {
	c.mu.Lock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	select {
	case <-c.closed:
	default:
		logger.Warn(fmt.Sprintf("Desconectado de Lavalink: %s. Reintentando...", c.config.Name), "Lavalink")
	}
}
