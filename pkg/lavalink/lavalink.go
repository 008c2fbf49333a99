// Package lavalink is a Lavalink v4 client. It keeps the node websocket open
// for events, drives guild players over REST and forwards the bot's Discord
// voice credentials to the node.
package lavalink

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

const (
	clientName     = "JazzBot-Go/1.0"
	reconnectDelay = 5 * time.Second
)

// NodeConfig holds configuration for a Lavalink node
type NodeConfig struct {
	Name     string
	Host     string
	Port     int
	Password string
	Secure   bool
	// SearchPrefix is prepended to free-text queries, e.g. "ytsearch"
	SearchPrefix string
}

func (c NodeConfig) baseURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

func (c NodeConfig) websocketURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/v4/websocket", scheme, c.Host, c.Port)
}

// TrackEndFunc receives the guild of a track that ended and its playback
// key: the PlaybackID it was started with, or its encoded track
// on its own (finished, failed to load or got stuck)
type TrackEndFunc func(guildID, key string)

// Client manages the connection to one Lavalink node
type Client struct {
	config     NodeConfig
	httpClient *http.Client
	dialer     websocket.Dialer

	mu        sync.RWMutex
	userID    string
	started   bool
	conn      *websocket.Conn
	sessionID string
	connected bool
	stats     Stats
	voice     map[string]*voiceState
	positions map[string]time.Duration
	ready     chan struct{}

	onTrackEnd TrackEndFunc

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient creates a client. Call Connect once the bot user ID is known.
func NewClient(config NodeConfig) *Client {
	if config.Name == "" {
		config.Name = "main"
	}
	if config.SearchPrefix == "" {
		config.SearchPrefix = "ytsearch"
	}
	logger.Debug("Initializing Lavalink Client", "Lavalink")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		dialer:     websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		voice:      make(map[string]*voiceState),
		positions:  make(map[string]time.Duration),
		ready:      make(chan struct{}),
		closed:     make(chan struct{}),
	}
}

// OnTrackEnd sets the callback for natural track ends
func (c *Client) OnTrackEnd(fn TrackEndFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrackEnd = fn
}

// Connect starts the websocket loop in the background. It reconnects until
// Close is called. Later calls are ignored.
func (c *Client) Connect(userID string) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.userID = userID
	c.mu.Unlock()

	go c.run()
}

// Ready is closed once the node sent its first ready op
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Connected reports whether the websocket is up and a session is known
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.sessionID != ""
}

// Name returns the node name
func (c *Client) Name() string {
	return c.config.Name
}

// Stats returns the last statistics reported by the node
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Position returns the last playback position reported for a guild
func (c *Client) Position(guildID string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positions[guildID]
}

// Close disconnects from the node and stops reconnecting
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.connected = false
		c.mu.Unlock()

		logger.System("Lavalink client desconectado", "Lavalink")
	})
}

func (c *Client) session() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.sessionID == "" {
		return "", fmt.Errorf("lavalink node %s is not ready", c.config.Name)
	}
	return c.sessionID, nil
}
