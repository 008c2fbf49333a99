package lavalink

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// voiceState collects the two halves of a Discord voice connection
type voiceState struct {
	sessionID string
	channelID string
	token     string
	endpoint  string
}

func (v *voiceState) complete() bool {
	return v.sessionID != "" && v.token != "" && v.endpoint != ""
}

type voiceRequest struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
	ChannelID string `json:"channelId,omitempty"`
}

// Attach forwards the bot's voice updates from the Discord session
func (c *Client) Attach(s *discordgo.Session) {
	s.AddHandler(c.voiceStateUpdate)
	s.AddHandler(c.voiceServerUpdate)
}

func (c *Client) voiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	c.VoiceStateUpdate(v.GuildID, v.ChannelID, v.SessionID)
}

func (c *Client) voiceServerUpdate(_ *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	c.VoiceServerUpdate(v.GuildID, v.Token, v.Endpoint)
}

// VoiceStateUpdate records the bot's voice session. An empty channel means
// the bot left voice.
func (c *Client) VoiceStateUpdate(guildID, channelID, sessionID string) {
	if channelID == "" {
		c.forgetVoice(guildID)
		return
	}

	c.mu.Lock()
	state := c.voiceFor(guildID)
	state.sessionID = sessionID
	state.channelID = channelID
	c.mu.Unlock()

	c.sendVoice(guildID)
}

// VoiceServerUpdate records the voice server the guild was assigned
func (c *Client) VoiceServerUpdate(guildID, token, endpoint string) {
	c.mu.Lock()
	state := c.voiceFor(guildID)
	state.token = token
	state.endpoint = endpoint
	c.mu.Unlock()

	c.sendVoice(guildID)
}

// voiceFor must be called with c.mu held
func (c *Client) voiceFor(guildID string) *voiceState {
	state, ok := c.voice[guildID]
	if !ok {
		state = &voiceState{}
		c.voice[guildID] = state
	}
	return state
}

func (c *Client) forgetVoice(guildID string) {
	c.mu.Lock()
	delete(c.voice, guildID)
	c.mu.Unlock()
}

// sendVoice hands complete credentials to the node player
func (c *Client) sendVoice(guildID string) {
	c.mu.RLock()
	state, ok := c.voice[guildID]
	var req voiceRequest
	if ok && state.complete() {
		req = voiceRequest{
			Token:     state.token,
			Endpoint:  state.endpoint,
			SessionID: state.sessionID,
			ChannelID: state.channelID,
		}
	}
	c.mu.RUnlock()

	if req.Token == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()
	if err := c.UpdatePlayer(ctx, guildID, playerUpdate{Voice: &req}); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo enviar la voz de %s a Lavalink: %v", guildID, err), "Lavalink")
	}
}

// resendVoice replays known voice credentials after a new session
func (c *Client) resendVoice() {
	c.mu.RLock()
	guilds := make([]string, 0, len(c.voice))
	for guildID := range c.voice {
		guilds = append(guilds, guildID)
	}
	c.mu.RUnlock()

	for _, guildID := range guilds {
		go c.sendVoice(guildID)
	}
}
