// Package events provides the gateway event handlers of the bot.
package events

import (
	"github.com/PancyStudios/JazzBotGo/pkg/discord"
	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// VoiceSessions is told when the bot's own voice connection changes
type VoiceSessions interface {
	HandleDisconnect(guildID string)
	HandleMoved(guildID, channelID string)
}

// NodeConnector opens the audio node connection once the bot user is known
type NodeConnector interface {
	Connect(userID string)
}

// Handlers holds what the event handlers act on
type Handlers struct {
	Sessions VoiceSessions
	Node     NodeConnector
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, h *Handlers) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	client.EventHandler.OnReady(h.onReady)
	client.EventHandler.OnGuildDelete(h.onGuildDelete)
	client.EventHandler.OnVoiceStateUpdate(h.onVoiceStateUpdate)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
