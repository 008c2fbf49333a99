package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// onGuildDelete is called when the bot is removed from a server. A guild
// outage also sends GuildDelete, with Unavailable set; playback survives it.
func (h *Handlers) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil {
		return
	}
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Servidor %s no disponible temporalmente", g.ID), "Guild")
		return
	}

	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
	if h.Sessions != nil {
		h.Sessions.HandleDisconnect(g.ID)
	}
}
