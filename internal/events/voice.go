package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// onVoiceStateUpdate ends the guild session when the bot is disconnected
// from voice by someone else, and follows it when it is moved
func (h *Handlers) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || s == nil || s.State == nil || s.State.User == nil {
		return
	}
	if v.UserID != s.State.User.ID {
		return
	}

	if v.ChannelID != "" {
		if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != "" && v.BeforeUpdate.ChannelID != v.ChannelID {
			logger.Debug(fmt.Sprintf("🔄 Bot movido: %s → %s en %s", v.BeforeUpdate.ChannelID, v.ChannelID, v.GuildID), "Voice")
			if h.Sessions != nil {
				h.Sessions.HandleMoved(v.GuildID, v.ChannelID)
			}
		}
		return
	}

	logger.Debug(fmt.Sprintf("🔇 Bot desconectado de voz en %s", v.GuildID), "Voice")
	if h.Sessions != nil {
		h.Sessions.HandleDisconnect(v.GuildID)
	}
}
