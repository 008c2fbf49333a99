// Package commands wires the slash commands of the bot.
// Commands are organized by category (music, utils).
package commands

import (
	"github.com/PancyStudios/JazzBotGo/internal/commands/utils"
	"github.com/PancyStudios/JazzBotGo/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, m *Music, status *utils.Status) {
	RegisterMusicCommands(client, m)
	utils.RegisterUtilsCommands(client, status)
}
