// Package utils provides the utility commands of the bot.
package utils

import (
	"github.com/PancyStudios/JazzBotGo/pkg/discord"
)

// RegisterUtilsCommands registers /ping and /status
func RegisterUtilsCommands(client *discord.ExtendedClient, status *Status) {
	client.CommandHandler.RegisterCommand(createPingCommand())
	client.CommandHandler.RegisterCommand(createStatusCommand(status))
}
