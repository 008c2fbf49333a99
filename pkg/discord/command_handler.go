package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// CommandHandler manages command registration
type CommandHandler struct {
	client        *ExtendedClient
	slashCommands []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:        client,
		slashCommands: make([]*discordgo.ApplicationCommand, 0),
	}
}

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)
	ch.slashCommands = append(ch.slashCommands, cmd.ToApplicationCommand())
	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// ApplicationCommands returns the definitions sent to Discord
func (ch *CommandHandler) ApplicationCommands() []*discordgo.ApplicationCommand {
	return append([]*discordgo.ApplicationCommand(nil), ch.slashCommands...)
}

// RegisterCommands replaces the bot's slash commands with the registered
// ones, in guildID when set and globally otherwise
func (ch *CommandHandler) RegisterCommands(guildID string) error {
	scope := "globales"
	if guildID != "" {
		scope = "del servidor " + guildID
	}
	logger.Info("🔄 Registrando comandos "+scope+"...", "CommandHandler")

	created, err := ch.client.Session.ApplicationCommandBulkOverwrite(
		ch.client.Session.State.User.ID,
		guildID,
		ch.slashCommands,
	)
	if err != nil {
		return err
	}

	logger.Success(fmt.Sprintf("✅ %d comandos %s registrados.", len(created), scope), "CommandHandler")
	return nil
}

// ListCommands returns the commands Discord has for the bot, in guildID when
// set and globally otherwise
func (ch *CommandHandler) ListCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.client.Session.State.User.ID, guildID)
}

// UnregisterCommands removes every command of the bot from Discord
func (ch *CommandHandler) UnregisterCommands(guildID string) error {
	_, err := ch.client.Session.ApplicationCommandBulkOverwrite(
		ch.client.Session.State.User.ID,
		guildID,
		[]*discordgo.ApplicationCommand{},
	)
	if err != nil {
		return err
	}
	logger.Success("Comandos eliminados.", "CommandHandler")
	return nil
}
