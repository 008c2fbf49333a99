package commands

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

// Embed palette
const (
	PrimaryColor = 0x738678
	SuccessColor = 0x4A7C59
	WarningColor = 0xD4A574
	ErrorColor   = 0x8B6F6F
	InfoColor    = 0x6B7280
)

const footer = "JazzBot"

func newEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, SuccessColor)
}

func warningEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, WarningColor)
}

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, ErrorColor)
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return newEmbed(title, description, InfoColor)
}

// failureEmbed renders any command error. Unexpected errors are shown as a
// backend failure without internal details.
func failureEmbed(err error) *discordgo.MessageEmbed {
	e := music.AsError(err)
	return errorEmbed(e.Title(), e.Message())
}
