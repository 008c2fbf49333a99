package utils

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/discord"
)

// NodeStatus reports the audio node connection
type NodeStatus interface {
	Name() string
	Connected() bool
}

// StoreStatus reports the database connection
type StoreStatus interface {
	GetStatus() (string, bool)
}

// SessionCounter reports the number of live playback sessions
type SessionCounter interface {
	Len() int
}

// Status holds what /status reports on. Nil fields are shown as disabled.
type Status struct {
	Node     NodeStatus
	Store    StoreStatus
	Sessions SessionCounter
	Version  string
}

// createStatusCommand creates the /status command
func createStatusCommand(s *Status) *discord.Command {
	return discord.NewCommand(
		"status",
		"Shows the bot status",
		"utils",
		s.handler,
	)
}

func (s *Status) handler(ctx *discord.CommandContext) error {
	return ctx.ReplyEmbed(s.embed(ctx.Client.GuildCount(), time.Since(ctx.Client.StartTime)))
}

func (s *Status) embed(guilds int, uptime time.Duration) *discordgo.MessageEmbed {
	node := "⚪ | Deshabilitado"
	if s.Node != nil {
		node = "🔴 | Desconectado"
		if s.Node.Connected() {
			node = "🟢 | En linea"
		}
		node += " (" + s.Node.Name() + ")"
	}

	db := "⚪ | Deshabilitado"
	if s.Store != nil {
		db, _ = s.Store.GetStatus()
	}

	sessions := 0
	if s.Sessions != nil {
		sessions = s.Sessions.Len()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &discordgo.MessageEmbed{
		Title: "📊 Bot Status",
		Color: 0x6B7280,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Lavalink", Value: node, Inline: true},
			{Name: "Database", Value: db, Inline: true},
			{Name: "Servers", Value: fmt.Sprintf("%d", guilds), Inline: true},
			{Name: "Active players", Value: fmt.Sprintf("%d", sessions), Inline: true},
			{Name: "Uptime", Value: uptime.Truncate(time.Second).String(), Inline: true},
			{Name: "Memory", Value: fmt.Sprintf("%.1f MB", float64(mem.Alloc)/1024/1024), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "JazzBot " + s.Version},
	}
}
