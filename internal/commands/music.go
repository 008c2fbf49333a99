package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/discord"
	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/models"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

// upNextLimit is the number of pending tracks listed by /nowplaying
const upNextLimit = 10

var minSongIndex = 1.0

// HistoryReader returns the tracks recently started in a guild
type HistoryReader interface {
	Recent(ctx context.Context, guildID string, limit int) ([]models.PlayRecord, error)
}

// Music holds what the music commands act on
type Music struct {
	Registry *music.Registry
	History  HistoryReader
	Position func(guildID string) time.Duration
	// Timeout bounds one command, resolution included
	Timeout time.Duration
}

// RegisterMusicCommands registers all music commands
func RegisterMusicCommands(client *discord.ExtendedClient, m *Music) {
	if m.Timeout <= 0 {
		m.Timeout = 30 * time.Second
	}

	queryOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "query",
		Description: "Song name, YouTube URL, or Spotify URL",
		Required:    true,
	}

	cmds := []*discord.Command{
		discord.NewCommand("play", "Plays a song immediately or starts playback if idle", "music",
			m.resolving(music.CommandPlay)).WithOptions(queryOption),
		discord.NewCommand("queue", "Adds a song to the queue", "music",
			m.resolving(music.CommandQueue)).WithOptions(queryOption),
		discord.NewCommand("pause", "Pauses the currently playing track", "music",
			m.simple(music.CommandPause)),
		discord.NewCommand("unpause", "Resumes paused playback", "music",
			m.simple(music.CommandUnpause)),
		discord.NewCommand("skip", "Skips the currently playing track", "music",
			m.simple(music.CommandSkip)),
		discord.NewCommand("jump", "Jumps to a specific position in the queue", "music",
			m.jumpHandler).WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "song_index",
			Description: "The position in the queue (1-based)",
			Required:    true,
			MinValue:    &minSongIndex,
		}),
		discord.NewCommand("shuffle", "Randomizes the order of the remaining queue", "music",
			m.simple(music.CommandShuffle)),
		discord.NewCommand("quit", "Stops playback, clears the queue, and disconnects", "music",
			m.simple(music.CommandQuit)),
		discord.NewCommand("nowplaying", "Shows the current track and what's up next", "music",
			m.simple(music.CommandNowPlaying)),
		discord.NewCommand("history", "Shows the tracks recently played in this server", "music",
			m.historyHandler),
	}

	for _, cmd := range cmds {
		client.CommandHandler.RegisterCommand(cmd.InGuild())
	}
}

func (m *Music) dispatch(ctx *discord.CommandContext, cmd music.Command) (music.Outcome, error) {
	c, cancel := context.WithTimeout(context.Background(), m.Timeout)
	defer cancel()

	out, err := m.Registry.Dispatch(c, ctx.GuildID(), cmd)
	if err != nil {
		logger.Debug(fmt.Sprintf("/%s en %s: %v", cmd.Kind, ctx.GuildID(), err), "Music")
	}
	return out, err
}

// resolving handles commands that search for a track. The reply is deferred
// because resolution can take several seconds.
func (m *Music) resolving(kind music.CommandKind) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		query := strings.TrimSpace(ctx.GetStringOption("query"))
		if query == "" {
			return ctx.ReplyEphemeralEmbed(errorEmbed("Missing Query", "Provide a song name or URL."))
		}

		if err := ctx.Defer(); err != nil {
			return err
		}

		out, err := m.dispatch(ctx, music.Command{
			Kind:        kind,
			Query:       query,
			RequesterID: ctx.User().ID,
		})
		if err != nil {
			return ctx.EditReplyEmbed(failureEmbed(err))
		}
		return ctx.EditReplyEmbed(m.outcomeEmbed(music.Command{Kind: kind}, out))
	}
}

func (m *Music) simple(kind music.CommandKind) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		cmd := music.Command{Kind: kind, RequesterID: ctx.User().ID}
		out, err := m.dispatch(ctx, cmd)
		if err != nil {
			return ctx.ReplyEmbed(failureEmbed(err))
		}
		return ctx.ReplyEmbed(m.outcomeEmbed(cmd, out))
	}
}

func (m *Music) jumpHandler(ctx *discord.CommandContext) error {
	cmd := music.Command{
		Kind:        music.CommandJump,
		RequesterID: ctx.User().ID,
		Index:       int(ctx.GetIntOption("song_index")),
	}
	out, err := m.dispatch(ctx, cmd)
	if err != nil {
		return ctx.ReplyEmbed(failureEmbed(err))
	}
	return ctx.ReplyEmbed(m.outcomeEmbed(cmd, out))
}

func (m *Music) historyHandler(ctx *discord.CommandContext) error {
	if m.History == nil {
		return ctx.ReplyEmbed(warningEmbed("History Unavailable", "Play history is not enabled on this bot."))
	}

	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := m.History.Recent(c, ctx.GuildID(), 10)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo leer el historial de %s: %v", ctx.GuildID(), err), "Music")
		return ctx.ReplyEmbed(errorEmbed("History Unavailable", "Could not load the play history right now."))
	}
	return ctx.ReplyEmbed(historyEmbed(records))
}

// outcomeEmbed renders a successful command
func (m *Music) outcomeEmbed(cmd music.Command, out music.Outcome) *discordgo.MessageEmbed {
	switch out.Action {
	case music.ActionStarted:
		embed := successEmbed("Now Playing", fmt.Sprintf("**%s**\nDuration: %s\nRequested by: %s",
			out.Track.DisplayTitle(), formatLength(*out.Track), mention(out.Track.RequesterID)))
		if out.Track.ArtworkURL != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: out.Track.ArtworkURL}
		}
		return embed

	case music.ActionQueued:
		return successEmbed("Added to Queue", fmt.Sprintf("**%s**\nDuration: %s\nPosition in queue: %d",
			out.Track.DisplayTitle(), formatLength(*out.Track), out.Position))

	case music.ActionPaused:
		return successEmbed("Paused", "Playback has been paused.")

	case music.ActionResumed:
		return successEmbed("Resumed", "Playback has been resumed.")

	case music.ActionSkipped:
		if out.Track == nil {
			return successEmbed("Skipped", "Reached the end of the queue.")
		}
		return successEmbed("Skipped", fmt.Sprintf("Now playing: **%s**", out.Track.DisplayTitle()))

	case music.ActionJumped:
		return successEmbed("Jumped", fmt.Sprintf("Now playing: **%s** (Position %d)", out.Track.DisplayTitle(), cmd.Index))

	case music.ActionShuffled:
		if len(out.Snapshot.Queue) < 2 {
			return warningEmbed("Cannot Shuffle", "Need at least 2 tracks to shuffle.")
		}
		return successEmbed("Shuffled", "The queue has been shuffled.")

	case music.ActionDisconnected:
		return successEmbed("Disconnected", "Left the voice channel and cleared the queue.")

	default:
		return nowPlayingEmbed(out.Snapshot, m.position(out.Snapshot.GuildID))
	}
}

func (m *Music) position(guildID string) time.Duration {
	if m.Position == nil {
		return 0
	}
	return m.Position(guildID)
}

func nowPlayingEmbed(snap music.Snapshot, position time.Duration) *discordgo.MessageEmbed {
	if snap.Current == nil {
		return infoEmbed("Nothing Playing", "Use `/play` to start the music.")
	}

	t := snap.Current
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", titleLink(*t))
	if t.Author != "" {
		fmt.Fprintf(&b, " by %s", t.Author)
	}
	b.WriteString("\n")
	if t.IsStream {
		b.WriteString("`LIVE`")
	} else {
		fmt.Fprintf(&b, "`%s / %s`", music.FormatDuration(position), music.FormatDuration(t.Duration))
	}
	if snap.State == music.StatePaused {
		b.WriteString(" ⏸️ Paused")
	}
	fmt.Fprintf(&b, "\nRequested by: %s", mention(t.RequesterID))

	embed := infoEmbed("Now Playing", b.String())
	if t.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ArtworkURL}
	}

	if len(snap.Queue) > 0 {
		lines := make([]string, 0, upNextLimit+1)
		for i, q := range snap.Queue {
			if i == upNextLimit {
				lines = append(lines, fmt.Sprintf("...and %d more", len(snap.Queue)-upNextLimit))
				break
			}
			lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, q.DisplayTitle(), formatLength(q)))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Up Next (%d)", len(snap.Queue)),
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func historyEmbed(records []models.PlayRecord) *discordgo.MessageEmbed {
	if len(records) == 0 {
		return infoEmbed("Recently Played", "No tracks have been played here yet.")
	}

	lines := make([]string, 0, len(records))
	for i, r := range records {
		line := fmt.Sprintf("%d. **%s**", i+1, r.Title)
		if r.Author != "" {
			line += " by " + r.Author
		}
		line += fmt.Sprintf(" · <t:%d:R>", r.StartedAt.Unix())
		lines = append(lines, line)
	}
	return infoEmbed("Recently Played", strings.Join(lines, "\n"))
}

func formatLength(t music.Track) string {
	if t.IsStream {
		return "LIVE"
	}
	return music.FormatDuration(t.Duration)
}

func titleLink(t music.Track) string {
	if t.URI == "" {
		return t.DisplayTitle()
	}
	return fmt.Sprintf("[%s](%s)", t.DisplayTitle(), t.URI)
}

func mention(userID string) string {
	if userID == "" {
		return "unknown"
	}
	return "<@" + userID + ">"
}
