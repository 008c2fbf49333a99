package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

// Voice reports voice state from the gateway cache and moves the bot
// between voice channels. Audio itself is streamed by the audio node, so
// only the gateway voice state is managed here.
type Voice struct {
	session *discordgo.Session

	mu      sync.Mutex
	waiters map[string]*voiceWaiter
}

type voiceWaiter struct {
	channelID string
	done      chan struct{}
}

// NewVoice creates a voice gateway on top of session
func NewVoice(session *discordgo.Session) *Voice {
	return &Voice{
		session: session,
		waiters: make(map[string]*voiceWaiter),
	}
}

// Attach registers the handler that completes pending joins
func (v *Voice) Attach(eh *EventHandler) {
	eh.OnVoiceStateUpdate(v.voiceStateUpdate)
}

func (v *Voice) botID() string {
	state := v.session.State
	if state == nil || state.User == nil {
		return ""
	}
	return state.User.ID
}

// channelOf returns the voice channel of userID, empty when not connected
func (v *Voice) channelOf(guildID, userID string) string {
	if userID == "" {
		return ""
	}
	vs, err := v.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// Snapshot reads the requester's and the bot's voice channels and the bot's
// permissions in the requester's channel
func (v *Voice) Snapshot(guildID, userID string) (music.VoiceSnapshot, error) {
	if v.session.State == nil {
		return music.VoiceSnapshot{}, errors.New("discord state unavailable")
	}
	if _, err := v.session.State.Guild(guildID); err != nil {
		return music.VoiceSnapshot{}, fmt.Errorf("guild %s not cached: %w", guildID, err)
	}

	snap := music.VoiceSnapshot{
		RequesterChannelID: v.channelOf(guildID, userID),
		BotChannelID:       v.channelOf(guildID, v.botID()),
	}
	if snap.RequesterChannelID == "" {
		return snap, nil
	}

	perms, err := v.session.State.UserChannelPermissions(v.botID(), snap.RequesterChannelID)
	if err != nil {
		logger.Debug(fmt.Sprintf("Permisos no disponibles en %s: %v", snap.RequesterChannelID, err), "Voice")
		return snap, nil
	}
	snap.Permissions = music.Permissions{
		View:    perms&discordgo.PermissionViewChannel != 0,
		Connect: perms&discordgo.PermissionVoiceConnect != 0,
		Speak:   perms&discordgo.PermissionVoiceSpeak != 0,
	}
	return snap, nil
}

// Join connects the bot to channelID and waits until the gateway confirms it
func (v *Voice) Join(ctx context.Context, guildID, channelID string) error {
	if v.channelOf(guildID, v.botID()) == channelID {
		return nil
	}

	w := &voiceWaiter{channelID: channelID, done: make(chan struct{})}
	v.mu.Lock()
	v.waiters[guildID] = w
	v.mu.Unlock()
	defer v.forget(guildID, w)

	if err := v.session.ChannelVoiceJoinManual(guildID, channelID, false, true); err != nil {
		return err
	}

	select {
	case <-w.done:
		logger.Debug(fmt.Sprintf("Conectado a %s en %s", channelID, guildID), "Voice")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave disconnects the bot from voice in guildID
func (v *Voice) Leave(_ context.Context, guildID string) error {
	return v.session.ChannelVoiceJoinManual(guildID, "", false, true)
}

func (v *Voice) forget(guildID string, w *voiceWaiter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.waiters[guildID] == w {
		delete(v.waiters, guildID)
	}
}

func (v *Voice) voiceStateUpdate(_ *discordgo.Session, u *discordgo.VoiceStateUpdate) {
	if u.VoiceState == nil || u.UserID != v.botID() {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.waiters[u.GuildID]
	if !ok || w.channelID != u.ChannelID {
		return
	}
	close(w.done)
	delete(v.waiters, u.GuildID)
}

var _ music.VoiceGateway = (*Voice)(nil)
