package music

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// CommandKind names a user command
type CommandKind int

const (
	CommandPlay CommandKind = iota
	CommandQueue
	CommandPause
	CommandUnpause
	CommandSkip
	CommandJump
	CommandShuffle
	CommandQuit
	CommandNowPlaying
)

// String returns the command name
func (k CommandKind) String() string {
	switch k {
	case CommandPlay:
		return "play"
	case CommandQueue:
		return "queue"
	case CommandPause:
		return "pause"
	case CommandUnpause:
		return "unpause"
	case CommandSkip:
		return "skip"
	case CommandJump:
		return "jump"
	case CommandShuffle:
		return "shuffle"
	case CommandQuit:
		return "quit"
	case CommandNowPlaying:
		return "nowplaying"
	default:
		return "unknown"
	}
}

// Command is one user request against a guild
type Command struct {
	Kind        CommandKind
	Query       string
	RequesterID string
	// Index is the 1-based queue position for CommandJump
	Index int
}

// Options configures a Registry
type Options struct {
	Node           AudioNode
	Voice          VoiceGateway
	Resolver       *Resolver
	BackendTimeout time.Duration
	InboxSize      int
	Observers      []Observer
	// RandSource builds the shuffle source of each new queue. nil uses the
	// global generator.
	RandSource func() rand.Source
}

// Registry maps guilds to their sessions
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	if opts.BackendTimeout <= 0 {
		opts.BackendTimeout = DefaultBackendTimeout
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// AddObserver registers o for sessions created from now on
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.Observers = append(r.opts.Observers, o)
}

// GetOrCreate returns the live session of a guild, creating one if needed
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok && !s.Closed() {
		return s
	}

	var src rand.Source
	if r.opts.RandSource != nil {
		src = r.opts.RandSource()
	}
	player := NewPlayer(guildID, NewQueue(src), r.opts.Node, r.opts.Voice, r.opts.BackendTimeout)
	observers := append([]Observer(nil), r.opts.Observers...)
	s := newSession(guildID, player, r.opts.InboxSize, observers, func(s *Session) {
		r.Remove(guildID, s)
	})
	r.sessions[guildID] = s
	logger.Debug(fmt.Sprintf("Nueva sesión para %s", guildID), "Registry")
	return s
}

// Lookup returns the live session of a guild
func (r *Registry) Lookup(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// Remove drops the entry of guildID if it still points at s
func (r *Registry) Remove(guildID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[guildID]; ok && current == s {
		delete(r.sessions, guildID)
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// GuildIDs lists the guilds with a live session
func (r *Registry) GuildIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the player state of a guild. A guild without a session
// reports an Idle snapshot and false.
func (r *Registry) Snapshot(ctx context.Context, guildID string) (Snapshot, bool, error) {
	s, ok := r.Lookup(guildID)
	if !ok {
		return idleSnapshot(guildID), false, nil
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return idleSnapshot(guildID), false, err
	}
	return snap, true, nil
}

// Dispatch applies cmd to the session of guildID
func (r *Registry) Dispatch(ctx context.Context, guildID string, cmd Command) (Outcome, error) {
	switch cmd.Kind {
	case CommandPlay, CommandQueue:
		return r.play(ctx, guildID, cmd)

	case CommandPause:
		return r.existing(ctx, guildID, cmd, ErrNotPlaying, func(ctx context.Context, p *Player) (Outcome, error) {
			return p.Pause(ctx)
		})

	case CommandUnpause:
		return r.existing(ctx, guildID, cmd, ErrNotPaused, func(ctx context.Context, p *Player) (Outcome, error) {
			return p.Unpause(ctx)
		})

	case CommandSkip:
		return r.existing(ctx, guildID, cmd, ErrNotPlaying, func(ctx context.Context, p *Player) (Outcome, error) {
			return p.Skip(ctx)
		})

	case CommandJump:
		return r.existing(ctx, guildID, cmd, ErrEmptyQueue, func(ctx context.Context, p *Player) (Outcome, error) {
			if p.queue.Len() == 0 {
				return Outcome{}, ErrEmptyQueue
			}
			eligibility, err := r.eligibility(guildID, cmd.RequesterID)
			if err != nil {
				return Outcome{}, err
			}
			return p.Jump(ctx, cmd.Index, eligibility)
		})

	case CommandShuffle:
		s, ok := r.Lookup(guildID)
		if !ok {
			return Outcome{Action: ActionShuffled, Snapshot: idleSnapshot(guildID)}, nil
		}
		return s.submit(ctx, cmd.Kind.String(), func(_ context.Context, p *Player) (Outcome, error) {
			return p.Shuffle(), nil
		})

	case CommandQuit:
		s := r.GetOrCreate(guildID)
		return s.submit(ctx, cmd.Kind.String(), func(ctx context.Context, p *Player) (Outcome, error) {
			return p.Quit(ctx, true), nil
		})

	case CommandNowPlaying:
		s, ok := r.Lookup(guildID)
		if !ok {
			return Outcome{Action: ActionInfo, Snapshot: idleSnapshot(guildID)}, nil
		}
		return s.submit(ctx, cmd.Kind.String(), func(_ context.Context, p *Player) (Outcome, error) {
			return Outcome{Action: ActionInfo, Snapshot: p.Snapshot()}, nil
		})

	default:
		return Outcome{}, fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
}

// play checks voice, resolves the query and hands the track to the player.
// Voice is checked again inside the session to choose between joining and
// reusing the current channel, since the bot may have moved meanwhile. A
// session that closed before the request ran rejects it with
// ErrSessionClosed.
func (r *Registry) play(ctx context.Context, guildID string, cmd Command) (Outcome, error) {
	if _, err := r.eligibility(guildID, cmd.RequesterID); err != nil {
		return Outcome{}, err
	}

	track, err := r.opts.Resolver.Resolve(ctx, cmd.Query, cmd.RequesterID)
	if err != nil {
		return Outcome{}, err
	}

	s := r.GetOrCreate(guildID)
	return s.submit(ctx, cmd.Kind.String(), func(ctx context.Context, p *Player) (Outcome, error) {
		eligibility, err := r.eligibility(guildID, cmd.RequesterID)
		if err != nil {
			return Outcome{}, err
		}
		return p.Play(ctx, track, eligibility)
	})
}

// existing runs fn on the guild's session, or fails with missing when the
// guild has none
func (r *Registry) existing(ctx context.Context, guildID string, cmd Command, missing error, fn func(ctx context.Context, p *Player) (Outcome, error)) (Outcome, error) {
	s, ok := r.Lookup(guildID)
	if !ok {
		return Outcome{}, missing
	}
	return s.submit(ctx, cmd.Kind.String(), fn)
}

func (r *Registry) eligibility(guildID, userID string) (Eligibility, error) {
	snap, err := r.opts.Voice.Snapshot(guildID, userID)
	if err != nil {
		return Eligibility{}, newError(CodeBackendUnavailable, err, "")
	}
	return CheckEligibility(snap)
}

// HandleTrackEnded feeds a backend track end into the guild's session
func (r *Registry) HandleTrackEnded(guildID, identifier string) {
	s, ok := r.Lookup(guildID)
	if !ok {
		return
	}
	err := s.post(context.Background(), "trackEnded", func(ctx context.Context, p *Player) (Outcome, error) {
		return p.TrackEnded(ctx, identifier), nil
	})
	if err != nil {
		logger.Debug(fmt.Sprintf("Fin de pista ignorado en %s: %v", guildID, err), "Registry")
	}
}

// HandleDisconnect applies quit semantics after the gateway reported the bot
// out of voice
func (r *Registry) HandleDisconnect(guildID string) {
	s, ok := r.Lookup(guildID)
	if !ok {
		return
	}
	err := s.post(context.Background(), "disconnect", func(ctx context.Context, p *Player) (Outcome, error) {
		return p.Quit(ctx, false), nil
	})
	if err != nil {
		logger.Debug(fmt.Sprintf("Desconexión ignorada en %s: %v", guildID, err), "Registry")
	}
}

// HandleMoved records the channel the bot was moved to
func (r *Registry) HandleMoved(guildID, channelID string) {
	s, ok := r.Lookup(guildID)
	if !ok {
		return
	}
	err := s.post(context.Background(), "moved", func(_ context.Context, p *Player) (Outcome, error) {
		return p.Moved(channelID), nil
	})
	if err != nil {
		logger.Debug(fmt.Sprintf("Cambio de canal ignorado en %s: %v", guildID, err), "Registry")
	}
}

// Close quits every session and waits for them to stop
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			_, err := s.submit(ctx, "shutdown", func(ctx context.Context, p *Player) (Outcome, error) {
				return p.Quit(ctx, true), nil
			})
			if err != nil && !errors.Is(err, ErrSessionClosed) {
				logger.Warn(fmt.Sprintf("No se pudo cerrar la sesión de %s: %v", s.GuildID(), err), "Registry")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(fmt.Sprintf("%d sesiones cerradas", len(sessions)), "Registry")
	case <-ctx.Done():
		logger.Warn("Tiempo agotado cerrando sesiones", "Registry")
	}
}

func idleSnapshot(guildID string) Snapshot {
	return Snapshot{GuildID: guildID, State: StateIdle, Queue: []Track{}}
}
