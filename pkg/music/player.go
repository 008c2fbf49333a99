package music

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// DefaultBackendTimeout bounds a single audio node or voice gateway call
const DefaultBackendTimeout = 10 * time.Second

// PlaybackState is the state of one guild player
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StatePlaying
	StatePaused
	StateDisconnected
)

// String returns the state name
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Active reports whether a track is loaded (playing or paused)
func (s PlaybackState) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// Snapshot is a read-only copy of a player
type Snapshot struct {
	GuildID   string
	State     PlaybackState
	Current   *Track
	Queue     []Track
	ChannelID string
}

// Action tells the caller what a command did
type Action int

const (
	ActionNone Action = iota
	ActionStarted
	ActionQueued
	ActionPaused
	ActionResumed
	ActionSkipped
	ActionAdvanced
	ActionJumped
	ActionShuffled
	ActionDisconnected
	ActionMoved
	ActionInfo
)

// Outcome is the result of a successful command or event
type Outcome struct {
	Action Action
	// Track is the started, queued, skipped-to or jumped-to track. It is nil
	// when a skip or track end exhausted the queue.
	Track *Track
	// Position is the queue position of a queued track
	Position int
	Snapshot Snapshot
}

// Player is the playback state machine of one guild
type Player struct {
	guildID   string
	state     PlaybackState
	current   *Track
	queue     *Queue
	channelID string

	node    AudioNode
	voice   VoiceGateway
	timeout time.Duration

	// starts numbers every playback handed to the node
	starts uint64
}

// NewPlayer creates an Idle player
func NewPlayer(guildID string, queue *Queue, node AudioNode, voice VoiceGateway, timeout time.Duration) *Player {
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	if queue == nil {
		queue = NewQueue(nil)
	}
	return &Player{
		guildID: guildID,
		state:   StateIdle,
		queue:   queue,
		node:    node,
		voice:   voice,
		timeout: timeout,
	}
}

// State returns the current state
func (p *Player) State() PlaybackState {
	return p.state
}

// Snapshot copies the player state
func (p *Player) Snapshot() Snapshot {
	snap := Snapshot{
		GuildID:   p.guildID,
		State:     p.state,
		Queue:     p.queue.Tracks(),
		ChannelID: p.channelID,
	}
	if p.current != nil {
		current := *p.current
		snap.Current = &current
	}
	return snap
}

// Play starts track when nothing is loaded and enqueues it otherwise.
// eligibility is only consulted when playback has to start.
func (p *Player) Play(ctx context.Context, track Track, eligibility Eligibility) (Outcome, error) {
	if p.state.Active() {
		p.queue.Enqueue(track)
		return p.outcome(ActionQueued, &track, p.queue.Len()), nil
	}

	if err := p.start(ctx, track, eligibility); err != nil {
		return Outcome{}, err
	}
	return p.outcome(ActionStarted, p.current, 0), nil
}

// TrackEnded advances the queue after the backend finished the playback
// named by key, either a PlaybackID or an encoded track. Events for a
// playback that is no longer current are ignored.
func (p *Player) TrackEnded(ctx context.Context, key string) Outcome {
	if !p.state.Active() || p.current == nil {
		return Outcome{Action: ActionNone, Snapshot: p.Snapshot()}
	}
	if key != "" && !p.current.EndedBy(key) {
		return Outcome{Action: ActionNone, Snapshot: p.Snapshot()}
	}
	return p.advance(ctx, ActionAdvanced, false)
}

// Pause pauses a playing track
func (p *Player) Pause(ctx context.Context) (Outcome, error) {
	if p.state != StatePlaying {
		return Outcome{}, ErrNotPlaying
	}
	if err := p.call(ctx, func(ctx context.Context) error { return p.node.Pause(ctx, p.guildID) }); err != nil {
		return Outcome{}, err
	}
	p.state = StatePaused
	return p.outcome(ActionPaused, p.current, 0), nil
}

// Unpause resumes a paused track
func (p *Player) Unpause(ctx context.Context) (Outcome, error) {
	if p.state != StatePaused {
		return Outcome{}, ErrNotPaused
	}
	if err := p.call(ctx, func(ctx context.Context) error { return p.node.Resume(ctx, p.guildID) }); err != nil {
		return Outcome{}, err
	}
	p.state = StatePlaying
	return p.outcome(ActionResumed, p.current, 0), nil
}

// Skip finishes the current track immediately, paused or not
func (p *Player) Skip(ctx context.Context) (Outcome, error) {
	if !p.state.Active() {
		return Outcome{}, ErrNotPlaying
	}
	return p.advance(ctx, ActionSkipped, true), nil
}

// Jump starts the track at the 1-based queue position and drops the tracks
// before it. Playback always resumes.
func (p *Player) Jump(ctx context.Context, index int, eligibility Eligibility) (Outcome, error) {
	if p.queue.Len() == 0 {
		return Outcome{}, ErrEmptyQueue
	}
	track, err := p.queue.At(index)
	if err != nil {
		return Outcome{}, err
	}

	if err := p.start(ctx, track, eligibility); err != nil {
		return Outcome{}, err
	}
	if _, err := p.queue.Jump(index); err != nil {
		return Outcome{}, err
	}
	return p.outcome(ActionJumped, p.current, 0), nil
}

// Shuffle randomizes the pending queue; the current track is not part of it
func (p *Player) Shuffle() Outcome {
	p.queue.Shuffle()
	return p.outcome(ActionShuffled, nil, 0)
}

// Moved records the channel the bot now sits in
func (p *Player) Moved(channelID string) Outcome {
	if channelID != "" {
		p.channelID = channelID
	}
	return p.outcome(ActionMoved, nil, 0)
}

// Quit clears everything and releases the backend player. leaveVoice is
// false when the gateway already reported the bot out of voice.
func (p *Player) Quit(ctx context.Context, leaveVoice bool) Outcome {
	if err := p.call(ctx, func(ctx context.Context) error { return p.node.Destroy(ctx, p.guildID) }); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo liberar el reproductor de %s: %v", p.guildID, err), "Player")
	}
	if leaveVoice {
		if err := p.call(ctx, func(ctx context.Context) error { return p.voice.Leave(ctx, p.guildID) }); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo salir del canal de voz en %s: %v", p.guildID, err), "Player")
		}
	}

	p.queue.Clear()
	p.current = nil
	p.channelID = ""
	p.state = StateDisconnected
	return p.outcome(ActionDisconnected, nil, 0)
}

// start joins voice if needed and starts track. On failure the player is
// left exactly as it was and a join made for this attempt is undone.
func (p *Player) start(ctx context.Context, track Track, eligibility Eligibility) error {
	track.PlaybackID = p.nextPlaybackID()
	joined := false
	if eligibility.Action == VoiceJoin {
		if err := p.call(ctx, func(ctx context.Context) error {
			return p.voice.Join(ctx, p.guildID, eligibility.ChannelID)
		}); err != nil {
			return err
		}
		joined = true
	}

	if err := p.call(ctx, func(ctx context.Context) error {
		return p.node.StartPlayback(ctx, p.guildID, track)
	}); err != nil {
		if joined {
			leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
			if lerr := p.voice.Leave(leaveCtx, p.guildID); lerr != nil {
				logger.Warn(fmt.Sprintf("No se pudo deshacer la conexión de voz en %s: %v", p.guildID, lerr), "Player")
			}
			cancel()
		}
		return err
	}

	p.current = &track
	p.state = StatePlaying
	if eligibility.ChannelID != "" {
		p.channelID = eligibility.ChannelID
	}
	return nil
}

// advance moves to the next pending track. A track the backend refuses to
// start counts as finished and the one after it is tried.
func (p *Player) advance(ctx context.Context, action Action, stopWhenEmpty bool) Outcome {
	for p.queue.Len() > 0 {
		next, _ := p.queue.DequeueNext()
		next.PlaybackID = p.nextPlaybackID()
		err := p.call(ctx, func(ctx context.Context) error {
			return p.node.StartPlayback(ctx, p.guildID, next)
		})
		if err != nil {
			logger.Warn(fmt.Sprintf("Saltando %q en %s: %v", next.DisplayTitle(), p.guildID, err), "Player")
			continue
		}
		p.current = &next
		p.state = StatePlaying
		return p.outcome(action, &next, 0)
	}

	if stopWhenEmpty {
		if err := p.call(ctx, func(ctx context.Context) error { return p.node.Stop(ctx, p.guildID) }); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo detener el reproductor de %s: %v", p.guildID, err), "Player")
		}
	}
	p.current = nil
	p.state = StateIdle
	return p.outcome(action, nil, 0)
}

func (p *Player) nextPlaybackID() string {
	p.starts++
	return fmt.Sprintf("%s:%d", p.guildID, p.starts)
}

// call runs a backend operation under the backend timeout and maps its
// failure to a structured error
func (p *Player) call(ctx context.Context, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := op(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(CodeResolutionTimeout, err, "")
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(CodeBackendUnavailable, err, "")
}

func (p *Player) outcome(action Action, track *Track, position int) Outcome {
	out := Outcome{Action: action, Position: position, Snapshot: p.Snapshot()}
	if track != nil {
		t := *track
		out.Track = &t
	}
	return out
}
