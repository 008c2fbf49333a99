package music

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/PancyStudios/JazzBotGo/pkg/anticrash"
	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// DefaultInboxSize is the request buffer of a session
const DefaultInboxSize = 32

type result struct {
	out Outcome
	err error
}

type request struct {
	id    string
	name  string
	ctx   context.Context
	run   func(ctx context.Context, p *Player) (Outcome, error)
	reply chan result
}

// Session owns the player of one guild. Commands and backend events are
// applied one at a time, in arrival order, by the session goroutine.
type Session struct {
	guildID string
	player  *Player
	state   atomic.Int32

	inbox   chan request
	closing chan struct{}
	done    chan struct{}

	observers []Observer
	onClose   func(*Session)
}

func newSession(guildID string, player *Player, inboxSize int, observers []Observer, onClose func(*Session)) *Session {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	s := &Session{
		guildID:   guildID,
		player:    player,
		inbox:     make(chan request, inboxSize),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
		observers: observers,
		onClose:   onClose,
	}
	s.state.Store(int32(player.State()))
	go s.loop()
	return s
}

// GuildID returns the guild the session belongs to
func (s *Session) GuildID() string {
	return s.guildID
}

// State returns the state after the last applied request
func (s *Session) State() PlaybackState {
	return PlaybackState(s.state.Load())
}

// Done is closed once the session has shut down
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the session stopped accepting requests
func (s *Session) Closed() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// Snapshot reads the player state through the inbox, so it reflects every
// request submitted before it
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	out, err := s.submit(ctx, "snapshot", func(_ context.Context, p *Player) (Outcome, error) {
		return Outcome{Action: ActionInfo, Snapshot: p.Snapshot()}, nil
	})
	return out.Snapshot, err
}

// submit queues fn and waits for its result. Once a request is accepted it
// runs to completion even if ctx is cancelled.
func (s *Session) submit(ctx context.Context, name string, fn func(ctx context.Context, p *Player) (Outcome, error)) (Outcome, error) {
	req, err := s.enqueue(ctx, name, fn)
	if err != nil {
		return Outcome{}, err
	}

	select {
	case res := <-req.reply:
		return res.out, res.err
	case <-s.done:
		select {
		case res := <-req.reply:
			return res.out, res.err
		default:
			return Outcome{}, ErrSessionClosed
		}
	}
}

// post queues fn without waiting for the result
func (s *Session) post(ctx context.Context, name string, fn func(ctx context.Context, p *Player) (Outcome, error)) error {
	_, err := s.enqueue(ctx, name, fn)
	return err
}

func (s *Session) enqueue(ctx context.Context, name string, fn func(ctx context.Context, p *Player) (Outcome, error)) (request, error) {
	req := request{
		id:    uuid.NewString(),
		name:  name,
		ctx:   context.WithoutCancel(ctx),
		run:   fn,
		reply: make(chan result, 1),
	}

	if s.Closed() {
		return req, ErrSessionClosed
	}
	select {
	case s.inbox <- req:
		return req, nil
	case <-s.closing:
		return req, ErrSessionClosed
	case <-ctx.Done():
		return req, newError(CodeResolutionTimeout, ctx.Err(), "")
	}
}

func (s *Session) loop() {
	defer close(s.done)

	for req := range s.inbox {
		res := s.handle(req)
		s.state.Store(int32(s.player.State()))

		if s.player.State() == StateDisconnected {
			s.shutdown()
			req.reply <- res
			return
		}
		req.reply <- res
	}
}

func (s *Session) handle(req request) result {
	logger.Debug(fmt.Sprintf("[%s] %s en %s", req.id, req.name, s.guildID), "Session")

	var res result
	err := anticrash.Capture(func() error {
		out, err := req.run(req.ctx, s.player)
		res = result{out: out, err: err}
		return nil
	})
	if err != nil {
		logger.Error(fmt.Sprintf("[%s] %s falló en %s: %v", req.id, req.name, s.guildID, err), "Session")
		return result{err: newError(CodeBackendUnavailable, err, "")}
	}
	if res.err == nil {
		s.notify(res.out)
	}
	return res
}

// shutdown stops intake, rejects whatever is still buffered and detaches
// the session from its registry
func (s *Session) shutdown() {
	close(s.closing)

	for {
		select {
		case req := <-s.inbox:
			req.reply <- result{err: ErrSessionClosed}
		default:
			if s.onClose != nil {
				s.onClose(s)
			}
			logger.Debug(fmt.Sprintf("Sesión de %s cerrada", s.guildID), "Session")
			return
		}
	}
}

func (s *Session) notify(out Outcome) {
	event, ok := eventFor(out)
	if !ok {
		return
	}
	for _, o := range s.observers {
		func() {
			defer anticrash.Recover()()
			o.OnTransition(out.Snapshot, event)
		}()
	}
}

func eventFor(out Outcome) (Event, bool) {
	switch out.Action {
	case ActionStarted:
		return EventStarted, true
	case ActionQueued:
		return EventQueued, true
	case ActionPaused:
		return EventPaused, true
	case ActionResumed:
		return EventResumed, true
	case ActionShuffled:
		return EventShuffled, true
	case ActionDisconnected:
		return EventDisconnected, true
	case ActionMoved:
		return EventMoved, true
	case ActionSkipped, ActionAdvanced, ActionJumped:
		if out.Snapshot.State == StatePlaying {
			return EventStarted, true
		}
		return EventIdle, true
	default:
		return "", false
	}
}
