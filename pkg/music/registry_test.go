package music

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"
)

const guild = "guild-1"

func play(h *harness, kind CommandKind, query string) (Outcome, error) {
	return playAs(h, "user-1", kind, query)
}

func playAs(h *harness, userID string, kind CommandKind, query string) (Outcome, error) {
	return h.registry.Dispatch(context.Background(), guild, Command{Kind: kind, Query: query, RequesterID: userID})
}

func dispatch(h *harness, kind CommandKind, index int) (Outcome, error) {
	return h.registry.Dispatch(context.Background(), guild, Command{Kind: kind, RequesterID: "user-1", Index: index})
}

func snapshot(t *testing.T, h *harness) Snapshot {
	t.Helper()
	snap, _, err := h.registry.Snapshot(context.Background(), guild)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return snap
}

// waitInbox waits until n requests are buffered behind the running one
func waitInbox(t *testing.T, s *Session, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for len(s.inbox) < n {
		if time.Now().After(deadline) {
			t.Fatalf("inbox length = %d, want %d", len(s.inbox), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRegistryPlaybackScenario(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")

	out, err := play(h, CommandPlay, "a")
	if err != nil || out.Action != ActionStarted {
		t.Fatalf("play(a) = %v, %v, want started", out.Action, err)
	}

	for i, q := range []string{"b", "c", "d"} {
		out, err = play(h, CommandQueue, q)
		if err != nil {
			t.Fatalf("queue(%s) error = %v", q, err)
		}
		if out.Action != ActionQueued || out.Position != i+1 {
			t.Errorf("queue(%s) = %v at %d, want queued at %d", q, out.Action, out.Position, i+1)
		}
	}

	out, err = dispatch(h, CommandSkip, 0)
	if err != nil {
		t.Fatalf("skip error = %v", err)
	}
	if currentID(out.Snapshot) != "b" || !slices.Equal(ids(out.Snapshot.Queue), []string{"c", "d"}) {
		t.Errorf("after skip current = %q queue = %v", currentID(out.Snapshot), ids(out.Snapshot.Queue))
	}

	out, err = dispatch(h, CommandJump, 2)
	if err != nil {
		t.Fatalf("jump error = %v", err)
	}
	if currentID(out.Snapshot) != "d" || len(out.Snapshot.Queue) != 0 {
		t.Errorf("after jump current = %q queue = %v", currentID(out.Snapshot), ids(out.Snapshot.Queue))
	}

	out, err = dispatch(h, CommandSkip, 0)
	if err != nil {
		t.Fatalf("skip error = %v", err)
	}
	if out.Snapshot.State != StateIdle || out.Snapshot.Current != nil {
		t.Errorf("after last skip = %+v, want idle", out.Snapshot)
	}

	if got := h.node.Started(); !slices.Equal(got, []string{"a", "b", "d"}) {
		t.Errorf("started = %v, want [a b d]", got)
	}
	if h.voice.joins != 1 {
		t.Errorf("joins = %d, want 1", h.voice.joins)
	}
	want := []Event{EventStarted, EventQueued, EventQueued, EventQueued, EventStarted, EventStarted, EventIdle}
	if got := h.events.Events(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestRegistryPlayNotInVoice(t *testing.T) {
	h := newHarness()

	if _, err := play(h, CommandPlay, "a"); !errors.Is(err, ErrUserNotInVoice) {
		t.Fatalf("play error = %v, want ErrUserNotInVoice", err)
	}

	if q := h.search.Queries(); len(q) != 0 {
		t.Errorf("queries = %v, want resolution skipped", q)
	}
	if calls := h.node.Calls(); len(calls) != 0 {
		t.Errorf("node calls = %v, want none", calls)
	}
	if h.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.registry.Len())
	}
	if ev := h.events.Events(); len(ev) != 0 {
		t.Errorf("events = %v, want none", ev)
	}
}

func TestRegistryPlayChecksVoiceWhilePlaying(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		kind   CommandKind
		want   error
	}{
		{"play from outside voice", "user-3", CommandPlay, ErrUserNotInVoice},
		{"queue from outside voice", "user-3", CommandQueue, ErrUserNotInVoice},
		{"play from another channel", "user-2", CommandPlay, ErrBotInDifferentChannel},
		{"queue from another channel", "user-2", CommandQueue, ErrBotInDifferentChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.voice.SetUser("user-1", "vc-1")
			h.voice.SetUser("user-2", "vc-2")
			if _, err := play(h, CommandPlay, "a"); err != nil {
				t.Fatalf("play(a) error = %v", err)
			}
			if _, err := play(h, CommandQueue, "b"); err != nil {
				t.Fatalf("queue(b) error = %v", err)
			}

			if _, err := playAs(h, tt.userID, tt.kind, "c"); !errors.Is(err, tt.want) {
				t.Fatalf("%s error = %v, want %v", tt.kind, err, tt.want)
			}

			snap := snapshot(t, h)
			if snap.State != StatePlaying || currentID(snap) != "a" {
				t.Errorf("state = %v current = %q, want a playing", snap.State, currentID(snap))
			}
			if got := ids(snap.Queue); !slices.Equal(got, []string{"b"}) {
				t.Errorf("queue = %v, want [b]", got)
			}
			if slices.Contains(h.search.Queries(), "c") {
				t.Error("rejected query was resolved")
			}
		})
	}
}

func TestRegistryJumpChecksVoice(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	h.voice.SetUser("user-2", "vc-2")
	_, _ = play(h, CommandPlay, "a")
	_, _ = play(h, CommandQueue, "b")

	_, err := h.registry.Dispatch(context.Background(), guild, Command{Kind: CommandJump, RequesterID: "user-2", Index: 1})
	if !errors.Is(err, ErrBotInDifferentChannel) {
		t.Errorf("jump error = %v, want ErrBotInDifferentChannel", err)
	}

	snap := snapshot(t, h)
	if currentID(snap) != "a" || !slices.Equal(ids(snap.Queue), []string{"b"}) {
		t.Errorf("current = %q queue = %v, want a and [b]", currentID(snap), ids(snap.Queue))
	}
}

func TestRegistryCommandsWithoutSession(t *testing.T) {
	tests := []struct {
		kind CommandKind
		want error
	}{
		{CommandPause, ErrNotPlaying},
		{CommandUnpause, ErrNotPaused},
		{CommandSkip, ErrNotPlaying},
		{CommandJump, ErrEmptyQueue},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			h := newHarness()
			if _, err := dispatch(h, tt.kind, 1); !errors.Is(err, tt.want) {
				t.Errorf("%s error = %v, want %v", tt.kind, err, tt.want)
			}
			if h.registry.Len() != 0 {
				t.Errorf("Len() = %d, want 0", h.registry.Len())
			}
		})
	}

	h := newHarness()
	out, err := dispatch(h, CommandShuffle, 0)
	if err != nil || out.Action != ActionShuffled {
		t.Errorf("shuffle = %v, %v, want shuffled", out.Action, err)
	}

	out, err = dispatch(h, CommandNowPlaying, 0)
	if err != nil || out.Snapshot.State != StateIdle {
		t.Errorf("nowplaying = %v, %v, want idle", out.Snapshot.State, err)
	}
	if h.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.registry.Len())
	}
}

func TestRegistryQuitFromEveryState(t *testing.T) {
	setups := map[string]func(h *harness){
		"no session": func(h *harness) {},
		"playing": func(h *harness) {
			_, _ = play(h, CommandPlay, "a")
			_, _ = play(h, CommandQueue, "b")
		},
		"paused": func(h *harness) {
			_, _ = play(h, CommandPlay, "a")
			_, _ = dispatch(h, CommandPause, 0)
		},
		"idle after queue": func(h *harness) {
			_, _ = play(h, CommandPlay, "a")
			_, _ = dispatch(h, CommandSkip, 0)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.voice.SetUser("user-1", "vc-1")
			setup(h)

			out, err := dispatch(h, CommandQuit, 0)
			if err != nil {
				t.Fatalf("quit error = %v", err)
			}
			snap := out.Snapshot
			if snap.State != StateDisconnected || snap.Current != nil || len(snap.Queue) != 0 {
				t.Errorf("snapshot after quit = %+v", snap)
			}
			if h.registry.Len() != 0 {
				t.Errorf("Len() = %d, want 0", h.registry.Len())
			}
			if got := h.voice.BotChannel(guild); got != "" {
				t.Errorf("bot channel = %q, want left", got)
			}
		})
	}
}

func TestRegistryClosedSessionRejectsRequests(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	_, _ = play(h, CommandPlay, "a")

	s, ok := h.registry.Lookup(guild)
	if !ok {
		t.Fatal("no session after play")
	}

	if _, err := dispatch(h, CommandQuit, 0); err != nil {
		t.Fatalf("quit error = %v", err)
	}

	<-s.Done()
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Snapshot() on closed session error = %v, want ErrSessionClosed", err)
	}

	// A later command opens a fresh session
	out, err := play(h, CommandPlay, "b")
	if err != nil || out.Action != ActionStarted {
		t.Fatalf("play(b) = %v, %v, want started", out.Action, err)
	}
	if h.registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.registry.Len())
	}
}

func TestRegistryDrainRejectsCommandsBehindDisconnect(t *testing.T) {
	stoppers := map[string]func(h *harness) error{
		"quit": func(h *harness) error {
			_, err := dispatch(h, CommandQuit, 0)
			return err
		},
		"gateway disconnect": func(h *harness) error {
			h.registry.HandleDisconnect(guild)
			return nil
		},
	}
	followers := map[string]func(h *harness) error{
		"play": func(h *harness) error {
			_, err := play(h, CommandPlay, "c")
			return err
		},
		"queue": func(h *harness) error {
			_, err := play(h, CommandQueue, "c")
			return err
		},
		"pause": func(h *harness) error {
			_, err := dispatch(h, CommandPause, 0)
			return err
		},
		"skip": func(h *harness) error {
			_, err := dispatch(h, CommandSkip, 0)
			return err
		},
	}

	for stopName, stop := range stoppers {
		for followName, follow := range followers {
			t.Run(stopName+"/"+followName, func(t *testing.T) {
				h := newHarness()
				h.voice.SetUser("user-1", "vc-1")
				if _, err := play(h, CommandPlay, "a"); err != nil {
					t.Fatalf("play(a) error = %v", err)
				}
				_, _ = play(h, CommandQueue, "b")
				s, _ := h.registry.Lookup(guild)

				// Hold the actor so both requests wait in the inbox
				running := make(chan struct{})
				release := make(chan struct{})
				err := s.post(context.Background(), "hold", func(context.Context, *Player) (Outcome, error) {
					close(running)
					<-release
					return Outcome{}, nil
				})
				if err != nil {
					t.Fatalf("post error = %v", err)
				}
				<-running

				stopErr := make(chan error, 1)
				go func() { stopErr <- stop(h) }()
				waitInbox(t, s, 1)

				followErr := make(chan error, 1)
				go func() { followErr <- follow(h) }()
				waitInbox(t, s, 2)

				close(release)

				if err := <-stopErr; err != nil {
					t.Fatalf("%s error = %v", stopName, err)
				}
				select {
				case err := <-followErr:
					if !errors.Is(err, ErrSessionClosed) {
						t.Errorf("%s behind %s error = %v, want ErrSessionClosed", followName, stopName, err)
					}
				case <-time.After(time.Second):
					t.Fatalf("%s behind %s never answered", followName, stopName)
				}

				<-s.Done()
				if h.registry.Len() != 0 {
					t.Errorf("Len() = %d, want no new session", h.registry.Len())
				}
				if h.voice.joins != 1 {
					t.Errorf("joins = %d, want 1", h.voice.joins)
				}
				if got := h.node.Started(); !slices.Equal(got, []string{"a"}) {
					t.Errorf("started = %v, want [a]", got)
				}
			})
		}
	}
}

func TestRegistryConcurrentQueueIsSerialized(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	if _, err := play(h, CommandPlay, "first"); err != nil {
		t.Fatalf("play error = %v", err)
	}

	const n = 50
	positions := make(chan int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := play(h, CommandQueue, fmt.Sprintf("t%d", i))
			if err != nil {
				t.Errorf("queue(t%d) error = %v", i, err)
				return
			}
			positions <- out.Position
		}(i)
	}
	wg.Wait()
	close(positions)

	seen := make(map[int]bool)
	for p := range positions {
		if seen[p] {
			t.Errorf("position %d reported twice", p)
		}
		seen[p] = true
	}
	if len(seen) != n {
		t.Errorf("distinct positions = %d, want %d", len(seen), n)
	}

	snap := snapshot(t, h)
	if len(snap.Queue) != n || currentID(snap) != "first" {
		t.Errorf("queue length = %d current = %q, want %d and first", len(snap.Queue), currentID(snap), n)
	}
}

func TestRegistryGuildsAreIndependent(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := fmt.Sprintf("g%d", i)
			if _, err := h.registry.Dispatch(context.Background(), g, Command{Kind: CommandPlay, Query: "a", RequesterID: "user-1"}); err != nil {
				t.Errorf("play in %s error = %v", g, err)
			}
		}(i)
	}
	wg.Wait()

	if h.registry.Len() != 10 || len(h.registry.GuildIDs()) != 10 {
		t.Errorf("Len() = %d GuildIDs() = %d, want 10", h.registry.Len(), len(h.registry.GuildIDs()))
	}
}

func TestRegistryHandleTrackEnded(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	_, _ = play(h, CommandPlay, "a")
	_, _ = play(h, CommandQueue, "b")

	h.registry.HandleTrackEnded(guild, "stale")
	h.registry.HandleTrackEnded(guild, "a")
	h.registry.HandleTrackEnded("unknown-guild", "a")

	snap := snapshot(t, h)
	if currentID(snap) != "b" || len(snap.Queue) != 0 {
		t.Errorf("current = %q queue = %v, want b and empty", currentID(snap), ids(snap.Queue))
	}
}

func TestRegistryHandleDisconnect(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	_, _ = play(h, CommandPlay, "a")
	s, _ := h.registry.Lookup(guild)

	h.registry.HandleDisconnect(guild)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not stop after disconnect")
	}
	if h.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.registry.Len())
	}
	if h.voice.leaves != 0 {
		t.Errorf("leaves = %d, want 0 since the gateway already left voice", h.voice.leaves)
	}
	if !slices.Contains(h.events.Events(), EventDisconnected) {
		t.Errorf("events = %v, want disconnected", h.events.Events())
	}
}

func TestRegistryHandleMoved(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	_, _ = play(h, CommandPlay, "a")

	h.registry.HandleMoved(guild, "vc-2")
	h.registry.HandleMoved("unknown-guild", "vc-2")

	snap := snapshot(t, h)
	if snap.ChannelID != "vc-2" {
		t.Errorf("ChannelID = %q, want vc-2", snap.ChannelID)
	}
	if snap.State != StatePlaying || currentID(snap) != "a" {
		t.Errorf("state = %v current = %q, want a playing", snap.State, currentID(snap))
	}
	if !slices.Contains(h.events.Events(), EventMoved) {
		t.Errorf("events = %v, want moved", h.events.Events())
	}
	if h.registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.registry.Len())
	}
}

func TestRegistryRecoversPanics(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	_, _ = play(h, CommandPlay, "a")
	_, _ = play(h, CommandQueue, "b")

	h.voice.snapshotFn = func(string, string) (VoiceSnapshot, error) { panic("gateway exploded") }
	if _, err := dispatch(h, CommandJump, 1); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("jump error = %v, want ErrBackendUnavailable", err)
	}

	out, err := dispatch(h, CommandNowPlaying, 0)
	if err != nil {
		t.Fatalf("nowplaying error = %v", err)
	}
	if out.Snapshot.State != StatePlaying || currentID(out.Snapshot) != "a" {
		t.Errorf("after panic = %v/%q, want a playing", out.Snapshot.State, currentID(out.Snapshot))
	}
}

func TestRegistryClose(t *testing.T) {
	h := newHarness()
	h.voice.SetUser("user-1", "vc-1")
	for _, g := range []string{"g1", "g2", "g3"} {
		if _, err := h.registry.Dispatch(context.Background(), g, Command{Kind: CommandPlay, Query: "a", RequesterID: "user-1"}); err != nil {
			t.Fatalf("play in %s error = %v", g, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.registry.Close(ctx)

	if h.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.registry.Len())
	}
}
