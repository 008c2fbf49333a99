package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

// StateRequestTopic is answered with the snapshot of the requested guild
const StateRequestTopic = "music/state"

// MusicState is the playback state published on every transition
type MusicState struct {
	GuildID      string        `json:"guildId"`
	State        string        `json:"state"`
	IsPlaying    bool          `json:"isPlaying"`
	IsPaused     bool          `json:"isPaused"`
	ChannelID    string        `json:"channelId,omitempty"`
	CurrentTrack *TrackState   `json:"currentTrack"`
	Progress     float64       `json:"progress"`
	Queue        []*TrackState `json:"queue"`
	Timestamp    int64         `json:"timestamp"`
}

// TrackState represents a track in the music state
type TrackState struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	RequesterID string  `json:"requesterId"`
}

// PositionFunc returns the playback position of a guild
type PositionFunc func(guildID string) time.Duration

// NewMusicState converts a snapshot
func NewMusicState(snap music.Snapshot, position PositionFunc) MusicState {
	state := MusicState{
		GuildID:   snap.GuildID,
		State:     snap.State.String(),
		IsPlaying: snap.State == music.StatePlaying,
		IsPaused:  snap.State == music.StatePaused,
		ChannelID: snap.ChannelID,
		Queue:     make([]*TrackState, 0, len(snap.Queue)),
		Timestamp: time.Now().UnixMilli(),
	}
	if snap.Current != nil {
		state.CurrentTrack = newTrackState(*snap.Current)
		if position != nil {
			state.Progress = position(snap.GuildID).Seconds()
		}
	}
	for _, t := range snap.Queue {
		state.Queue = append(state.Queue, newTrackState(t))
	}
	return state
}

func newTrackState(t music.Track) *TrackState {
	return &TrackState{
		Title:       t.Title,
		Artist:      t.Author,
		Duration:    t.Duration.Seconds(),
		Thumbnail:   t.ArtworkURL,
		URL:         t.URI,
		Source:      t.Source.String(),
		RequesterID: t.RequesterID,
	}
}

type stateMessage struct {
	topic string
	state MusicState
}

// StatePublisher publishes every session transition to
// jazz/music/<guildID>/<event>. Publishing happens on its own goroutine so
// sessions never wait on the broker.
type StatePublisher struct {
	pub      Publisher
	position PositionFunc
	queue    chan stateMessage
	done     chan struct{}

	mu      sync.RWMutex
	stopped bool
}

// NewStatePublisher starts the publishing goroutine
func NewStatePublisher(pub Publisher, position PositionFunc) *StatePublisher {
	p := &StatePublisher{
		pub:      pub,
		position: position,
		queue:    make(chan stateMessage, 128),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// OnTransition implements music.Observer
func (p *StatePublisher) OnTransition(snap music.Snapshot, event music.Event) {
	msg := stateMessage{
		topic: fmt.Sprintf("%s/music/%s/%s", TopicPrefix, snap.GuildID, event),
		state: NewMusicState(snap, p.position),
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return
	}
	select {
	case p.queue <- msg:
	default:
		logger.Warn(fmt.Sprintf("Cola MQTT llena, se descarta %s", msg.topic), "MQTT")
	}
}

// Stop publishes what is already queued and stops the goroutine
func (p *StatePublisher) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
}

func (p *StatePublisher) loop() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.pub.Publish(msg.topic, msg.state); err != nil {
			logger.Warn(fmt.Sprintf("Error publicando %s: %v", msg.topic, err), "MQTT")
		}
	}
}

// SnapshotFunc reads the current snapshot of a guild
type SnapshotFunc func(ctx context.Context, guildID string) (music.Snapshot, bool, error)

// StateHandler answers jazz/request/music/state with the guild snapshot
func StateHandler(snapshot SnapshotFunc, position PositionFunc) RequestHandler {
	return func(payload map[string]any) (any, error) {
		guildID, _ := payload["guildId"].(string)
		if guildID == "" {
			return nil, errors.New("guildId is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		snap, _, err := snapshot(ctx, guildID)
		if err != nil {
			return nil, err
		}
		return NewMusicState(snap, position), nil
	}
}

var _ music.Observer = (*StatePublisher)(nil)
