package music

import "context"

// AudioNode controls the per-guild player on the streaming backend
type AudioNode interface {
	StartPlayback(ctx context.Context, guildID string, track Track) error
	Pause(ctx context.Context, guildID string) error
	Resume(ctx context.Context, guildID string) error
	Stop(ctx context.Context, guildID string) error
	// Destroy releases the guild player on the backend
	Destroy(ctx context.Context, guildID string) error
}

// Searcher turns a query or URL into candidate tracks
type Searcher interface {
	Search(ctx context.Context, query string) ([]Track, error)
}

// Metadata describes a track of a metadata-only source
type Metadata struct {
	Title  string
	Artist string
}

// MetadataService looks up metadata for links the audio node cannot stream
type MetadataService interface {
	ResolveMetadata(ctx context.Context, url string) (Metadata, error)
}

// VoiceGateway reports voice state and moves the bot between channels
type VoiceGateway interface {
	Snapshot(guildID, userID string) (VoiceSnapshot, error)
	Join(ctx context.Context, guildID, channelID string) error
	Leave(ctx context.Context, guildID string) error
}

// Event names an observed transition
type Event string

const (
	EventStarted      Event = "started"
	EventQueued       Event = "queued"
	EventPaused       Event = "paused"
	EventResumed      Event = "resumed"
	EventShuffled     Event = "shuffled"
	EventIdle         Event = "idle"
	EventMoved        Event = "moved"
	EventDisconnected Event = "disconnected"
)

// Observer is notified after every committed transition. It runs on the
// session goroutine and must not block.
type Observer interface {
	OnTransition(snapshot Snapshot, event Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(snapshot Snapshot, event Event)

// OnTransition calls f
func (f ObserverFunc) OnTransition(snapshot Snapshot, event Event) {
	f(snapshot, event)
}
