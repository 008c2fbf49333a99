package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

type memoryPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []any
}

func (m *memoryPublisher) Publish(topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	m.payloads = append(m.payloads, payload)
	return nil
}

func playingSnapshot() music.Snapshot {
	return music.Snapshot{
		GuildID:   "g1",
		State:     music.StatePlaying,
		ChannelID: "vc1",
		Current:   &music.Track{Title: "So What", Author: "Miles Davis", Duration: 9 * time.Minute, RequesterID: "u1"},
		Queue:     []music.Track{{Title: "Blue in Green", Source: music.SourceMetadata}},
	}
}

func TestNewMusicState(t *testing.T) {
	state := NewMusicState(playingSnapshot(), func(string) time.Duration { return 30 * time.Second })

	if !state.IsPlaying || state.IsPaused || state.State != "playing" {
		t.Errorf("state flags = %+v", state)
	}
	if state.CurrentTrack == nil || state.CurrentTrack.Title != "So What" || state.CurrentTrack.Duration != 540 {
		t.Errorf("CurrentTrack = %+v", state.CurrentTrack)
	}
	if state.Progress != 30 {
		t.Errorf("Progress = %v, want 30", state.Progress)
	}
	if len(state.Queue) != 1 || state.Queue[0].Source != "Spotify" {
		t.Errorf("Queue = %+v", state.Queue)
	}
}

func TestNewMusicStateIdle(t *testing.T) {
	state := NewMusicState(music.Snapshot{GuildID: "g1", State: music.StateIdle}, nil)

	if state.CurrentTrack != nil || state.Progress != 0 {
		t.Errorf("idle state = %+v", state)
	}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	if q, ok := decoded["queue"].([]any); !ok || len(q) != 0 {
		t.Errorf("queue = %v, want empty array", decoded["queue"])
	}
}

func TestStatePublisher(t *testing.T) {
	pub := &memoryPublisher{}
	p := NewStatePublisher(pub, nil)

	p.OnTransition(playingSnapshot(), music.EventStarted)
	p.OnTransition(music.Snapshot{GuildID: "g1", State: music.StateDisconnected}, music.EventDisconnected)
	p.Stop()

	want := []string{"jazz/music/g1/started", "jazz/music/g1/disconnected"}
	if len(pub.topics) != len(want) {
		t.Fatalf("topics = %v, want %v", pub.topics, want)
	}
	for i := range want {
		if pub.topics[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, pub.topics[i], want[i])
		}
	}

	// Transitions after Stop are dropped
	p.OnTransition(playingSnapshot(), music.EventStarted)
	p.Stop()
}

func TestStateHandler(t *testing.T) {
	handler := StateHandler(func(_ context.Context, guildID string) (music.Snapshot, bool, error) {
		if guildID == "broken" {
			return music.Snapshot{}, false, errors.New("session closed")
		}
		snap := playingSnapshot()
		snap.GuildID = guildID
		return snap, true, nil
	}, nil)

	if _, err := handler(map[string]any{}); err == nil {
		t.Error("handler should require guildId")
	}
	if _, err := handler(map[string]any{"guildId": "broken"}); err == nil {
		t.Error("handler should return snapshot errors")
	}

	data, err := handler(map[string]any{"guildId": "g2"})
	if err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	state, ok := data.(MusicState)
	if !ok || state.GuildID != "g2" || !state.IsPlaying {
		t.Errorf("handler() = %+v", data)
	}
}

func TestHandleRequest(t *testing.T) {
	payload := []byte(`{"correlationId":"c1","payload":{"guildId":"g1"}}`)

	topic, resp, ok := handleRequest("jazz/request/music/state", payload, func(p map[string]any) (any, error) {
		return p["guildId"], nil
	})
	if !ok || topic != "music/state" || resp.CorrelationID != "c1" || resp.Data != "g1" {
		t.Errorf("handleRequest() = %q, %+v, %v", topic, resp, ok)
	}

	_, resp, _ = handleRequest("jazz/request/music/state", payload, func(map[string]any) (any, error) {
		return nil, errors.New("nope")
	})
	if resp.Error != "nope" {
		t.Errorf("Error = %q, want nope", resp.Error)
	}

	if _, _, ok := handleRequest("x", []byte("not json"), nil); ok {
		t.Error("handleRequest() should reject invalid JSON")
	}
}

func TestTopics(t *testing.T) {
	if got := requestTopic("music/state"); got != "jazz/request/music/state" {
		t.Errorf("requestTopic() = %q", got)
	}
	if got := responseTopic("music/state", "c1"); got != "jazz/response/music/state/c1" {
		t.Errorf("responseTopic() = %q", got)
	}
}
