package music

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errBackendDown = errors.New("backend down")

func track(id string) Track {
	return Track{Identifier: id, Title: "Song " + id, Author: "Artist", Duration: 3 * time.Minute}
}

// fakeNode records calls in order
type fakeNode struct {
	mu       sync.Mutex
	calls    []string
	started  []string
	failOn   map[string]error
	pauseErr error
	delay    time.Duration
}

func newFakeNode() *fakeNode {
	return &fakeNode{failOn: make(map[string]error)}
}

func (n *fakeNode) record(call string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

func (n *fakeNode) StartPlayback(ctx context.Context, guildID string, t Track) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "start:"+t.Identifier)
	if err, ok := n.failOn[t.Identifier]; ok {
		return err
	}
	n.started = append(n.started, t.Identifier)
	return nil
}

func (n *fakeNode) Pause(_ context.Context, _ string) error {
	n.record("pause")
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pauseErr
}

func (n *fakeNode) Resume(_ context.Context, _ string) error {
	n.record("resume")
	return nil
}

func (n *fakeNode) Stop(_ context.Context, _ string) error {
	n.record("stop")
	return nil
}

func (n *fakeNode) Destroy(_ context.Context, _ string) error {
	n.record("destroy")
	return nil
}

func (n *fakeNode) Started() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.started...)
}

func (n *fakeNode) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// fakeVoice tracks the bot channel per guild and the requester channels
type fakeVoice struct {
	mu         sync.Mutex
	users      map[string]string
	bot        map[string]string
	perms      Permissions
	joinErr    error
	joins      int
	leaves     int
	snapshotFn func(guildID, userID string) (VoiceSnapshot, error)
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{
		users: make(map[string]string),
		bot:   make(map[string]string),
		perms: Permissions{View: true, Connect: true, Speak: true},
	}
}

func (v *fakeVoice) SetUser(userID, channelID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.users[userID] = channelID
}

func (v *fakeVoice) BotChannel(guildID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bot[guildID]
}

func (v *fakeVoice) Snapshot(guildID, userID string) (VoiceSnapshot, error) {
	if v.snapshotFn != nil {
		return v.snapshotFn(guildID, userID)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return VoiceSnapshot{
		RequesterChannelID: v.users[userID],
		BotChannelID:       v.bot[guildID],
		Permissions:        v.perms,
	}, nil
}

func (v *fakeVoice) Join(_ context.Context, guildID, channelID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.joinErr != nil {
		return v.joinErr
	}
	v.joins++
	v.bot[guildID] = channelID
	return nil
}

func (v *fakeVoice) Leave(_ context.Context, guildID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves++
	delete(v.bot, guildID)
	return nil
}

// fakeSearcher returns one track per query, identified by the query itself
type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]Track
	err     error
	block   bool
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{results: make(map[string][]Track)}
}

func (s *fakeSearcher) Search(ctx context.Context, query string) ([]Track, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	err, block := s.err, s.block
	res, ok := s.results[query]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return res, nil
	}
	return []Track{track(query)}, nil
}

func (s *fakeSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type fakeMetadata struct {
	meta  Metadata
	err   error
	calls int
}

func (m *fakeMetadata) ResolveMetadata(_ context.Context, url string) (Metadata, error) {
	m.calls++
	if m.err != nil {
		return Metadata{}, fmt.Errorf("metadata for %s: %w", url, m.err)
	}
	return m.meta, nil
}

// recorder collects observed events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnTransition(_ Snapshot, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type harness struct {
	node     *fakeNode
	voice    *fakeVoice
	search   *fakeSearcher
	events   *recorder
	registry *Registry
}

func newHarness() *harness {
	h := &harness{
		node:   newFakeNode(),
		voice:  newFakeVoice(),
		search: newFakeSearcher(),
		events: &recorder{},
	}
	h.registry = NewRegistry(Options{
		Node:           h.node,
		Voice:          h.voice,
		Resolver:       NewResolver(h.search, nil, time.Second),
		BackendTimeout: time.Second,
		Observers:      []Observer{h.events},
	})
	return h
}
