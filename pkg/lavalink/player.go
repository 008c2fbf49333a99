package lavalink

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

// playbackIDKey carries music.Track.PlaybackID in the track userData, which
// the node echoes back on every track event
const playbackIDKey = "playbackId"

type trackUpdate struct {
	Encoded  *string           `json:"encoded"`
	UserData map[string]string `json:"userData,omitempty"`
}

type playerUpdate struct {
	Track  *trackUpdate  `json:"track,omitempty"`
	Paused *bool         `json:"paused,omitempty"`
	Voice  *voiceRequest `json:"voice,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

// Search resolves a URL as-is and prefixes anything else with the search
// source
func (c *Client) Search(ctx context.Context, query string) ([]music.Track, error) {
	identifier := query
	if !isURL(query) {
		identifier = c.config.SearchPrefix + ":" + query
	}

	result, err := c.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, err
	}
	tracks, err := result.Tracks()
	if err != nil {
		return nil, err
	}

	out := make([]music.Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.toMusic())
	}
	return out, nil
}

// StartPlayback replaces whatever the guild player had with track
func (c *Client) StartPlayback(ctx context.Context, guildID string, track music.Track) error {
	c.clearPosition(guildID)
	update := &trackUpdate{Encoded: ptr(track.Identifier)}
	if track.PlaybackID != "" {
		update.UserData = map[string]string{playbackIDKey: track.PlaybackID}
	}
	return c.UpdatePlayer(ctx, guildID, playerUpdate{
		Track:  update,
		Paused: ptr(false),
	})
}

// Pause pauses the guild player
func (c *Client) Pause(ctx context.Context, guildID string) error {
	return c.UpdatePlayer(ctx, guildID, playerUpdate{Paused: ptr(true)})
}

// Resume resumes the guild player
func (c *Client) Resume(ctx context.Context, guildID string) error {
	return c.UpdatePlayer(ctx, guildID, playerUpdate{Paused: ptr(false)})
}

// Stop clears the current track; the node answers with a "stopped" end
func (c *Client) Stop(ctx context.Context, guildID string) error {
	return c.UpdatePlayer(ctx, guildID, playerUpdate{Track: &trackUpdate{Encoded: nil}})
}

// Destroy removes the guild player and forgets its voice state
func (c *Client) Destroy(ctx context.Context, guildID string) error {
	c.forgetVoice(guildID)
	c.clearPosition(guildID)
	if err := c.DestroyPlayer(ctx, guildID); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo destruir el reproductor de %s: %v", guildID, err), "Lavalink")
		return err
	}
	return nil
}

func (t Track) toMusic() music.Track {
	return music.Track{
		Identifier: t.Encoded,
		URI:        t.Info.URI,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		Duration:   time.Duration(t.Info.Length) * time.Millisecond,
		ArtworkURL: t.Info.ArtworkURL,
		IsStream:   t.Info.IsStream,
	}
}

func isURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

var (
	_ music.AudioNode = (*Client)(nil)
	_ music.Searcher  = (*Client)(nil)
)
