// Package music implements per-guild playback sessions: the track queue,
// voice eligibility rules, source resolution, the playback state machine and
// the registry that routes commands and backend events to each guild.
package music

import (
	"fmt"
	"time"
)

// SourceKind tells how a track was obtained
type SourceKind int

const (
	// SourceDirect is a track the audio node found from the raw input
	SourceDirect SourceKind = iota
	// SourceMetadata is a track found by searching metadata of a non-streamable link
	SourceMetadata
)

// String returns the display name of the source kind
func (k SourceKind) String() string {
	if k == SourceMetadata {
		return "Spotify"
	}
	return "Direct"
}

// Track is a playable item. Values are never mutated after resolution;
// the player stamps PlaybackID on its own copy each time the track starts.
type Track struct {
	Source      SourceKind
	Identifier  string // encoded track handed to the audio node
	URI         string
	Title       string
	Author      string
	Duration    time.Duration
	ArtworkURL  string
	IsStream    bool
	RequesterID string
	PlaybackID  string
}

// EndedBy reports whether a track end for key refers to this playback.
// Nodes that do not echo the PlaybackID report the encoded track instead.
func (t Track) EndedBy(key string) bool {
	if t.PlaybackID != "" && key == t.PlaybackID {
		return true
	}
	return key == t.Identifier
}

// DisplayTitle returns the title, falling back to the URI
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	if t.URI != "" {
		return t.URI
	}
	return "Unknown"
}

// FormatDuration formats d as M:SS, or H:MM:SS for an hour or more
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
