package commands

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/JazzBotGo/pkg/models"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

func song(title string, d time.Duration) music.Track {
	return music.Track{Title: title, Author: "Miles", Duration: d, RequesterID: "42", URI: "https://example.com/" + title}
}

func TestOutcomeEmbed(t *testing.T) {
	m := &Music{}
	started := song("So What", 9*time.Minute+22*time.Second)

	tests := []struct {
		name  string
		cmd   music.Command
		out   music.Outcome
		title string
		color int
		want  string
	}{
		{
			name:  "started",
			out:   music.Outcome{Action: music.ActionStarted, Track: &started},
			title: "Now Playing", color: SuccessColor,
			want: "Duration: 9:22\nRequested by: <@42>",
		},
		{
			name:  "queued",
			out:   music.Outcome{Action: music.ActionQueued, Track: &started, Position: 3},
			title: "Added to Queue", color: SuccessColor,
			want: "Position in queue: 3",
		},
		{
			name:  "skipped to next",
			out:   music.Outcome{Action: music.ActionSkipped, Track: &started},
			title: "Skipped", color: SuccessColor,
			want: "Now playing: **So What**",
		},
		{
			name:  "skipped past the end",
			out:   music.Outcome{Action: music.ActionSkipped},
			title: "Skipped", color: SuccessColor,
			want: "Reached the end of the queue.",
		},
		{
			name:  "jumped",
			cmd:   music.Command{Kind: music.CommandJump, Index: 4},
			out:   music.Outcome{Action: music.ActionJumped, Track: &started},
			title: "Jumped", color: SuccessColor,
			want: "(Position 4)",
		},
		{
			name:  "shuffle with one track",
			out:   music.Outcome{Action: music.ActionShuffled, Snapshot: music.Snapshot{Queue: []music.Track{started}}},
			title: "Cannot Shuffle", color: WarningColor,
			want: "at least 2",
		},
		{
			name:  "shuffled",
			out:   music.Outcome{Action: music.ActionShuffled, Snapshot: music.Snapshot{Queue: []music.Track{started, started}}},
			title: "Shuffled", color: SuccessColor,
			want: "shuffled",
		},
		{
			name:  "quit",
			out:   music.Outcome{Action: music.ActionDisconnected},
			title: "Disconnected", color: SuccessColor,
			want: "cleared the queue",
		},
		{
			name:  "nothing playing",
			out:   music.Outcome{Action: music.ActionInfo},
			title: "Nothing Playing", color: InfoColor,
			want: "/play",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := m.outcomeEmbed(tt.cmd, tt.out)
			if embed.Title != tt.title {
				t.Errorf("Title = %q, want %q", embed.Title, tt.title)
			}
			if embed.Color != tt.color {
				t.Errorf("Color = %#x, want %#x", embed.Color, tt.color)
			}
			if !strings.Contains(embed.Description, tt.want) {
				t.Errorf("Description %q does not contain %q", embed.Description, tt.want)
			}
		})
	}
}

func TestNowPlayingEmbed(t *testing.T) {
	current := song("Blue in Green", 5*time.Minute+37*time.Second)
	queue := make([]music.Track, 12)
	for i := range queue {
		queue[i] = song("t", time.Minute)
	}

	embed := nowPlayingEmbed(music.Snapshot{
		State:   music.StatePaused,
		Current: &current,
		Queue:   queue,
	}, 65*time.Second)

	if !strings.Contains(embed.Description, "`1:05 / 5:37`") {
		t.Errorf("missing progress in %q", embed.Description)
	}
	if !strings.Contains(embed.Description, "Paused") {
		t.Errorf("missing paused marker in %q", embed.Description)
	}
	if len(embed.Fields) != 1 {
		t.Fatalf("Fields = %d, want 1", len(embed.Fields))
	}
	f := embed.Fields[0]
	if f.Name != "Up Next (12)" {
		t.Errorf("field name = %q", f.Name)
	}
	lines := strings.Split(f.Value, "\n")
	if len(lines) != upNextLimit+1 || lines[upNextLimit] != "...and 2 more" {
		t.Errorf("up next lines = %q", lines)
	}
}

func TestNowPlayingStream(t *testing.T) {
	current := music.Track{Title: "Radio", IsStream: true}
	embed := nowPlayingEmbed(music.Snapshot{State: music.StatePlaying, Current: &current}, time.Hour)
	if !strings.Contains(embed.Description, "`LIVE`") {
		t.Errorf("stream should be shown as LIVE: %q", embed.Description)
	}
	if len(embed.Fields) != 0 {
		t.Error("no Up Next field for an empty queue")
	}
}

func TestHistoryEmbed(t *testing.T) {
	if e := historyEmbed(nil); !strings.Contains(e.Description, "No tracks") {
		t.Errorf("empty history description = %q", e.Description)
	}

	records := []models.PlayRecord{
		{Title: "B", Author: "x", StartedAt: time.Unix(200, 0)},
		{Title: "A", StartedAt: time.Unix(100, 0)},
	}
	e := historyEmbed(records)
	want := "1. **B** by x · <t:200:R>\n2. **A** · <t:100:R>"
	if e.Description != want {
		t.Errorf("Description = %q, want %q", e.Description, want)
	}
}

func TestFailureEmbed(t *testing.T) {
	tests := []struct {
		err   error
		title string
	}{
		{music.ErrUserNotInVoice, "Not in Voice Channel"},
		{music.ErrNoResultsFound, "Track Not Found"},
		{errors.New("boom"), "Music Backend Unavailable"},
	}
	for _, tt := range tests {
		e := failureEmbed(tt.err)
		if e.Title != tt.title || e.Color != ErrorColor {
			t.Errorf("failureEmbed(%v) = %q/%#x", tt.err, e.Title, e.Color)
		}
		if strings.Contains(e.Description, "boom") {
			t.Error("internal error text must not reach users")
		}
	}
}
