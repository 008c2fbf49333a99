package utils

import (
	"testing"
	"time"
)

type node struct{ up bool }

func (n node) Name() string    { return "main" }
func (n node) Connected() bool { return n.up }

type store struct{}

func (store) GetStatus() (string, bool) { return "🟢 | En linea", true }

type counter int

func (c counter) Len() int { return int(c) }

func TestStatusEmbed(t *testing.T) {
	tests := []struct {
		name     string
		status   *Status
		lavalink string
		database string
		sessions string
	}{
		{
			name:     "everything disabled",
			status:   &Status{},
			lavalink: "⚪ | Deshabilitado",
			database: "⚪ | Deshabilitado",
			sessions: "0",
		},
		{
			name:     "node down",
			status:   &Status{Node: node{}, Store: store{}, Sessions: counter(2)},
			lavalink: "🔴 | Desconectado (main)",
			database: "🟢 | En linea",
			sessions: "2",
		},
		{
			name:     "node up",
			status:   &Status{Node: node{up: true}},
			lavalink: "🟢 | En linea (main)",
			database: "⚪ | Deshabilitado",
			sessions: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := tt.status.embed(3, 90*time.Second+300*time.Millisecond)
			fields := map[string]string{}
			for _, f := range embed.Fields {
				fields[f.Name] = f.Value
			}
			if fields["Lavalink"] != tt.lavalink {
				t.Errorf("Lavalink = %q, want %q", fields["Lavalink"], tt.lavalink)
			}
			if fields["Database"] != tt.database {
				t.Errorf("Database = %q, want %q", fields["Database"], tt.database)
			}
			if fields["Active players"] != tt.sessions {
				t.Errorf("Active players = %q, want %q", fields["Active players"], tt.sessions)
			}
			if fields["Servers"] != "3" || fields["Uptime"] != "1m30s" {
				t.Errorf("Servers/Uptime = %q/%q", fields["Servers"], fields["Uptime"])
			}
		})
	}
}
