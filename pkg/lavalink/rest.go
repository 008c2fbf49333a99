package lavalink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// TrackInfo contains information about a track
type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

// Track represents a playable track
type Track struct {
	Encoded  string         `json:"encoded"`
	Info     TrackInfo      `json:"info"`
	UserData map[string]any `json:"userData,omitempty"`
}

// playbackKey returns the PlaybackID the track was started with, or the
// encoded track when there is none
func (t *Track) playbackKey() string {
	if id, ok := t.UserData[playbackIDKey].(string); ok && id != "" {
		return id
	}
	return t.Encoded
}

// Load types returned by /v4/loadtracks
const (
	LoadTrack    = "track"
	LoadPlaylist = "playlist"
	LoadSearch   = "search"
	LoadEmpty    = "empty"
	LoadError    = "error"
)

// LoadResult is the response of /v4/loadtracks. Data depends on LoadType.
type LoadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistData struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []Track `json:"tracks"`
}

// Exception is a load failure reported by the node
type Exception struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

func (e *Exception) Error() string {
	return fmt.Sprintf("lavalink load failed (%s): %s", e.Severity, e.Message)
}

// Tracks flattens the result into its playable tracks
func (r LoadResult) Tracks() ([]Track, error) {
	switch r.LoadType {
	case LoadTrack:
		var t Track
		if err := json.Unmarshal(r.Data, &t); err != nil {
			return nil, err
		}
		return []Track{t}, nil
	case LoadSearch:
		var tracks []Track
		if err := json.Unmarshal(r.Data, &tracks); err != nil {
			return nil, err
		}
		return tracks, nil
	case LoadPlaylist:
		var p playlistData
		if err := json.Unmarshal(r.Data, &p); err != nil {
			return nil, err
		}
		return p.Tracks, nil
	case LoadError:
		var e Exception
		if err := json.Unmarshal(r.Data, &e); err != nil {
			return nil, err
		}
		return nil, &e
	default:
		return nil, nil
	}
}

// apiError is the error body of the REST API
type apiError struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// LoadTracks resolves an identifier (URL or "prefix:query")
func (c *Client) LoadTracks(ctx context.Context, identifier string) (LoadResult, error) {
	var result LoadResult
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

// UpdatePlayer patches the guild player on the current session
func (c *Client) UpdatePlayer(ctx context.Context, guildID string, update any) error {
	sessionID, err := c.session()
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID)
	return c.do(ctx, http.MethodPatch, path, update, nil)
}

// DestroyPlayer removes the guild player from the node
func (c *Client) DestroyPlayer(ctx context.Context, guildID string) error {
	sessionID, err := c.session()
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.baseURL()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.config.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("lavalink %s %s: %d %s", method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("lavalink %s %s: %s", method, path, resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
