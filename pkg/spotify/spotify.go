// Package spotify looks up track metadata through the Spotify Web API so that
// Spotify links can be searched on the audio node by title and artist.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

var (
	spotifyLinkRegex = regexp.MustCompile(`spotify\.com/(?:intl-[a-z]+/)?(track|album|playlist)/([a-zA-Z0-9]+)`)
	spotifyURIRegex  = regexp.MustCompile(`^spotify:(track|album|playlist):([a-zA-Z0-9]+)$`)
)

var (
	// ErrNoCredentials is returned when the client was built without credentials
	ErrNoCredentials = errors.New("spotify credentials not configured")
	// ErrNotTrack is returned for album and playlist links
	ErrNotTrack = errors.New("spotify link is not a track")
	// ErrInvalidLink is returned for input that is not a Spotify link
	ErrInvalidLink = errors.New("not a spotify link")
)

// Config holds the client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	// TokenURL and APIBaseURL override the Spotify endpoints
	TokenURL   string
	APIBaseURL string
}

// Client resolves Spotify links into metadata
type Client struct {
	client *spotify.Client
}

// NewClient creates a client using the client credentials flow. Missing
// credentials give a client whose lookups fail with ErrNoCredentials.
func NewClient(ctx context.Context, cfg Config) *Client {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("Spotify sin credenciales, los enlaces se buscarán directamente", "Spotify")
		return &Client{}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if cfg.APIBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(cfg.APIBaseURL))
	}

	logger.Info("Cliente de Spotify inicializado", "Spotify")
	return &Client{client: spotify.New(creds.Client(ctx), opts...)}
}

// ParseLink returns the kind ("track", "album", "playlist") and ID of a
// Spotify link or URI
func ParseLink(link string) (kind string, id spotify.ID, err error) {
	link = strings.TrimSpace(link)
	m := spotifyURIRegex.FindStringSubmatch(link)
	if m == nil {
		m = spotifyLinkRegex.FindStringSubmatch(link)
	}
	if m == nil {
		return "", "", ErrInvalidLink
	}
	return m[1], spotify.ID(m[2]), nil
}

// ResolveMetadata returns the title and artists of a track link
func (c *Client) ResolveMetadata(ctx context.Context, link string) (music.Metadata, error) {
	if c.client == nil {
		return music.Metadata{}, ErrNoCredentials
	}

	kind, id, err := ParseLink(link)
	if err != nil {
		return music.Metadata{}, err
	}
	if kind != "track" {
		return music.Metadata{}, fmt.Errorf("%w: %s", ErrNotTrack, kind)
	}

	track, err := c.client.GetTrack(ctx, id)
	if err != nil {
		return music.Metadata{}, fmt.Errorf("get track %s: %w", id, err)
	}

	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}

	logger.Debug(fmt.Sprintf("Metadatos de %s: %s - %s", id, track.Name, strings.Join(artists, ", ")), "Spotify")
	return music.Metadata{
		Title:  track.Name,
		Artist: strings.Join(artists, " "),
	}, nil
}

var _ music.MetadataService = (*Client)(nil)
