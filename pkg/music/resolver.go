package music

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
)

// DefaultResolveTimeout bounds a resolution when none is configured
const DefaultResolveTimeout = 15 * time.Second

var (
	spotifyLinkRegex = regexp.MustCompile(`^https?://(open\.)?spotify\.com/(intl-[a-z]+/)?(track|playlist|album)/[\w]+`)
	spotifyURIRegex  = regexp.MustCompile(`^spotify:(track|playlist|album):[\w]+$`)
)

// IsMetadataSource reports whether the input is a link the audio node can
// only play after a metadata lookup
func IsMetadataSource(input string) bool {
	return spotifyLinkRegex.MatchString(input) || spotifyURIRegex.MatchString(input)
}

// Resolver converts user input into a playable Track
type Resolver struct {
	search   Searcher
	metadata MetadataService
	timeout  time.Duration
}

// NewResolver creates a resolver. metadata may be nil, in which case every
// metadata-only link is searched as raw text.
func NewResolver(search Searcher, metadata MetadataService, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{
		search:   search,
		metadata: metadata,
		timeout:  timeout,
	}
}

// Resolve finds the first playable candidate for query
func (r *Resolver) Resolve(ctx context.Context, query, requesterID string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, ErrNoResultsFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	source := SourceDirect
	searchQuery := query
	if IsMetadataSource(query) {
		source = SourceMetadata
		searchQuery = r.metadataQuery(ctx, query)
	}

	candidates, err := r.search.Search(ctx, searchQuery)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Track{}, newError(CodeResolutionTimeout, err, "")
		}
		var e *Error
		if errors.As(err, &e) {
			return Track{}, e
		}
		return Track{}, newError(CodeBackendUnavailable, err, "")
	}
	if len(candidates) == 0 {
		return Track{}, ErrNoResultsFound
	}

	track := candidates[0]
	track.Source = source
	track.RequesterID = requesterID
	return track, nil
}

// metadataQuery returns "title artist" for a metadata link, or the raw link
// when metadata is unavailable
func (r *Resolver) metadataQuery(ctx context.Context, link string) string {
	if r.metadata == nil {
		return link
	}

	meta, err := r.metadata.ResolveMetadata(ctx, link)
	if err != nil {
		logger.Debug(fmt.Sprintf("Metadatos no disponibles para %s, se busca el enlace directamente: %v", link, err), "Resolver")
		return link
	}

	q := strings.TrimSpace(meta.Title + " " + meta.Artist)
	if q == "" {
		return link
	}
	return q
}
