package artwork

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/metrics"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the iTunes Search API
	DefaultEndpoint = "https://itunes.apple.com/search"

	lookupTimeout = 10 * time.Second

	smallArtworkToken = "100x100bb"
	largeArtworkToken = "512x512bb"
)

var (
	// ErrNoArtwork means the lookup succeeded but had nothing usable
	ErrNoArtwork = errors.New("no artwork found")
	// ErrDecode means the response body could not be parsed
	ErrDecode = errors.New("undecodable lookup response")
)

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ArtworkURL100 *string `json:"artworkUrl100"`
}

// ITunesLookup resolves album artwork through the iTunes Search API.
// Transport failures are counted by a circuit breaker so a dead endpoint
// stops costing a 10s timeout on every track change.
type ITunesLookup struct {
	logger   *zap.Logger
	fetcher  domain.Fetcher
	endpoint string
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

// NewITunesLookup creates a lookup against endpoint (DefaultEndpoint if empty).
func NewITunesLookup(logger *zap.Logger, fetcher domain.Fetcher, endpoint string) *ITunesLookup {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "itunes-search",
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Lookup circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ITunesLookup{
		logger:   logger,
		fetcher:  fetcher,
		endpoint: endpoint,
		breaker:  cb,
	}
}

// Find returns the upscaled artwork URL for the best album match.
func (l *ITunesLookup) Find(ctx context.Context, artist, album string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	requestURL := l.searchURL(BuildQuery(artist, album))
	l.logger.Info("Fetching album art", zap.String("url", requestURL))

	body, err := l.breaker.Execute(func() ([]byte, error) {
		return l.fetcher.Fetch(ctx, requestURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ArtworkLookups.WithLabelValues("rejected").Inc()
		} else {
			metrics.ArtworkLookups.WithLabelValues("error").Inc()
		}
		return "", fmt.Errorf("lookup request failed: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.ArtworkLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if len(resp.Results) == 0 || resp.Results[0].ArtworkURL100 == nil || *resp.Results[0].ArtworkURL100 == "" {
		metrics.ArtworkLookups.WithLabelValues("not_found").Inc()
		return "", ErrNoArtwork
	}

	metrics.ArtworkLookups.WithLabelValues("found").Inc()
	return Upscale(*resp.Results[0].ArtworkURL100), nil
}

func (l *ITunesLookup) searchURL(query string) string {
	sep := "?"
	if strings.Contains(l.endpoint, "?") {
		sep = "&"
	}
	return l.endpoint + sep + "term=" + EncodeQuery(query) + "&media=music&entity=album&limit=1"
}

// BuildQuery joins artist and album into a search term. The album is
// dropped when blank.
func BuildQuery(artist, album string) string {
	album = strings.TrimSpace(album)
	if album == "" {
		return strings.TrimSpace(artist)
	}
	return strings.TrimSpace(artist + " " + album)
}

// EncodeQuery form-encodes a search term: space becomes '+', [A-Za-z0-9-_.~]
// pass through, every other byte becomes %XX in upper-case hex.
func EncodeQuery(s string) string {
	return url.QueryEscape(s)
}

// Upscale swaps the 100x100 artwork size token for 512x512.
func Upscale(artworkURL string) string {
	return strings.ReplaceAll(artworkURL, smallArtworkToken, largeArtworkToken)
}
