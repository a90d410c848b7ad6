// Package catalog provides a client for the media backend REST API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	zlog "github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Errors
var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrUnavailable = errors.New("catalog: backend unavailable")
)

// mediaCacheEntry represents a cached media detail.
type mediaCacheEntry struct {
	media   Media
	fetched time.Time
}

// Client is a media backend API client.
type Client struct {
	baseURL      string
	mediaBaseURL string
	token        string

	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker

	// Cache for media details
	mediaCache    map[int64]*mediaCacheEntry
	mediaCacheTTL time.Duration
	cacheMu       sync.RWMutex
}

// Config represents catalog client configuration.
type Config struct {
	BaseURL      string
	MediaBaseURL string // Base for relative img_url and audio_url; defaults to BaseURL
	Token        string // Optional bearer token
	Timeout      time.Duration
	RetryMax     int
	CacheTTL     time.Duration
}

// Media is a media record as served by the backend.
type Media struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ArtistName string `json:"artist_name"`
	ImgURL     string `json:"img_url"`
	AudioURL   string `json:"audio_url"`
	Duration   string `json:"duration"`
	MediaType  string `json:"media_type"`
	Genre      string `json:"genre"`
}

// Playlist is a playlist or album header.
type Playlist struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Genre      string `json:"genre"`
	ArtistName string `json:"artist_name"`
	ImgURL     string `json:"img_url"`
	Type       string `json:"type"`
	SongCount  int    `json:"song_count"`
}

// PlaylistDetail is the response of GET /media/playlist/{id}.
type PlaylistDetail struct {
	Playlist Playlist `json:"playlist"`
	Medias   []Media  `json:"medias"`
}

// envelope wraps every backend response.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MediaBaseURL == "" {
		cfg.MediaBaseURL = cfg.BaseURL
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = cfg.Timeout
	httpClient.Logger = nil
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	settings := gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A missing record or a cancelled load says nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zlog.Warn().Msgf("catalog: circuit %s changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		mediaBaseURL:  cfg.MediaBaseURL,
		token:         cfg.Token,
		http:          httpClient,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		mediaCache:    make(map[int64]*mediaCacheEntry),
		mediaCacheTTL: cfg.CacheTTL,
	}, nil
}

// ListMedia retrieves all media records.
func (c *Client) ListMedia(ctx context.Context) ([]Media, error) {
	var medias []Media
	if err := c.get(ctx, "/media", &medias); err != nil {
		return nil, errors.Wrap(err, "failed to list media")
	}
	return medias, nil
}

// GetPlaylist retrieves a playlist with its media.
func (c *Client) GetPlaylist(ctx context.Context, id int64) (*PlaylistDetail, error) {
	var detail PlaylistDetail
	if err := c.get(ctx, fmt.Sprintf("/media/playlist/%d", id), &detail); err != nil {
		return nil, errors.Wrapf(err, "failed to get playlist %d", id)
	}
	zlog.Debug().Msgf("catalog: fetched playlist id=%d name=%q medias=%d", id, detail.Playlist.Name, len(detail.Medias))
	return &detail, nil
}

// GetMedia retrieves a single media record.
func (c *Client) GetMedia(ctx context.Context, id int64) (*Media, error) {
	// Check cache first
	c.cacheMu.RLock()
	if entry, ok := c.mediaCache[id]; ok && c.freshLocked(entry) {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("catalog: using cached media id=%d", id)
		m := entry.media
		return &m, nil
	}
	c.cacheMu.RUnlock()

	var m Media
	if err := c.get(ctx, fmt.Sprintf("/media/%d", id), &m); err != nil {
		return nil, errors.Wrapf(err, "failed to get media %d", id)
	}

	// Cache the result
	c.cacheMu.Lock()
	c.mediaCache[id] = &mediaCacheEntry{media: m, fetched: time.Now()}
	c.cacheMu.Unlock()

	return &m, nil
}

// freshLocked must be called with cacheMu held.
func (c *Client) freshLocked(entry *mediaCacheEntry) bool {
	return c.mediaCacheTTL <= 0 || time.Since(entry.fetched) < c.mediaCacheTTL
}

// get fetches path and decodes the envelope's data into out.
// Calls go through the circuit breaker; retries happen inside it.
func (c *Client) get(ctx context.Context, path string, out any) error {
	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, http.MethodGet, path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return errors.Wrap(ErrUnavailable, err.Error())
		}
		return err
	}

	var env envelope
	if err := json.Unmarshal(body.([]byte), &env); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	if !env.Success {
		return errors.Newf("catalog API error: %s", env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "failed to parse response data")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "%s %s", method, path)
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(ErrUnavailable, "%s %s returned status %d", method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
			return nil, errors.Newf("%s %s returned status %d: %s", method, path, resp.StatusCode, env.Message)
		}
		return nil, errors.Newf("%s %s returned status %d", method, path, resp.StatusCode)
	}
	return body, nil
}
