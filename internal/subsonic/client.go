package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	apiVersion = "1.16.1"
	clientName = "harmony"
)

// ErrNotFound is returned by GetSong when the server has no such song.
var ErrNotFound = errors.New("subsonic: not found")

// Client wraps the Subsonic REST API.
type Client struct {
	BaseURL    string
	User       string
	Password   string
	HTTP       *http.Client // API calls, short timeout
	StreamHTTP *http.Client // audio downloads, no timeout

	log *zap.Logger
}

// NewClient creates a new Subsonic API client.
func NewClient(baseURL, user, password string, log *zap.Logger) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		User:     user,
		Password: password,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
		StreamHTTP: &http.Client{},
		log:        log.Named("subsonic"),
	}
}

// authParams returns the token authentication parameters. Every call gets a fresh salt.
func (c *Client) authParams() url.Values {
	salt := randomSalt(12)

	params := url.Values{}
	params.Set("u", c.User)
	params.Set("t", md5Hash(c.Password+salt))
	params.Set("s", salt)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")
	return params
}

func (c *Client) buildURL(endpoint string, extra url.Values) string {
	params := c.authParams()
	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	return fmt.Sprintf("%s/rest/%s?%s", c.BaseURL, endpoint, params.Encode())
}

func (c *Client) get(ctx context.Context, endpoint string, extra url.Values) (*ResponseBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(endpoint, extra), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Warn("Request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("subsonic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subsonic returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var sr Envelope
	if err := sonic.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	rb := sr.SubsonicResponse
	if rb.Status != "ok" {
		if rb.Error != nil {
			c.log.Warn("API error",
				zap.String("endpoint", endpoint),
				zap.Int("code", rb.Error.Code),
				zap.String("message", rb.Error.Message),
			)
			if rb.Error.Code == codeNotFound {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, rb.Error.Message)
			}
			return nil, fmt.Errorf("subsonic error %d: %s", rb.Error.Code, rb.Error.Message)
		}
		return nil, fmt.Errorf("subsonic returned status: %s", rb.Status)
	}

	return &rb, nil
}

// Ping verifies connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping.view", nil)
	return err
}

// Search runs a search3 query for songs only.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Song, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("songCount", strconv.Itoa(count))
	params.Set("albumCount", "0")
	params.Set("artistCount", "0")

	resp, err := c.get(ctx, "search3.view", params)
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return nil, nil
	}
	return resp.SearchResult3.Songs, nil
}

// GetSong returns metadata for one song.
func (c *Client) GetSong(ctx context.Context, id string) (*Song, error) {
	params := url.Values{}
	params.Set("id", id)

	resp, err := c.get(ctx, "getSong.view", params)
	if err != nil {
		return nil, err
	}
	if resp.Song == nil {
		return nil, ErrNotFound
	}
	return resp.Song, nil
}

// StreamOptions controls server-side transcoding of a stream.
type StreamOptions struct {
	Format string
	Offset time.Duration
}

// StreamURL returns the authenticated stream URL for a song.
func (c *Client) StreamURL(id string, opts StreamOptions) string {
	params := url.Values{}
	params.Set("id", id)
	if opts.Format != "" {
		params.Set("format", opts.Format)
	}
	if secs := int(opts.Offset / time.Second); secs > 0 {
		params.Set("timeOffset", strconv.Itoa(secs))
	}
	return c.buildURL("stream.view", params)
}

// Stream opens the audio stream for a song. The caller closes the body.
func (c *Client) Stream(ctx context.Context, id string, opts StreamOptions) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamURL(id, opts), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	resp, err := c.StreamHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned HTTP %d", resp.StatusCode)
	}
	// errors come back as JSON with a 200
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "text/xml") {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned %s instead of audio", ct)
	}
	return resp.Body, nil
}

// --- Helpers ---

func md5Hash(s string) string {
	h := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", h)
}

func randomSalt(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
