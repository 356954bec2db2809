package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bodega/internal/config"
)

// ErrNotFound marks an absent data file. Optional files that are not found
// degrade to empty data.
var ErrNotFound = errors.New("data file not found")

// Source hands out the raw bytes of one named data file.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Client reads data files from a static host (the published data branch).
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	attempts   int
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:    cfg.DataBaseURL,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FetchRateLimitRPS),
		attempts:   3,
	}
}

func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	if strings.TrimSpace(c.baseURL) == "" {
		return nil, errors.New("missing DATA_BASE_URL")
	}

	u, err := url.Parse(strings.TrimRight(c.baseURL, "/") + "/" + url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	// static hosts cache aggressively
	q.Set("t", fmt.Sprintf("%d", time.Now().UnixMilli()))
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < c.attempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				lastErr = fmt.Errorf("data host status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("fetch %s: status=%d", name, resp.StatusCode)
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("data request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// DirSource reads data files from a local directory.
type DirSource struct {
	Dir string
}

func (d DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(filepath.Join(d.Dir, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return blob, err
}

// NewSource prefers the remote data host when one is configured.
func NewSource(cfg config.Config) Source {
	if strings.TrimSpace(cfg.DataBaseURL) != "" {
		return NewClient(cfg)
	}
	return DirSource{Dir: cfg.DataDir}
}
