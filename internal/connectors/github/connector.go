package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"bodega/internal/config"
	"bodega/internal/connectors"
)

const userAgent = "Bodega-Render-API/1.0"

// Connector talks to the GitHub REST API with a static token.
type Connector struct {
	baseURL    string
	repo       string
	httpClient *http.Client
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GITHUB_TOKEN", cfg.GitHubToken); err != nil {
		return nil, err
	}
	if err := cfg.Require("GITHUB_REPO", cfg.GitHubRepo); err != nil {
		return nil, err
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), tokenSource)
	client.Timeout = 30 * time.Second

	return NewConnectorWithClient(cfg.GitHubAPIBaseURL, cfg.GitHubRepo, client), nil
}

// NewConnectorWithClient skips token setup; the client is expected to
// authorize requests itself.
func NewConnectorWithClient(baseURL, repo string, client *http.Client) *Connector {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Connector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		repo:       repo,
		httpClient: client,
	}
}

type gistFile struct {
	Content string `json:"content"`
}

type gistRequest struct {
	Description string              `json:"description"`
	Public      bool                `json:"public"`
	Files       map[string]gistFile `json:"files"`
}

func (c *Connector) CreateGist(ctx context.Context, description string, files map[string]string) (connectors.Gist, error) {
	req := gistRequest{Description: description, Files: make(map[string]gistFile, len(files))}
	for name, content := range files {
		req.Files[name] = gistFile{Content: content}
	}

	body, err := c.post(ctx, "/gists", req)
	if err != nil {
		return connectors.Gist{}, err
	}

	var gist connectors.Gist
	if err := json.Unmarshal(body, &gist); err != nil {
		return connectors.Gist{}, fmt.Errorf("decode gist response: %w", err)
	}
	return gist, nil
}

func (c *Connector) Dispatch(ctx context.Context, eventType string, payload map[string]any) error {
	_, err := c.post(ctx, "/repos/"+c.repo+"/dispatches", map[string]any{
		"event_type":     eventType,
		"client_payload": payload,
	})
	return err
}

func (c *Connector) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
