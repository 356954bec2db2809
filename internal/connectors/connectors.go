package connectors

import "context"

// Gist is the part of a created gist the relay hands on to the workflow.
type Gist struct {
	ID      string `json:"id"`
	HTMLURL string `json:"html_url"`
}

// Publisher creates gists and fires repository_dispatch events.
type Publisher interface {
	CreateGist(ctx context.Context, description string, files map[string]string) (Gist, error)
	Dispatch(ctx context.Context, eventType string, payload map[string]any) error
}
