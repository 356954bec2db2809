package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingData = errors.New("Missing required data (neither gist_url nor files provided)")

// Payload is the union of the three upload shapes. Which one a request is
// gets decided by Kind.
type Payload struct {
	GistURL   string          `json:"gist_url"`
	FileCount any             `json:"file_count"`
	Timestamp string          `json:"timestamp"`
	Source    string          `json:"source"`
	Files     json.RawMessage `json:"files"`

	Filename   string          `json:"filename"`
	Content    json.RawMessage `json:"content"`
	SessionID  string          `json:"session_id"`
	FileIndex  int             `json:"file_index"`
	TotalFiles int             `json:"total_files"`
	IsFinal    bool            `json:"is_final"`
}

const (
	KindChunk   = "chunk"
	KindGistURL = "gist_url"
	KindFiles   = "files"
	KindInvalid = "invalid"
)

func (p Payload) Kind() string {
	switch {
	case p.Filename != "" && p.SessionID != "":
		return KindChunk
	case p.GistURL != "":
		return KindGistURL
	case isObject(p.Files):
		return KindFiles
	default:
		return KindInvalid
	}
}

// FileMap decodes the files object. Non-string values are re-encoded as
// compact JSON text.
func (p Payload) FileMap() (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(p.Files, &raw); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	out := make(map[string]string, len(raw))
	for name, value := range raw {
		text, err := contentText(value)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", name, err)
		}
		out[name] = text
	}
	return out, nil
}

func contentText(value json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// fileCount mirrors a falsy-to-zero default: absent, null, false, 0 and ""
// all become 0, anything else passes through.
func fileCount(v any) any {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if !t {
			return 0
		}
	case float64:
		if t == 0 {
			return 0
		}
	case string:
		if t == "" {
			return 0
		}
	}
	return v
}
