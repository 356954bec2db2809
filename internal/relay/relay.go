package relay

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"bodega/internal"
	"bodega/internal/config"
	"bodega/internal/connectors"
	"bodega/internal/metrics"
)

// isoMillis matches the timestamp format upload clients send.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

const gistSource = "bodega-script-gist"

var gistIDPattern = regexp.MustCompile(`/([a-f0-9]+)$`)

// Response is a status code plus the JSON body to send back.
type Response struct {
	Status int
	Body   map[string]any
}

type Options struct {
	EventType     string
	DefaultSource string
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{EventType: cfg.DispatchEventType, DefaultSource: cfg.UploadSource}
}

// Service forwards uploaded shop data to GitHub: it creates a gist when
// needed and then fires the repository_dispatch event that starts the
// import workflow.
type Service struct {
	publisher connectors.Publisher
	chunks    *connectors.ChunkStore
	opts      Options
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(publisher connectors.Publisher, chunks *connectors.ChunkStore, opts Options, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.EventType == "" {
		opts.EventType = "shop_data_upload"
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = "bodega-api"
	}
	return &Service{publisher: publisher, chunks: chunks, opts: opts, log: log, metrics: m, now: time.Now}
}

func (s *Service) Handle(ctx context.Context, p Payload) Response {
	kind := p.Kind()
	var resp Response
	switch kind {
	case KindChunk:
		resp = s.handleChunk(ctx, p)
	case KindGistURL:
		resp = s.handleGistURL(ctx, p)
	case KindFiles:
		resp = s.handleFiles(ctx, p)
	default:
		resp = Response{Status: http.StatusBadRequest, Body: map[string]any{"error": ErrMissingData.Error()}}
	}
	s.metrics.RecordUpload(kind, resultLabel(resp))
	return resp
}

func (s *Service) handleGistURL(ctx context.Context, p Payload) Response {
	var gistID any
	if m := gistIDPattern.FindStringSubmatch(p.GistURL); m != nil {
		gistID = m[1]
	}
	timestamp := p.Timestamp
	if timestamp == "" {
		timestamp = s.timestamp()
	}
	source := p.Source
	if source == "" {
		source = gistSource
	}

	err := s.publisher.Dispatch(ctx, s.opts.EventType, map[string]any{
		"gist_url":   p.GistURL,
		"gist_id":    gistID,
		"file_count": fileCount(p.FileCount),
		"timestamp":  timestamp,
		"source":     source,
	})
	if err != nil {
		s.log.Error("dispatch failed", zap.String("gist_url", p.GistURL), zap.Error(err))
		return Response{Status: http.StatusInternalServerError, Body: map[string]any{
			"error":   "Failed to trigger workflow",
			"details": err.Error(),
		}}
	}
	s.log.Info("workflow triggered", zap.String("gist_url", p.GistURL))
	return Response{Status: http.StatusOK, Body: map[string]any{
		"message":   "Workflow triggered successfully",
		"gist_url":  p.GistURL,
		"timestamp": timestamp,
	}}
}

func (s *Service) handleFiles(ctx context.Context, p Payload) Response {
	files, err := p.FileMap()
	if err != nil {
		return internalError(err)
	}

	gist, err := s.createGist(ctx, files)
	if err != nil {
		s.log.Error("gist creation failed", zap.Error(err))
		return Response{Status: http.StatusInternalServerError, Body: map[string]any{
			"error":   "Failed to create gist",
			"details": err.Error(),
		}}
	}

	source := p.Source
	if source == "" {
		source = s.opts.DefaultSource
	}
	timestamp := s.timestamp()
	err = s.publisher.Dispatch(ctx, s.opts.EventType, map[string]any{
		"gist_url":   gist.HTMLURL,
		"gist_id":    gist.ID,
		"file_count": len(files),
		"timestamp":  timestamp,
		"source":     source,
	})
	if err != nil {
		s.log.Warn("gist created but dispatch failed", zap.String("gist_url", gist.HTMLURL), zap.Error(err))
		return Response{Status: http.StatusOK, Body: map[string]any{
			"message":  "Gist created but workflow trigger failed",
			"gist_url": gist.HTMLURL,
			"error":    err.Error(),
		}}
	}
	return Response{Status: http.StatusOK, Body: map[string]any{
		"message":   "Upload successful via gist",
		"gist_url":  gist.HTMLURL,
		"timestamp": timestamp,
	}}
}

func (s *Service) handleChunk(ctx context.Context, p Payload) Response {
	if s.chunks == nil {
		return internalError(fmt.Errorf("chunked uploads are not enabled"))
	}
	content, err := contentText(p.Content)
	if err != nil {
		return internalError(fmt.Errorf("file %s: %w", p.Filename, err))
	}

	received, err := s.chunks.Store(internal.UploadChunk{
		SessionID:  p.SessionID,
		Filename:   p.Filename,
		FileIndex:  p.FileIndex,
		TotalFiles: p.TotalFiles,
		Timestamp:  p.Timestamp,
		Source:     p.Source,
	}, []byte(content))
	if err != nil {
		return internalError(err)
	}

	if !p.IsFinal {
		return Response{Status: http.StatusOK, Body: map[string]any{
			"message":        fmt.Sprintf("File %s received (%d/%d)", p.Filename, p.FileIndex, p.TotalFiles),
			"session_id":     p.SessionID,
			"files_received": received,
		}}
	}
	return s.finishSession(ctx, p.SessionID)
}

func (s *Service) finishSession(ctx context.Context, sessionID string) Response {
	log := s.log.With(zap.String("session_id", sessionID))
	defer func() {
		if err := s.chunks.Delete(sessionID); err != nil {
			log.Warn("upload session cleanup failed", zap.Error(err))
		}
	}()

	chunks, files, err := s.chunks.Session(sessionID)
	if err != nil {
		log.Error("upload session unreadable", zap.Error(err))
		return Response{Status: http.StatusInternalServerError, Body: map[string]any{
			"error":   "Failed to process multi-file upload",
			"details": err.Error(),
		}}
	}
	// session metadata comes from the earliest chunk
	var timestamp, source string
	if len(chunks) > 0 {
		timestamp, source = chunks[0].Timestamp, chunks[0].Source
	}

	gist, err := s.createGist(ctx, Reassemble(files, log))
	if err != nil {
		log.Error("gist creation failed", zap.Error(err))
		return Response{Status: http.StatusInternalServerError, Body: map[string]any{
			"error":   "Failed to create gist",
			"details": err.Error(),
		}}
	}

	err = s.publisher.Dispatch(ctx, s.opts.EventType, map[string]any{
		"gist_url":   gist.HTMLURL,
		"gist_id":    gist.ID,
		"file_count": len(files),
		"timestamp":  timestamp,
		"source":     source,
	})
	if err != nil {
		log.Warn("gist created but dispatch failed", zap.String("gist_url", gist.HTMLURL), zap.Error(err))
		return Response{Status: http.StatusOK, Body: map[string]any{
			"message":  "Multi-file upload complete, gist created but workflow trigger failed",
			"gist_url": gist.HTMLURL,
			"error":    err.Error(),
		}}
	}
	log.Info("multi-file upload complete", zap.Int("files", len(files)), zap.String("gist_url", gist.HTMLURL))
	return Response{Status: http.StatusOK, Body: map[string]any{
		"message":    "Multi-file upload complete and workflow triggered",
		"gist_url":   gist.HTMLURL,
		"session_id": sessionID,
		"file_count": len(files),
		"timestamp":  timestamp,
	}}
}

// SweepStale drops sessions whose last chunk arrived before now-maxAge.
func (s *Service) SweepStale(maxAge time.Duration) (int, error) {
	if s.chunks == nil {
		return 0, nil
	}
	ids, err := s.chunks.Stale(s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.chunks.Delete(id); err != nil {
			return 0, err
		}
		s.log.Info("stale upload session dropped", zap.String("session_id", id))
	}
	return len(ids), nil
}

func (s *Service) createGist(ctx context.Context, files map[string]string) (connectors.Gist, error) {
	description := "Bodega shop data upload - " + s.timestamp()
	return s.publisher.CreateGist(ctx, description, files)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(isoMillis)
}

// InternalError is the response for failures outside the upload flows, such
// as an unreadable request body.
func InternalError(err error) Response {
	return internalError(err)
}

func internalError(err error) Response {
	return Response{Status: http.StatusInternalServerError, Body: map[string]any{
		"error":   "Internal server error",
		"details": err.Error(),
	}}
}

func resultLabel(resp Response) string {
	switch {
	case resp.Status >= 500:
		return "error"
	case resp.Status >= 400:
		return "rejected"
	case resp.Body["error"] != nil:
		return "partial"
	case resp.Body["files_received"] != nil:
		return "stored"
	default:
		return "ok"
	}
}
