// Package pdf orchestrates the request pipeline: acquire sources,
// enforce the size ceiling, apply one transformation, and deliver the
// result. All temporary files live in a per-request scope that is
// cleaned up on every exit path.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-processor/internal/model"
	"github.com/aliskhannn/pdf-processor/internal/processor"
	"github.com/aliskhannn/pdf-processor/internal/source"
	"github.com/aliskhannn/pdf-processor/internal/tempfile"
)

// DeliverStream streams the produced document in the response body;
// DeliverLink uploads it to object storage and returns a presigned link.
const (
	DeliverStream = "stream"
	DeliverLink   = "link"
)

// fetcher materializes request sources into scoped temporary files.
type fetcher interface {
	FromURL(ctx context.Context, scope *tempfile.Scope, url string) (string, error)
	FromReader(scope *tempfile.Scope, r io.Reader) (string, error)
	FromBase64(scope *tempfile.Scope, payload string) (string, error)
}

// transformer applies one named operation to materialized sources.
type transformer interface {
	Apply(ctx context.Context, op string, in []string, out string, params processor.Params) (*processor.Result, error)
}

// FileStorage defines the interface for the object storage collaborator.
type FileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader, size int64) (string, error)
	PublicURL(ctx context.Context, path string) (string, error)
}

// EventProducer defines the interface for publishing operation events.
type EventProducer interface {
	Produce(ctx context.Context, event model.Event) error
}

// Source identifies one input PDF. Exactly one field must be set.
type Source struct {
	URL    string
	Reader io.Reader
	Base64 string
}

// Request is a fully parsed transformation request.
type Request struct {
	Operation string
	Sources   []Source
	Stamp     io.Reader // watermark-image stamp upload
	Params    processor.Params
	Deliver   string // DeliverStream or DeliverLink
	Filename  string // output filename for disposition / storage
}

// Response carries the pipeline outcome. Data is set for streamed
// documents, Link for uploaded ones; Payload holds operation-specific
// JSON fields.
type Response struct {
	Data     []byte
	Filename string
	Link     string
	Payload  map[string]any
	Stats    model.Stats
}

// Service wires the pipeline stages together.
type Service struct {
	fetcher     fetcher
	transformer transformer
	fileStorage FileStorage   // nil when storage is disabled
	producer    EventProducer // nil when event publishing is disabled
	tempDir     string
}

// NewService creates a Service. fs and p may be nil.
func NewService(f fetcher, t transformer, fs FileStorage, p EventProducer, tempDir string) *Service {
	return &Service{
		fetcher:     f,
		transformer: t,
		fileStorage: fs,
		producer:    p,
		tempDir:     tempDir,
	}
}

// Process runs the five pipeline stages for one request. Temporary
// files created along the way are removed before it returns, whatever
// the outcome.
func (s *Service) Process(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	started := time.Now()

	scope := tempfile.NewScope(s.tempDir)
	defer scope.Cleanup()

	// Stage 1+2: acquire sources; the fetcher enforces the size ceiling
	// while materializing.
	in := make([]string, 0, len(req.Sources))
	for i, src := range req.Sources {
		path, err := s.acquire(ctx, scope, src)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		if err := source.SniffPDF(path); err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		in = append(in, path)
	}

	params := req.Params
	if req.Stamp != nil {
		path, err := s.fetcher.FromReader(scope, req.Stamp)
		if err != nil {
			return nil, fmt.Errorf("stamp: %w", err)
		}
		params.Stamp = path
		params.Scratch = scope.Create("stamp-*.png")
	}

	var inputBytes int64
	for _, path := range in {
		if fi, err := os.Stat(path); err == nil {
			inputBytes += fi.Size()
		}
	}

	// Stage 3+4: transform into a scoped output file.
	out := scope.Create("out-*.pdf")
	result, err := s.transformer.Apply(ctx, req.Operation, in, out, params)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Filename: req.Filename,
		Payload:  result.Payload,
		Stats:    model.Stats{InputBytes: inputBytes},
	}

	// Stage 5: deliver.
	if result.Produced {
		data, err := os.ReadFile(out)
		if err != nil {
			return nil, fmt.Errorf("%w: read output: %v", model.ErrDelivery, err)
		}
		resp.Stats.OutputBytes = int64(len(data))

		if req.Deliver == DeliverLink {
			link, err := s.upload(ctx, req.Filename, data)
			if err != nil {
				return nil, err
			}
			resp.Link = link
		} else {
			resp.Data = data
		}
	}

	s.publishEvent(ctx, req, resp, time.Since(started))

	return resp, nil
}

func (s *Service) acquire(ctx context.Context, scope *tempfile.Scope, src Source) (string, error) {
	switch {
	case src.URL != "":
		return s.fetcher.FromURL(ctx, scope, src.URL)
	case src.Reader != nil:
		return s.fetcher.FromReader(scope, src.Reader)
	case src.Base64 != "":
		return s.fetcher.FromBase64(scope, src.Base64)
	default:
		return "", fmt.Errorf("%w: empty source", model.ErrValidation)
	}
}

// upload pushes the produced document to object storage and returns a
// presigned link. Object names carry a random prefix so concurrent
// requests never overwrite each other.
func (s *Service) upload(ctx context.Context, filename string, data []byte) (string, error) {
	if s.fileStorage == nil {
		return "", fmt.Errorf("%w: object storage is not configured", model.ErrValidation)
	}

	object := fmt.Sprintf("%s-%s", uuid.NewString()[:8], filename)

	path, err := s.fileStorage.Save(ctx, "processed", object, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", model.ErrDelivery, err)
	}

	link, err := s.fileStorage.PublicURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %v", model.ErrDelivery, err)
	}

	return link, nil
}

// publishEvent reports a completed operation to the event queue.
// Publishing is best effort and never fails the request.
func (s *Service) publishEvent(ctx context.Context, req Request, resp *Response, took time.Duration) {
	if s.producer == nil {
		return
	}

	event := model.Event{
		ID:          uuid.New(),
		Operation:   req.Operation,
		Filename:    resp.Filename,
		InputBytes:  resp.Stats.InputBytes,
		OutputBytes: resp.Stats.OutputBytes,
		Duration:    took.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.producer.Produce(ctx, event); err != nil {
		zlog.Logger.Warn().Err(err).Str("operation", req.Operation).Msg("failed to publish operation event")
	}
}

func validate(req Request) error {
	if req.Operation == "" {
		return fmt.Errorf("%w: operation is required", model.ErrValidation)
	}
	if len(req.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", model.ErrValidation)
	}
	if req.Operation == "merge" && len(req.Sources) < 2 {
		return fmt.Errorf("%w: merge requires at least two sources", model.ErrValidation)
	}
	return nil
}
