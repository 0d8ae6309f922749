// Package source materializes a client-supplied PDF reference (remote
// URL, uploaded file, or base64 payload) into a request-scoped
// temporary file and enforces the configured size ceiling.
package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aliskhannn/pdf-processor/internal/model"
	"github.com/aliskhannn/pdf-processor/internal/tempfile"
)

var pdfMagic = []byte("%PDF-")

// Fetcher acquires PDF sources. A single instance is shared by all
// requests; it carries no per-request state.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher with the given size ceiling and download timeout.
func New(maxBytes int64, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// FromURL downloads a remote PDF into the scope. The download is
// bounded by the fetcher's timeout and the request context.
func (f *Fetcher) FromURL(ctx context.Context, scope *tempfile.Scope, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d from %s", model.ErrSourceUnavailable, resp.StatusCode, url)
	}

	return f.materialize(scope, resp.Body, model.ErrSourceUnavailable)
}

// FromReader copies an uploaded file into the scope. A read failure
// here means the client truncated or aborted the upload, so it
// surfaces as a validation error rather than a remote-source one.
func (f *Fetcher) FromReader(scope *tempfile.Scope, r io.Reader) (string, error) {
	return f.materialize(scope, r, model.ErrValidation)
}

// FromBase64 decodes a base64 payload into the scope.
func (f *Fetcher) FromBase64(scope *tempfile.Scope, payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); i >= 0 {
		payload = payload[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidEncoding, err)
	}

	return f.materialize(scope, bytes.NewReader(data), model.ErrSourceUnavailable)
}

// materialize writes the source to a new scoped temp file and rejects
// it once it exceeds the size ceiling. Copy failures are wrapped in
// readErr, which classifies who broke the stream for that route. The
// partially written file stays registered in the scope and is released
// with everything else.
func (f *Fetcher) materialize(scope *tempfile.Scope, r io.Reader, readErr error) (string, error) {
	out, err := scope.CreateFile("src-*.pdf")
	if err != nil {
		return "", err
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", readErr, err)
	}
	if n > f.maxBytes {
		return "", fmt.Errorf("%w: source exceeds %d bytes", model.ErrPayloadTooLarge, f.maxBytes)
	}

	return out.Name(), nil
}

// SniffPDF verifies the file starts with the PDF magic bytes.
func SniffPDF(path string) error {
	g, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}
	defer g.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(g, header); err != nil {
		return fmt.Errorf("%w: file too short to be a PDF", model.ErrValidation)
	}
	if !bytes.Equal(header, pdfMagic) {
		return fmt.Errorf("%w: not a PDF file", model.ErrValidation)
	}

	return nil
}
