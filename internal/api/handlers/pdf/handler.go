package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-processor/internal/api/respond"
	"github.com/aliskhannn/pdf-processor/internal/model"
	"github.com/aliskhannn/pdf-processor/internal/processor"
	pdfsvc "github.com/aliskhannn/pdf-processor/internal/service/pdf"
)

// Parse the multipart form with a 32MB max memory limit; larger files
// spill to disk and are still bounded by the pipeline's size ceiling.
const maxMultipartMemory = 32 << 20

// service defines the interface for running the transformation pipeline.
type service interface {
	Process(ctx context.Context, req pdfsvc.Request) (*pdfsvc.Response, error)
}

// Handler provides HTTP handlers for PDF transformation endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service    service
	operations []string
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service, operations []string) *Handler {
	return &Handler{service: s, operations: operations}
}

// pageSelection accepts either a range expression ("1,3,5-7") or an
// explicit array of 1-based page numbers.
type pageSelection struct {
	Expr string
	List []int
}

func (p *pageSelection) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	switch b[0] {
	case '"':
		return json.Unmarshal(b, &p.Expr)
	case '[':
		return json.Unmarshal(b, &p.List)
	default:
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		p.List = []int{n}
		return nil
	}
}

// transformRequest represents the JSON body accepted by all
// transformation endpoints. Multipart requests carry the same fields
// as form values.
type transformRequest struct {
	PublicURL  string        `json:"publicUrl"`
	PublicURLs []string      `json:"publicUrls"`
	Base64     string        `json:"base64"`
	Pages      pageSelection `json:"pages"`
	Angle      int           `json:"angle"`
	Order      []int         `json:"order"`
	Text       string        `json:"text"`
	Opacity    float64       `json:"opacity"`
	Color      string        `json:"color"`
	Password   string        `json:"password"`
	Title      *string       `json:"title"`
	Author     *string       `json:"author"`
	Subject    *string       `json:"subject"`
	Keywords   *string       `json:"keywords"`
	Creator    *string       `json:"creator"`
	Mode       string        `json:"mode"`
	Output     string        `json:"output"`
}

// Root reports service info and the available operations.
func (h *Handler) Root(c *ginext.Context) {
	respond.OK(c, map[string]any{
		"service":    "pdf-processor",
		"operations": h.operations,
	})
}

// Health is the liveness probe.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c, map[string]any{"status": "up"})
}

// Compress re-serializes the document; mode "ghostscript" uses the
// external tool. Adds an X-PDF-Info header with size stats.
func (h *Handler) Compress(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "compress",
		Sources:   sources,
		Params:    processor.Params{Mode: req.Mode},
		Deliver:   req.Output,
		Filename:  "compressed.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("X-PDF-Info", fmt.Sprintf("original=%d;compressed=%d;ratio=%.3f",
		resp.Stats.InputBytes, resp.Stats.OutputBytes, resp.Stats.Ratio()))
	h.deliver(c, resp)
}

// Merge concatenates two or more sources in input order. One
// unreadable source aborts the whole merge.
func (h *Handler) Merge(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "merge",
		Sources:   sources,
		Deliver:   req.Output,
		Filename:  "merged.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// ExtractPages selects a page subset by explicit list or range expression.
func (h *Handler) ExtractPages(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "extract-pages",
		Sources:   sources,
		Params:    processor.Params{Pages: req.Pages.Expr, PageList: req.Pages.List},
		Deliver:   req.Output,
		Filename:  "extracted.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// Rotate adds a delta angle to the selected pages, or all pages.
func (h *Handler) Rotate(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "rotate",
		Sources:   sources,
		Params: processor.Params{
			Angle:    req.Angle,
			Pages:    req.Pages.Expr,
			PageList: req.Pages.List,
		},
		Deliver:  req.Output,
		Filename: "rotated.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// Reorder produces a document following the supplied page permutation.
func (h *Handler) Reorder(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	if len(req.Order) == 0 {
		h.fail(c, fmt.Errorf("%w: order is required", model.ErrValidation))
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "reorder",
		Sources:   sources,
		Params:    processor.Params{Order: req.Order},
		Deliver:   req.Output,
		Filename:  "reordered.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// WatermarkText draws translucent rotated text on every page.
func (h *Handler) WatermarkText(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "watermark-text",
		Sources:   sources,
		Params: processor.Params{
			Text:    req.Text,
			Opacity: req.Opacity,
			Color:   req.Color,
		},
		Deliver:  req.Output,
		Filename: "watermarked.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// WatermarkImage stamps an uploaded image on every page. Multipart
// only: the PDF in "file" and the stamp in "stamp".
func (h *Handler) WatermarkImage(c *ginext.Context) {
	req, sources, stamp, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	if stamp == nil {
		h.fail(c, fmt.Errorf("%w: stamp image upload is required", model.ErrValidation))
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "watermark-image",
		Sources:   sources,
		Stamp:     stamp,
		Params:    processor.Params{Opacity: req.Opacity},
		Deliver:   req.Output,
		Filename:  "watermarked.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// Protect encrypts the document with the supplied password.
func (h *Handler) Protect(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "protect",
		Sources:   sources,
		Params:    processor.Params{Password: req.Password},
		Deliver:   req.Output,
		Filename:  "protected.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// Unlock decrypts a password-protected document.
func (h *Handler) Unlock(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "unlock",
		Sources:   sources,
		Params:    processor.Params{Password: req.Password},
		Deliver:   req.Output,
		Filename:  "unlocked.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// MetadataRead returns the document information dictionary.
func (h *Handler) MetadataRead(c *ginext.Context) {
	_, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "metadata-read",
		Sources:   sources,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond.OK(c, resp.Payload)
}

// MetadataWrite sets the supplied metadata fields; omitted fields are
// left unchanged.
func (h *Handler) MetadataWrite(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "metadata-write",
		Sources:   sources,
		Params: processor.Params{Metadata: model.Metadata{
			Title:    req.Title,
			Author:   req.Author,
			Subject:  req.Subject,
			Keywords: req.Keywords,
			Creator:  req.Creator,
		}},
		Deliver:  req.Output,
		Filename: "metadata.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// Info returns page count and byte size.
func (h *Handler) Info(c *ginext.Context) {
	_, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "info",
		Sources:   sources,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond.OK(c, resp.Payload)
}

// ExtractText returns the extracted text and page count.
func (h *Handler) ExtractText(c *ginext.Context) {
	_, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "extract-text",
		Sources:   sources,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond.OK(c, resp.Payload)
}

// PDFToBase64 returns the source document base64-encoded.
func (h *Handler) PDFToBase64(c *ginext.Context) {
	_, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "pdf-to-base64",
		Sources:   sources,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond.OK(c, resp.Payload)
}

// Base64ToPDF decodes a base64 payload and returns it as a document.
func (h *Handler) Base64ToPDF(c *ginext.Context) {
	req, sources, _, done, err := h.parse(c)
	defer done()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp, err := h.service.Process(c.Request.Context(), pdfsvc.Request{
		Operation: "base64-to-pdf",
		Sources:   sources,
		Deliver:   req.Output,
		Filename:  "document.pdf",
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.deliver(c, resp)
}

// parse extracts sources and parameters from either a JSON body or a
// multipart form. The returned done func closes any opened uploads.
func (h *Handler) parse(c *ginext.Context) (*transformRequest, []pdfsvc.Source, io.Reader, func(), error) {
	done := func() {}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return h.parseMultipart(c)
	}

	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return &transformRequest{}, nil, nil, done, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	var sources []pdfsvc.Source
	switch {
	case len(req.PublicURLs) > 0:
		for _, u := range req.PublicURLs {
			sources = append(sources, pdfsvc.Source{URL: u})
		}
	case req.PublicURL != "":
		sources = []pdfsvc.Source{{URL: req.PublicURL}}
	case req.Base64 != "":
		sources = []pdfsvc.Source{{Base64: req.Base64}}
	default:
		return &req, nil, nil, done, fmt.Errorf("%w: publicUrl, publicUrls, base64 or file upload is required", model.ErrValidation)
	}

	return &req, sources, nil, done, nil
}

func (h *Handler) parseMultipart(c *ginext.Context) (*transformRequest, []pdfsvc.Source, io.Reader, func(), error) {
	done := func() {}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return &transformRequest{}, nil, nil, done, fmt.Errorf("%w: parse multipart form: %v", model.ErrValidation, err)
	}

	req, err := formRequest(c)
	if err != nil {
		return &transformRequest{}, nil, nil, done, err
	}

	form := c.Request.MultipartForm
	headers := append(form.File["file"], form.File["files"]...)
	if len(headers) == 0 {
		return req, nil, nil, done, fmt.Errorf("%w: file upload is required", model.ErrValidation)
	}

	var opened []multipart.File
	done = func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	var sources []pdfsvc.Source
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return req, nil, nil, done, fmt.Errorf("%w: open upload %s: %v", model.ErrValidation, fh.Filename, err)
		}
		opened = append(opened, f)
		sources = append(sources, pdfsvc.Source{Reader: f})
	}

	var stamp io.Reader
	if stamps := form.File["stamp"]; len(stamps) > 0 {
		f, err := stamps[0].Open()
		if err != nil {
			return req, nil, nil, done, fmt.Errorf("%w: open stamp upload: %v", model.ErrValidation, err)
		}
		opened = append(opened, f)
		stamp = f
	}

	return req, sources, stamp, done, nil
}

// formRequest maps multipart form values onto the same request shape
// the JSON endpoints use.
func formRequest(c *ginext.Context) (*transformRequest, error) {
	req := &transformRequest{
		Pages:    pageSelection{Expr: c.PostForm("pages")},
		Text:     c.PostForm("text"),
		Color:    c.PostForm("color"),
		Password: c.PostForm("password"),
		Mode:     c.PostForm("mode"),
		Output:   c.PostForm("output"),
	}

	if v := c.PostForm("angle"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: bad angle %q", model.ErrValidation, v)
		}
		req.Angle = n
	}

	if v := c.PostForm("opacity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad opacity %q", model.ErrValidation, v)
		}
		req.Opacity = f
	}

	if v := c.PostForm("order"); v != "" {
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("%w: bad order %q", model.ErrValidation, v)
			}
			req.Order = append(req.Order, n)
		}
	}

	for field, dst := range map[string]**string{
		"title":    &req.Title,
		"author":   &req.Author,
		"subject":  &req.Subject,
		"keywords": &req.Keywords,
		"creator":  &req.Creator,
	} {
		if v, ok := c.GetPostForm(field); ok {
			val := v
			*dst = &val
		}
	}

	return req, nil
}

// deliver streams produced bytes, or returns the storage link in the
// JSON envelope when link delivery was requested.
func (h *Handler) deliver(c *ginext.Context, resp *pdfsvc.Response) {
	if resp.Link != "" {
		payload := map[string]any{"link": resp.Link, "filename": resp.Filename}
		for k, v := range resp.Payload {
			payload[k] = v
		}
		respond.OK(c, payload)
		return
	}

	if resp.Data != nil {
		respond.PDF(c, resp.Data, resp.Filename)
		return
	}

	respond.OK(c, resp.Payload)
}

func (h *Handler) fail(c *ginext.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidEncoding),
		errors.Is(err, model.ErrNoValidPages):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	if status == http.StatusInternalServerError {
		zlog.Logger.Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	} else {
		zlog.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("request rejected")
	}

	respond.Fail(c, status, err)
}
