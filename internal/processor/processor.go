// Package processor implements the PDF transformations exposed by the
// service. Operations are registered by name in a single registry so the
// request pipeline stays identical across endpoints.
package processor

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/aliskhannn/pdf-processor/internal/model"
	"github.com/aliskhannn/pdf-processor/internal/pages"
)

// Stamp images wider than this are downscaled before being drawn.
const maxStampWidth = 1024

// Params carries the operation-specific parameters of a request.
type Params struct {
	Pages    string         // range expression, e.g. "1,3,5-7"
	PageList []int          // explicit page list, used when Pages is empty
	Angle    int            // rotation delta in degrees
	Order    []int          // page permutation for reorder
	Text     string         // watermark text
	Opacity  float64        // watermark opacity in (0, 1]
	Color    string         // watermark fill color, hex
	Password string         // protect/unlock password
	Metadata model.Metadata // metadata-write fields
	Mode     string         // compress mode: "library" or "ghostscript"
	Stamp    string         // uploaded stamp image path
	Scratch  string         // scoped scratch path for stamp preprocessing
}

// Result is what an operation hands back to the pipeline. Produced is
// false for read-only operations that only fill the JSON payload.
type Result struct {
	Produced bool
	Payload  map[string]any
}

// OpFunc applies one transformation. in holds the materialized source
// paths, out is the pre-registered output path.
type OpFunc func(ctx context.Context, in []string, out string, p Params) (*Result, error)

// Processor executes PDF operations against scoped temporary files.
type Processor struct {
	gsBin string
	ops   map[string]OpFunc
}

// New creates a Processor. gsBin is the Ghostscript binary used by the
// external compression mode; pass an empty string to disable it.
func New(gsBin string) *Processor {
	p := &Processor{gsBin: gsBin}

	p.ops = map[string]OpFunc{
		"compress":        p.compress,
		"merge":           p.merge,
		"extract-pages":   p.extractPages,
		"rotate":          p.rotate,
		"reorder":         p.reorder,
		"watermark-text":  p.watermarkText,
		"watermark-image": p.watermarkImage,
		"protect":         p.protect,
		"unlock":          p.unlock,
		"metadata-read":   p.metadataRead,
		"metadata-write":  p.metadataWrite,
		"info":            p.info,
		"extract-text":    p.extractText,
		"pdf-to-base64":   p.pdfToBase64,
		"base64-to-pdf":   p.copyThrough,
	}

	return p
}

// Apply looks up the named operation and runs it.
func (p *Processor) Apply(ctx context.Context, op string, in []string, out string, params Params) (*Result, error) {
	fn, ok := p.ops[op]
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", model.ErrValidation, op)
	}

	return fn(ctx, in, out, params)
}

// Operations lists the registered operation names.
func (p *Processor) Operations() []string {
	out := make([]string, 0, len(p.ops))
	for name := range p.ops {
		out = append(out, name)
	}
	return out
}

// newConf returns a fresh pdfcpu configuration. Configurations carry
// request passwords, so they are never shared between requests.
func newConf() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// compress re-serializes the document through pdfcpu's optimizer, or
// pipes it through Ghostscript when the client asks for the external tool.
func (p *Processor) compress(ctx context.Context, in []string, out string, params Params) (*Result, error) {
	if params.Mode == "ghostscript" {
		if err := p.runGhostscript(ctx, in[0], out); err != nil {
			return nil, err
		}
		return &Result{Produced: true}, nil
	}

	if err := api.OptimizeFile(in[0], out, newConf()); err != nil {
		return nil, fmt.Errorf("%w: optimize: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

// merge concatenates all sources into one document, preserving input
// order. An unreadable input aborts the whole merge.
func (p *Processor) merge(_ context.Context, in []string, out string, _ Params) (*Result, error) {
	if err := api.MergeCreateFile(in, out, false, newConf()); err != nil {
		return nil, fmt.Errorf("%w: merge: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

func (p *Processor) extractPages(_ context.Context, in []string, out string, params Params) (*Result, error) {
	count, err := api.PageCountFile(in[0])
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", model.ErrTransformation, err)
	}

	sel, err := p.selectPages(params, count)
	if err != nil {
		return nil, err
	}

	if err := api.TrimFile(in[0], out, pages.Strings(sel), newConf()); err != nil {
		return nil, fmt.Errorf("%w: trim: %v", model.ErrTransformation, err)
	}

	return &Result{
		Produced: true,
		Payload:  map[string]any{"pages": sel},
	}, nil
}

// rotate adds the delta angle to the selected pages, or to all pages
// when no selection is given. The angle is normalized modulo 360 and
// must land on a multiple of 90.
func (p *Processor) rotate(_ context.Context, in []string, out string, params Params) (*Result, error) {
	angle := ((params.Angle % 360) + 360) % 360
	if angle%90 != 0 {
		return nil, fmt.Errorf("%w: angle must be a multiple of 90", model.ErrValidation)
	}

	var sel []string
	if params.Pages != "" || len(params.PageList) > 0 {
		count, err := api.PageCountFile(in[0])
		if err != nil {
			return nil, fmt.Errorf("%w: page count: %v", model.ErrTransformation, err)
		}
		resolved, err := p.selectPages(params, count)
		if err != nil {
			return nil, err
		}
		sel = pages.Strings(resolved)
	}

	if err := api.RotateFile(in[0], out, angle, sel, newConf()); err != nil {
		return nil, fmt.Errorf("%w: rotate: %v", model.ErrTransformation, err)
	}

	return &Result{
		Produced: true,
		Payload:  map[string]any{"angle": angle},
	}, nil
}

// reorder produces a document whose page sequence follows the supplied
// permutation. Invalid indices are dropped, duplicates are kept.
func (p *Processor) reorder(_ context.Context, in []string, out string, params Params) (*Result, error) {
	count, err := api.PageCountFile(in[0])
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", model.ErrTransformation, err)
	}

	order, err := pages.Order(params.Order, count)
	if err != nil {
		return nil, err
	}

	if err := api.CollectFile(in[0], out, pages.Strings(order), newConf()); err != nil {
		return nil, fmt.Errorf("%w: collect: %v", model.ErrTransformation, err)
	}

	return &Result{
		Produced: true,
		Payload:  map[string]any{"order": order},
	}, nil
}

func (p *Processor) watermarkText(_ context.Context, in []string, out string, params Params) (*Result, error) {
	if params.Text == "" {
		return nil, fmt.Errorf("%w: watermark text is required", model.ErrValidation)
	}

	opacity := params.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.3
	}

	desc := fmt.Sprintf("font:Helvetica, points:48, pos:c, rot:45, op:%.2f", opacity)
	if params.Color != "" {
		desc += fmt.Sprintf(", fillcolor:%s", params.Color)
	}

	wm, err := api.TextWatermark(params.Text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: watermark: %v", model.ErrTransformation, err)
	}

	if err := api.AddWatermarksFile(in[0], out, nil, wm, newConf()); err != nil {
		return nil, fmt.Errorf("%w: watermark: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

// watermarkImage stamps an uploaded image on every page. The stamp is
// re-encoded as PNG and downscaled first so oversized uploads do not
// blow up the output document.
func (p *Processor) watermarkImage(_ context.Context, in []string, out string, params Params) (*Result, error) {
	if params.Stamp == "" {
		return nil, fmt.Errorf("%w: stamp image is required", model.ErrValidation)
	}

	img, err := imaging.Open(params.Stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: decode stamp image: %v", model.ErrValidation, err)
	}
	if img.Bounds().Dx() > maxStampWidth {
		img = imaging.Resize(img, maxStampWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(img, params.Scratch); err != nil {
		return nil, fmt.Errorf("%w: encode stamp image: %v", model.ErrTransformation, err)
	}

	opacity := params.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.3
	}

	desc := fmt.Sprintf("scale:0.5 rel, pos:c, rot:0, op:%.2f", opacity)
	wm, err := pdfcpu.ParseImageWatermarkDetails(params.Scratch, desc, true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: stamp: %v", model.ErrTransformation, err)
	}

	if err := api.AddWatermarksFile(in[0], out, nil, wm, newConf()); err != nil {
		return nil, fmt.Errorf("%w: stamp: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

// protect encrypts the document with the supplied password for both
// user and owner access.
func (p *Processor) protect(_ context.Context, in []string, out string, params Params) (*Result, error) {
	if params.Password == "" {
		return nil, fmt.Errorf("%w: password is required", model.ErrValidation)
	}

	conf := newConf()
	conf.UserPW = params.Password
	conf.OwnerPW = params.Password

	if err := api.EncryptFile(in[0], out, conf); err != nil {
		return nil, fmt.Errorf("%w: encrypt: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

func (p *Processor) unlock(_ context.Context, in []string, out string, params Params) (*Result, error) {
	if params.Password == "" {
		return nil, fmt.Errorf("%w: password is required", model.ErrValidation)
	}

	conf := newConf()
	conf.UserPW = params.Password
	conf.OwnerPW = params.Password

	if err := api.DecryptFile(in[0], out, conf); err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

func (p *Processor) metadataRead(_ context.Context, in []string, _ string, _ Params) (*Result, error) {
	md, err := readDocInfo(in[0])
	if err != nil {
		return nil, err
	}

	return &Result{Payload: map[string]any{"metadata": md}}, nil
}

func (p *Processor) metadataWrite(_ context.Context, in []string, out string, params Params) (*Result, error) {
	if err := writeDocInfo(in[0], out, params.Metadata); err != nil {
		return nil, err
	}

	return &Result{Produced: true}, nil
}

// info reports page count and byte size of the source document.
func (p *Processor) info(_ context.Context, in []string, _ string, _ Params) (*Result, error) {
	pdfCtx, err := api.ReadContextFile(in[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", model.ErrTransformation, err)
	}

	fi, err := os.Stat(in[0])
	if err != nil {
		return nil, fmt.Errorf("%w: stat: %v", model.ErrTransformation, err)
	}

	return &Result{Payload: map[string]any{
		"pages":      pdfCtx.PageCount,
		"size_bytes": fi.Size(),
	}}, nil
}

func (p *Processor) extractText(_ context.Context, in []string, _ string, _ Params) (*Result, error) {
	text, pageCount, err := extractText(in[0])
	if err != nil {
		return nil, err
	}

	return &Result{Payload: map[string]any{
		"text":  text,
		"pages": pageCount,
		"words": len(strings.Fields(text)),
	}}, nil
}

func (p *Processor) pdfToBase64(_ context.Context, in []string, _ string, _ Params) (*Result, error) {
	data, err := os.ReadFile(in[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", model.ErrTransformation, err)
	}

	return &Result{Payload: map[string]any{
		"base64":     base64.StdEncoding.EncodeToString(data),
		"size_bytes": len(data),
	}}, nil
}

// copyThrough serves operations whose transformation already happened
// during acquisition, such as base64-to-pdf.
func (p *Processor) copyThrough(_ context.Context, in []string, out string, _ Params) (*Result, error) {
	src, err := os.Open(in[0])
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", model.ErrTransformation, err)
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", model.ErrTransformation, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("%w: copy: %v", model.ErrTransformation, err)
	}

	return &Result{Produced: true}, nil
}

func (p *Processor) selectPages(params Params, count int) ([]int, error) {
	if params.Pages != "" {
		return pages.Resolve(params.Pages, count)
	}
	return pages.ResolveList(params.PageList, count)
}
