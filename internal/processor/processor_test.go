package processor

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/pdf-processor/internal/model"
)

func apply(t *testing.T, p *Processor, op string, in []string, params Params) (string, *Result) {
	t.Helper()

	out := filepath.Join(t.TempDir(), "out.pdf")
	res, err := p.Apply(context.Background(), op, in, out, params)
	require.NoError(t, err)

	return out, res
}

func pageCount(t *testing.T, path string) int {
	t.Helper()

	n, err := api.PageCountFile(path)
	require.NoError(t, err)

	return n
}

func TestApplyUnknownOperation(t *testing.T) {
	p := New("")

	_, err := p.Apply(context.Background(), "explode", nil, "", Params{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCompress(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 3, nil)

	out, res := apply(t, New(""), "compress", []string{in}, Params{})

	assert.True(t, res.Produced)
	assert.Equal(t, 3, pageCount(t, out))
}

func TestCompressGhostscript(t *testing.T) {
	gs, err := exec.LookPath("gs")
	if err != nil {
		t.Skip("ghostscript not installed")
	}

	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 2, nil)

	out, res := apply(t, New(gs), "compress", []string{in}, Params{Mode: "ghostscript"})

	assert.True(t, res.Produced)
	assert.Equal(t, 2, pageCount(t, out))
}

func TestCompressGhostscriptNotConfigured(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	_, err := New("").Apply(context.Background(), "compress", []string{in}, filepath.Join(dir, "out.pdf"), Params{Mode: "ghostscript"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestMergeSumsPageCounts(t *testing.T) {
	dir := t.TempDir()
	a := writeTestPDF(t, dir, "a.pdf", 2, nil)
	b := writeTestPDF(t, dir, "b.pdf", 3, nil)

	out, res := apply(t, New(""), "merge", []string{a, b}, Params{})

	assert.True(t, res.Produced)
	assert.Equal(t, 5, pageCount(t, out))
}

func TestExtractPagesRange(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 5, nil)

	out, res := apply(t, New(""), "extract-pages", []string{in}, Params{Pages: "2-3"})

	assert.Equal(t, 2, pageCount(t, out))
	assert.Equal(t, []int{2, 3}, res.Payload["pages"])

	// Pages are tagged by their MediaBox size: page n is n*111 square.
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0 0 222 222")
	assert.Contains(t, string(data), "0 0 333 333")
	assert.NotContains(t, string(data), "0 0 555 555")
}

func TestExtractPagesOutOfRangeDropped(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 3, nil)

	out, _ := apply(t, New(""), "extract-pages", []string{in}, Params{Pages: "2,7,9"})
	assert.Equal(t, 1, pageCount(t, out))
}

func TestExtractPagesEmptySelection(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 3, nil)

	_, err := New("").Apply(context.Background(), "extract-pages", []string{in}, filepath.Join(dir, "out.pdf"), Params{Pages: "7-9"})
	assert.ErrorIs(t, err, model.ErrNoValidPages)
}

func TestRotateAllPages(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 3, nil)

	out, res := apply(t, New(""), "rotate", []string{in}, Params{Angle: 90})

	assert.Equal(t, 90, res.Payload["angle"])
	assert.Equal(t, 3, pageCount(t, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "/Rotate 90"))
}

func TestRotateNormalizesAngle(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	_, res := apply(t, New(""), "rotate", []string{in}, Params{Angle: -270})
	assert.Equal(t, 90, res.Payload["angle"])
}

func TestRotateRejectsOddAngle(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	_, err := New("").Apply(context.Background(), "rotate", []string{in}, filepath.Join(dir, "out.pdf"), Params{Angle: 45})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestReorder(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 3, nil)

	out, res := apply(t, New(""), "reorder", []string{in}, Params{Order: []int{3, 1, 2, 9}})

	assert.Equal(t, []int{3, 1, 2}, res.Payload["order"])
	assert.Equal(t, 3, pageCount(t, out))
}

func TestReorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 3, nil)

	permuted, _ := apply(t, New(""), "reorder", []string{in}, Params{Order: []int{2, 3, 1}})
	restored, _ := apply(t, New(""), "reorder", []string{permuted}, Params{Order: []int{3, 1, 2}})

	assert.Equal(t, 3, pageCount(t, restored))

	// Page n of the original carries an n*111 MediaBox; after applying a
	// permutation and its inverse the first page must be page 1 again.
	original, err := os.ReadFile(in)
	require.NoError(t, err)
	data, err := os.ReadFile(restored)
	require.NoError(t, err)
	for _, tag := range []string{"0 0 111 111", "0 0 222 222", "0 0 333 333"} {
		assert.Contains(t, string(original), tag)
		assert.Contains(t, string(data), tag)
	}
}

func TestWatermarkText(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 2, nil)

	out, res := apply(t, New(""), "watermark-text", []string{in}, Params{Text: "CONFIDENTIAL", Opacity: 0.4})

	assert.True(t, res.Produced)
	assert.Equal(t, 2, pageCount(t, out))
}

func TestWatermarkTextRequiresText(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	_, err := New("").Apply(context.Background(), "watermark-text", []string{in}, filepath.Join(dir, "out.pdf"), Params{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestWatermarkImage(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 2, nil)

	stamp := filepath.Join(dir, "stamp.png")
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	require.NoError(t, imaging.Save(img, stamp))

	scratch := filepath.Join(dir, "scratch.png")
	out, res := apply(t, New(""), "watermark-image", []string{in}, Params{Stamp: stamp, Scratch: scratch})

	assert.True(t, res.Produced)
	assert.Equal(t, 2, pageCount(t, out))
}

func TestProtectUnlockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 2, nil)

	locked, _ := apply(t, New(""), "protect", []string{in}, Params{Password: "s3cret"})

	// Without the password the document must not open.
	_, err := api.PageCountFile(locked)
	assert.Error(t, err)

	unlocked, _ := apply(t, New(""), "unlock", []string{locked}, Params{Password: "s3cret"})
	assert.Equal(t, 2, pageCount(t, unlocked))
}

func TestUnlockRequiresPassword(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	locked, _ := apply(t, New(""), "protect", []string{in}, Params{Password: "right"})

	_, err := New("").Apply(context.Background(), "unlock", []string{locked}, filepath.Join(dir, "out.pdf"), Params{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUnlockWrongPassword(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	locked, _ := apply(t, New(""), "protect", []string{in}, Params{Password: "right"})

	_, err := New("").Apply(context.Background(), "unlock", []string{locked}, filepath.Join(dir, "out.pdf"), Params{Password: "wrong"})
	assert.ErrorIs(t, err, model.ErrTransformation)
}

func TestMetadataReadWrite(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, &testDocInfo{Title: "Draft", Author: "Alice"})

	title := "Final"
	out, _ := apply(t, New(""), "metadata-write", []string{in}, Params{Metadata: model.Metadata{Title: &title}})

	md, err := readDocInfo(out)
	require.NoError(t, err)

	require.NotNil(t, md.Title)
	assert.Equal(t, "Final", *md.Title)

	// Fields not present in the request stay untouched.
	require.NotNil(t, md.Author)
	assert.Equal(t, "Alice", *md.Author)
}

func TestMetadataReadMissingInfo(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	_, res := apply(t, New(""), "metadata-read", []string{in}, Params{})

	md, ok := res.Payload["metadata"].(model.Metadata)
	require.True(t, ok)
	assert.Nil(t, md.Title)
	assert.Nil(t, md.Author)
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 4, nil)

	_, res := apply(t, New(""), "info", []string{in}, Params{})

	assert.False(t, res.Produced)
	assert.Equal(t, 4, res.Payload["pages"])

	fi, err := os.Stat(in)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), res.Payload["size_bytes"])
}

func TestExtractTextEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 2, nil)

	_, res := apply(t, New(""), "extract-text", []string{in}, Params{})

	assert.Equal(t, 2, res.Payload["pages"])
	assert.Equal(t, "", res.Payload["text"])
	assert.Equal(t, 0, res.Payload["words"])
}

func TestPDFToBase64RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	_, res := apply(t, New(""), "pdf-to-base64", []string{in}, Params{})

	encoded, ok := res.Payload["base64"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, encoded)

	fi, err := os.Stat(in)
	require.NoError(t, err)
	assert.Equal(t, int(fi.Size()), res.Payload["size_bytes"])
}

func TestCopyThrough(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPDF(t, dir, "in.pdf", 1, nil)

	out, res := apply(t, New(""), "base64-to-pdf", []string{in}, Params{})

	assert.True(t, res.Produced)

	want, err := os.ReadFile(in)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOperationsListsRegistry(t *testing.T) {
	ops := New("").Operations()
	assert.Contains(t, ops, "compress")
	assert.Contains(t, ops, "merge")
	assert.Contains(t, ops, "extract-pages")
	assert.Len(t, ops, 15)
}
