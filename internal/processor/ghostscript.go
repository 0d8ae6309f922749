package processor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aliskhannn/pdf-processor/internal/model"
)

// runGhostscript rewrites the document through Ghostscript's pdfwrite
// device with a fixed ebook quality preset.
func (p *Processor) runGhostscript(ctx context.Context, in, out string) error {
	if p.gsBin == "" {
		return fmt.Errorf("%w: ghostscript is not configured", model.ErrValidation)
	}

	cmd := exec.CommandContext(ctx, p.gsBin,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/ebook",
		"-dNOPAUSE", "-dQUIET", "-dBATCH",
		"-sOutputFile="+out,
		in,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: ghostscript: %v: %s", model.ErrTransformation, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}
