package processor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-processor/internal/model"
)

// extractText pulls plain text from every page. Pages that fail
// extraction (image-only pages, exotic fonts) are skipped rather than
// failing the whole document.
func extractText(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: open: %v", model.ErrTransformation, err)
	}
	defer f.Close()

	pageCount := r.NumPage()

	var b strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			zlog.Logger.Warn().Err(err).Int("page", i).Msg("text extraction failed for page")
			continue
		}

		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), pageCount, nil
}
