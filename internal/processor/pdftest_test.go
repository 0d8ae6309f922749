package processor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// testDocInfo is the information dictionary baked into generated test PDFs.
type testDocInfo struct {
	Title  string
	Author string
}

// writeTestPDF generates a valid classic-xref PDF with the given number
// of pages. Page n gets a MediaBox of n*111 points square, so tests can
// identify which original pages ended up in an output document.
func writeTestPDF(t *testing.T, dir string, name string, pageCount int, info *testDocInfo) string {
	t.Helper()

	var objects []string

	kids := ""
	for i := 0; i < pageCount; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pageCount),
	)

	contentObj := 3 + pageCount
	for i := 1; i <= pageCount; i++ {
		size := i * 111
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>",
			size, size, contentObj))
	}

	content := "q Q"
	objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

	infoObj := 0
	if info != nil {
		infoObj = len(objects) + 1
		objects = append(objects, fmt.Sprintf("<< /Title (%s) /Author (%s) >>", info.Title, info.Author))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}

	trailer := fmt.Sprintf("<< /Size %d /Root 1 0 R", len(objects)+1)
	if infoObj != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", infoObj)
	}
	trailer += " >>"
	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer, xrefPos)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}

	return path
}
