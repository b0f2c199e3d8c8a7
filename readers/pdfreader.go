package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

// PDFReader extracts the text layer of PDF documents. A scanned PDF with no
// text layer yields an empty result, which callers treat as a failed
// extraction.
type PDFReader struct{}

func (r *PDFReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (r *PDFReader) ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	text, _, err := docconv.ConvertPDF(f)
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	return text, nil
}
