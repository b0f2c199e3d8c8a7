package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

// DocxReader extracts paragraph text from DOCX documents.
type DocxReader struct{}

func (r *DocxReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

func (r *DocxReader) ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	defer f.Close()

	text, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return "", fmt.Errorf("extracting docx text: %w", err)
	}

	return text, nil
}
