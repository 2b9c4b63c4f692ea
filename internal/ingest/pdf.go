package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// extractText parses the file content by extension and returns the plain
// text plus cumulative page-break offsets (empty for formats without pages).
func extractText(path string, content []byte) (string, []int, error) {
	switch filepath.Ext(strings.ToLower(path)) {
	case ".pdf":
		return extractPDF(content)
	default:
		return string(content), nil, nil
	}
}

// extractPDF concatenates the plain text of every page and records the byte
// offset at which each page ends. Pages that fail text extraction are
// skipped; a PDF with no extractable text yields an empty string.
func extractPDF(content []byte) (string, []int, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	var breaks []int
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("failed to extract page text")
			continue
		}
		sb.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			sb.WriteString("\n")
		}
		breaks = append(breaks, sb.Len())
	}

	return sb.String(), breaks, nil
}
