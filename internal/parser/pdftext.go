package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

// extractTextRows pulls the text layer out of a PDF, one string per visual
// row. OCR of image-only pages is explicitly not attempted.
func extractTextRows(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	extracted := make([]string, 0, numPages*64)

	for no := 1; no <= numPages; no++ {
		page := reader.Page(no)
		rows, err := page.GetTextByRow()
		if err != nil {
			// A page without a readable text layer is skipped; the layout
			// heuristics decide whether what remains is enough.
			continue
		}

		for _, row := range rows {
			var builder strings.Builder
			for i, text := range row.Content {
				builder.WriteString(text.S)
				if i < len(row.Content)-1 {
					builder.WriteByte(' ')
				}
			}
			line := strings.TrimSpace(builder.String())
			if line != "" {
				extracted = append(extracted, line)
			}
		}
	}

	if len(extracted) == 0 {
		return nil, fmt.Errorf("pdf has no extractable text layer")
	}
	return extracted, nil
}
