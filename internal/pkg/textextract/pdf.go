package textextract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF joins the plain text of every page with a blank line. The pdf
// reader panics on some malformed files, so panics become errors.
func extractPDF(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = reader.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		if content = strings.TrimSpace(content); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, "\n\n"), pages, nil
}
