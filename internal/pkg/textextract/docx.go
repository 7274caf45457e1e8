package textextract

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX returns the non-empty paragraphs of word/document.xml joined
// by blank lines; the page count is the paragraph count since DOCX carries
// no reliable pagination.
func extractDOCX(path string) (string, int, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", 0, err
	}
	defer doc.Close()

	paragraphs, err := paragraphsFromXML(doc.Editable().GetContent())
	if err != nil {
		return "", 0, err
	}
	return strings.Join(paragraphs, "\n\n"), len(paragraphs), nil
}

// paragraphsFromXML walks WordprocessingML and collects the text runs of
// each <w:p>. Tabs and breaks inside a paragraph become whitespace.
func paragraphsFromXML(content string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					current.Reset()
				}
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth > 0 {
					depth--
				}
				if depth == 0 {
					if text := strings.TrimSpace(current.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
