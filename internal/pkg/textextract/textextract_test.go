package textextract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>up 10%</w:t></w:r></w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell &amp; value</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
  </w:body>
</w:document>`

func TestParagraphsFromXML(t *testing.T) {
	paragraphs, err := paragraphsFromXML(sampleDocumentXML)
	require.NoError(t, err)
	assert.Equal(t, []string{"Quarterly report", "Revenue\tup 10%", "cell & value"}, paragraphs)
}

func TestParagraphsFromXML_Malformed(t *testing.T) {
	_, err := paragraphsFromXML("<w:document><w:p>")
	assert.Error(t, err)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("  "))
	assert.Equal(t, 4, CountWords("one two\n\nthree\tfour"))
}

func TestExtract_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("  alpha beta\ngamma  \n"), 0o600))

	res, err := New().Extract(context.Background(), path, "txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha beta\ngamma", res.Text)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, 3, res.WordCount)
}

func TestExtract_EmptyTextRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.md")
	require.NoError(t, os.WriteFile(path, []byte("\n\n  "), 0o600))

	_, err := New().Extract(context.Background(), path, "md")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtract_UnsupportedType(t *testing.T) {
	_, err := New().Extract(context.Background(), "/dev/null", "exe")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtract_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o600))

	_, err := New().Extract(context.Background(), path, "pdf")
	assert.Error(t, err)
}

func TestExtract_InvalidDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := New().Extract(context.Background(), path, "docx")
	assert.Error(t, err)
}

func TestExtract_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Extract(ctx, "/dev/null", "txt")
	assert.ErrorIs(t, err, context.Canceled)
}
