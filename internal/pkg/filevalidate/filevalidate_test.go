package filevalidate

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	v := New([]string{"pdf", ".DOCX", ""}, 10*1024*1024)

	tests := []struct {
		name     string
		filename string
		size     int64
		wantExt  string
		wantErr  error
	}{
		{name: "pdf", filename: "report.pdf", size: 1024, wantExt: "pdf"},
		{name: "uppercase docx", filename: "Notes.DocX", size: 1024, wantExt: "docx"},
		{name: "path is stripped", filename: "../../etc/report.pdf", size: 1, wantExt: "pdf"},
		{name: "denied extension", filename: "script.exe", size: 1, wantErr: ErrExtensionDenied},
		{name: "no extension", filename: "README", size: 1, wantErr: ErrExtensionDenied},
		{name: "empty name", filename: "  ", size: 1, wantErr: ErrMissingName},
		{name: "empty file", filename: "a.pdf", size: 0, wantErr: ErrEmpty},
		{name: "at limit", filename: "a.pdf", size: 10 * 1024 * 1024, wantExt: "pdf"},
		{name: "over limit", filename: "a.pdf", size: 10*1024*1024 + 1, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := v.Validate(tt.filename, tt.size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestValidate_ErrorListsAllowedTypes(t *testing.T) {
	_, err := New([]string{"pdf", "docx"}, 0).Validate("a.txt", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf, docx")
}

func TestSafeName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	name := SafeName(42, "pdf", at)

	assert.Regexp(t, regexp.MustCompile(`^user_42_20240309_140507_[0-9a-f]{8}\.pdf$`), name)
	assert.NotEqual(t, name, SafeName(42, "pdf", at))
}
