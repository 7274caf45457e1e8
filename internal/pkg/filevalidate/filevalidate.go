package filevalidate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingName     = errors.New("file name is empty")
	ErrExtensionDenied = errors.New("file type not allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("file is empty")
)

type Validator struct {
	allowed  map[string]struct{}
	list     []string
	maxBytes int64
}

func New(allowedExtensions []string, maxBytes int64) *Validator {
	v := &Validator{allowed: make(map[string]struct{}), maxBytes: maxBytes}
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := v.allowed[ext]; !ok {
			v.allowed[ext] = struct{}{}
			v.list = append(v.list, ext)
		}
	}
	return v
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate checks the client-supplied name and size and returns the
// lower-case extension without the dot.
func (v *Validator) Validate(filename string, size int64) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", ErrMissingName
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := v.allowed[ext]; !ok {
		return "", fmt.Errorf("%w: accepted types are %s", ErrExtensionDenied, strings.Join(v.list, ", "))
	}
	if size <= 0 {
		return "", ErrEmpty
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		return "", fmt.Errorf("%w: max %d MB", ErrTooLarge, v.maxBytes/(1024*1024))
	}
	return ext, nil
}

// SafeName builds the on-disk name user_{id}_{YYYYMMDD_HHMMSS}_{uuid8}.{ext};
// nothing from the client name reaches the filesystem.
func SafeName(userID uint, ext string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("user_%d_%s_%s.%s", userID, now.Format("20060102_150405"), suffix, ext)
}
