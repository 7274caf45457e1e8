package ai

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeText(t *testing.T) {
	tk, err := loadTokenizer(filepath.Join("testdata", "tokenizer.json"), 32)
	require.NoError(t, err)

	enc, err := encodeText(tk, "Hello unaffable WORLD!")
	require.NoError(t, err)
	// [CLS] hello un ##aff ##able world ! [SEP]
	assert.Equal(t, []int64{2, 4, 6, 7, 8, 5, 11, 3}, enc.ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 1, 1}, enc.mask)
	assert.Equal(t, make([]int64, 8), enc.typeIDs)

	enc, err = encodeText(tk, "Café, zzz")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 9, 10, 1, 3}, enc.ids)
}

func TestEncodeText_Truncates(t *testing.T) {
	tk, err := loadTokenizer(filepath.Join("testdata", "tokenizer.json"), 4)
	require.NoError(t, err)

	enc, err := encodeText(tk, "hello world hello world hello")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 5, 3}, enc.ids)
	assert.Len(t, enc.mask, 4)
}

func TestLoadTokenizer_MissingFile(t *testing.T) {
	_, err := loadTokenizer(filepath.Join(t.TempDir(), "tokenizer.json"), 16)
	assert.Error(t, err)
}

func TestMeanPoolAndNormalize(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	pooled := meanPool(hidden, []int64{1, 1, 0}, 2)
	assert.InDeltaSlice(t, []float32{2, 3}, pooled, 1e-6)

	unit := normalize([]float32{3, 4})
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, unit, 1e-6)

	zero := normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
