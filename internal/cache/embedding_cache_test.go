package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingKey(t *testing.T) {
	a := embeddingKey("all-MiniLM-L6-v2", "what is go")
	assert.Equal(t, a, embeddingKey("all-MiniLM-L6-v2", "what is go"))
	assert.NotEqual(t, a, embeddingKey("other-model", "what is go"))
	assert.NotEqual(t, a, embeddingKey("all-MiniLM-L6-v2", "what is rust"))
	assert.Len(t, a, len("embedding:")+64)
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0, 1.5, -0.25, 3.4028235e38}
	got, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestNilCacheIsNoop(t *testing.T) {
	c := NewEmbeddingCache(nil, 0)
	assert.Nil(t, c)

	vec, ok, err := c.Get(context.Background(), "m", "q")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, vec)
	assert.NoError(t, c.Set(context.Background(), "m", "q", []float32{1}))
}
