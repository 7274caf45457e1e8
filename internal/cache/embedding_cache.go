package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// EmbeddingCache stores query embeddings so repeated searches skip the
// embedding model. A nil *EmbeddingCache is valid and never hits.
type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &EmbeddingCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, embeddingKey(model, text)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}
	vec, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vec []float32) error {
	if c == nil {
		return nil
	}
	if err := c.client.Set(ctx, embeddingKey(model, text), encodeVector(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached embedding has invalid length %d", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}
