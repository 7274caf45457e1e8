package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"docai/internal/config"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder turns texts into fixed-width vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "onnx", "":
		return NewONNXEmbedder(ONNXEmbedderConfig{
			Model:         cfg.Model,
			ModelPath:     cfg.ONNXModelPath,
			TokenizerPath: cfg.TokenizerPath,
			LibPath:       cfg.ONNXLibPath,
			MaxSeqLength:  cfg.MaxSeqLength,
			Dimension:     cfg.Dimension,
		}), nil
	case "openai":
		return NewAPIEmbedder(NewOpenAICompatibleClient(60*time.Second), EmbeddingConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}, cfg.Dimension, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// APIEmbedder calls a remote /embeddings endpoint in batches.
type APIEmbedder struct {
	client    *OpenAICompatibleClient
	cfg       EmbeddingConfig
	dimension int
	batchSize int
}

func NewAPIEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig, dimension, batchSize int) *APIEmbedder {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &APIEmbedder{client: client, cfg: cfg, dimension: dimension, batchSize: batchSize}
}

func (e *APIEmbedder) Model() string  { return e.cfg.Model }
func (e *APIEmbedder) Dimension() int { return e.dimension }

func (e *APIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.client.EmbedBatch(ctx, e.cfg, texts[i:end])
		if err != nil {
			return nil, err
		}
		for _, vec := range batch {
			if len(vec) != e.dimension {
				return nil, fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, e.dimension, len(vec))
			}
		}
		out = append(out, batch...)
	}
	return out, nil
}

// meanPool averages token vectors of a [seq, dim] row-major matrix over the
// positions where mask is 1.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for j, v := range row {
			out[j] += v
		}
		count++
	}
	if count > 0 {
		for j := range out {
			out[j] /= count
		}
	}
	return out
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < 1e-12 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
