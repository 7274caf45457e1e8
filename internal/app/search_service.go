package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docai/internal/ai"
	"docai/internal/logger"
	"docai/internal/metrics"
)

const (
	maxSearchQueryLen = 500
	defaultTopK       = 5
	maxTopK           = 50
)

type SearchService struct {
	vectors  VectorStore
	embedder ai.Embedder
	cache    EmbeddingCache
	metrics  *metrics.Metrics
}

// NewSearchService accepts a nil cache.
func NewSearchService(vectors VectorStore, embedder ai.Embedder, cache EmbeddingCache, m *metrics.Metrics) *SearchService {
	if m == nil {
		m = metrics.New()
	}
	return &SearchService{
		vectors:  vectors,
		embedder: embedder,
		cache:    cache,
		metrics:  m,
	}
}

type SearchInput struct {
	OwnerID     uint
	Query       string
	TopK        int
	DocumentIDs []uint
}

type SearchResult struct {
	DocumentID      uint    `json:"document_id"`
	DocumentName    string  `json:"document_name"`
	ChunkText       string  `json:"chunk_text"`
	SimilarityScore float64 `json:"similarity_score"`
	ChunkIndex      int     `json:"chunk_index"`
}

type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchResponse, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" || utf8.RuneCountInString(query) > maxSearchQueryLen {
		return nil, fmt.Errorf("%w: query must be 1 to %d characters", ErrInvalidInput, maxSearchQueryLen)
	}
	topK := input.TopK
	if topK == 0 {
		topK = defaultTopK
	}
	if topK < 1 || topK > maxTopK {
		return nil, fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidInput, maxTopK)
	}

	results, err := s.Retrieve(ctx, input.OwnerID, query, topK, input.DocumentIDs)
	s.metrics.Searches.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Query:        input.Query,
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// Retrieve embeds the query and returns the topK closest chunks among the
// owner's documents. Scores are cosine similarities.
func (s *SearchService) Retrieve(ctx context.Context, ownerID uint, query string, topK int, documentIDs []uint) ([]SearchResult, error) {
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := s.vectors.SimilaritySearch(ctx, vec, topK, ownerID, documentIDs)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SearchResult{
			DocumentID:      row.DocumentID,
			DocumentName:    row.DocumentName,
			ChunkText:       row.ChunkText,
			SimilarityScore: 1 - row.Distance,
			ChunkIndex:      row.ChunkIndex,
		})
	}
	return results, nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	model := s.embedder.Model()
	if s.cache != nil {
		vec, ok, err := s.cache.Get(ctx, model, query)
		if err != nil {
			logger.FromContext(ctx).Warn("embedding cache lookup failed", "error", err)
		}
		if ok && len(vec) == s.embedder.Dimension() {
			s.metrics.EmbeddingCache.WithLabelValues("hit").Inc()
			return vec, nil
		}
		s.metrics.EmbeddingCache.WithLabelValues("miss").Inc()
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query failed: got %d vectors", len(vecs))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, model, query, vecs[0]); err != nil {
			logger.FromContext(ctx).Warn("embedding cache store failed", "error", err)
		}
	}
	return vecs[0], nil
}
