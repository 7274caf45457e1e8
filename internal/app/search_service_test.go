package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docai/internal/app/apptest"
)

func TestSearch(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()
	golang := f.upload(t, 1, "go.txt", "goroutines channels")
	f.upload(t, 1, "cooking.txt", "pasta tomato basil")
	f.upload(t, 2, "private.txt", "goroutines channels")

	svc := NewSearchService(f.store, f.embedder, nil, nil)
	resp, err := svc.Search(ctx, SearchInput{OwnerID: 1, Query: "  goroutines channels  ", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, "  goroutines channels  ", resp.Query)
	require.Equal(t, 2, resp.TotalResults)
	top := resp.Results[0]
	assert.Equal(t, golang.ID, top.DocumentID)
	assert.Equal(t, "go.txt", top.DocumentName)
	assert.InDelta(t, 1.0, top.SimilarityScore, 1e-6)
	assert.Less(t, resp.Results[1].SimilarityScore, top.SimilarityScore)
}

func TestSearch_DocumentFilter(t *testing.T) {
	f := newDocumentFixture(t)
	f.upload(t, 1, "a.txt", "apples")
	b := f.upload(t, 1, "b.txt", "bananas")

	svc := NewSearchService(f.store, f.embedder, nil, nil)
	resp, err := svc.Search(context.Background(), SearchInput{OwnerID: 1, Query: "apples", DocumentIDs: []uint{b.ID}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, b.ID, resp.Results[0].DocumentID)
}

func TestSearch_Validation(t *testing.T) {
	svc := NewSearchService(apptest.NewDocumentStore(), apptest.NewStaticEmbedder(8), nil, nil)
	ctx := context.Background()

	_, err := svc.Search(ctx, SearchInput{OwnerID: 1, Query: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := make([]rune, 501)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.Search(ctx, SearchInput{OwnerID: 1, Query: string(long)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Search(ctx, SearchInput{OwnerID: 1, Query: "q", TopK: 51})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Search(ctx, SearchInput{OwnerID: 1, Query: "q", TopK: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	resp, err := svc.Search(ctx, SearchInput{OwnerID: 1, Query: "q"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, resp.TotalResults)
}

func TestSearch_UsesEmbeddingCache(t *testing.T) {
	embedder := apptest.NewStaticEmbedder(8)
	cache := apptest.NewEmbeddingCache()
	svc := NewSearchService(apptest.NewDocumentStore(), embedder, cache, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Search(ctx, SearchInput{OwnerID: 1, Query: "same question"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, embedder.Calls)
	assert.Equal(t, 2, cache.Hits)
}
