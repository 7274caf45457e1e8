package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docai/internal/ai"
	"docai/internal/app/apptest"
)

func newChatFixture(t *testing.T, gen ai.Generator) (*ChatService, *documentFixture) {
	t.Helper()
	f := newDocumentFixture(t)
	f.upload(t, 1, "go.txt", "goroutines are cheap threads")
	f.upload(t, 1, "rust.txt", "ownership and borrowing rules")
	search := NewSearchService(f.store, f.embedder, nil, nil)
	return NewChatService(search, gen, nil), f
}

func TestChat_WithGenerator(t *testing.T) {
	gen := &apptest.StubGenerator{Answer: "  Goroutines are lightweight.  "}
	svc, _ := newChatFixture(t, gen)

	resp, err := svc.Chat(context.Background(), ChatInput{OwnerID: 1, Query: "what are goroutines", UseContext: true})
	require.NoError(t, err)

	assert.Equal(t, "Goroutines are lightweight.", resp.Answer)
	assert.Equal(t, ai.ProviderOllama, resp.LLMProvider)
	require.Len(t, resp.ContextUsed, 2)
	assert.Equal(t, "go.txt", resp.ContextUsed[0].DocumentName)

	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0], "[Excerpt 1 - Document: go.txt]\ngoroutines are cheap threads")
	assert.Contains(t, gen.Prompts[0], "USER QUESTION: what are goroutines")
}

func TestChat_EchoesQueryVerbatim(t *testing.T) {
	gen := &apptest.StubGenerator{Answer: "ok"}
	svc, _ := newChatFixture(t, gen)

	resp, err := svc.Chat(context.Background(), ChatInput{OwnerID: 1, Query: "  goroutines?\n", UseContext: true})
	require.NoError(t, err)
	assert.Equal(t, "  goroutines?\n", resp.Query)
	assert.NotContains(t, gen.Prompts[0], "  goroutines?")

	_, err = svc.Chat(context.Background(), ChatInput{OwnerID: 1, Query: " \t ", UseContext: true})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChat_WithoutContext(t *testing.T) {
	gen := &apptest.StubGenerator{Answer: "general answer"}
	svc, f := newChatFixture(t, gen)
	calls := f.embedder.Calls

	resp, err := svc.Chat(context.Background(), ChatInput{OwnerID: 1, Query: "hello", UseContext: false})
	require.NoError(t, err)
	assert.Empty(t, resp.ContextUsed)
	assert.NotNil(t, resp.ContextUsed)
	assert.Equal(t, calls, f.embedder.Calls)
	assert.Contains(t, gen.Prompts[0], "Question: hello")
}

func TestChat_Fallback(t *testing.T) {
	svc, _ := newChatFixture(t, nil)

	resp, err := svc.Chat(context.Background(), ChatInput{OwnerID: 1, Query: "goroutines", UseContext: true, MaxContextChunks: 1})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderNone, resp.LLMProvider)
	assert.Len(t, resp.ContextUsed, 1)
	assert.True(t, strings.HasPrefix(resp.Answer, "No LLM is configured."))
	assert.Contains(t, resp.Answer, "Document: go.txt")

	resp, err = svc.Chat(context.Background(), ChatInput{OwnerID: 7, Query: "goroutines", UseContext: true})
	require.NoError(t, err)
	assert.Equal(t, noContextAnswer, resp.Answer)
}

func TestChat_GeneratorFailure(t *testing.T) {
	svc, _ := newChatFixture(t, &apptest.StubGenerator{Err: errors.New("connection refused")})

	_, err := svc.Chat(context.Background(), ChatInput{OwnerID: 1, Query: "q", UseContext: true})
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestChat_Validation(t *testing.T) {
	svc, _ := newChatFixture(t, nil)
	ctx := context.Background()

	_, err := svc.Chat(ctx, ChatInput{OwnerID: 1, Query: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Chat(ctx, ChatInput{OwnerID: 1, Query: strings.Repeat("q", 1001)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Chat(ctx, ChatInput{OwnerID: 1, Query: "q", MaxContextChunks: 11})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStreamChat(t *testing.T) {
	gen := &apptest.StubGenerator{Chunks: []string{"Gor", "outines"}}
	svc, _ := newChatFixture(t, gen)

	var (
		gotContext []SearchResult
		chunks     []string
	)
	resp, err := svc.StreamChat(context.Background(),
		ChatInput{OwnerID: 1, Query: "goroutines", UseContext: true},
		func(c []SearchResult) error { gotContext = c; return nil },
		func(s string) error { chunks = append(chunks, s); return nil },
	)
	require.NoError(t, err)
	assert.Len(t, gotContext, 2)
	assert.Equal(t, []string{"Gor", "outines"}, chunks)
	assert.Equal(t, "Goroutines", resp.Answer)
}

func TestStreamChat_Fallback(t *testing.T) {
	svc, _ := newChatFixture(t, nil)

	var chunks []string
	resp, err := svc.StreamChat(context.Background(),
		ChatInput{OwnerID: 1, Query: "ownership", UseContext: true},
		func([]SearchResult) error { return nil },
		func(s string) error { chunks = append(chunks, s); return nil },
	)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, resp.Answer, chunks[0])
}

func TestFallbackAnswer_TruncatesExcerpts(t *testing.T) {
	chunks := make([]SearchResult, 5)
	for i := range chunks {
		chunks[i] = SearchResult{DocumentName: "doc.pdf", ChunkText: strings.Repeat("z", 300)}
	}
	answer := fallbackAnswer(chunks)
	assert.Equal(t, 3, strings.Count(answer, "Document: doc.pdf"))
	assert.Contains(t, answer, strings.Repeat("z", 200)+"...")
	assert.NotContains(t, answer, strings.Repeat("z", 201))
}
