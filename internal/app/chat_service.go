package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"docai/internal/ai"
	"docai/internal/logger"
	"docai/internal/metrics"
)

var ErrLLMUnavailable = errors.New("llm provider request failed")

const (
	maxChatQueryLen         = 1000
	defaultMaxContextChunks = 3
	maxContextChunks        = 10
	fallbackExcerpts        = 3
	fallbackExcerptLen      = 200

	noContextAnswer = "No relevant context was found in the documents."
)

type ChatService struct {
	search    *SearchService
	generator ai.Generator
	metrics   *metrics.Metrics
}

// NewChatService accepts a nil generator; answers then fall back to the raw
// excerpts.
func NewChatService(search *SearchService, generator ai.Generator, m *metrics.Metrics) *ChatService {
	if m == nil {
		m = metrics.New()
	}
	return &ChatService{
		search:    search,
		generator: generator,
		metrics:   m,
	}
}

type ChatInput struct {
	OwnerID          uint
	Query            string
	DocumentIDs      []uint
	UseContext       bool
	MaxContextChunks int
}

type ChatResponse struct {
	Query       string         `json:"query"`
	Answer      string         `json:"answer"`
	ContextUsed []SearchResult `json:"context_used"`
	LLMProvider string         `json:"llm_provider"`
}

func (s *ChatService) Provider() string {
	if s.generator == nil {
		return ai.ProviderNone
	}
	return s.generator.Provider()
}

func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatResponse, error) {
	query, chunks, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{
		Query:       input.Query,
		ContextUsed: chunks,
		LLMProvider: s.Provider(),
	}
	if s.generator == nil {
		resp.Answer = fallbackAnswer(chunks)
		return resp, nil
	}

	answer, err := s.observe(ctx, func() (string, error) {
		return s.generator.Generate(ctx, BuildPrompt(query, chunks))
	})
	if err != nil {
		return nil, err
	}
	resp.Answer = strings.TrimSpace(answer)
	return resp, nil
}

// StreamChat hands the retrieved context to onContext before any answer text
// is produced, then streams the answer through onChunk.
func (s *ChatService) StreamChat(
	ctx context.Context,
	input ChatInput,
	onContext func(chunks []SearchResult) error,
	onChunk func(chunk string) error,
) (*ChatResponse, error) {
	query, chunks, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := onContext(chunks); err != nil {
		return nil, err
	}

	resp := &ChatResponse{
		Query:       input.Query,
		ContextUsed: chunks,
		LLMProvider: s.Provider(),
	}
	if s.generator == nil {
		resp.Answer = fallbackAnswer(chunks)
		return resp, onChunk(resp.Answer)
	}

	answer, err := s.observe(ctx, func() (string, error) {
		return s.generator.Stream(ctx, BuildPrompt(query, chunks), onChunk)
	})
	if err != nil {
		return nil, err
	}
	resp.Answer = answer
	return resp, nil
}

func (s *ChatService) prepare(ctx context.Context, input ChatInput) (string, []SearchResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" || utf8.RuneCountInString(query) > maxChatQueryLen {
		return "", nil, fmt.Errorf("%w: query must be 1 to %d characters", ErrInvalidInput, maxChatQueryLen)
	}
	limit := input.MaxContextChunks
	if limit == 0 {
		limit = defaultMaxContextChunks
	}
	if limit < 1 || limit > maxContextChunks {
		return "", nil, fmt.Errorf("%w: max_context_chunks must be between 1 and %d", ErrInvalidInput, maxContextChunks)
	}

	chunks := []SearchResult{}
	if input.UseContext {
		found, err := s.search.Retrieve(ctx, input.OwnerID, query, limit, input.DocumentIDs)
		if err != nil {
			return "", nil, err
		}
		chunks = found
	}
	return query, chunks, nil
}

func (s *ChatService) observe(ctx context.Context, call func() (string, error)) (string, error) {
	provider := s.generator.Provider()
	start := time.Now()
	answer, err := call()
	s.metrics.LLMDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	s.metrics.LLMRequests.WithLabelValues(provider, metrics.Outcome(err)).Inc()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.FromContext(ctx).Error("llm request failed", "provider", provider, "error", err)
		return "", fmt.Errorf("%w: %s", ErrLLMUnavailable, err.Error())
	}
	return answer, nil
}

// BuildPrompt lays out the retrieved excerpts followed by the question.
func BuildPrompt(query string, chunks []SearchResult) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("Question: %s\n\nAnswer: Sorry, I could not find any relevant document to answer this question.", query)
	}

	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[Excerpt %d - Document: %s]\n%s", i+1, c.DocumentName, c.ChunkText)
	}

	var b strings.Builder
	b.WriteString("You are an intelligent assistant that answers questions based on the provided documents.\n\n")
	b.WriteString("DOCUMENT CONTEXT:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nUSER QUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nINSTRUCTIONS:\n")
	b.WriteString("1. Carefully analyze the document excerpts above\n")
	b.WriteString("2. Answer the question using ONLY information present in the context\n")
	b.WriteString("3. If the information is not in the documents, say clearly that you did not find it\n")
	b.WriteString("4. Be detailed and objective\n")
	b.WriteString("5. Cite the document or excerpt when relevant\n\n")
	b.WriteString("ANSWER:")
	return b.String()
}

func fallbackAnswer(chunks []SearchResult) string {
	if len(chunks) == 0 {
		return noContextAnswer
	}
	if len(chunks) > fallbackExcerpts {
		chunks = chunks[:fallbackExcerpts]
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("Document: %s\n%s", c.DocumentName, preview(c.ChunkText, fallbackExcerptLen))
	}
	return "No LLM is configured. These are the most relevant excerpts:\n\n" + strings.Join(parts, "\n\n---\n\n")
}
