// Package apptest provides in-memory stand-ins for the stores, embedder and
// generator used by the application services.
package apptest

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"docai/internal/ai"
	"docai/internal/model"
	"docai/internal/repository"
)

type UserStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uint]*model.User)}
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
		if u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username }), nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (s *UserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id }), nil
}

func (s *UserStore) SetSuperuser(_ context.Context, id uint, superuser bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsSuperuser = superuser
	}
	return nil
}

// SetActive is a test helper with no repository counterpart.
func (s *UserStore) SetActive(id uint, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
	}
}

func (s *UserStore) find(match func(*model.User) bool) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

// DocumentStore keeps documents and their vectors together and satisfies
// both the document and the vector store interfaces.
type DocumentStore struct {
	mu        sync.Mutex
	nextDocID uint
	nextVecID uint
	docs      map[uint]*model.Document
	chunks    map[uint][]model.VectorChunk

	// CreateErr, when set, is returned by CreateWithChunks.
	CreateErr error
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:   make(map[uint]*model.Document),
		chunks: make(map[uint][]model.VectorChunk),
	}
}

func (s *DocumentStore) CreateWithChunks(_ context.Context, doc *model.Document, chunks []model.VectorChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.nextDocID++
	doc.ID = s.nextDocID
	doc.CreatedAt = time.Now().Add(time.Duration(doc.ID) * time.Millisecond)
	doc.UpdatedAt = doc.CreatedAt
	cp := *doc
	s.docs[doc.ID] = &cp

	stored := make([]model.VectorChunk, len(chunks))
	for i := range chunks {
		s.nextVecID++
		chunks[i].ID = s.nextVecID
		chunks[i].DocumentID = doc.ID
		stored[i] = chunks[i]
	}
	s.chunks[doc.ID] = stored
	return nil
}

func (s *DocumentStore) GetByID(_ context.Context, id uint) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *DocumentStore) ListByOwner(_ context.Context, ownerID uint, offset, limit int) ([]model.Document, error) {
	return s.list(func(d *model.Document) bool { return d.OwnerID == ownerID }, offset, limit), nil
}

func (s *DocumentStore) ListAll(_ context.Context, offset, limit int) ([]model.Document, error) {
	return s.list(func(*model.Document) bool { return true }, offset, limit), nil
}

func (s *DocumentStore) list(match func(*model.Document) bool, offset, limit int) []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, d := range s.docs {
		if match(d) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *DocumentStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

// SimilaritySearch ranks every stored chunk by cosine distance.
func (s *DocumentStore) SimilaritySearch(_ context.Context, query []float32, topK int, ownerID uint, documentIDs []uint) ([]model.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := make(map[uint]bool, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = true
	}

	var rows []model.ScoredChunk
	for docID, chunks := range s.chunks {
		doc := s.docs[docID]
		if doc == nil || doc.OwnerID != ownerID {
			continue
		}
		if len(allowed) > 0 && !allowed[docID] {
			continue
		}
		for _, c := range chunks {
			rows = append(rows, model.ScoredChunk{
				ID:           c.ID,
				DocumentID:   docID,
				DocumentName: doc.OriginalFilename,
				ChunkText:    c.ChunkText,
				ChunkIndex:   c.ChunkIndex,
				Distance:     1 - cosine(query, c.Embedding.Slice()),
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Distance == rows[j].Distance {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Distance < rows[j].Distance
	})
	if topK < len(rows) {
		rows = rows[:topK]
	}
	return rows, nil
}

func (s *DocumentStore) ListByDocument(_ context.Context, documentID uint) ([]model.VectorChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.VectorChunk(nil), s.chunks[documentID]...), nil
}

func (s *DocumentStore) CountByDocument(_ context.Context, documentID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.chunks[documentID])), nil
}

// StaticEmbedder hashes lower-cased words into a bag-of-words vector, so
// texts sharing words land close together.
type StaticEmbedder struct {
	Dim   int
	Err   error
	Calls int
}

func NewStaticEmbedder(dim int) *StaticEmbedder {
	return &StaticEmbedder{Dim: dim}
}

func (e *StaticEmbedder) Model() string  { return "static-test" }
func (e *StaticEmbedder) Dimension() int { return e.Dim }

func (e *StaticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.Dim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.Trim(word, ".,!?;:")))
			vec[h.Sum32()%uint32(e.Dim)]++
		}
		out[i] = vec
	}
	return out, nil
}

// StubGenerator records prompts and replays a canned answer.
type StubGenerator struct {
	Name    string
	Answer  string
	Chunks  []string
	Err     error
	Prompts []string
}

func (g *StubGenerator) Provider() string {
	if g.Name == "" {
		return ai.ProviderOllama
	}
	return g.Name
}

func (g *StubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Answer, nil
}

func (g *StubGenerator) Stream(_ context.Context, prompt string, onChunk func(string) error) (string, error) {
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	var full strings.Builder
	for _, c := range g.Chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}

type Publisher struct {
	mu     sync.Mutex
	Err    error
	events []model.DocumentEvent
}

func (p *Publisher) Publish(_ context.Context, event model.DocumentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

func (p *Publisher) Events() []model.DocumentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.DocumentEvent(nil), p.events...)
}

// EmbeddingCache is a map-backed query embedding cache.
type EmbeddingCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	Hits    int
}

func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{entries: make(map[string][]float32)}
}

func (c *EmbeddingCache) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[model+"\x00"+text]
	if ok {
		c.Hits++
	}
	return vec, ok, nil
}

func (c *EmbeddingCache) Set(_ context.Context, model, text string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[model+"\x00"+text] = vec
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
