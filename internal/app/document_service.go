package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"docai/internal/ai"
	"docai/internal/logger"
	"docai/internal/metrics"
	"docai/internal/model"
	"docai/internal/pkg/chunker"
	"docai/internal/pkg/filevalidate"
	"docai/internal/pkg/textextract"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrFileRejected      = errors.New("file rejected")
	ErrNoExtractableText = errors.New("no text could be extracted from the file")
)

const (
	previewLength    = 500
	defaultListLimit = 100
	maxListLimit     = 1000
)

type DocumentService struct {
	docs      DocumentStore
	vectors   VectorStore
	validator *filevalidate.Validator
	extractor TextExtractor
	chunker   *chunker.Chunker
	embedder  ai.Embedder
	publisher EventPublisher
	metrics   *metrics.Metrics
	uploadDir string
	now       func() time.Time
}

type DocumentServiceDeps struct {
	Documents DocumentStore
	Vectors   VectorStore
	Validator *filevalidate.Validator
	Extractor TextExtractor
	Chunker   *chunker.Chunker
	Embedder  ai.Embedder
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	UploadDir string
}

func NewDocumentService(deps DocumentServiceDeps) *DocumentService {
	if deps.Chunker == nil {
		deps.Chunker = chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &DocumentService{
		docs:      deps.Documents,
		vectors:   deps.Vectors,
		validator: deps.Validator,
		extractor: deps.Extractor,
		chunker:   deps.Chunker,
		embedder:  deps.Embedder,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		uploadDir: deps.UploadDir,
		now:       time.Now,
	}
}

type UploadInput struct {
	OwnerID  uint
	Filename string

	// Size is the size announced by the client. The stored byte count is
	// validated again after the copy.
	Size    int64
	Content io.Reader
}

type DocumentDetail struct {
	model.Document
	ContentPreview string `json:"content_text"`
	ChunkCount     int64  `json:"chunk_count"`
}

// Upload stores the file, extracts and chunks its text, embeds the chunks and
// persists the document together with its vectors. The stored file is removed
// when any step fails.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (doc *model.Document, err error) {
	log := logger.FromContext(ctx)

	ext, err := s.validator.Validate(input.Filename, input.Size)
	if err != nil {
		s.metrics.DocumentsUpload.WithLabelValues("unknown", "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrFileRejected, err.Error())
	}
	defer func() {
		s.metrics.DocumentsUpload.WithLabelValues(ext, metrics.Outcome(err)).Inc()
	}()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	storedName := filevalidate.SafeName(input.OwnerID, ext, s.now())
	path := filepath.Join(s.uploadDir, storedName)

	written, err := s.saveFile(path, input.Content)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("remove upload after failure", "path", path, "error", rmErr)
			}
		}
	}()
	if _, err = s.validator.Validate(input.Filename, written); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileRejected, err.Error())
	}
	log.Info("file saved", "path", path, "size", written)

	extracted, err := s.extractor.Extract(ctx, path, ext)
	if err != nil {
		switch {
		case errors.Is(err, textextract.ErrNoText):
			return nil, ErrNoExtractableText
		case errors.Is(err, textextract.ErrUnsupportedType):
			return nil, fmt.Errorf("%w: %s", ErrFileRejected, err.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrNoExtractableText, err.Error())
	}
	log.Info("text extracted", "words", extracted.WordCount, "pages", extracted.PageCount)

	chunks := s.chunker.Split(extracted.Text)
	if len(chunks) == 0 {
		return nil, ErrNoExtractableText
	}

	embeddings, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embed chunks failed: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	doc = &model.Document{
		Filename:         storedName,
		OriginalFilename: filepath.Base(input.Filename),
		FilePath:         path,
		FileSize:         written,
		FileType:         ext,
		ContentText:      extracted.Text,
		PageCount:        extracted.PageCount,
		WordCount:        extracted.WordCount,
		OwnerID:          input.OwnerID,
	}
	vectorChunks := make([]model.VectorChunk, len(chunks))
	for i, text := range chunks {
		vectorChunks[i] = model.NewVectorChunk(i, text, embeddings[i])
	}
	if err = s.docs.CreateWithChunks(ctx, doc, vectorChunks); err != nil {
		return nil, err
	}
	s.metrics.ChunksIndexed.Add(float64(len(vectorChunks)))
	log.Info("document indexed", "document_id", doc.ID, "chunks", len(vectorChunks))

	s.notify(ctx, model.EventDocumentUploaded, doc)
	return doc, nil
}

func (s *DocumentService) saveFile(path string, content io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create upload file failed: %w", err)
	}

	// Read one byte past the limit so oversize bodies are detectable.
	src := content
	if limit := s.validator.MaxBytes(); limit > 0 {
		src = io.LimitReader(content, limit+1)
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write upload file failed: %w", copyErr)
	}
	return written, nil
}

// Get returns the document when it belongs to ownerID. Documents of other
// users are reported as missing.
func (s *DocumentService) Get(ctx context.Context, ownerID, id uint) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.OwnerID != ownerID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) Detail(ctx context.Context, ownerID, id uint) (*DocumentDetail, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	count, err := s.vectors.CountByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Document:       *doc,
		ContentPreview: preview(doc.ContentText, previewLength),
		ChunkCount:     count,
	}, nil
}

func (s *DocumentService) List(ctx context.Context, ownerID uint, skip, limit int) ([]model.Document, error) {
	skip, limit = pageBounds(skip, limit)
	list, err := s.docs.ListByOwner(ctx, ownerID, skip, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Document{}
	}
	return list, nil
}

func (s *DocumentService) ListAll(ctx context.Context, skip, limit int) ([]model.Document, error) {
	skip, limit = pageBounds(skip, limit)
	list, err := s.docs.ListAll(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Document{}
	}
	return list, nil
}

func (s *DocumentService) Chunks(ctx context.Context, ownerID, id uint) ([]model.VectorChunk, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	chunks, err := s.vectors.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []model.VectorChunk{}
	}
	return chunks, nil
}

func (s *DocumentService) Delete(ctx context.Context, ownerID, id uint) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		logger.FromContext(ctx).Warn("remove document file failed", "path", doc.FilePath, "error", err)
	}
	logger.FromContext(ctx).Info("document deleted", "document_id", doc.ID)

	s.notify(ctx, model.EventDocumentDeleted, doc)
	return nil
}

// notify never fails the calling operation.
func (s *DocumentService) notify(ctx context.Context, event string, doc *model.Document) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, model.NewDocumentEvent(event, doc, s.now()))
	s.metrics.EventsPublished.WithLabelValues(event, metrics.Outcome(err)).Inc()
	if err != nil {
		logger.FromContext(ctx).Warn("publish document event failed", "event", event, "document_id", doc.ID, "error", err)
	}
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

func pageBounds(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return skip, limit
}
