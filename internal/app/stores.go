package app

import (
	"context"

	"docai/internal/model"
	"docai/internal/pkg/textextract"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	SetSuperuser(ctx context.Context, id uint, superuser bool) error
}

type DocumentStore interface {
	CreateWithChunks(ctx context.Context, doc *model.Document, chunks []model.VectorChunk) error
	GetByID(ctx context.Context, id uint) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Document, error)
	ListAll(ctx context.Context, offset, limit int) ([]model.Document, error)
	Delete(ctx context.Context, id uint) error
}

type VectorStore interface {
	SimilaritySearch(ctx context.Context, query []float32, topK int, ownerID uint, documentIDs []uint) ([]model.ScoredChunk, error)
	ListByDocument(ctx context.Context, documentID uint) ([]model.VectorChunk, error)
	CountByDocument(ctx context.Context, documentID uint) (int64, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, path, fileType string) (*textextract.Result, error)
}

// EventPublisher is optional; services skip notification when it is nil.
type EventPublisher interface {
	Publish(ctx context.Context, event model.DocumentEvent) error
}

type EmbeddingCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Set(ctx context.Context, model, text string, vec []float32) error
}
