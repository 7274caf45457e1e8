package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"docai/internal/model"
)

type VectorRepository struct {
	db *gorm.DB
}

func NewVectorRepository(db *gorm.DB) *VectorRepository {
	return &VectorRepository{db: db}
}

// SimilaritySearch returns the topK chunks closest to query by cosine
// distance, restricted to documents owned by ownerID and, when given, to
// documentIDs.
func (r *VectorRepository) SimilaritySearch(
	ctx context.Context,
	query []float32,
	topK int,
	ownerID uint,
	documentIDs []uint,
) ([]model.ScoredChunk, error) {
	q := r.db.WithContext(ctx).
		Table("vector_store AS v").
		Select(
			"v.id, v.document_id, d.original_filename AS document_name, v.chunk_text, v.chunk_index, v.embedding <=> ? AS distance",
			pgvector.NewVector(query),
		).
		Joins("JOIN documents d ON d.id = v.document_id").
		Where("d.owner_id = ?", ownerID)
	if len(documentIDs) > 0 {
		q = q.Where("v.document_id IN ?", documentIDs)
	}

	var rows []model.ScoredChunk
	if err := q.Order("distance ASC").Limit(topK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	return rows, nil
}

func (r *VectorRepository) ListByDocument(ctx context.Context, documentID uint) ([]model.VectorChunk, error) {
	var chunks []model.VectorChunk
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("list vector chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *VectorRepository) CountByDocument(ctx context.Context, documentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VectorChunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count vector chunks failed: %w", err)
	}
	return count, nil
}
