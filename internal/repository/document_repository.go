package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docai/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateWithChunks stores the document and its vectors atomically. Chunk
// DocumentID fields are filled in from the new document.
func (r *DocumentRepository) CreateWithChunks(ctx context.Context, doc *model.Document, chunks []model.VectorChunk) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("create document failed: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].DocumentID = doc.ID
		}
		if err := tx.CreateInBatches(&chunks, 100).Error; err != nil {
			return fmt.Errorf("create vector chunks failed: %w", err)
		}
		return nil
	})
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Document, error) {
	var list []model.Document
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) ListAll(ctx context.Context, offset, limit int) ([]model.Document, error) {
	var list []model.Document
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list all documents failed: %w", err)
	}
	return list, nil
}

// Delete removes the document and its vectors. The foreign key cascades as
// well; deleting chunks first keeps this correct on older schemas.
func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.VectorChunk{}).Error; err != nil {
			return fmt.Errorf("delete vector chunks failed: %w", err)
		}
		if err := tx.Delete(&model.Document{}, id).Error; err != nil {
			return fmt.Errorf("delete document failed: %w", err)
		}
		return nil
	})
}
