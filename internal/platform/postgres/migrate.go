package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docai/internal/model"
)

// ivfflat needs some rows to build good centroids; 100 lists matches the
// initial schema and is fine up to roughly a million vectors.
const ivfflatLists = 100

// Migrate enables pgvector and brings the schema up to date. It is safe to
// run on every start.
func Migrate(ctx context.Context, db *gorm.DB, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	db = db.WithContext(ctx)

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector extension failed: %w", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Document{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vector_store (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_text TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	embedding vector(%d),
	chunk_metadata TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_vector_store_document_id ON vector_store (document_id)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_vector_store_embedding ON vector_store
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, ivfflatLists),
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate vector_store failed: %w", err)
		}
	}
	return nil
}
