package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// VectorChunk is one embedded slice of a document's text. The table is
// created by hand-written DDL because the column width follows configuration.
type VectorChunk struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	DocumentID    uint            `gorm:"not null;index" json:"document_id"`
	ChunkText     string          `gorm:"type:text;not null" json:"chunk_text"`
	ChunkIndex    int             `gorm:"not null" json:"chunk_index"`
	Embedding     pgvector.Vector `gorm:"type:vector" json:"-"`
	ChunkMetadata string          `gorm:"type:text" json:"chunk_metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (VectorChunk) TableName() string {
	return "vector_store"
}

// ScoredChunk is a similarity search row: the chunk, its document name and
// the cosine distance to the query.
type ScoredChunk struct {
	ID           uint
	DocumentID   uint
	DocumentName string
	ChunkText    string
	ChunkIndex   int
	Distance     float64
}

func NewVectorChunk(index int, text string, embedding []float32) VectorChunk {
	return VectorChunk{
		ChunkText:     text,
		ChunkIndex:    index,
		Embedding:     pgvector.NewVector(embedding),
		ChunkMetadata: fmt.Sprintf(`{"chunk_index": %d, "chunk_size": %d}`, index, len(strings.Fields(text))),
	}
}
