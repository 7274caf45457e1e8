package model

import "time"

const (
	EventDocumentUploaded = "document_uploaded"
	EventDocumentDeleted  = "document_deleted"
)

// DocumentEvent is published to the broker and forwarded to the webhook.
type DocumentEvent struct {
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Document  DocumentSummary `json:"document"`
	UserID    uint            `json:"user_id"`
}

type DocumentSummary struct {
	ID        uint   `json:"id"`
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count"`
	WordCount int    `json:"word_count"`
}

func NewDocumentEvent(event string, doc *Document, at time.Time) DocumentEvent {
	return DocumentEvent{
		Event:     event,
		Timestamp: at.UTC(),
		Document: DocumentSummary{
			ID:        doc.ID,
			Filename:  doc.OriginalFilename,
			FileType:  doc.FileType,
			FileSize:  doc.FileSize,
			PageCount: doc.PageCount,
			WordCount: doc.WordCount,
		},
		UserID: doc.OwnerID,
	}
}
