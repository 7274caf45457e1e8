package model

import "time"

type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Filename         string    `gorm:"size:255;not null" json:"filename"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	FilePath         string    `gorm:"size:512;not null" json:"-"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	FileType         string    `gorm:"size:16;not null" json:"file_type"`
	ContentText      string    `gorm:"type:text" json:"-"`
	PageCount        int       `json:"page_count"`
	WordCount        int       `json:"word_count"`
	OwnerID          uint      `gorm:"not null;index" json:"owner_id"`
	Owner            *User     `gorm:"foreignKey:OwnerID" json:"-"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
