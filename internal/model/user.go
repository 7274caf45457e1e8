package model

import "time"

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username       string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser    bool      `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
