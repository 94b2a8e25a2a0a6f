package model

import "time"

const (
	DocumentKindText  = "document"
	DocumentKindTable = "table"
)

// Document records one ingested source. The vectors and tables themselves live in memory.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	FileType  string    `gorm:"size:32;not null" json:"file_type"`
	Kind      string    `gorm:"size:16;not null" json:"kind"`
	BatchID   string    `gorm:"size:36;index" json:"batch_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
